// Package watchfolder monitors a directory for camera footage and enqueues an
// ingest for each file once it stops changing.
//
// A Monitor alternates between SCANNING and SLEEPING until its context is
// cancelled or the directory disappears, both of which end in STOPPED. Each
// scan rebuilds the file table from a fresh listing, carrying the pass count
// and any enqueued job id forward by filename. A file is first seen on pass 1;
// every later scan where its size or its modification time is unchanged
// advances the pass, any other change starts it over. On pass 3 the file is
// handed to the Enqueuer and never considered again while it remains in the
// folder.
package watchfolder
