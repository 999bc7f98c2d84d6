// Package staging prunes the per-build work directories left under
// paths.temp_dir once their builds are long finished.
package staging
