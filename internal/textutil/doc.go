// Package textutil provides filename helpers for derived output names.
//
// SanitizeFileName strips characters that are unsafe in a path segment while
// keeping the name readable; Slug folds accents and collapses everything else
// into lowercase hyphenated tokens suitable for job names and asset stems.
package textutil
