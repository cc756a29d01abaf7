// Package sensitivity screens uploaded media for content sensitivity. The
// shipped analyzer is a keyword heuristic over title and description text;
// an ML-backed implementation can replace it behind the same pipeline
// capability interface.
package sensitivity
