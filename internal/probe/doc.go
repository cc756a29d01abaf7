// Package probe wraps ffprobe for metadata extraction. It is one
// implementation of the pipeline's MetadataProber capability; anything that
// can report a duration for a file path can stand in for it.
package probe
