// Package pipeline drives uploaded items through their processing run:
// metadata extraction, a simulated transcode, content-sensitivity
// screening, and finalization. Progress is checkpointed to the catalog at
// stage boundaries only; sub-stage ticks exist solely on the progress bus.
//
// Each item gets at most one run at a time. Runs execute on their own
// goroutines, detached from the request that created the item, and are
// supervised through the Run handle.
package pipeline
