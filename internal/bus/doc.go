// Package bus implements the progress broadcast channel that decouples
// pipeline execution from its observers. Topics exist per item and per
// tenant; there is no buffering beyond each subscriber's channel, no
// replay, and no delivery guarantee to disconnected subscribers.
package bus
