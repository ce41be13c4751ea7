// Package ingest runs the polling loop that ties the engine together:
// fetch raw trades since the watermark, normalize, detect, store, alert,
// then advance the watermark.
//
// The loop is deliberately single-threaded over trades. One cycle runs at
// a time and trades within a cycle are processed in order, so detector
// reads always see the store as of the previous trade. Only alert
// delivery fans out concurrently, downstream of all state updates.
package ingest
