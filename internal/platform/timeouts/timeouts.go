// Package timeouts defines shared timeout constants used across the server.
// Centralizing these values prevents drift between surfaces and makes the
// durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// StreamWrite caps a single frame write to one client event stream. A client
// that cannot drain a frame within this window is treated as dead.
const StreamWrite = 5 * time.Second

// Heartbeat is the default interval between keep-alive frames on live
// event streams.
const Heartbeat = 30 * time.Second
