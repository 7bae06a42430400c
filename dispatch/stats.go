package dispatch

// DispatchStats is a point-in-time snapshot of a dispatcher's monotonic
// counters. Received counts messages taken from the queue; every received
// message ends up either Delivered or Dropped.
type DispatchStats struct {
	Received  uint64
	Delivered uint64
	Dropped   uint64
}
