//go:build !linux && !darwin && !windows

package clip

// New returns a no-op backend on platforms without clipboard support.
func New(_ Options) Backend { return newHeadless() }
