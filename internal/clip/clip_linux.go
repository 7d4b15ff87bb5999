//go:build linux

package clip

// New returns the Linux clipboard backend (X11 or Wayland through an XWayland
// bridge), or a headless no-op backend if the display environment is
// unavailable.
func New(opts Options) Backend {
	return newPollBackend("Linux clipboard (poll)", opts)
}
