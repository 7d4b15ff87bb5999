//go:build darwin

package clip

// New returns the macOS clipboard backend. NSPasteboard has no push
// notification, so changes are detected by polling like everywhere else.
func New(opts Options) Backend {
	return newPollBackend("macOS NSPasteboard (poll)", opts)
}
