//go:build windows

package clip

// New returns the Windows clipboard backend.
func New(opts Options) Backend {
	return newPollBackend("Windows clipboard (poll)", opts)
}
