// Package ipc provides helpers for the local control channel used by CLI
// sub-commands (status/sync/history/copy/paste) to talk to a running
// clipkeep daemon instead of reaching the remote endpoint themselves.
//
// The control channel is plain HTTP served over a Unix domain socket, or a
// named pipe on Windows. The daemon listens on it; CLI sub-commands probe
// for it and fail with a clear message when no daemon is up. No auth is
// needed because the endpoint is owner-restricted by the OS.
package ipc

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"
)

// SocketPath returns the platform-appropriate control endpoint:
//
//   - override with $CLIPKEEP_SOCKET
//   - $XDG_RUNTIME_DIR/clipkeep.sock, falling back to $TMPDIR/clipkeep.sock
//   - \\.\pipe\clipkeep on Windows
func SocketPath() string {
	if s := os.Getenv("CLIPKEEP_SOCKET"); s != "" {
		return s
	}
	return socketPath()
}

// IsRunning reports whether a clipkeep daemon appears to be listening on
// the control endpoint. It does a cheap dial-and-close; no data is
// exchanged.
func IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c, err := dialIPC(ctx, SocketPath())
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates a net.Listener on the control endpoint, removing any stale
// socket file left by a previous run first.
func Listen() (net.Listener, error) {
	return listenIPC(SocketPath())
}

// HTTPClient returns an http.Client that dials the control endpoint no
// matter what host the request URL names.
func HTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return dialIPC(ctx, SocketPath())
			},
		},
	}
}
