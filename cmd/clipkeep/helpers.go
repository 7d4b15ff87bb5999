package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/clipkeep/clipkeep/internal/ipc"
)

func getenv(key string) string { return os.Getenv(key) }

func isContainerID(s string) bool {
	if len(s) < 12 || len(s) > 64 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// defaultDevice returns a human-readable identifier for this device.
func defaultDevice() string {
	for _, env := range []string{
		"CLIPKEEP_DEVICE",
		"CONTAINER_NAME",
		"COMPOSE_SERVICE",
		"HOSTNAME_FRIENDLY",
	} {
		if v := getenv(env); v != "" {
			return v
		}
	}
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown"
	}
	if isContainerID(h) {
		return "container-" + h[:8]
	}
	return h
}

// apiBase returns an HTTP client and base URL for the daemon control API:
// the local Unix socket by default, or --api-addr over TCP.
func apiBase(v *viper.Viper) (*http.Client, string, error) {
	if addr := v.GetString("api-addr"); addr != "" {
		return &http.Client{Timeout: 30 * time.Second}, "http://" + addr, nil
	}
	if !ipc.IsRunning() {
		return nil, "", fmt.Errorf("no clipkeep daemon on %s (start one with \"clipkeep daemon\")", ipc.SocketPath())
	}
	// The URL host is ignored; the transport always dials the socket.
	return ipc.HTTPClient(), "http://clipkeep", nil
}

// apiDo issues a request and converts non-2xx responses into errors that
// carry the server's message.
func apiDo(client *http.Client, method, url string, body io.Reader, header http.Header) (*http.Response, error) {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, err
	}
	for k, vals := range header {
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

// apiJSON is apiDo plus a JSON decode of the response body.
func apiJSON(client *http.Client, method, url string, body io.Reader, out any) error {
	resp, err := apiDo(client, method, url, body, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// fmtAge renders a timestamp as a coarse relative age for table output.
func fmtAge(t time.Time) string {
	age := time.Since(t).Round(time.Second)
	if age < time.Minute {
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	}
	if age < time.Hour {
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	}
	if age < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	}
	return t.Format("2006-01-02")
}
