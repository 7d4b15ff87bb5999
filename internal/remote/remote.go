// Package remote implements the HTTP client for the index-ordered remote
// clipboard endpoint.
//
// The endpoint holds a single latest value per account and tags every
// accepted write with a monotonically increasing index:
//
//	GET  /api/v1/clipboard with X-Index: <last seen>
//	     304 when nothing newer exists, otherwise 200 with the payload body
//	     and X-Index (new index), X-Type (text|screenshot|file) and, for
//	     files, X-FileName (percent-encoded) headers.
//	POST /api/v1/clipboard with an application/octet-stream body plus
//	     X-Type and X-FileName headers; the response X-Index is the index
//	     assigned to the accepted value.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/clipkeep/clipkeep/internal/content"
)

const (
	clipboardPath = "/api/v1/clipboard"

	headerIndex    = "X-Index"
	headerType     = "X-Type"
	headerFileName = "X-FileName"

	defaultTimeout = 15 * time.Second

	// maxPayload bounds response bodies; the remote service caps payloads
	// far below this.
	maxPayload = 16 << 20
)

// ErrNotModified is returned by Pull when the remote has nothing newer than
// the supplied index.
var ErrNotModified = errors.New("remote clipboard not modified")

// ServerError is a non-2xx, non-304 response from the remote endpoint.
type ServerError struct {
	Status int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned HTTP %d", e.Status)
}

// DecodeError is a response that violates the endpoint contract: an
// unparseable index, an unknown type, or an undecodable file name.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed %s in response: %s", e.Field, e.Reason)
}

// Payload is one pulled clipboard value and its server-assigned index.
type Payload struct {
	Item  content.Item
	Index uint64
}

// Client talks to a single remote clipboard endpoint.
type Client struct {
	base string
	hc   *http.Client
}

// New returns a client for the endpoint at baseURL. A nil hc selects a
// default client with a request timeout.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), hc: hc}
}

// Pull requests content newer than since. It returns ErrNotModified when the
// remote has nothing newer, a *ServerError for non-2xx statuses, and a
// *DecodeError when a 200 response violates the contract.
func (c *Client) Pull(ctx context.Context, since uint64) (*Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+clipboardPath, nil)
	if err != nil {
		return nil, fmt.Errorf("pull: %w", err)
	}
	req.Header.Set(headerIndex, strconv.FormatUint(since, 10))

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pull: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusNotModified {
		return nil, ErrNotModified
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServerError{Status: resp.StatusCode}
	}

	index, err := strconv.ParseUint(resp.Header.Get(headerIndex), 10, 64)
	if err != nil {
		return nil, &DecodeError{Field: headerIndex,
			Reason: fmt.Sprintf("%q is not an unsigned integer", resp.Header.Get(headerIndex))}
	}
	kind, ok := content.KindFromWire(resp.Header.Get(headerType))
	if !ok {
		return nil, &DecodeError{Field: headerType,
			Reason: fmt.Sprintf("unknown type %q", resp.Header.Get(headerType))}
	}
	var name string
	if raw := resp.Header.Get(headerFileName); raw != "" {
		name, err = url.PathUnescape(raw)
		if err != nil {
			return nil, &DecodeError{Field: headerFileName, Reason: err.Error()}
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return nil, fmt.Errorf("pull body: %w", err)
	}

	var item content.Item
	switch kind {
	case content.KindText:
		item = content.NewText(string(data))
	case content.KindImage:
		item = content.NewImage(data)
	case content.KindFile:
		item = content.NewFile(name, data)
	}
	return &Payload{Item: item, Index: index}, nil
}

// Push sends item and returns the index the remote assigned to it. Non-2xx
// statuses surface as *ServerError; a missing or unparseable response index
// as *DecodeError.
func (c *Client) Push(ctx context.Context, item content.Item) (uint64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+clipboardPath, bytes.NewReader(item.Data))
	if err != nil {
		return 0, fmt.Errorf("push: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(headerType, item.Kind.WireName())
	if item.Kind == content.KindFile && item.FileName != "" {
		req.Header.Set(headerFileName, url.PathEscape(item.FileName))
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("push: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &ServerError{Status: resp.StatusCode}
	}
	index, err := strconv.ParseUint(resp.Header.Get(headerIndex), 10, 64)
	if err != nil {
		return 0, &DecodeError{Field: headerIndex,
			Reason: fmt.Sprintf("%q is not an unsigned integer", resp.Header.Get(headerIndex))}
	}
	return index, nil
}

// drain consumes the rest of the body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPayload))
	resp.Body.Close()
}
