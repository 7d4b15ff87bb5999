// Package content defines the typed clipboard content model shared by the
// monitor, the history store, and the sync engine. An Item is immutable once
// constructed; its fingerprint is the sole equality signal used for
// duplicate and self-write suppression.
package content

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Kind identifies the representation of a clipboard item.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindFile  Kind = "file"
)

// IsValid reports whether k is one of the known kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindText, KindImage, KindFile:
		return true
	}
	return false
}

// WireName returns the kind's name in the remote endpoint vocabulary,
// which calls images "screenshot".
func (k Kind) WireName() string {
	if k == KindImage {
		return "screenshot"
	}
	return string(k)
}

// KindFromWire maps an X-Type header value to a Kind.
func KindFromWire(s string) (Kind, bool) {
	switch s {
	case "text":
		return KindText, true
	case "screenshot":
		return KindImage, true
	case "file":
		return KindFile, true
	}
	return "", false
}

// Item is a single captured clipboard value.
type Item struct {
	Kind        Kind   `json:"kind"`
	Data        []byte `json:"data,omitempty"`
	FileName    string `json:"fileName,omitempty"` // set only for KindFile
	Fingerprint string `json:"fingerprint"`
}

// NewText creates a text item from a plain string.
func NewText(text string) Item {
	data := []byte(text)
	return Item{
		Kind:        KindText,
		Data:        data,
		Fingerprint: fingerprint(KindText, "", data),
	}
}

// NewImage creates an image item from PNG bytes.
func NewImage(png []byte) Item {
	return Item{
		Kind:        KindImage,
		Data:        png,
		Fingerprint: fingerprint(KindImage, "", png),
	}
}

// NewFile creates a single-file item from a name and the file's contents.
func NewFile(name string, data []byte) Item {
	return Item{
		Kind:        KindFile,
		Data:        data,
		FileName:    name,
		Fingerprint: fingerprint(KindFile, name, data),
	}
}

// Empty reports whether the item carries no payload.
func (it Item) Empty() bool { return len(it.Data) == 0 }

// Size returns the payload length in bytes.
func (it Item) Size() int { return len(it.Data) }

// Equal reports whether two items carry the same content. Items built by the
// constructors compare by fingerprint; zero-value items fall back to a field
// comparison.
func (it Item) Equal(other Item) bool {
	if it.Fingerprint != "" && other.Fingerprint != "" {
		return it.Fingerprint == other.Fingerprint
	}
	return it.Kind == other.Kind &&
		it.FileName == other.FileName &&
		bytes.Equal(it.Data, other.Data)
}

// Preview returns a short loggable description: up to 120 characters for
// text, name and byte size for files, kind and byte size otherwise.
func (it Item) Preview() string {
	switch it.Kind {
	case KindText:
		s := string(it.Data)
		if r := []rune(s); len(r) > 120 {
			s = string(r[:120]) + "…"
		}
		return s
	case KindFile:
		if it.FileName != "" {
			return fmt.Sprintf("%s (%d bytes)", it.FileName, len(it.Data))
		}
	}
	return fmt.Sprintf("%s (%d bytes)", it.Kind, len(it.Data))
}

// fingerprint hashes the kind tag, file name, and payload so equal content
// always yields equal fingerprints without a full byte comparison, and the
// same bytes under different kinds never collide.
func fingerprint(kind Kind, name string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
