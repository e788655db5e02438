// Package imagedata decodes base64 image payloads. Both the bare form and the
// "data:<mime>;base64," form are accepted and treated identically.
package imagedata

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DefaultMimeType is assumed when the payload carries no data-URL header
const DefaultMimeType = "image/jpeg"

const base64Marker = ";base64,"

// ErrInvalid is returned for empty or undecodable payloads
var ErrInvalid = errors.New("invalid base64 image")

// Payload is a decoded image
type Payload struct {
	MimeType string // From the data-URL header, or sniffed from the bytes
	Base64   string // Canonical base64 body without any header
	Data     []byte
}

// Parse validates and decodes a payload
func Parse(raw string) (*Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalid)
	}

	mimeType := ""
	body := raw
	if idx := strings.Index(raw, base64Marker); idx >= 0 {
		header := raw[:idx]
		body = raw[idx+len(base64Marker):]
		mimeType = strings.TrimPrefix(header, "data:")
	}

	body = strings.Join(strings.Fields(body), "")
	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalid)
	}

	if mimeType == "" || !strings.Contains(mimeType, "/") {
		mimeType = sniff(data)
	}

	return &Payload{
		MimeType: mimeType,
		Base64:   body,
		Data:     data,
	}, nil
}

// Canonical returns the bare base64 body of raw, or raw unchanged when it
// cannot be parsed
func Canonical(raw string) string {
	p, err := Parse(raw)
	if err != nil {
		return raw
	}
	return p.Base64
}

// Encode builds a bare base64 payload from image bytes
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DataURL renders the payload as an inline data URL
func (p *Payload) DataURL() string {
	return "data:" + p.MimeType + base64Marker + p.Base64
}

// Extension returns a file extension for the payload's mime type
func (p *Payload) Extension() string {
	sub := p.MimeType
	if idx := strings.LastIndex(sub, "/"); idx >= 0 {
		sub = sub[idx+1:]
	}
	switch sub {
	case "jpeg", "pjpeg":
		return "jpg"
	case "":
		return "jpg"
	default:
		return sub
	}
}

func sniff(data []byte) string {
	detected := http.DetectContentType(data)
	if strings.HasPrefix(detected, "image/") {
		return detected
	}
	return DefaultMimeType
}
