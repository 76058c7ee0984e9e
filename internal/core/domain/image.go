package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// MIMETypeJPEG is the only format sent to the analyzer.
const MIMETypeJPEG = "image/jpeg"

// MinInlinePayloadChars rejects base64 payloads too short to hold a real photo.
const MinInlinePayloadChars = 100

// CapturedImage is a single encoded snapshot. Treat it as immutable.
type CapturedImage struct {
	Data       []byte    `json:"-"`
	MIMEType   string    `json:"mimeType"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Size reports the encoded payload length in bytes.
func (c CapturedImage) Size() int {
	return len(c.Data)
}

// Base64 returns the standard base64 encoding of the payload.
func (c CapturedImage) Base64() string {
	return base64.StdEncoding.EncodeToString(c.Data)
}

// DataURL renders the image as a data URI.
func (c CapturedImage) DataURL() string {
	mime := c.MIMEType
	if mime == "" {
		mime = MIMETypeJPEG
	}
	return "data:" + mime + ";base64," + c.Base64()
}

// InlinePayload strips an optional data-URI prefix and checks that what is
// left is plausibly an image.
func InlinePayload(encoded string) (string, error) {
	payload := encoded
	if i := strings.IndexByte(payload, ','); i >= 0 {
		payload = payload[i+1:]
	}
	payload = strings.TrimSpace(payload)
	if len(payload) < MinInlinePayloadChars {
		return "", fmt.Errorf("payload has %d characters: %w", len(payload), ErrInvalidImage)
	}
	return payload, nil
}

// DecodeDataURI returns the raw bytes behind a data URI or a bare base64 string.
func DecodeDataURI(encoded string) ([]byte, string, error) {
	mime := ""
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.IndexByte(encoded, ','); i > 0 {
			header := encoded[len("data:"):i]
			mime, _, _ = strings.Cut(header, ";")
		}
	}
	payload, err := InlinePayload(encoded)
	if err != nil {
		return nil, "", err
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64: %v: %w", err, ErrInvalidImage)
	}
	return raw, mime, nil
}
