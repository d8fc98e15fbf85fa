// Package hmacsign implements the shared request-signing scheme between the
// relay that forwards vehicle photos and the gateway that accepts them. The
// signature is HMAC-SHA256 over the attachment metadata and bytes plus the
// request timestamp, so any tampering with filenames, content types, payload
// bytes, or the timestamp invalidates it.
package hmacsign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// ErrInvalidSignature is returned by Verify when the presented signature does
// not match the recomputed one.
var ErrInvalidSignature = eris.New("hmacsign: signature mismatch")

// Attachment carries the signed metadata and bytes of one file.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Signer signs and verifies submissions with a shared secret.
type Signer struct {
	secret []byte
}

// New creates a Signer for the given shared secret.
func New(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign computes the hex HMAC-SHA256 for the given attachments, optional
// sender identity, and timestamp (unix seconds, as sent in X-Timestamp).
// The payload is the sender email (when present), then for each attachment
// "{filename}:{content-type}:" followed by its raw bytes, then the timestamp.
func (s *Signer) Sign(atts []Attachment, senderEmail, timestamp string) string {
	mac := hmac.New(sha256.New, s.secret)
	if senderEmail != "" {
		mac.Write([]byte(senderEmail))
	}
	for _, a := range atts {
		mac.Write([]byte(a.Filename))
		mac.Write([]byte{':'})
		mac.Write([]byte(a.ContentType))
		mac.Write([]byte{':'})
		mac.Write(a.Data)
	}
	mac.Write([]byte(timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature and compares it in constant time.
func (s *Signer) Verify(atts []Attachment, senderEmail, timestamp, signature string) error {
	want := s.Sign(atts, senderEmail, timestamp)
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// ParseTimestamp decodes the X-Timestamp wire value (unix seconds, string).
func ParseTimestamp(raw string) (time.Time, error) {
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "hmacsign: parse timestamp %q", raw)
	}
	return time.Unix(secs, 0), nil
}

// Timestamp encodes a time as the X-Timestamp wire value.
func Timestamp(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
