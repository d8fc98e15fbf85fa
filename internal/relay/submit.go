package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsnap/pkg/hmacsign"
)

// Submitter signs drop files and posts them to the gateway, one file per
// request so a rejected upload never blocks its batch.
type Submitter struct {
	client     *http.Client
	gatewayURL string
	signer     *hmacsign.Signer
	sender     string
	location   string
}

// NewSubmitter creates a Submitter for the gateway at gatewayURL. sender is
// the optional operator identity forwarded as sender_email; location is the
// optional camera site label stamped on every photo from this drop.
func NewSubmitter(gatewayURL string, signer *hmacsign.Signer, sender, location string, timeout time.Duration) *Submitter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Submitter{
		client:     &http.Client{Timeout: timeout},
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		signer:     signer,
		sender:     sender,
		location:   location,
	}
}

// Submit posts one file and returns the object keys the gateway stored it
// under. The content type is sniffed from the bytes; it both labels the
// multipart part and feeds the signature, matching what the gateway verifies.
func (s *Submitter) Submit(ctx context.Context, filename string, data []byte) ([]string, error) {
	contentType := mimetype.Detect(data).String()
	atts := []hmacsign.Attachment{{Filename: filename, ContentType: contentType, Data: data}}
	ts := hmacsign.Timestamp(time.Now())
	sig := s.signer.Sign(atts, s.sender, ts)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if s.sender != "" {
		if err := mw.WriteField("sender_email", s.sender); err != nil {
			return nil, eris.Wrap(err, "relay: write sender field")
		}
	}
	if s.location != "" {
		if err := mw.WriteField("location", s.location); err != nil {
			return nil, eris.Wrap(err, "relay: write location field")
		}
	}
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="attachments"; filename=%q`, filename))
	hdr.Set("Content-Type", contentType)
	pw, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, eris.Wrap(err, "relay: create attachment part")
	}
	if _, err := pw.Write(data); err != nil {
		return nil, eris.Wrap(err, "relay: write attachment")
	}
	if err := mw.Close(); err != nil {
		return nil, eris.Wrap(err, "relay: finalize form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL+"/api/photos", &body)
	if err != nil {
		return nil, eris.Wrap(err, "relay: build request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", sig)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "relay: post to gateway")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return nil, eris.Errorf("relay: gateway returned %d: %s", resp.StatusCode, e.Error)
	}

	var ok struct {
		Success bool     `json:"success"`
		Paths   []string `json:"paths"`
		Count   int      `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ok); err != nil {
		return nil, eris.Wrap(err, "relay: decode gateway response")
	}
	return ok.Paths, nil
}
