package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadsnap/internal/photo"
	"github.com/sells-group/leadsnap/pkg/hmacsign"
)

// extractJob is the photo_proc payload for one stored image.
type extractJob struct {
	ImagePath string `json:"image_path"`
}

// allowedUploadTypes are the sniffed MIME types the gateway accepts. The
// declared Content-Type only feeds the signature; acceptance is decided on
// the actual bytes.
var allowedUploadTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/heic":      true,
	"image/heif":      true,
	"video/mp4":       true,
	"video/quicktime": true,
}

// submission is one parsed multipart upload. location is free text from the
// submitter (camera site, lot name) and is not part of the signed payload.
type submission struct {
	senderEmail string
	location    string
	attachments []hmacsign.Attachment
}

// handleUpload is POST /api/photos. Auth failures are 401, validation
// failures 400, downstream failures 500; the relay keys its retry policy off
// this split.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	timestamp := r.Header.Get("X-Timestamp")
	signature := r.Header.Get("X-Signature")
	if timestamp == "" || signature == "" {
		respondError(w, http.StatusUnauthorized, "missing signature headers")
		return
	}

	// Count and size caps apply while reading so the body stays bounded
	// even for requests that will fail the signature check.
	sub, errMsg := s.readSubmission(r)
	if errMsg != "" {
		respondError(w, http.StatusBadRequest, errMsg)
		return
	}

	ts, err := hmacsign.ParseTimestamp(timestamp)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid timestamp")
		return
	}
	if skew := time.Since(ts); skew > s.freshness() || skew < -s.freshness() {
		respondError(w, http.StatusUnauthorized, "stale timestamp")
		return
	}
	if err := s.deps.Signer.Verify(sub.attachments, sub.senderEmail, timestamp, signature); err != nil {
		zap.L().Warn("gateway: rejected submission",
			zap.String("reason", "signature mismatch"),
			zap.String("remote", r.RemoteAddr),
		)
		respondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	sniffed := make([]string, len(sub.attachments))
	for i, att := range sub.attachments {
		kind := mimetype.Detect(att.Data).String()
		if !allowedUploadTypes[kind] {
			respondError(w, http.StatusBadRequest,
				fmt.Sprintf("unsupported media type %s for %q", kind, att.Filename))
			return
		}
		sniffed[i] = kind
	}

	paths := make([]string, 0, len(sub.attachments))
	for i, att := range sub.attachments {
		key, err := s.accept(ctx, att, sniffed[i], sub)
		if err != nil {
			zap.L().Error("gateway: accept attachment failed",
				zap.String("filename", att.Filename),
				zap.Error(err),
			)
			respondError(w, http.StatusInternalServerError, "storing attachment failed")
			return
		}
		paths = append(paths, key)
	}

	zap.L().Info("gateway: accepted submission",
		zap.Int("attachments", len(paths)),
		zap.String("sender", sub.senderEmail),
	)
	respondJSON(w, http.StatusOK, uploadResponse{Success: true, Paths: paths, Count: len(paths)})
}

// readSubmission walks the multipart body in wire order, which is also the
// order the signature was computed in. A non-empty second return is a
// validation message for the client.
func (s *Server) readSubmission(r *http.Request) (*submission, string) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, "expected multipart form"
	}

	sub := &submission{}
	maxCount := s.maxAttachments()
	maxBytes := s.maxAttachmentBytes()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "malformed multipart form"
		}

		if part.FileName() == "" {
			switch part.FormName() {
			case "sender_email":
				v, err := io.ReadAll(io.LimitReader(part, 512))
				if err != nil {
					return nil, "read sender_email field"
				}
				sub.senderEmail = strings.TrimSpace(string(v))
			case "location":
				v, err := io.ReadAll(io.LimitReader(part, 512))
				if err != nil {
					return nil, "read location field"
				}
				sub.location = strings.TrimSpace(string(v))
			}
			continue
		}

		if len(sub.attachments) >= maxCount {
			return nil, fmt.Sprintf("too many attachments (max %d)", maxCount)
		}

		data, err := io.ReadAll(io.LimitReader(part, maxBytes+1))
		if err != nil {
			return nil, fmt.Sprintf("read attachment %q", part.FileName())
		}
		if int64(len(data)) > maxBytes {
			return nil, fmt.Sprintf("attachment %q exceeds %d MB", part.FileName(), s.maxAttachmentMB())
		}

		sub.attachments = append(sub.attachments, hmacsign.Attachment{
			Filename:    part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	if len(sub.attachments) == 0 {
		return nil, "no attachments"
	}
	return sub, ""
}

// accept normalizes one attachment to a still image, stores it, records the
// photo row, and queues extraction. The row is written before the queue send
// so a queued path always resolves to a photo.
func (s *Server) accept(ctx context.Context, att hmacsign.Attachment, sniffedType string, sub *submission) (string, error) {
	img, imgType, err := s.deps.Normalizer.Normalize(ctx, att.Data, sniffedType)
	if err != nil {
		return "", eris.Wrap(err, "gateway: normalize attachment")
	}

	key := fmt.Sprintf("photos/%s.jpg", uuid.NewString())
	if err := s.deps.Objects.Put(ctx, key, bytes.NewReader(img), int64(len(img)), imgType); err != nil {
		return "", eris.Wrap(err, "gateway: store object")
	}

	ph := &photo.Photo{
		ObjectKey:   key,
		ContentType: imgType,
		SizeBytes:   int64(len(img)),
		SenderEmail: sub.senderEmail,
		Location:    sub.location,
		Status:      photo.StatusUploaded,
	}
	if err := s.deps.Photos.Create(ctx, ph); err != nil {
		return "", eris.Wrap(err, "gateway: insert photo row")
	}

	if _, err := s.deps.Queue.Send(ctx, s.queues.PhotoProc, extractJob{ImagePath: key}, 0); err != nil {
		return "", eris.Wrap(err, "gateway: enqueue extraction")
	}
	return key, nil
}

func (s *Server) freshness() time.Duration {
	if s.cfg.FreshnessWindow > 0 {
		return s.cfg.FreshnessWindow
	}
	return 5 * time.Minute
}

func (s *Server) maxAttachments() int {
	if s.cfg.MaxAttachments > 0 {
		return s.cfg.MaxAttachments
	}
	return 5
}

func (s *Server) maxAttachmentMB() int64 {
	if s.cfg.MaxAttachmentMB > 0 {
		return s.cfg.MaxAttachmentMB
	}
	return 50
}

func (s *Server) maxAttachmentBytes() int64 {
	return s.maxAttachmentMB() << 20
}
