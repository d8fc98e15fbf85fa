// Package media normalizes incoming attachments to still images. Videos are
// reduced to a representative frame and HEIC stills are converted to JPEG,
// so downstream OCR always sees one format family.
package media

import (
	"context"

	"github.com/rotisserie/eris"
)

// FrameExtractor pulls a representative still frame out of a video.
type FrameExtractor interface {
	FirstFrame(ctx context.Context, video []byte) ([]byte, error)
}

// HEICConverter converts HEIC/HEIF stills to JPEG.
type HEICConverter interface {
	ToJPEG(ctx context.Context, heic []byte) ([]byte, error)
}

// Normalizer converts accepted uploads into storable image bytes.
type Normalizer struct {
	frames FrameExtractor
	heic   HEICConverter
}

// NewNormalizer creates a Normalizer over the two converters.
func NewNormalizer(frames FrameExtractor, heic HEICConverter) *Normalizer {
	return &Normalizer{frames: frames, heic: heic}
}

// Normalize returns image bytes and their content type for an accepted
// upload. JPEG, PNG, and WebP pass through untouched.
func (n *Normalizer) Normalize(ctx context.Context, data []byte, contentType string) ([]byte, string, error) {
	switch contentType {
	case "video/mp4", "video/quicktime":
		frame, err := n.frames.FirstFrame(ctx, data)
		if err != nil {
			return nil, "", eris.Wrap(err, "media: extract video frame")
		}
		return frame, "image/jpeg", nil
	case "image/heic", "image/heif":
		still, err := n.heic.ToJPEG(ctx, data)
		if err != nil {
			return nil, "", eris.Wrap(err, "media: convert heic")
		}
		return still, "image/jpeg", nil
	default:
		return data, contentType, nil
	}
}
