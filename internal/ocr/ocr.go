// Package ocr extracts the visible text from vehicle photos.
package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsnap/internal/config"
)

// Extractor extracts raw text from an image.
type Extractor interface {
	ExtractText(ctx context.Context, image []byte, contentType string) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "mistral", "":
		if cfg.Key == "" {
			return nil, eris.New("ocr: mistral provider requires ocr.key")
		}
		return NewMistralOCR(cfg.Key, cfg.Model, cfg.BaseURL), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
