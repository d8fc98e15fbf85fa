package media

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/rotisserie/eris"
)

// HeifConvert implements HEICConverter using the heif-convert CLI from
// libheif.
type HeifConvert struct {
	binPath string
}

// NewHeifConvert creates a HeifConvert converter. If binPath is empty,
// "heif-convert" is used.
func NewHeifConvert(binPath string) *HeifConvert {
	if binPath == "" {
		binPath = "heif-convert"
	}
	return &HeifConvert{binPath: binPath}
}

// ToJPEG converts a HEIC still to JPEG.
func (h *HeifConvert) ToJPEG(ctx context.Context, heic []byte) ([]byte, error) {
	in, err := os.CreateTemp("", "still-in-*.heic")
	if err != nil {
		return nil, eris.Wrap(err, "media: create temp heic file")
	}
	defer os.Remove(in.Name())

	if _, err := in.Write(heic); err != nil {
		in.Close()
		return nil, eris.Wrap(err, "media: write temp heic file")
	}
	if err := in.Close(); err != nil {
		return nil, eris.Wrap(err, "media: close temp heic file")
	}

	outPath := in.Name() + ".jpg"
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, h.binPath, "-q", "90", in.Name(), outPath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "media: heif-convert failed: %s", stderr.String())
	}

	still, err := os.ReadFile(outPath)
	if err != nil {
		return nil, eris.Wrap(err, "media: read converted still")
	}
	return still, nil
}
