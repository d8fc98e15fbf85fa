package media

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/rotisserie/eris"
)

// FFmpeg implements FrameExtractor using the ffmpeg CLI. The video is
// spooled to a temp file because container formats like MOV keep their index
// at the end and do not stream through a pipe.
type FFmpeg struct {
	binPath string
}

// NewFFmpeg creates an FFmpeg frame extractor. If binPath is empty, "ffmpeg"
// is used.
func NewFFmpeg(binPath string) *FFmpeg {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	return &FFmpeg{binPath: binPath}
}

// FirstFrame decodes the first video frame to a JPEG.
func (f *FFmpeg) FirstFrame(ctx context.Context, video []byte) ([]byte, error) {
	in, err := os.CreateTemp("", "frame-in-*")
	if err != nil {
		return nil, eris.Wrap(err, "media: create temp video file")
	}
	defer os.Remove(in.Name())

	if _, err := in.Write(video); err != nil {
		in.Close()
		return nil, eris.Wrap(err, "media: write temp video file")
	}
	if err := in.Close(); err != nil {
		return nil, eris.Wrap(err, "media: close temp video file")
	}

	outPath := in.Name() + ".jpg"
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, f.binPath,
		"-y", "-i", in.Name(), "-frames:v", "1", "-q:v", "2", outPath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "media: ffmpeg failed: %s", stderr.String())
	}

	frame, err := os.ReadFile(outPath)
	if err != nil {
		return nil, eris.Wrap(err, "media: read extracted frame")
	}
	return frame, nil
}
