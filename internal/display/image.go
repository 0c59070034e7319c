package display

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// ImageCapturer serves frames from a still image on disk, scaled to a fixed
// size. The file is decoded again whenever its modification time changes,
// so another process can stand in for the screen by rewriting it.
type ImageCapturer struct {
	path          string
	width, height int

	mu      sync.Mutex
	modTime time.Time
	frame   []byte
}

// NewImageCapturer creates a capturer for path producing width x height frames.
func NewImageCapturer(path string, width, height int) (*ImageCapturer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid capture size %dx%d", width, height)
	}
	c := &ImageCapturer{path: path, width: width, height: height}
	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Size returns the configured frame size.
func (c *ImageCapturer) Size() (int, int) {
	return c.width, c.height
}

// Capture copies the current frame into buf.
func (c *ImageCapturer) Capture(ctx context.Context, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.reload(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	copy(buf, c.frame)
	return nil
}

func (c *ImageCapturer) reload() error {
	info, err := os.Stat(c.path)
	if err != nil {
		return fmt.Errorf("failed to stat image: %w", err)
	}

	c.mu.Lock()
	fresh := c.frame != nil && info.ModTime().Equal(c.modTime)
	c.mu.Unlock()
	if fresh {
		return nil
	}

	img, err := imaging.Open(c.path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	frame := toBGRA(imaging.Resize(img, c.width, c.height, imaging.Lanczos))

	c.mu.Lock()
	c.frame = frame
	c.modTime = info.ModTime()
	c.mu.Unlock()
	return nil
}

func toBGRA(img *image.NRGBA) []byte {
	out := make([]byte, len(img.Pix))
	for i := 0; i+3 < len(img.Pix); i += 4 {
		out[i] = img.Pix[i+2]
		out[i+1] = img.Pix[i+1]
		out[i+2] = img.Pix[i]
		out[i+3] = img.Pix[i+3]
	}
	return out
}
