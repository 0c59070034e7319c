package display

import (
	"context"
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/rs/zerolog/log"
)

// X11 captures the root window and sets RandR CRTC gamma ramps. It is safe
// for concurrent use.
type X11 struct {
	conn *xgb.Conn
	root xproto.Window

	width, height int

	mu sync.Mutex
}

// OpenX11 connects to the given display (empty for $DISPLAY).
func OpenX11(display string) (*X11, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	if err := randr.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: randr: %v", ErrUnsupported, err)
	}

	screen := xproto.Setup(conn).DefaultScreen(conn)
	x := &X11{
		conn:   conn,
		root:   screen.Root,
		width:  int(screen.WidthInPixels),
		height: int(screen.HeightInPixels),
	}

	log.Info().
		Str("display", display).
		Int("width", x.width).
		Int("height", x.height).
		Msg("Connected to X server")

	return x, nil
}

// Size returns the root window size.
func (x *X11) Size() (int, int) {
	return x.width, x.height
}

// Capture reads the root window as a ZPixmap.
func (x *X11) Capture(ctx context.Context, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	img, err := xproto.GetImage(x.conn, xproto.ImageFormatZPixmap, xproto.Drawable(x.root),
		0, 0, uint16(x.width), uint16(x.height), ^uint32(0)).Reply()
	if err != nil {
		return fmt.Errorf("failed to get image: %w", err)
	}
	if len(img.Data) < x.width*x.height*Channels {
		return fmt.Errorf("short image: %d bytes (depth %d)", len(img.Data), img.Depth)
	}

	copy(buf, img.Data)
	return nil
}

// Apply sets the gamma ramp on every CRTC.
func (x *X11) Apply(brightness, temperature int) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	resources, err := randr.GetScreenResourcesCurrent(x.conn, x.root).Reply()
	if err != nil {
		return fmt.Errorf("failed to get screen resources: %w", err)
	}

	var firstErr error
	for _, crtc := range resources.Crtcs {
		if err := x.setCrtc(crtc, brightness, temperature); err != nil {
			log.Warn().Err(err).Uint32("crtc", uint32(crtc)).Msg("Failed to set gamma ramp")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (x *X11) setCrtc(crtc randr.Crtc, brightness, temperature int) error {
	gamma, err := randr.GetCrtcGammaSize(x.conn, crtc).Reply()
	if err != nil {
		return fmt.Errorf("failed to get crtc gamma size: %w", err)
	}

	r := make([]uint16, gamma.Size)
	g := make([]uint16, gamma.Size)
	b := make([]uint16, gamma.Size)
	Ramp(r, g, b, brightness, temperature)

	if err := randr.SetCrtcGammaChecked(x.conn, crtc, gamma.Size, r, g, b).Check(); err != nil {
		return fmt.Errorf("failed to set crtc gamma: %w", err)
	}
	return nil
}

// Close closes the X connection.
func (x *X11) Close() error {
	x.conn.Close()
	return nil
}
