// Package capture streams webcam frames and takes grayscale snapshots.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gocv.io/x/gocv"

	bioimage "biodash/internal/image"
)

var (
	ErrNoCamera   = errors.New("camera not available")
	ErrNoSnapshot = errors.New("no snapshot captured")
	ErrEmptyName  = errors.New("snapshot name is empty")
	ErrRunning    = errors.New("camera already streaming")
)

// Source is a frame producer. *gocv.VideoCapture satisfies it.
type Source interface {
	Read(m *gocv.Mat) bool
	IsOpened() bool
	Close() error
}

// OpenDevice opens a local capture device.
func OpenDevice(device int) (Source, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCamera, err)
	}
	return vc, nil
}

// Camera reads frames from a source on a fixed interval.
type Camera struct {
	open     func() (Source, error)
	interval time.Duration

	mu     sync.Mutex
	src    Source
	latest gocv.Mat
	frozen *image.Gray
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a camera for a device index.
func New(device int, interval time.Duration) *Camera {
	return NewWithSource(func() (Source, error) { return OpenDevice(device) }, interval)
}

// NewWithSource returns a camera that reads from the sources open returns.
func NewWithSource(open func() (Source, error), interval time.Duration) *Camera {
	if interval <= 0 {
		interval = 30 * time.Millisecond
	}
	return &Camera{open: open, interval: interval, latest: gocv.NewMat()}
}

// Start opens the source and calls onFrame with every frame read until Stop
// is called or ctx ends. onFrame runs on the capture goroutine.
func (c *Camera) Start(ctx context.Context, onFrame func(image.Image)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.src != nil {
		return ErrRunning
	}

	src, err := c.open()
	if err != nil {
		return err
	}
	if !src.IsOpened() {
		src.Close()
		return ErrNoCamera
	}

	ctx, cancel := context.WithCancel(ctx)
	c.src = src
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.loop(ctx, src, onFrame, c.done)
	slog.Info("Camera started", "interval", c.interval)
	return nil
}

func (c *Camera) loop(ctx context.Context, src Source, onFrame func(image.Image), done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ok := src.Read(&frame); !ok || frame.Empty() {
			continue
		}

		c.mu.Lock()
		frame.CopyTo(&c.latest)
		c.mu.Unlock()

		if onFrame == nil {
			continue
		}
		img, err := frame.ToImage()
		if err != nil {
			slog.Debug("Dropping frame", "error", err)
			continue
		}
		onFrame(img)
	}
}

// Running reports whether frames are being read.
func (c *Camera) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.src != nil
}

// Stop ends the capture goroutine and releases the device. It is safe to
// call more than once.
func (c *Camera) Stop() {
	c.mu.Lock()
	src, cancel, done := c.src, c.cancel, c.done
	c.src, c.cancel, c.done = nil, nil, nil
	c.mu.Unlock()

	if src == nil {
		return
	}
	cancel()
	<-done
	if err := src.Close(); err != nil {
		slog.Warn("Failed to release camera", "error", err)
	}
	slog.Info("Camera stopped")
}

// Close stops the camera and frees frame buffers.
func (c *Camera) Close() {
	c.Stop()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest.Close()
}

// Freeze converts the most recent frame to grayscale and keeps it as the
// current snapshot.
func (c *Camera) Freeze() (*image.Gray, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest.Empty() {
		return nil, ErrNoSnapshot
	}

	gray := gocv.NewMat()
	defer gray.Close()
	switch c.latest.Channels() {
	case 1:
		c.latest.CopyTo(&gray)
	case 4:
		gocv.CvtColor(c.latest, &gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(c.latest, &gray, gocv.ColorBGRToGray)
	}

	img, err := gray.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert snapshot: %w", err)
	}
	g, ok := img.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("unexpected snapshot type %T", img)
	}
	c.frozen = g
	return g, nil
}

// Snapshot returns the frozen frame, if any.
func (c *Camera) Snapshot() *image.Gray {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frozen
}

// Discard drops the frozen frame.
func (c *Camera) Discard() {
	c.mu.Lock()
	c.frozen = nil
	c.mu.Unlock()
}

// SavePath returns <usersDir>/<user>/<name>.png with name reduced to a safe
// file name.
func SavePath(usersDir, user, name string) (string, error) {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' || r < ' ' {
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "", ErrEmptyName
	}
	user = strings.TrimSpace(user)
	if user == "" {
		user = "anonymous"
	}
	return filepath.Join(usersDir, filepath.Base(user), name+".png"), nil
}

// Save writes snapshot under the user's folder.
func Save(usersDir, user, name string, snapshot *image.Gray) (string, error) {
	path, err := SavePath(usersDir, user, name)
	if err != nil {
		return "", err
	}
	if snapshot == nil {
		return "", ErrNoSnapshot
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create user folder: %w", err)
	}
	if err := bioimage.WritePNG(path, snapshot); err != nil {
		return "", err
	}
	slog.Info("Saved snapshot", "user", user, "path", path)
	return path, nil
}
