package capture

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type fakeSource struct {
	frame  gocv.Mat
	opened bool
	reads  atomic.Int32
	closed atomic.Bool
}

func newFakeSource() *fakeSource {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 4, 6, gocv.MatTypeCV8UC3)
	return &fakeSource{frame: m, opened: true}
}

func (f *fakeSource) Read(m *gocv.Mat) bool {
	f.reads.Add(1)
	f.frame.CopyTo(m)
	return true
}

func (f *fakeSource) IsOpened() bool { return f.opened }

func (f *fakeSource) Close() error {
	f.closed.Store(true)
	return nil
}

func TestStreamFreezeAndStop(t *testing.T) {
	src := newFakeSource()
	defer src.frame.Close()
	cam := NewWithSource(func() (Source, error) { return src, nil }, time.Millisecond)
	defer cam.Close()

	frames := make(chan image.Image, 16)
	require.NoError(t, cam.Start(context.Background(), func(img image.Image) {
		select {
		case frames <- img:
		default:
		}
	}))
	assert.ErrorIs(t, cam.Start(context.Background(), nil), ErrRunning)

	select {
	case img := <-frames:
		assert.Equal(t, 6, img.Bounds().Dx())
	case <-time.After(2 * time.Second):
		t.Fatal("no frame delivered")
	}

	snap, err := cam.Freeze()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 6, 4), snap.Bounds())
	assert.Same(t, snap, cam.Snapshot())

	cam.Stop()
	assert.True(t, src.closed.Load())
	assert.False(t, cam.Running())
	reads := src.reads.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, reads, src.reads.Load(), "no reads after stop")

	cam.Stop()
	cam.Discard()
	assert.Nil(t, cam.Snapshot())
}

func TestStartWithoutCamera(t *testing.T) {
	src := newFakeSource()
	defer src.frame.Close()
	src.opened = false

	cam := NewWithSource(func() (Source, error) { return src, nil }, time.Millisecond)
	defer cam.Close()
	assert.ErrorIs(t, cam.Start(context.Background(), nil), ErrNoCamera)
	assert.True(t, src.closed.Load())

	_, err := cam.Freeze()
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSave(t *testing.T) {
	dir := t.TempDir()

	_, err := Save(dir, "ana", "  ", image.NewGray(image.Rect(0, 0, 2, 2)))
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = Save(dir, "ana", "face", nil)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	path, err := Save(dir, "ana", "face.png", image.NewGray(image.Rect(0, 0, 2, 2)))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ana", "face.png"), path)
	_, err = os.Stat(path)
	assert.NoError(t, err)

	p, err := SavePath(dir, "../evil", "a/b")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "evil", "a_b.png"), p)
}
