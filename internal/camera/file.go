package camera

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/logger"
	"github.com/blinkbus/blink-go/internal/vision"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff"}

// FileSource replays still images as a frame stream. It stands in for a camera
// when scanning recorded snapshots.
type FileSource struct {
	paths    []string
	interval time.Duration
	log      logger.Logger

	once   sync.Once
	images []image.Image
	err    error
}

// NewFileSource returns a source over the given image files and directories.
// Directories are expanded to the images they contain, sorted by name.
// Frames are emitted every interval.
func NewFileSource(interval time.Duration, paths ...string) (*FileSource, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.New(err).
				Component("camera").
				Category(errors.CategoryFileIO).
				Context("operation", "stat_image_path").
				Build()
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, errors.New(err).Component("camera").Category(errors.CategoryFileIO).Build()
		}
		for _, e := range entries {
			if !e.IsDir() && slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
				files = append(files, filepath.Join(p, e.Name()))
			}
		}
	}

	return &FileSource{paths: files, interval: interval, log: GetLogger().Module("file")}, nil
}

// NewImageSource wraps already decoded images.
func NewImageSource(interval time.Duration, images ...image.Image) *FileSource {
	fs := &FileSource{interval: interval, images: images, log: GetLogger().Module("file")}
	fs.once.Do(func() {})
	return fs
}

func (f *FileSource) load() error {
	f.once.Do(func() {
		for _, p := range f.paths {
			img, err := imaging.Open(p, imaging.AutoOrientation(true))
			if err != nil {
				f.log.Warn("skipping unreadable image", logger.String("path", p), logger.Error(err))
				continue
			}
			f.images = append(f.images, img)
		}
		if len(f.images) == 0 {
			f.err = ErrUnavailable
		}
	})
	return f.err
}

// Authorization reports unavailable when no image could be decoded.
func (f *FileSource) Authorization() Status {
	if f.load() != nil || len(f.images) == 0 {
		return StatusUnavailable
	}
	return StatusAuthorized
}

// Frames emits each image once, then closes the channel.
func (f *FileSource) Frames(ctx context.Context) (<-chan vision.Frame, error) {
	if err := f.Authorization().Err(); err != nil {
		return nil, err
	}

	ch := make(chan vision.Frame, 1)
	go func() {
		defer close(ch)

		ticker := time.NewTicker(max(f.interval, time.Millisecond))
		defer ticker.Stop()

		for i, img := range f.images {
			frame := vision.Frame{Image: img, Seq: uint64(i + 1), Time: time.Now()}
			select {
			case ch <- frame:
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// CaptureHighResolution returns the largest image.
func (f *FileSource) CaptureHighResolution(ctx context.Context) (vision.Frame, error) {
	if err := f.Authorization().Err(); err != nil {
		return vision.Frame{}, err
	}
	if err := ctx.Err(); err != nil {
		return vision.Frame{}, err
	}

	best := 0
	for i, img := range f.images {
		if area(img) > area(f.images[best]) {
			best = i
		}
	}
	return vision.Frame{Image: f.images[best], Seq: uint64(best + 1), Time: time.Now()}, nil
}

// Len returns the number of decoded images.
func (f *FileSource) Len() int {
	_ = f.load()
	return len(f.images)
}

// Close is a no-op.
func (f *FileSource) Close() error {
	return nil
}

func area(img image.Image) int {
	b := img.Bounds()
	return b.Dx() * b.Dy()
}
