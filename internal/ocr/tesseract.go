package ocr

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/logger"
	"github.com/blinkbus/blink-go/internal/vision"
)

// Config configures the tesseract recognizer.
type Config struct {
	Language       string
	Quality        string
	Whitelist      string
	TessdataPrefix string
	PageSegMode    int
	PoolSize       int
	Upscale        float64
}

var dictionaryOff = [][2]string{
	{"load_system_dawg", "false"},
	{"load_freq_dawg", "false"},
	{"language_model_penalty_non_dict_word", "0"},
	{"language_model_penalty_non_freq_dict_word", "0"},
}

// Tesseract recognizes text with libtesseract through a pool of clients, so a
// capture can run while a continuous request is still in flight.
type Tesseract struct {
	cfg  Config
	pool *clientPool[*gosseract.Client]
	log  logger.Logger
}

// NewTesseract creates PoolSize clients configured for plate text: dictionaries
// disabled so no language correction is applied, and a character whitelist.
func NewTesseract(cfg Config) (*Tesseract, error) {
	if !strings.EqualFold(cfg.Quality, QualityAccurate) {
		return nil, ErrUnsupportedQuality
	}
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}

	t := &Tesseract{
		cfg:  cfg,
		pool: newClientPool(cfg.PoolSize, (*gosseract.Client).Close),
		log:  GetLogger().With(logger.String("engine", "tesseract")),
	}
	for range cfg.PoolSize {
		client, err := t.newClient()
		if err != nil {
			_ = t.Close()
			return nil, err
		}
		t.pool.add(client)
	}

	t.log.Info("recognizer ready",
		logger.String("language", cfg.Language),
		logger.Int("pool_size", cfg.PoolSize))
	return t, nil
}

func (t *Tesseract) newClient() (*gosseract.Client, error) {
	client := gosseract.NewClient()

	if t.cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.cfg.TessdataPrefix); err != nil {
			_ = client.Close()
			return nil, t.wrap(err, "set_tessdata_prefix")
		}
	}
	if err := client.SetLanguage(t.cfg.Language); err != nil {
		_ = client.Close()
		return nil, t.wrap(err, "set_language")
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(t.cfg.PageSegMode)); err != nil {
		_ = client.Close()
		return nil, t.wrap(err, "set_page_seg_mode")
	}
	if err := client.SetWhitelist(t.cfg.Whitelist); err != nil {
		_ = client.Close()
		return nil, t.wrap(err, "set_whitelist")
	}

	// plate text is not natural language
	for _, v := range dictionaryOff {
		if err := client.SetVariable(gosseract.SettableVariable(v[0]), v[1]); err != nil {
			_ = client.Close()
			return nil, t.wrap(err, "set_variable_"+v[0])
		}
	}
	return client, nil
}

// Recognize returns one reading per detected text line in reading order. When
// candidatesPerRegion > 1 the block text with all lines joined is appended, so a
// plate split over two lines is still seen whole.
func (t *Tesseract) Recognize(ctx context.Context, frame vision.Frame, roi *vision.NormalizedRect, candidatesPerRegion int) ([]string, error) {
	img, err := Preprocess(frame.Image, roi, t.cfg.Upscale)
	if err != nil {
		return nil, err
	}
	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	client, err := t.pool.get(ctx)
	switch {
	case errors.Is(err, ErrRecognizerClosed):
		return nil, t.wrap(err, "acquire_client")
	case err != nil:
		return nil, errors.New(err).
			Component("ocr").
			Category(errors.CategoryCancellation).
			Build()
	}
	defer t.pool.put(client)

	start := time.Now()
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, t.wrap(err, "set_image")
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, t.wrap(err, "text_lines")
	}

	candidates := linesFromBoxes(boxes)
	if candidatesPerRegion > 1 && len(candidates) > 1 {
		candidates = append(candidates, strings.Join(candidates, " "))
	}

	t.log.Trace("recognized",
		logger.Uint64("frame", frame.Seq),
		logger.Int("candidates", len(candidates)),
		logger.Duration("elapsed", time.Since(start)))
	return candidates, nil
}

// linesFromBoxes orders text lines top to bottom and drops blanks and repeats.
func linesFromBoxes(boxes []gosseract.BoundingBox) []string {
	slices.SortStableFunc(boxes, func(a, b gosseract.BoundingBox) int {
		return a.Box.Min.Y - b.Box.Min.Y
	})

	lines := make([]string, 0, len(boxes))
	for _, b := range boxes {
		line := strings.Join(strings.Fields(b.Word), " ")
		if line == "" || slices.Contains(lines, line) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func (t *Tesseract) wrap(err error, operation string) error {
	return errors.New(err).
		Component("ocr").
		Category(errors.CategoryRecognition).
		Context("operation", operation).
		Build()
}

// Close releases every client, waiting for recognitions still running.
// Recognize fails with ErrRecognizerClosed afterwards.
func (t *Tesseract) Close() error {
	return t.pool.Close()
}
