package api

import (
	"mime/multipart"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"

	"github.com/blinkbus/blink-go/internal/app"
	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/logger"
	"github.com/blinkbus/blink-go/internal/vision"
)

// ScanStatus describes the scanner and the last detection.
type ScanStatus struct {
	Available bool           `json:"available"`
	State     string         `json:"state,omitempty"`
	Scanning  bool           `json:"scanning"`
	Stable    string         `json:"stable_plate,omitempty"`
	Scores    map[string]int `json:"scores,omitempty"`
	Trip      app.Trip       `json:"trip"`
	Last      *app.Detection `json:"last_detection,omitempty"`
}

func (s *Server) scanStatus(c echo.Context) error {
	status := ScanStatus{Trip: s.service.Trip()}
	if d, ok := s.service.Last(); ok {
		status.Last = &d
	}

	if sc := s.service.Scanner(); sc != nil {
		status.Available = true
		status.State = sc.State().String()
		status.Scanning = sc.Scanning()
		status.Scores = sc.Scores()
		if p, ok := sc.Stable(); ok {
			status.Stable = p.String()
		}
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) setTrip(c echo.Context) error {
	var trip app.Trip
	if err := c.Bind(&trip); err != nil {
		return s.handleErrorCode(c, err, "Invalid trip", http.StatusBadRequest)
	}
	s.service.SetTrip(trip)
	return c.JSON(http.StatusOK, s.service.Trip())
}

// captureImage runs capture mode. A multipart "image" field is recognized as
// is; without one the camera takes the picture.
func (s *Server) captureImage(c echo.Context) error {
	if !s.captureLimiter.Allow() {
		return s.handleError(c, errors.Newf("capture rate exceeded").
			Component("api").
			Category(errors.CategoryLimit).
			Build(), "Too many capture requests")
	}
	if s.service.Scanner() == nil {
		return s.handleErrorCode(c, nil, "Scanner not available", http.StatusServiceUnavailable)
	}

	ctx := c.Request().Context()
	var (
		outcome app.CaptureOutcome
		err     error
	)

	fh, ferr := c.FormFile("image")
	switch {
	case ferr == nil:
		frame, derr := decodeUpload(fh)
		if derr != nil {
			return s.handleError(c, derr, "Invalid image")
		}
		outcome, err = s.service.CaptureFrame(ctx, frame)
	case errors.Is(ferr, http.ErrMissingFile), errors.Is(ferr, http.ErrNotMultipart):
		outcome, err = s.service.Capture(ctx)
	default:
		return s.handleErrorCode(c, ferr, "Invalid upload", http.StatusBadRequest)
	}

	if err != nil {
		return s.handleError(c, err, "Capture failed")
	}

	s.log.Info("capture finished",
		logger.String("status", outcome.Status),
		logger.Bool("from_stable", outcome.FromStable),
		logger.String("ip", c.RealIP()))
	return c.JSON(http.StatusOK, outcome)
}

func decodeUpload(fh *multipart.FileHeader) (vision.Frame, error) {
	f, err := fh.Open()
	if err != nil {
		return vision.Frame{}, errors.New(err).
			Component("api").
			Category(errors.CategoryFileIO).
			Context("operation", "open_upload").
			Build()
	}
	defer func() { _ = f.Close() }()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return vision.Frame{}, errors.New(err).
			Component("api").
			Category(errors.CategoryValidation).
			Context("operation", "decode_upload").
			Context("filename", fh.Filename).
			Build()
	}
	return vision.Frame{Image: img, Time: time.Now()}, nil
}
