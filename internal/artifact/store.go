// Package artifact stores the screenshots taken around every step. Each run
// writes into its own directory named by a run id; files are numbered in
// capture order.
package artifact

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mj1618/gridcheck/internal/platform"
	"github.com/ternarybob/arbor"
	"golang.org/x/image/draw"
)

// Outcome labels a capture.
type Outcome string

const (
	Passed Outcome = "pass"
	Failed Outcome = "fail"
)

// Store writes captures under Dir()/<seq>-<outcome>-<label>.<ext>.
type Store struct {
	dir      string
	runID    string
	maxWidth int
	logger   arbor.ILogger

	mu  sync.Mutex
	seq int
}

// New creates the run directory under root. maxWidth > 0 downscales wider
// PNG captures.
func New(root string, maxWidth int, logger arbor.ILogger) (*Store, error) {
	runID := uuid.NewString()
	dir := filepath.Join(root, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	logger.Debug().Str("dir", dir).Msg("Artifact directory created")
	return &Store{dir: dir, runID: runID, maxWidth: maxWidth, logger: logger}, nil
}

func (s *Store) Dir() string   { return s.dir }
func (s *Store) RunID() string { return s.runID }

// Save writes shot and returns its path. PNG captures are downscaled to the
// configured width and stamped with the label and outcome; DOM captures are
// written unchanged.
func (s *Store) Save(label string, outcome Outcome, shot *platform.Screenshot) (string, error) {
	if shot == nil || len(shot.Data) == 0 {
		return "", fmt.Errorf("empty capture for %q", label)
	}

	data := shot.Data
	ext := shot.Format
	switch shot.Format {
	case "png":
		img, err := png.Decode(bytes.NewReader(shot.Data))
		if err != nil {
			return "", fmt.Errorf("failed to decode screenshot: %w", err)
		}
		img = Caption(Downscale(img, s.maxWidth), fmt.Sprintf("%s [%s]", label, strings.ToUpper(string(outcome))), outcome == Passed)
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return "", fmt.Errorf("failed to encode screenshot: %w", err)
		}
		data = buf.Bytes()
	case "html":
	default:
		return "", fmt.Errorf("unsupported capture format %q", shot.Format)
	}

	s.mu.Lock()
	s.seq++
	name := fmt.Sprintf("%03d-%s-%s.%s", s.seq, outcome, Slug(label), ext)
	s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	s.logger.Debug().Str("path", path).Msg("Screenshot saved")
	return path, nil
}

// Downscale shrinks img to maxWidth keeping its aspect ratio. Images that
// already fit, or a maxWidth of 0, are returned as is.
func Downscale(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	height := b.Dy() * maxWidth / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

const maxSlug = 60

// Slug turns a step label into a file-name fragment.
func Slug(label string) string {
	s := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(label), "-"), "-")
	if len(s) > maxSlug {
		s = strings.TrimRight(s[:maxSlug], "-")
	}
	if s == "" {
		return "step"
	}
	return s
}
