package widget

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mj1618/gridcheck/internal/failure"
	"github.com/mj1618/gridcheck/internal/locator"
	"github.com/mj1618/gridcheck/internal/platform"
	"github.com/mj1618/gridcheck/internal/wait"
)

// UploadResult reports an attached file.
type UploadResult struct {
	Path     string `yaml:"path"     json:"path"`
	Strategy string `yaml:"strategy" json:"strategy"`
}

// Upload attaches the file at path to the file input labelled label. The
// file must exist; relative paths resolve against the working directory.
func (w *Widgets) Upload(ctx context.Context, label, path string) (*UploadResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return nil, failure.Assertf("file to upload does not exist: %s", abs)
	}

	m, err := w.resolver.Resolve(ctx, nil, locator.FileInput(label))
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, &failure.ElementNotFoundError{What: "file input", Name: label}
	}
	if err := w.provider.Inputter.SetFiles(ctx, m.Element, []string{abs}); err != nil {
		return nil, err
	}
	w.logger.Info().Str("field", label).Str("file", abs).Str("strategy", m.Strategy).Msg("File attached")
	return &UploadResult{Path: abs, Strategy: m.Strategy}, nil
}

// VerifyUploadError waits up to timeout for a displayed error containing
// message and returns its text.
func (w *Widgets) VerifyUploadError(ctx context.Context, message string, timeout time.Duration) (string, error) {
	var found platform.Element
	err := wait.Until(ctx, wait.Options{Timeout: timeout, Interval: w.timings.Poll}, "upload error "+message, func(ctx context.Context) (bool, error) {
		el, err := w.resolver.First(ctx, nil, locator.UploadError(message))
		found = el
		return el != nil, err
	})
	if err != nil {
		return "", err
	}
	text, err := w.provider.Inspector.Text(ctx, found)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
