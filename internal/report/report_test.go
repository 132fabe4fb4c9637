package report

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mj1618/gridcheck/internal/artifact"
	"github.com/mj1618/gridcheck/internal/failure"
	"github.com/mj1618/gridcheck/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

type shooter struct {
	err   error
	calls int
}

func (s *shooter) CaptureScreenshot(context.Context) (*platform.Screenshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &platform.Screenshot{Data: []byte("<html></html>"), Format: "html"}, nil
}

func recorder(t *testing.T, sh *shooter) *Recorder {
	t.Helper()
	logger := arbor.NewNoOpLogger()
	store, err := artifact.New(t.TempDir(), 0, logger)
	require.NoError(t, err)
	return New(sh, store, logger)
}

func TestGuard_CapturesOnSuccessAndFailure(t *testing.T) {
	sh := &shooter{}
	r := recorder(t, sh)
	ctx := context.Background()

	require.NoError(t, r.Guard(ctx, "open page", func(context.Context) error { return nil }))
	stepErr := failure.NotFound("next button", "")
	err := r.Guard(ctx, "next page", func(context.Context) error { return stepErr })
	assert.Same(t, stepErr, err)
	assert.Equal(t, 2, sh.calls)

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, Pass, entries[0].Status)
	assert.Equal(t, "001-pass-open-page.html", filepath.Base(entries[0].Screenshot))
	assert.Equal(t, Fail, entries[1].Status)
	assert.Equal(t, failure.KindElementNotFound, entries[1].Kind)
	assert.Equal(t, "next button not found", entries[1].Message)
	assert.Equal(t, "002-fail-next-page.html", filepath.Base(entries[1].Screenshot))

	sum := r.Summary()
	assert.Equal(t, 1, sum.Passed)
	assert.Equal(t, 1, sum.Failed)
	assert.NotEmpty(t, sum.RunID)
}

func TestGuard_CaptureFailureIsFatal(t *testing.T) {
	boom := errors.New("target closed")
	r := recorder(t, &shooter{err: boom})
	ctx := context.Background()

	err := r.Guard(ctx, "open page", func(context.Context) error { return nil })
	var ce *failure.CaptureError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, ce.Outcome)
	assert.Equal(t, failure.KindCapture, failure.KindOf(err))

	stepErr := failure.Assertf("row missing")
	err = r.Guard(ctx, "find row", func(context.Context) error { return stepErr })
	assert.ErrorIs(t, err, stepErr, "outcome preserved")
	assert.Equal(t, failure.KindCapture, failure.KindOf(err))

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, Fail, last.Status)
	assert.Empty(t, last.Screenshot)
}

func TestGuard_NoShooter(t *testing.T) {
	r := New(nil, nil, arbor.NewNoOpLogger())
	require.NoError(t, r.Guard(context.Background(), "dry", func(context.Context) error { return nil }))
	last, ok := r.Last()
	require.True(t, ok)
	assert.Empty(t, last.Screenshot)
	assert.Empty(t, r.Summary().RunID)
}
