package failure

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	notFound := NotFound("column", "Email")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"not found", notFound, KindElementNotFound},
		{"wrapped not found", fmt.Errorf("step: %w", notFound), KindElementNotFound},
		{"timeout wrapping not found", &TimeoutError{Condition: "row", After: time.Second, Last: notFound}, KindTimeout},
		{"assertion", Assertf("row %d missing", 3), KindAssertion},
		{"stuck", &NavigationStuckError{Direction: "next"}, KindNavigationStuck},
		{"partial", &PartialOperationError{Operation: "select", Failed: "B", Err: notFound}, KindPartial},
		{"capture beats outcome", &CaptureError{Label: "x", Err: errors.New("disk full"), Outcome: Assertf("bad")}, KindCapture},
		{"plain", errors.New("boom"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestMessages(t *testing.T) {
	assert.Equal(t, `field "Qty" on row Ann not found`,
		(&ElementNotFoundError{What: "field", Name: "Qty", Scope: "row Ann"}).Error())
	assert.Equal(t, "pagination control not found", NotFound("pagination control", "").Error())
	assert.Equal(t, `status: expected "ON", got "OFF"`, Mismatch("status", "ON", "OFF").Error())
	assert.Equal(t, "failed to reach last page within 50 attempts",
		(&NavigationStuckError{Direction: "last", Attempts: 50, Bound: 50}).Error())
	assert.Equal(t, `navigation to next page had no effect: first row still "Ann"`,
		(&NavigationStuckError{Direction: "next", Attempts: 1, Bound: 50, Fingerprint: "Ann"}).Error())
	assert.Equal(t, `select failed on "C" after applying [A, B]: option "C" not found`,
		(&PartialOperationError{Operation: "select", Applied: []string{"A", "B"}, Failed: "C", Err: NotFound("option", "C")}).Error())
}

func TestTimeoutAndCaptureUnwrap(t *testing.T) {
	nf := NotFound("row", "")
	te := &TimeoutError{Condition: "row", After: time.Second, Last: nf}
	var got *ElementNotFoundError
	assert.True(t, errors.As(te, &got))
	assert.Contains(t, te.Error(), "last error")

	outcome := Assertf("mismatch")
	ce := &CaptureError{Label: "after-edit", Err: errors.New("no tab"), Outcome: outcome}
	assert.ErrorIs(t, ce, outcome)
	assert.Contains(t, ce.Error(), "mismatch")

	var ae *AssertionError
	assert.True(t, errors.As(ce, &ae))
}
