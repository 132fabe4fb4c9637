package steps

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Handler runs one step with its placeholder arguments in phrase order. The
// returned value is reported as the step's data.
type Handler func(ctx context.Context, args []string) (any, error)

type phrase struct {
	pattern string
	re      *regexp.Regexp
	arity   int
	handler Handler
}

const placeholder = "{string}"

// Arguments are quoted with double or single quotes, as in Gherkin.
const argument = `(?:"([^"]*)"|'([^']*)')`

var keyword = regexp.MustCompile(`^(?i:given|when|then|and|but)\s+`)

func compile(pattern string, h Handler) (*phrase, error) {
	parts := strings.Split(pattern, placeholder)
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = regexp.QuoteMeta(p)
	}
	re, err := regexp.Compile("^" + strings.Join(quoted, argument) + "$")
	if err != nil {
		return nil, fmt.Errorf("invalid step pattern %q: %w", pattern, err)
	}
	return &phrase{pattern: pattern, re: re, arity: len(parts) - 1, handler: h}, nil
}

// match returns the arguments of text when it matches the phrase.
func (p *phrase) match(text string) ([]string, bool) {
	m := p.re.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	args := make([]string, p.arity)
	for i := range args {
		dq, sq := m[1+2*i], m[2+2*i]
		if dq != "" {
			args[i] = dq
		} else {
			args[i] = sq
		}
	}
	return args, true
}

// Normalize trims a step line and drops its Gherkin keyword.
func Normalize(text string) string {
	return keyword.ReplaceAllString(strings.TrimSpace(text), "")
}

type registry struct {
	phrases []*phrase
}

func (r *registry) add(pattern string, h Handler) {
	p, err := compile(pattern, h)
	if err != nil {
		panic(err)
	}
	r.phrases = append(r.phrases, p)
}

func (r *registry) lookup(text string) (*phrase, []string, bool) {
	for _, p := range r.phrases {
		if args, ok := p.match(text); ok {
			return p, args, true
		}
	}
	return nil, nil, false
}

func (r *registry) patterns() []string {
	out := make([]string, len(r.phrases))
	for i, p := range r.phrases {
		out[i] = p.pattern
	}
	sort.Strings(out)
	return out
}
