package platform

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Provider bundles the capabilities of one driver backend.
type Provider struct {
	Finder        Finder
	Inspector     Inspector
	Inputter      Inputter
	Chooser       Chooser
	Browser       Browser
	Screenshotter Screenshotter

	// Close releases the backend (browser process, tabs). May be nil.
	Close func() error
}

// Options configures a backend when it is created.
type Options struct {
	Headless     bool
	WindowWidth  int
	WindowHeight int
	// RemoteURL connects to an already running browser instead of launching
	// one (chrome backend).
	RemoteURL string
	// Document is the HTML file loaded by the htmldoc backend.
	Document string
	// ActionTimeout bounds a single driver call.
	ActionTimeout time.Duration
}

// NewProviderFunc creates a Provider for one backend.
type NewProviderFunc func(ctx context.Context, opts Options) (*Provider, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]NewProviderFunc{}
)

// Register makes a backend available by name. Backend packages call it from
// init(); see internal/platform/chrome and internal/platform/htmldoc.
func Register(name string, fn NewProviderFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

// Backends lists the registered backend names.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewProvider returns a Provider for the named backend.
func NewProvider(ctx context.Context, backend string, opts Options) (*Provider, error) {
	registryMu.RLock()
	fn, ok := registry[backend]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown driver backend %q (registered: %s)", backend, strings.Join(Backends(), ", "))
	}
	return fn(ctx, opts)
}

// FindOne returns the first element matching q under scope, or nil.
func (p *Provider) FindOne(ctx context.Context, scope Element, q Query) (Element, error) {
	els, err := p.Finder.FindAll(ctx, scope, q)
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}

// Texts returns the trimmed text of every element matching q under scope.
func (p *Provider) Texts(ctx context.Context, scope Element, q Query) ([]string, error) {
	els, err := p.Finder.FindAll(ctx, scope, q)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(els))
	for _, el := range els {
		text, err := p.Inspector.Text(ctx, el)
		if err != nil {
			return nil, fmt.Errorf("failed to read text of %s: %w", el.Ref(), err)
		}
		texts = append(texts, strings.TrimSpace(text))
	}
	return texts, nil
}

// Present reports whether any element matching q under scope is displayed.
func (p *Provider) Present(ctx context.Context, scope Element, q Query) (bool, error) {
	els, err := p.Finder.FindAll(ctx, scope, q)
	if err != nil {
		return false, err
	}
	for _, el := range els {
		shown, err := p.Inspector.IsDisplayed(ctx, el)
		if err != nil {
			return false, err
		}
		if shown {
			return true, nil
		}
	}
	return false, nil
}
