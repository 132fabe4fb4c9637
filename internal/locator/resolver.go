// Package locator resolves semantic UI targets ("next button", "file input
// labelled X") against unknown markup by trying ordered lists of structural
// strategies. The lists are data; the resolver only walks them.
package locator

import (
	"context"
	"fmt"

	"github.com/mj1618/gridcheck/internal/platform"
	"github.com/ternarybob/arbor"
)

// Strategy is one way of finding a target.
type Strategy struct {
	Name  string
	Query platform.Query
	// Accept filters candidates beyond visibility. Nil accepts everything.
	Accept func(ctx context.Context, p *platform.Provider, el platform.Element) (bool, error)
	// AllowHidden skips the visibility requirement, for controls such as file
	// inputs that are routinely styled away.
	AllowHidden bool
}

// Match is a resolved element and the strategy that found it.
type Match struct {
	Element  platform.Element
	Strategy string
}

// Resolver evaluates strategy lists against a provider.
type Resolver struct {
	provider *platform.Provider
	logger   arbor.ILogger
}

func New(provider *platform.Provider, logger arbor.ILogger) *Resolver {
	return &Resolver{provider: provider, logger: logger}
}

// Provider returns the driver the resolver queries.
func (r *Resolver) Provider() *platform.Provider { return r.provider }

// Resolve returns the first acceptable element of the first strategy that
// has one. It returns nil, nil when nothing matches; absence is for the
// caller to judge. Driver errors are returned as-is.
func (r *Resolver) Resolve(ctx context.Context, scope platform.Element, strategies []Strategy) (*Match, error) {
	for _, s := range strategies {
		els, err := r.candidates(ctx, scope, s)
		if err != nil {
			return nil, err
		}
		if len(els) > 0 {
			r.logger.Debug().Str("strategy", s.Name).Str("ref", els[0].Ref()).Msg("Locator resolved")
			return &Match{Element: els[0], Strategy: s.Name}, nil
		}
	}
	return nil, nil
}

// ResolveAll returns every acceptable element of the first strategy that
// has any, or nil.
func (r *Resolver) ResolveAll(ctx context.Context, scope platform.Element, strategies []Strategy) ([]platform.Element, string, error) {
	for _, s := range strategies {
		els, err := r.candidates(ctx, scope, s)
		if err != nil {
			return nil, "", err
		}
		if len(els) > 0 {
			return els, s.Name, nil
		}
	}
	return nil, "", nil
}

// First resolves and returns only the element, or nil.
func (r *Resolver) First(ctx context.Context, scope platform.Element, strategies []Strategy) (platform.Element, error) {
	m, err := r.Resolve(ctx, scope, strategies)
	if err != nil || m == nil {
		return nil, err
	}
	return m.Element, nil
}

func (r *Resolver) candidates(ctx context.Context, scope platform.Element, s Strategy) ([]platform.Element, error) {
	els, err := r.provider.Finder.FindAll(ctx, scope, s.Query)
	if err != nil {
		return nil, fmt.Errorf("locator strategy %q: %w", s.Name, err)
	}
	var out []platform.Element
	for _, el := range els {
		if !s.AllowHidden {
			shown, err := r.provider.Inspector.IsDisplayed(ctx, el)
			if err != nil {
				return nil, fmt.Errorf("locator strategy %q: %w", s.Name, err)
			}
			if !shown {
				continue
			}
		}
		if s.Accept != nil {
			ok, err := s.Accept(ctx, r.provider, el)
			if err != nil {
				return nil, fmt.Errorf("locator strategy %q: %w", s.Name, err)
			}
			if !ok {
				continue
			}
		}
		out = append(out, el)
	}
	return out, nil
}
