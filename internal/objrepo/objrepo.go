// Package objrepo maps logical page and element names to URLs and locators.
//
// A repository file looks like:
//
//	pages:
//	  users:
//	    path: /admin/users
//	    elements:
//	      table: "//table[@id='users']"
//	      search: "css=input[name=q]"
package objrepo

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/mj1618/gridcheck/internal/failure"
	"github.com/mj1618/gridcheck/internal/platform"
	"gopkg.in/yaml.v3"
)

// Page is one logical page.
type Page struct {
	Path     string            `yaml:"path"`
	Elements map[string]string `yaml:"elements"`
}

// Repository holds every page.
type Repository struct {
	Pages map[string]Page `yaml:"pages"`
}

// Empty returns a repository with no pages.
func Empty() *Repository {
	return &Repository{Pages: map[string]Page{}}
}

// Load reads a repository file. An empty path returns an empty repository.
func Load(path string) (*Repository, error) {
	if path == "" {
		return Empty(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read object repository: %w", err)
	}
	repo, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return repo, nil
}

// Parse decodes repository YAML and checks every locator.
func Parse(data []byte) (*Repository, error) {
	repo := Empty()
	if err := yaml.Unmarshal(data, repo); err != nil {
		return nil, fmt.Errorf("failed to parse object repository: %w", err)
	}
	if repo.Pages == nil {
		repo.Pages = map[string]Page{}
	}
	for name, page := range repo.Pages {
		for el, loc := range page.Elements {
			if _, err := platform.ParseQuery(loc); err != nil {
				return nil, fmt.Errorf("page %q element %q: %w", name, el, err)
			}
		}
	}
	return repo, nil
}

// Page returns the named page.
func (r *Repository) Page(name string) (Page, error) {
	page, ok := r.Pages[name]
	if !ok {
		return Page{}, &failure.ElementNotFoundError{What: "page", Name: name, Scope: "object repository"}
	}
	return page, nil
}

// Lookup returns the locator of element on page.
func (r *Repository) Lookup(page, element string) (platform.Query, error) {
	p, err := r.Page(page)
	if err != nil {
		return platform.Query{}, err
	}
	loc, ok := p.Elements[element]
	if !ok {
		return platform.Query{}, &failure.ElementNotFoundError{What: "element", Name: element, Scope: "page " + page}
	}
	return platform.ParseQuery(loc)
}

// Has reports whether page defines element.
func (r *Repository) Has(page, element string) bool {
	p, ok := r.Pages[page]
	if !ok {
		return false
	}
	_, ok = p.Elements[element]
	return ok
}

// URL joins the page path onto base. Absolute page paths are returned as
// is; an empty base leaves the path unchanged.
func (r *Repository) URL(base, page string) (string, error) {
	p, err := r.Page(page)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(p.Path)
	if err != nil {
		return "", fmt.Errorf("page %q has an invalid path: %w", page, err)
	}
	if ref.IsAbs() || base == "" {
		return ref.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if !strings.HasSuffix(b.Path, "/") {
		b.Path += "/"
	}
	return b.ResolveReference(&url.URL{Path: strings.TrimPrefix(ref.Path, "/"), RawQuery: ref.RawQuery, Fragment: ref.Fragment}).String(), nil
}

// Names lists the page names in order.
func (r *Repository) Names() []string {
	names := make([]string, 0, len(r.Pages))
	for name := range r.Pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
