// Package portal describes the business portal shell: the sidebar navigation
// tree, route resolution with breadcrumbs, and the localized pagination
// summary shown under every table page.
package portal

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/portal/internal/viewstate"
	"gopkg.in/yaml.v3"
)

//go:embed nav.yaml
var defaultNavYAML []byte

// Nav is the sidebar tree.
type Nav struct {
	Title    string    `yaml:"title"`
	Home     string    `yaml:"home"`
	Sections []Section `yaml:"sections"`
}

// Section is a top-level sidebar group such as sales or inventory.
type Section struct {
	Slug  string `yaml:"slug"`
	Title string `yaml:"title"`
	Pages []Page `yaml:"pages"`
}

// Page is a leaf route. Table names the view-state title of the page's grid.
type Page struct {
	Slug  string `yaml:"slug"`
	Title string `yaml:"title"`
	Table string `yaml:"table"`
}

// Path returns the route of the section.
func (s Section) Path() string { return "/" + s.Slug }

// Crumb is one breadcrumb link. The last crumb of a trail has an empty Href.
type Crumb struct {
	Title string
	Href  string
}

// Location is the result of resolving a request path against the tree.
type Location struct {
	Section *Section
	Page    *Page
	Crumbs  []Crumb
}

// Heading returns the most specific title of the location.
func (l Location) Heading(nav *Nav) string {
	switch {
	case l.Page != nil:
		return l.Page.Title
	case l.Section != nil:
		return l.Section.Title
	default:
		return nav.Home
	}
}

// LoadNav parses and validates a navigation tree.
func LoadNav(data []byte) (*Nav, error) {
	var nav Nav
	if err := yaml.Unmarshal(data, &nav); err != nil {
		return nil, fmt.Errorf("parse navigation: %w", err)
	}
	if err := nav.validate(); err != nil {
		return nil, err
	}
	return &nav, nil
}

// DefaultNav returns the embedded navigation tree.
func DefaultNav() *Nav {
	nav, err := LoadNav(defaultNavYAML)
	if err != nil {
		panic(err)
	}
	return nav
}

func (n *Nav) validate() error {
	var errs []error
	if n.Title == "" {
		errs = append(errs, errors.New("navigation title is required"))
	}
	if len(n.Sections) == 0 {
		errs = append(errs, errors.New("navigation has no sections"))
	}

	sections := make(map[string]bool)
	tables := make(map[string]string)
	for _, s := range n.Sections {
		if !validSlug(s.Slug) {
			errs = append(errs, fmt.Errorf("section %q: invalid slug", s.Slug))
		}
		if sections[s.Slug] {
			errs = append(errs, fmt.Errorf("section %q: duplicate slug", s.Slug))
		}
		sections[s.Slug] = true

		pages := make(map[string]bool)
		for _, p := range s.Pages {
			where := s.Slug + "/" + p.Slug
			if !validSlug(p.Slug) {
				errs = append(errs, fmt.Errorf("page %q: invalid slug", where))
			}
			if pages[p.Slug] {
				errs = append(errs, fmt.Errorf("page %q: duplicate slug", where))
			}
			pages[p.Slug] = true

			if p.Table == "" {
				continue
			}
			if err := viewstate.ValidateTitle(p.Table); err != nil {
				errs = append(errs, fmt.Errorf("page %q: %w", where, err))
			}
			if prev, ok := tables[p.Table]; ok {
				errs = append(errs, fmt.Errorf("page %q: table %q already used by %q", where, p.Table, prev))
			}
			tables[p.Table] = where
		}
	}
	return errors.Join(errs...)
}

func validSlug(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
			return false
		}
	}
	return true
}

// Resolve maps a request path to a location in the tree.
// It reports false for paths that name no section or page.
func (n *Nav) Resolve(path string) (Location, bool) {
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	home := Crumb{Title: n.Home, Href: "/"}

	if len(parts) == 0 {
		return Location{Crumbs: []Crumb{{Title: n.Home}}}, true
	}
	if len(parts) > 2 {
		return Location{}, false
	}

	section := n.section(parts[0])
	if section == nil {
		return Location{}, false
	}
	if len(parts) == 1 {
		return Location{
			Section: section,
			Crumbs:  []Crumb{home, {Title: section.Title}},
		}, true
	}

	for i := range section.Pages {
		if section.Pages[i].Slug == parts[1] {
			return Location{
				Section: section,
				Page:    &section.Pages[i],
				Crumbs: []Crumb{
					home,
					{Title: section.Title, Href: section.Path()},
					{Title: section.Pages[i].Title},
				},
			}, true
		}
	}
	return Location{}, false
}

// PagePath returns the route of page p within section s.
func PagePath(s Section, p Page) string { return s.Path() + "/" + p.Slug }

// Tables returns every view-state title named by the tree, in sidebar order.
func (n *Nav) Tables() []string {
	var out []string
	for _, s := range n.Sections {
		for _, p := range s.Pages {
			if p.Table != "" {
				out = append(out, p.Table)
			}
		}
	}
	return out
}

func (n *Nav) section(slug string) *Section {
	for i := range n.Sections {
		if n.Sections[i].Slug == slug {
			return &n.Sections[i]
		}
	}
	return nil
}
