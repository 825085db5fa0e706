// Package templates holds the HTML components of the portal shell.
//
// Components are plain templ.Component values so handlers render them the
// same way whether they produce a full page or an HTMX fragment.
package templates

import (
	"context"
	"io"
	"strings"

	"github.com/JonMunkholm/portal/internal/portal"
	"github.com/a-h/templ"
)

// PlaceholderText is shown on every business page until it is built.
const PlaceholderText = "سيتم تطوير هذه الصفحة لاحقاً"

// PageParams carries everything the shell needs to render one route.
type PageParams struct {
	Nav      *portal.Nav
	Location portal.Location
	Path     string
	Summary  string
}

// Table returns the view-state title of the page, if it has a grid.
func (p PageParams) Table() string {
	if p.Location.Page == nil {
		return ""
	}
	return p.Location.Page.Table
}

// html accumulates writes and keeps the first error.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *html) text(s string) { h.raw(templ.EscapeString(s)) }

func (h *html) render(ctx context.Context, c templ.Component) {
	if h.err != nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

// Layout wraps body in the RTL document shell.
func Layout(title string, nav *portal.Nav, active string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<!DOCTYPE html><html lang="ar" dir="rtl"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title + " | " + nav.Title)
		h.raw(`</title><link rel="stylesheet" href="/static/app.css"></head><body>`)
		h.render(ctx, Header(nav))
		h.raw(`<div class="shell">`)
		h.render(ctx, Sidebar(nav, active))
		h.raw(`<main class="content">`)
		h.render(ctx, body)
		h.raw(`</main></div></body></html>`)
		return h.err
	})
}

// Header renders the top bar.
func Header(nav *portal.Nav) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<header class="topbar"><a class="brand" href="/">`)
		h.text(nav.Title)
		h.raw(`</a></header>`)
		return h.err
	})
}

// Sidebar renders the navigation tree, marking the section and page that
// contain active.
func Sidebar(nav *portal.Nav, active string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<nav class="sidebar"><ul>`)
		for _, s := range nav.Sections {
			open := active == s.Path() || strings.HasPrefix(active, s.Path()+"/")
			h.raw(`<li class="section`)
			if open {
				h.raw(` open`)
			}
			h.raw(`"><a href="`)
			h.text(s.Path())
			h.raw(`">`)
			h.text(s.Title)
			h.raw(`</a><ul>`)
			for _, p := range s.Pages {
				href := portal.PagePath(s, p)
				h.raw(`<li><a href="`)
				h.text(href)
				h.raw(`"`)
				if href == active {
					h.raw(` class="active" aria-current="page"`)
				}
				h.raw(`>`)
				h.text(p.Title)
				h.raw(`</a></li>`)
			}
			h.raw(`</ul></li>`)
		}
		h.raw(`</ul></nav>`)
		return h.err
	})
}

// Breadcrumb renders the trail; the final crumb is plain text.
func Breadcrumb(crumbs []portal.Crumb) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<ol class="breadcrumb">`)
		for _, c := range crumbs {
			h.raw(`<li>`)
			if c.Href != "" {
				h.raw(`<a href="`)
				h.text(c.Href)
				h.raw(`">`)
				h.text(c.Title)
				h.raw(`</a>`)
			} else {
				h.raw(`<span aria-current="page">`)
				h.text(c.Title)
				h.raw(`</span>`)
			}
			h.raw(`</li>`)
		}
		h.raw(`</ol>`)
		return h.err
	})
}
