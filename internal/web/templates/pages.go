package templates

import (
	"context"
	"io"

	"github.com/JonMunkholm/portal/internal/portal"
	"github.com/a-h/templ"
)

// Page renders a full portal page for a resolved route.
func Page(p PageParams) templ.Component {
	heading := p.Location.Heading(p.Nav)
	return Layout(heading, p.Nav, p.Path, pageBody(p, heading))
}

func pageBody(p PageParams, heading string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.render(ctx, Breadcrumb(p.Location.Crumbs))
		h.raw(`<h1>`)
		h.text(heading)
		h.raw(`</h1>`)

		if p.Location.Page == nil && p.Location.Section != nil {
			h.raw(`<ul class="cards">`)
			for _, pg := range p.Location.Section.Pages {
				h.raw(`<li><a href="`)
				h.text(portal.PagePath(*p.Location.Section, pg))
				h.raw(`">`)
				h.text(pg.Title)
				h.raw(`</a></li>`)
			}
			h.raw(`</ul>`)
		}

		h.raw(`<section class="placeholder"`)
		if table := p.Table(); table != "" {
			h.raw(` data-table="`)
			h.text(table)
			h.raw(`" data-state-url="/api/table-state/`)
			h.text(table)
			h.raw(`"`)
		}
		h.raw(`><p>`)
		h.text(PlaceholderText)
		h.raw(`</p></section>`)

		if p.Summary != "" {
			h.raw(`<footer class="pager">`)
			h.text(p.Summary)
			h.raw(`</footer>`)
		}
		return h.err
	})
}

// NotFound renders the 404 page inside the shell.
func NotFound(nav *portal.Nav, path string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section class="not-found"><h1>الصفحة غير موجودة</h1><p>`)
		h.text(path)
		h.raw(`</p><a href="/">العودة إلى الرئيسية</a></section>`)
		return h.err
	})
	return Layout("الصفحة غير موجودة", nav, path, body)
}

// ErrorAlert renders an HTMX-friendly error fragment.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<div class="alert alert-error" role="alert"><p class="alert-message">`)
		h.text(message)
		h.raw(`</p>`)
		if action != "" {
			h.raw(`<p class="alert-action">`)
			h.text(action)
			h.raw(`</p>`)
		}
		h.raw(`<small class="alert-code">`)
		h.text(code)
		h.raw(`</small></div>`)
		return h.err
	})
}
