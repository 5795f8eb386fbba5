package api

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/text/message"

	"github.com/banshee-data/accident.report/internal/accidents"
	"github.com/banshee-data/accident.report/internal/charts"
	"github.com/banshee-data/accident.report/internal/version"
)

// NoDataMessage is shown when the filters match no records.
const NoDataMessage = "No data available for the selected filters."

const pageTitle = "Vehicle Accident Dashboard"

// DashboardPage is the view model of the dashboard.
type DashboardPage struct {
	Filters accidents.FilterSpec
	// Options lists the selectable values of each filter field.
	Options      map[accidents.Field][]string
	VehicleTypes []string
	Total        int
	Matched      int
	Message      string
	Charts       []charts.Chart
	Failed       []accidents.SummaryName
	Missing      []accidents.Field
	Printer      *message.Printer
}

// htmlWriter writes markup and remembers the first error.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) rawf(format string, args ...interface{}) {
	h.raw(fmt.Sprintf(format, args...))
}

func (h *htmlWriter) child(ctx context.Context, c templ.Component) {
	if h.err != nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

// attrURL sanitises u for an href or src attribute.
func attrURL(u string) string {
	return templ.EscapeString(string(templ.URL(u)))
}

// fieldLabel turns a column name into a form label.
func fieldLabel(f accidents.Field) string {
	return strings.ReplaceAll(string(f), "_", " ")
}

// layout wraps body in the page chrome shared by every view.
func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`)
		h.text(title)
		h.raw(`</title><style>` +
			`body{font-family:sans-serif;margin:2rem}` +
			`form label{margin-right:1rem}` +
			`.charts{display:grid;grid-template-columns:repeat(auto-fill,minmax(420px,1fr));gap:1rem}` +
			`figure img{max-width:100%}` +
			`.notice{padding:.5rem 1rem;background:#fff4e5;border:1px solid #f0b37e}` +
			`</style></head><body><h1>`)
		h.text(title)
		h.raw(`</h1>`)
		h.child(ctx, body)
		h.raw(`<footer><small>`)
		h.text(version.String())
		h.raw(`</small></footer></body></html>`)
		return h.err
	})
}

func notice(msg string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<p class="notice">`)
		h.text(msg)
		h.raw(`</p>`)
		return h.err
	})
}

func filterForm(p DashboardPage) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<form method="get" action="/">`)
		for _, f := range accidents.FilterFields {
			options := p.Options[f]
			if f == accidents.VehicleType && len(p.VehicleTypes) > 0 {
				options = p.VehicleTypes
			}
			h.rawf(`<label>%s <select name="%s"><option value="">All</option>`,
				templ.EscapeString(fieldLabel(f)), templ.EscapeString(f.Param()))
			for _, o := range options {
				selected := ""
				if p.Filters[f] == o {
					selected = " selected"
				}
				h.rawf(`<option value="%s"%s>`, templ.EscapeString(o), selected)
				h.text(o)
				h.raw(`</option>`)
			}
			h.raw(`</select></label>`)
		}
		h.raw(`<button type="submit">Apply</button> <a href="/">Reset</a></form>`)
		return h.err
	})
}

// activeFilters echoes the applied filters; it renders nothing without any.
func activeFilters(filters accidents.FilterSpec) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if len(filters) == 0 {
			return nil
		}
		h := &htmlWriter{w: w}
		h.raw(`<p class="filters">Filters:`)
		for _, f := range accidents.FilterFields {
			if v, ok := filters[f]; ok {
				h.raw(` <strong>`)
				h.text(fieldLabel(f))
				h.raw(`</strong> = `)
				h.text(v)
			}
		}
		h.raw(`</p>`)
		return h.err
	})
}

func recordCount(p DashboardPage, printer *message.Printer) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<p>`)
		h.text(printer.Sprintf("Showing %d of %d records.", p.Matched, p.Total))
		h.rawf(` <a href="%s">Interactive charts</a></p>`, attrURL(interactiveURL(p.Filters)))
		return h.err
	})
}

func chartGrid(items []charts.Chart) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="charts">`)
		for _, c := range items {
			h.rawf(`<figure><img src="%s" alt="%s"><figcaption>`,
				attrURL(c.URL), templ.EscapeString(c.Title))
			h.text(c.Title)
			h.raw(`</figcaption></figure>`)
		}
		h.raw(`</section>`)
		return h.err
	})
}

// DashboardView renders the dashboard page.
func DashboardView(p DashboardPage) templ.Component {
	printer := p.Printer
	if printer == nil {
		printer = defaultPrinter()
	}
	parts := []templ.Component{filterForm(p), activeFilters(p.Filters)}
	if p.Message != "" {
		parts = append(parts, notice(p.Message))
		return layout(pageTitle, templ.Join(parts...))
	}

	parts = append(parts, recordCount(p, printer))
	for _, f := range p.Missing {
		parts = append(parts, notice(fmt.Sprintf("%s is not present in the dataset; its chart is omitted.", f)))
	}
	if len(p.Failed) > 0 {
		names := make([]string, len(p.Failed))
		for i, n := range p.Failed {
			names[i] = charts.Title(n)
		}
		parts = append(parts, notice("Some charts could not be drawn: "+strings.Join(names, ", ")))
	}
	parts = append(parts, chartGrid(p.Charts))
	return layout(pageTitle, templ.Join(parts...))
}

// ErrorView renders a standalone error page.
func ErrorView(title, msg string) templ.Component {
	back := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<p><a href="/">Back to the dashboard</a></p>`)
		return err
	})
	return layout(title, templ.Join(notice(msg), back))
}

func interactiveURL(filters accidents.FilterSpec) string {
	q := filters.Query().Encode()
	if q == "" {
		return "/charts/interactive"
	}
	return "/charts/interactive?" + q
}
