package layouts

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// HTML writes markup for hand-built components. It keeps the first write
// error and turns later writes into no-ops, so components can write
// straight through and check Err once at the end.
type HTML struct {
	ctx context.Context
	w   io.Writer
	err error
}

// NewHTML wraps w for a component render.
func NewHTML(ctx context.Context, w io.Writer) *HTML {
	return &HTML{ctx: ctx, w: w}
}

// Raw writes trusted markup as-is.
func (h *HTML) Raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

// Text writes escaped text.
func (h *HTML) Text(s string) {
	h.Raw(templ.EscapeString(s))
}

// Attr writes ` name="value"` with the value escaped.
func (h *HTML) Attr(name, value string) {
	h.Raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// URL writes an href-style attribute, dropping unsafe schemes.
func (h *HTML) URL(name, value string) {
	h.Attr(name, string(templ.URL(value)))
}

// Component renders a child component in place.
func (h *HTML) Component(c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(h.ctx, h.w)
}

// Ctx returns the render context, for layout data getters.
func (h *HTML) Ctx() context.Context {
	return h.ctx
}

// Err returns the first write error.
func (h *HTML) Err() error {
	return h.err
}

// Component adapts a write function into a templ.Component.
func Component(fn func(h *HTML)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := NewHTML(ctx, w)
		fn(h)
		return h.Err()
	})
}
