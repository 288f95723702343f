package automation

import (
	"log"
	"sync"

	"github.com/osteele/liquid"
)

// Renderer personalizes rule message texts with Liquid placeholders
// ({{ username }}, {{ link }}). Missing variables render empty; a parse or
// render error falls back to the raw text. Templating must never block a
// send.
type Renderer struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

// NewRenderer creates a renderer with a shared template cache
func NewRenderer() *Renderer {
	return &Renderer{engine: liquid.NewEngine()}
}

// Render expands the template against vars, returning the raw text on any
// failure.
func (r *Renderer) Render(text string, vars map[string]interface{}) string {
	if text == "" {
		return text
	}

	var tpl *liquid.Template
	if cached, ok := r.cache.Load(text); ok {
		tpl = cached.(*liquid.Template)
	} else {
		parsed, err := r.engine.ParseString(text)
		if err != nil {
			log.Printf("[Renderer] parse error, sending raw text: %v", err)
			return text
		}
		r.cache.Store(text, parsed)
		tpl = parsed
	}

	out, err := tpl.RenderString(vars)
	if err != nil {
		log.Printf("[Renderer] render error, sending raw text: %v", err)
		return text
	}
	return out
}
