package main

import (
	"github.com/charmbracelet/glamour"
	lru "github.com/hashicorp/golang-lru/v2"
)

// markdownRenderer renders assistant replies for the TUI transcript. The
// transcript is re-rendered on every viewport update, so rendered output is
// cached per content string.
type markdownRenderer struct {
	renderer *glamour.TermRenderer
	cache    *lru.Cache[string, string]
}

func newMarkdownRenderer(wrap int) (*markdownRenderer, error) {
	if wrap < 20 {
		wrap = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[string, string](256)
	if err != nil {
		return nil, err
	}
	return &markdownRenderer{renderer: renderer, cache: cache}, nil
}

// Render returns terminal-styled markdown, falling back to the raw text when
// rendering fails.
func (r *markdownRenderer) Render(content string) string {
	if r == nil || r.renderer == nil {
		return content
	}
	if cached, ok := r.cache.Get(content); ok {
		return cached
	}
	rendered, err := r.renderer.Render(content)
	if err != nil {
		return content
	}
	r.cache.Add(content, rendered)
	return rendered
}
