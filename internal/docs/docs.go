// Package docs holds the built-in documentation. Topics are markdown
// compiled into the binary so 'sdrig docs' works offline.
package docs

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// Topic holds a single documentation article.
type Topic struct {
	Name    string // short slug used as CLI argument
	Title   string // human-readable title
	Summary string // one-line description for topic listing
	Content string // full article, markdown
}

// All returns every topic in display order.
func All() []Topic {
	return topics
}

// Get looks up a topic by name.
func Get(name string) (Topic, error) {
	for _, t := range topics {
		if t.Name == name {
			return t, nil
		}
	}
	return Topic{}, fmt.Errorf("unknown topic %q (run 'sdrig docs' to list topics)", name)
}

// Render returns the topic body styled for a terminal. Plain content comes
// back unchanged when styling is off or the renderer fails.
func Render(t Topic, styled bool) string {
	if !styled {
		return t.Content
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return t.Content
	}
	out, err := r.Render(t.Content)
	if err != nil {
		return t.Content
	}
	return out
}
