package notify

import (
	"context"
	"embed"
	"fmt"
)

//go:embed templates/*.html
var embedded embed.FS

// TemplateSource returns the raw html/template text for a template name.
type TemplateSource interface {
	Template(ctx context.Context, name string) (string, error)
}

// EmbeddedSource serves the templates compiled into the binary.
type EmbeddedSource struct{}

func (EmbeddedSource) Template(_ context.Context, name string) (string, error) {
	b, err := embedded.ReadFile("templates/" + name + ".html")
	if err != nil {
		return "", fmt.Errorf("template %q: %w", name, err)
	}
	return string(b), nil
}
