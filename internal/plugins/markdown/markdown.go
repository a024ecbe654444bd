// Package markdown renders a job's enriched context through a
// text/template document, one heading per schema field the template
// declares.
package markdown

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"inkreel/internal/jobstore"
	"inkreel/internal/templates"
)

const documentTemplate = `# {{.Title}}
{{range .Sections}}
## {{.Heading}}

{{.Body}}
{{end}}`

type section struct {
	Heading string
	Body    string
}

type documentData struct {
	Title    string
	Sections []section
}

// Renderer implements pipeline.Renderer for the markdown plugin.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the shared document template once.
func NewRenderer() *Renderer {
	return &Renderer{tmpl: template.Must(template.New("document").Parse(documentTemplate))}
}

// Render walks declaration.CustomFields in sorted order, pulling each field's
// value out of the enriched context and rendering it as a markdown section.
// Fields the context doesn't carry are skipped rather than rendered empty.
func (r *Renderer) Render(declaration templates.Declaration, enriched jobstore.EnrichedContext, transcript []jobstore.TranscriptSegment) ([]byte, string, error) {
	names := make([]string, 0, len(declaration.CustomFields))
	for name := range declaration.CustomFields {
		names = append(names, name)
	}
	sort.Strings(names)

	data := documentData{Title: title(declaration.Title, declaration.Name)}
	for _, name := range names {
		value, ok := enriched[name]
		if !ok {
			continue
		}
		body := formatField(value)
		if body == "" {
			continue
		}
		data.Sections = append(data.Sections, section{Heading: heading(name), Body: body})
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, "", fmt.Errorf("markdown: render %s: %w", declaration.Name, err)
	}
	return buf.Bytes(), declaration.Name + ".md", nil
}

func title(declared, fallback string) string {
	if declared != "" {
		return declared
	}
	return heading(fallback)
}

func heading(name string) string {
	words := strings.Split(strings.ReplaceAll(name, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func formatField(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case []string:
		return bulletList(v)
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return bulletList(items)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func bulletList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}
