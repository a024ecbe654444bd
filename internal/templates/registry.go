package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"inkreel/internal/errs"
	"inkreel/internal/jobstore"
	"inkreel/internal/providers"
)

// FieldDeclaration is one entry of a template's custom_fields table.
type FieldDeclaration struct {
	Description string `toml:"description"`
	Structure   string `toml:"structure"`
}

// Declaration is a template's parsed metadata header.
type Declaration struct {
	Plugin       string
	Name         string
	Title        string                       `toml:"title"`
	CustomFields map[string]FieldDeclaration `toml:"custom_fields"`
}

// Registry enumerates template declarations rooted at <dir>/<plugin>/<name>.toml.
type Registry struct {
	dir string
}

// NewRegistry constructs a Registry rooted at dir (typically
// Config.Paths.TemplatesDir).
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir}
}

// Lookup loads and parses a single template declaration.
func (r *Registry) Lookup(plugin, name string) (Declaration, error) {
	path := filepath.Join(r.dir, plugin, name+".toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Declaration{}, errs.Wrap(errs.ErrNotFound, "", "template lookup", fmt.Sprintf("unknown template %s/%s", plugin, name), "check templates_dir or the artifact list", err)
		}
		return Declaration{}, errs.Wrap(errs.ErrConfiguration, "", "template lookup", fmt.Sprintf("read %s", path), "", err)
	}
	var decl Declaration
	if err := toml.Unmarshal(data, &decl); err != nil {
		return Declaration{}, errs.Wrap(errs.ErrConfiguration, "", "template lookup", fmt.Sprintf("parse %s", path), "", err)
	}
	decl.Plugin = plugin
	decl.Name = name
	return decl, nil
}

// List enumerates every template declaration under a plugin's directory,
// sorted by name.
func (r *Registry) List(plugin string) ([]Declaration, error) {
	dir := filepath.Join(r.dir, plugin)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.ErrConfiguration, "", "template list", fmt.Sprintf("read %s", dir), "", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".toml"))
	}
	sort.Strings(names)
	decls := make([]Declaration, 0, len(names))
	for _, name := range names {
		decl, err := r.Lookup(plugin, name)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

// defaultSchema is used when the artifact list is empty or no configured
// template declares any custom fields (spec §4.3, REFINE).
var defaultSchema = map[string]providers.FieldSchema{
	"clean_text":     {Description: "the transcript cleaned of filler and false starts", Structure: "string"},
	"summary":        {Description: "a short summary of the recording", Structure: "string"},
	"key_takeaways":  {Description: "the main points a listener should remember", Structure: "array<string>"},
	"participants":   {Description: "speakers or people mentioned", Structure: "array<string>"},
	"quotes":         {Description: "notable verbatim quotes", Structure: "array<string>"},
	"action_items":   {Description: "follow-up tasks identified in the recording", Structure: "array<string>"},
}

// TemplateSchemaConflict reports that two templates declared the same field
// name with incompatible structures.
type TemplateSchemaConflict struct {
	Field      string
	FirstFrom  string
	SecondFrom string
	First      string
	Second     string
}

func (e *TemplateSchemaConflict) Error() string {
	return fmt.Sprintf("template schema conflict: field %q declared as %q by %s and %q by %s",
		e.Field, e.First, e.FirstFrom, e.Second, e.SecondFrom)
}

// AssembleSchema folds the custom_fields of every template named in
// artifacts, in list order, into one required-fields schema by
// union-with-merge-by-name. Duplicate field names must agree on Structure;
// disagreement returns a *TemplateSchemaConflict. When artifacts is empty or
// no template declares any field, the default schema is returned.
func (r *Registry) AssembleSchema(artifacts []jobstore.ArtifactSpec) (map[string]providers.FieldSchema, error) {
	schema := map[string]providers.FieldSchema{}
	origin := map[string]string{}
	declaredAny := false

	for _, spec := range artifacts {
		decl, err := r.Lookup(spec.Plugin, spec.Template)
		if err != nil {
			return nil, err
		}
		from := spec.Plugin + "/" + spec.Template
		for name, field := range decl.CustomFields {
			declaredAny = true
			existing, ok := schema[name]
			if ok && existing.Structure != field.Structure {
				return nil, &TemplateSchemaConflict{
					Field:      name,
					FirstFrom:  origin[name],
					SecondFrom: from,
					First:      existing.Structure,
					Second:     field.Structure,
				}
			}
			if !ok {
				schema[name] = providers.FieldSchema{Description: field.Description, Structure: field.Structure}
				origin[name] = from
			}
		}
	}

	if len(artifacts) == 0 || !declaredAny {
		return copySchema(defaultSchema), nil
	}
	return schema, nil
}

func copySchema(src map[string]providers.FieldSchema) map[string]providers.FieldSchema {
	out := make(map[string]providers.FieldSchema, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
