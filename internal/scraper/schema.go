package scraper

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Schema is the parsed form of one per-site YAML schema file. The file name
// without extension is the schema name accepted by the API.
type Schema struct {
	Source        string            `yaml:"source"`
	SourceConfig  SourceConfig      `yaml:"source_config"`
	RegexPatterns []RegexPattern    `yaml:"regex_patterns"`
	Validations   SchemaValidations `yaml:"validations"`
}

// SourceConfig holds the domains an extractor accepts and the CSS selectors
// it tries, in order, for each article field.
type SourceConfig struct {
	Domains   []string  `yaml:"domains"`
	Selectors Selectors `yaml:"selectors"`
}

// Selectors lists candidate CSS selectors per field; the first selector that
// matches wins.
type Selectors struct {
	Title    []string `yaml:"title"`
	Subtitle []string `yaml:"subtitle"`
	Content  []string `yaml:"content"`
	Author   []string `yaml:"author"`
	PubDate  []string `yaml:"pub_date"`
	Images   []string `yaml:"images"`
}

// RegexPattern is one text cleanup rule applied to extracted content.
type RegexPattern struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
	Flags       string `yaml:"flags"`

	compiled *regexp.Regexp
}

// SchemaValidations gates what counts as a usable extraction.
type SchemaValidations struct {
	RequiredFields   []string `yaml:"required_fields"`
	MinContentLength int      `yaml:"min_content_length"`
}

// LoadSchema reads and parses the named schema from dir. Regex patterns are
// compiled eagerly so a broken schema fails at load time, not mid-scrape.
func LoadSchema(dir, name string) (*Schema, error) {
	path := filepath.Join(dir, name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %q: %w", name, err)
	}

	var schema Schema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to parse schema %q: %w", name, err)
	}

	for i := range schema.RegexPatterns {
		p := &schema.RegexPatterns[i]
		expr := p.Pattern
		if strings.ContainsAny(strings.ToLower(p.Flags), "im") {
			var flags string
			if strings.Contains(strings.ToLower(p.Flags), "i") {
				flags += "i"
			}
			if strings.Contains(strings.ToLower(p.Flags), "m") {
				flags += "m"
			}
			expr = "(?" + flags + ")" + expr
		}
		compiled, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("schema %q: invalid pattern %q: %w", name, p.Name, err)
		}
		p.compiled = compiled
	}

	return &schema, nil
}

// ListSchemas returns the names of all schema files in dir, without the
// .yaml extension.
func ListSchemas(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yaml") {
			names = append(names, strings.TrimSuffix(name, ".yaml"))
		}
	}
	return names, nil
}

var whitespaceExpr = regexp.MustCompile(`\s+`)

// Clean applies the schema's cleanup patterns to text and normalizes
// whitespace.
func (s *Schema) Clean(text string) string {
	for i := range s.RegexPatterns {
		if s.RegexPatterns[i].compiled != nil {
			text = s.RegexPatterns[i].compiled.ReplaceAllString(text, s.RegexPatterns[i].Replacement)
		}
	}
	text = whitespaceExpr.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// requires reports whether field is listed in the schema's required_fields.
func (s *Schema) requires(field string) bool {
	for _, f := range s.Validations.RequiredFields {
		if f == field {
			return true
		}
	}
	return false
}
