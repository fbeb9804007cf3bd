package scraper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchemaYAML = `source: g1
source_config:
  domains:
    - g1.globo.com
  selectors:
    title:
      - h1.headline
    subtitle:
      - h2.subtitle
    content:
      - div.article-body
    author:
      - span.author
    pub_date:
      - time
    images:
      - img.content-img
regex_patterns:
  - name: strip_share_prompt
    pattern: "compartilhe esta mat[eé]ria.*$"
    replacement: ""
    flags: i
validations:
  required_fields:
    - title
    - content
  min_content_length: 10
`

func writeSchema(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(content), 0o644))
}

func TestLoadSchema(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "g1", testSchemaYAML)

	schema, err := LoadSchema(dir, "g1")
	require.NoError(t, err)

	assert.Equal(t, "g1", schema.Source)
	assert.Equal(t, []string{"g1.globo.com"}, schema.SourceConfig.Domains)
	assert.Equal(t, []string{"h1.headline"}, schema.SourceConfig.Selectors.Title)
	assert.Equal(t, 10, schema.Validations.MinContentLength)
	require.Len(t, schema.RegexPatterns, 1)
	assert.NotNil(t, schema.RegexPatterns[0].compiled)
}

func TestLoadSchema_Missing(t *testing.T) {
	_, err := LoadSchema(t.TempDir(), "nope")
	assert.Error(t, err)
}

func TestLoadSchema_InvalidPattern(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "broken", `source: broken
source_config:
  domains:
    - example.com
regex_patterns:
  - name: bad
    pattern: "(["
    replacement: ""
`)

	_, err := LoadSchema(dir, "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestListSchemas(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "g1", testSchemaYAML)
	writeSchema(t, dir, "uol", testSchemaYAML)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("docs"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	names, err := ListSchemas(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"g1", "uol"}, names)
}

func TestSchema_Clean(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "g1", testSchemaYAML)

	schema, err := LoadSchema(dir, "g1")
	require.NoError(t, err)

	cleaned := schema.Clean("O fato aconteceu hoje.\n\n  Compartilhe esta matéria no WhatsApp")
	assert.Equal(t, "O fato aconteceu hoje.", cleaned)
}

func TestSchema_CleanNormalizesWhitespace(t *testing.T) {
	schema := &Schema{}
	assert.Equal(t, "a b c", schema.Clean("  a\n\nb\t c  "))
}
