package subscription

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile_JSON(t *testing.T) {
	path := writeFile(t, "subscriptions.json", `[
  {"name": "Go Blog", "url": "https://go.dev/blog/feed.atom", "tags": ["go"]},
  {"name": "News", "url": "https://example.com/rss", "tags": ["news", "world"]}
]`)

	subs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	assert.Equal(t, "Go Blog", subs[0].Name)
	assert.Equal(t, "https://go.dev/blog/feed.atom", subs[0].URL)
	assert.Equal(t, []string{"go"}, subs[0].Tags)
	assert.Equal(t, []string{"news", "world"}, subs[1].Tags)
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeFile(t, "subscriptions.yaml", `
- name: Go Blog
  url: https://go.dev/blog/feed.atom
  tags: [go]
- name: Untagged
  url: https://example.com/rss
`)

	subs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	assert.Equal(t, "Untagged", subs[1].Name)
	assert.NotNil(t, subs[1].Tags, "missing tags should become an empty list")
	assert.Empty(t, subs[1].Tags)
}

func TestLoadFile_Malformed(t *testing.T) {
	path := writeFile(t, "subscriptions.json", `{"name": "not a list"}`)

	subs, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrInvalidSubscription)
	assert.Nil(t, subs)
}

func TestLoadFile_MissingURL(t *testing.T) {
	path := writeFile(t, "subscriptions.json", `[{"name": "No URL", "tags": []}]`)

	_, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrInvalidSubscription)
	assert.Contains(t, err.Error(), "missing url")
}

func TestLoadFile_NotFound(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read subscriptions file")
}

// TestFileSource_RereadsFile verifies edits apply to the next call
func TestFileSource_RereadsFile(t *testing.T) {
	path := writeFile(t, "subscriptions.json", `[{"name": "A", "url": "http://a"}]`)
	source := NewFileSource(path)

	subs, err := source.Subscriptions(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 1)

	require.NoError(t, os.WriteFile(path, []byte(`[{"name": "A", "url": "http://a"}, {"name": "B", "url": "http://b"}]`), 0o600))

	subs, err = source.Subscriptions(context.Background())
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}
