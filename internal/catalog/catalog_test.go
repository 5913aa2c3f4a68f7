package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goosewin/kotoba/internal/adapter"
)

func TestBuiltinCoversEveryKind(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	kinds := map[adapter.Kind]bool{}
	for _, model := range c.Models() {
		kinds[model.Kind] = true
		assert.NotEmpty(t, model.License, model.Name)
		assert.NotEmpty(t, model.DisplayName, model.Name)
	}
	for _, kind := range adapter.Kinds() {
		assert.True(t, kinds[kind], "no catalog model for kind %s", kind)
	}
}

func TestParseRejectsBadEntries(t *testing.T) {
	_, err := Parse([]byte("models:\n  - name: x\n    file: x.gguf\n    kind: gpt\n"))
	require.ErrorIs(t, err, adapter.ErrUnknownKind)

	_, err = Parse([]byte("models:\n  - name: x\n    kind: qwen\n"))
	require.Error(t, err)

	_, err = Parse([]byte("models:\n  - name: x\n    file: a\n    kind: qwen\n  - name: x\n    file: b\n    kind: qwen\n"))
	require.Error(t, err)

	_, err = Parse([]byte("models: [unclosed"))
	require.Error(t, err)
}

func TestLoadMergesUserCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	contents := "models:\n" +
		"  - name: qwen3-1.7b\n    file: custom-qwen.gguf\n    kind: QWEN\n    license: Apache License 2.0.\n" +
		"  - name: my-gemma\n    file: my-gemma.gguf\n    kind: gemma\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	qwen, err := c.Get("Qwen3-1.7B")
	require.NoError(t, err)
	assert.Equal(t, "custom-qwen.gguf", qwen.File)
	assert.Equal(t, adapter.KindQwen, qwen.Kind)

	mine, err := c.Get("my-gemma")
	require.NoError(t, err)
	assert.Equal(t, "my-gemma", mine.DisplayName)

	_, err = c.Get("unknown")
	assert.ErrorIs(t, err, ErrModelNotFound)

	missing, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Len(t, missing.Models(), len(mustBuiltin(t).Models()))
}

func TestInstalled(t *testing.T) {
	dir := t.TempDir()
	model := Model{Name: "m", File: "m.gguf", Kind: adapter.KindGemma}
	assert.False(t, model.Installed(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "m.gguf"), []byte("x"), 0o644))
	assert.True(t, model.Installed(dir))
	assert.Equal(t, filepath.Join(dir, "m.gguf"), model.WeightsPath(dir))
}

func mustBuiltin(t *testing.T) *Catalog {
	t.Helper()
	c, err := Builtin()
	require.NoError(t, err)
	return c
}
