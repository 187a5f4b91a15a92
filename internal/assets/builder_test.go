package assets

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
	require.NoError(t, os.WriteFile(name, []byte(content), 0o600))
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "ui", "lib", "shared.js"), `export function greet(n) { return "hello " + n; }`)
	writeFile(t, filepath.Join(dir, "ui", "pages", "home.js"), `import { greet } from "../lib/shared.js"; console.log(greet("home"));`)
	writeFile(t, filepath.Join(dir, "ui", "pages", "about.js"), `import { greet } from "../lib/shared.js"; console.log(greet("about"));`)

	cfg := DefaultConfig()
	cfg.BaseDir = dir
	cfg.Minify = false
	cfg.SourceMap = false

	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestPage_BuildsLazily(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	loader := p.Page("home", "Home", "ui/pages/home.js", func(ctx context.Context) any {
		return map[string]string{"email": "maker@example.com"}
	})
	require.False(t, p.Built())

	view, err := loader(ctx)
	require.NoError(t, err)
	require.True(t, p.Built())

	var buf bytes.Buffer
	require.NoError(t, view.Render(ctx, &buf))

	html := buf.String()
	assert.Contains(t, html, `<title>Home | Hole Portal</title>`)
	assert.Contains(t, html, `src="/public/home.js"`)
	assert.Contains(t, html, `data-page="home"`)
	assert.Contains(t, html, `maker@example.com`)

	_, err = os.Stat(filepath.Join(p.OutputDir(), "home.js"))
	require.NoError(t, err)
}

func TestLoadScripts_IncludesSharedChunk(t *testing.T) {
	p := newTestPipeline(t)
	require.NoError(t, p.Build())

	scripts, err := p.LoadScripts("ui/pages/about.js")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(scripts), 2)
	assert.Equal(t, "/public/about.js", scripts[0])
	assert.Contains(t, scripts[1], "/public/chunk-")
}

func TestLoadScripts_Errors(t *testing.T) {
	p := newTestPipeline(t)

	_, err := p.LoadScripts("ui/pages/home.js")
	require.Error(t, err)

	require.NoError(t, p.Build())
	_, err = p.LoadScripts("ui/pages/missing.js")
	require.ErrorIs(t, err, ErrEntryPointNotFound)
}

func TestPage_BuildFailureIsRetried(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.BaseDir = dir

	p, err := New(cfg)
	require.NoError(t, err)

	loader := p.Page("home", "Home", "ui/pages/home.js", nil)

	_, err = loader(context.Background())
	require.Error(t, err)
	require.False(t, p.Built())

	writeFile(t, filepath.Join(dir, "ui", "pages", "home.js"), `console.log("home");`)

	_, err = loader(context.Background())
	require.NoError(t, err)
	require.True(t, p.Built())
}
