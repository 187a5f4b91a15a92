package assets

import (
	"embed"
	"html/template"
	"io/fs"
	"maps"
	"path/filepath"
	"sync"
)

//go:embed templates/*.html
var templatesFS embed.FS

type BuildMetadata struct {
	Outputs map[string]OutputInfo `json:"outputs"`
}

type OutputInfo struct {
	EntryPoint string       `json:"entryPoint"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path string `json:"path"`
}

// Pipeline builds the page bundles on demand and renders page shells
// referencing them.
type Pipeline struct {
	config   Config
	baseDir  string
	metadata *BuildMetadata
	tmpl     *template.Template
	mu       sync.RWMutex
}

// New creates a pipeline using the embedded page templates.
func New(config Config) (*Pipeline, error) {
	return NewWithTemplateFS(config, templatesFS, "templates/*.html", nil)
}

// NewWithTemplateFS creates a pipeline loading templates matching pattern
// from fsys, with optional custom functions.
func NewWithTemplateFS(config Config, fsys fs.FS, pattern string, customFuncs template.FuncMap) (*Pipeline, error) {
	if config.BaseDir == "" {
		config.BaseDir = "."
	}
	baseDir, err := filepath.Abs(config.BaseDir)
	if err != nil {
		return nil, err
	}

	funcs := template.FuncMap{}
	maps.Copy(funcs, customFuncs)

	tmpl, err := template.New("pages").Funcs(funcs).ParseFS(fsys, pattern)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		config:  config,
		baseDir: baseDir,
		tmpl:    tmpl,
	}, nil
}

// OutputDir is the absolute directory the bundles are written to.
func (p *Pipeline) OutputDir() string {
	return p.path(p.config.OutputDir)
}

func (p *Pipeline) path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.baseDir, rel)
}
