package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/holeportal/internal/routes"
)

// ErrEntryPointNotFound is returned when a page has no bundle in the build output.
var ErrEntryPointNotFound = errors.New("entrypoint not found in metadata")

// Build runs esbuild with the configured settings and loads metadata
func (p *Pipeline) Build() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.buildLocked()
}

// Built reports whether the bundles have been built.
func (p *Pipeline) Built() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.metadata != nil
}

// ensureBuilt builds the bundles on first use. A failed build is retried
// on the next call.
func (p *Pipeline) ensureBuilt() error {
	if p.Built() {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.metadata != nil {
		return nil
	}
	return p.buildLocked()
}

func (p *Pipeline) buildLocked() error {
	entryPoints, err := filepath.Glob(p.path(p.config.EntryPointGlob))
	if err != nil {
		return err
	}

	if len(entryPoints) == 0 {
		return errors.New("no entry points found")
	}

	log.Info().Strs("entrypoints", entryPoints).Msg("Building assets")

	result := api.Build(api.BuildOptions{
		AbsWorkingDir:     p.baseDir,
		EntryPoints:       entryPoints,
		Bundle:            true,
		Splitting:         true,
		Write:             true,
		Outdir:            p.OutputDir(),
		Format:            api.FormatESModule,
		MinifyWhitespace:  p.config.Minify,
		MinifyIdentifiers: p.config.Minify,
		MinifySyntax:      p.config.Minify,
		TreeShaking:       api.TreeShakingTrue,
		Sourcemap:         cond(p.config.SourceMap, api.SourceMapLinked, api.SourceMapNone),
		Metafile:          true,
	})

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			log.Error().Str("error", msg.Text).Msg("Build error")
		}
		return errors.New("esbuild failed with errors")
	}

	for _, file := range result.OutputFiles {
		log.Debug().Str("file", file.Path).Msg("Built file")
	}

	if err := os.WriteFile(p.path(p.config.MetafilePath), []byte(result.Metafile), 0600); err != nil {
		return err
	}

	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return err
	}

	p.metadata = &metadata
	return nil
}

// LoadScripts returns the ordered list of script URLs needed for the given
// entrypoint, the entrypoint bundle first.
func (p *Pipeline) LoadScripts(entryPointPath string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, errors.New("assets not built yet, call Build() first")
	}

	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint == entryPointPath {
			visited := map[string]bool{outputPath: true}
			scripts := []string{p.publicURL(outputPath)}
			p.addDependencies(info, &scripts, visited)
			return scripts, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrEntryPointNotFound, entryPointPath)
}

func (p *Pipeline) addDependencies(output OutputInfo, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if !visited[imp.Path] {
			visited[imp.Path] = true
			*scripts = append(*scripts, p.publicURL(imp.Path))

			if chunkInfo, exists := p.metadata.Outputs[imp.Path]; exists {
				p.addDependencies(chunkInfo, scripts, visited)
			}
		}
	}
}

// publicURL maps a metafile output path (relative to the base dir) to the
// URL it is served under.
func (p *Pipeline) publicURL(outputPath string) string {
	rel, err := filepath.Rel(p.OutputDir(), filepath.Join(p.baseDir, outputPath))
	if err != nil {
		rel = outputPath
	}
	return path.Join(p.config.PublicPrefix, filepath.ToSlash(rel))
}

// Page returns a route loader for a page bundle. The first load builds the
// bundles if that has not happened yet; the returned view renders the page
// shell with the bundle's scripts. contextFn supplies per-request data
// embedded into the page as JSON.
func (p *Pipeline) Page(name, title, entryPointPath string, contextFn func(ctx context.Context) any) routes.Loader {
	return func(ctx context.Context) (routes.View, error) {
		if err := p.ensureBuilt(); err != nil {
			return nil, fmt.Errorf("failed to build assets: %w", err)
		}

		scripts, err := p.LoadScripts(entryPointPath)
		if err != nil {
			return nil, err
		}

		log.Debug().Str("page", name).Strs("scripts", scripts).Msg("Loaded page view")

		return routes.ViewFunc(func(ctx context.Context, w io.Writer) error {
			var pageContext any
			if contextFn != nil {
				pageContext = contextFn(ctx)
			}

			return p.tmpl.ExecuteTemplate(w, "page.html", map[string]any{
				"Page":    name,
				"Title":   title,
				"Scripts": scripts,
				"Context": pageContext,
			})
		}), nil
	}
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
