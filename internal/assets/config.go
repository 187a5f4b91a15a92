package assets

type Config struct {
	// Directory the other paths are relative to (default: working directory)
	BaseDir string
	// Entry point glob pattern (e.g., "ui/pages/*.js")
	EntryPointGlob string
	// Output directory for built files
	OutputDir string
	// Path to metafile
	MetafilePath string
	// URL prefix the output directory is served under
	PublicPrefix string
	// Whether to minify output
	Minify bool
	// Whether to enable source maps
	SourceMap bool
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		BaseDir:        ".",
		EntryPointGlob: "ui/pages/*.js",
		OutputDir:      "public",
		MetafilePath:   "public/meta.json",
		PublicPrefix:   "/public/",
		Minify:         true,
		SourceMap:      true,
	}
}
