// Package catalog registers grabkit's built-in components and option specs:
// the extractor, downloader, output, and postprocessor namespaces with their
// defaults and override scopes.
//
// Most options carry category scope so site blocks can override them. The
// postprocessor component is opaque: its nested blocks are handed to the
// postprocessors unvalidated, since each one defines its own options.
package catalog

import (
	"github.com/dshills/grabkit/config/registry"
)

// Register adds the built-in specs to a registry. It is safe to call on a
// registry that already carries them; re-registration with identical types
// is a no-op.
func Register(reg *registry.Registry) error {
	if err := registerGlobals(reg); err != nil {
		return err
	}
	if err := registerExtractor(reg); err != nil {
		return err
	}
	if err := registerDownloader(reg); err != nil {
		return err
	}
	if err := registerOutput(reg); err != nil {
		return err
	}
	return registerPostprocessor(reg)
}

// MustRegister registers the built-in specs and panics on error. A failure
// here is a programming error, not a data problem.
func MustRegister(reg *registry.Registry) {
	if err := Register(reg); err != nil {
		panic(err)
	}
}

// NewRegistry returns a fresh registry carrying the built-in specs.
func NewRegistry() *registry.Registry {
	reg := registry.New()
	MustRegister(reg)
	return reg
}

func registerGlobals(reg *registry.Registry) error {
	return reg.RegisterGlobal(
		registry.Spec{
			Key: "netrc", Type: registry.TypeBool, Default: false,
			Description: "Use .netrc authentication data",
		},
	)
}

func registerExtractor(reg *registry.Registry) error {
	err := reg.Register("extractor",
		registry.Spec{
			Key: "extractor.base-directory", Type: registry.TypeString, Default: "./grabkit/",
			Scope:       registry.ScopeCategory,
			Description: "Directory path all storage paths are relative to",
		},
		registry.Spec{
			Key: "extractor.directory", Type: registry.TypeStringList, Default: []string{"{category}"},
			Scope:       registry.ScopeCategory,
			Description: "Format strings for the target directory segments",
		},
		registry.Spec{
			Key: "extractor.filename", Type: registry.TypeString, Default: "",
			Scope:       registry.ScopeCategory,
			Description: "Format string for filenames; empty selects the site default",
		},
		registry.Spec{
			Key: "extractor.skip", Type: registry.TypeBool, Default: true,
			Scope:       registry.ScopeCategory,
			Description: "Skip files whose target path already exists",
		},
		registry.Spec{
			Key: "extractor.retries", Type: registry.TypeInt, Default: 4,
			Scope:       registry.ScopeCategory,
			Description: "Maximum retries for failed HTTP requests",
		},
		registry.Spec{
			Key: "extractor.timeout", Type: registry.TypeFloat, Default: 30.0,
			Scope:       registry.ScopeCategory,
			Description: "Connection timeout in seconds",
		},
		registry.Spec{
			Key: "extractor.sleep", Type: registry.TypeFloat, Default: 0.0,
			Scope:       registry.ScopeCategory,
			Description: "Seconds to sleep before each download",
		},
		registry.Spec{
			Key: "extractor.sleep-request", Type: registry.TypeFloat, Default: 0.0,
			Scope:       registry.ScopeCategory,
			Description: "Seconds to sleep between HTTP requests during data extraction",
		},
		registry.Spec{
			Key: "extractor.verify", Type: registry.TypeBool, Default: true,
			Scope:       registry.ScopeCategory,
			Description: "Verify TLS certificates",
		},
		registry.Spec{
			Key: "extractor.proxy", Type: registry.TypeStringOrNull,
			Scope:       registry.ScopeCategory,
			Description: "Proxy URL for all outgoing requests",
		},
		registry.Spec{
			Key: "extractor.user-agent", Type: registry.TypeString,
			Default:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:128.0) Gecko/20100101 Firefox/128.0",
			Scope:       registry.ScopeCategory,
			Description: "User-Agent header sent with every request",
		},
		registry.Spec{
			Key: "extractor.cookies", Type: registry.TypeStringOrNull,
			Scope:       registry.ScopeCategory,
			Description: "Path to a Netscape-format cookies.txt file",
		},
		registry.Spec{
			Key: "extractor.archive", Type: registry.TypeStringOrNull,
			Scope:       registry.ScopeCategory,
			Description: "Path to a download archive; null disables archiving",
		},
		registry.Spec{
			Key: "extractor.path-restrict", Type: registry.TypeString, Default: "auto",
			Scope:       registry.ScopeCategory,
			Description: "Character set replaced in generated paths",
		},
		registry.Spec{
			Key: "extractor.path-extended", Type: registry.TypeBool, Default: true,
			Scope:       registry.ScopeCategory,
			Description: "Use extended-length paths on Windows",
		},
		registry.Spec{
			Key: "extractor.headers", Type: registry.TypeObject, Default: map[string]any{},
			Opaque:      true,
			Scope:       registry.ScopeCategory,
			Description: "Additional HTTP headers sent with every request",
		},
		registry.Spec{
			Key: "extractor.keywords", Type: registry.TypeObject, Default: map[string]any{},
			Opaque:      true,
			Scope:       registry.ScopeCategory,
			Description: "Additional name-value pairs exposed to format strings",
		},
		registry.Spec{
			Key: "extractor.keywords-default", Type: registry.TypeStringOrNull,
			Scope:       registry.ScopeCategory,
			Description: "Replacement for missing format-string fields; null leaves them as errors",
		},
		registry.Spec{
			Key: "extractor.image-filter", Type: registry.TypeStringOrNull,
			Scope:       registry.ScopeCategory,
			Description: "Filter expression evaluated per file; null keeps everything",
		},
		registry.Spec{
			Key: "extractor.image-range", Type: registry.TypeStringOrNull,
			Scope:       registry.ScopeCategory,
			Description: "Index ranges selecting which files to download",
		},
	)
	if err != nil {
		return err
	}

	if err := reg.RegisterCategory("extractor", "deviantart",
		registry.Spec{
			Key: "extractor.deviantart.refresh-token", Type: registry.TypeStringOrNull,
			Description: "OAuth refresh token; null uses anonymous access",
		},
		registry.Spec{
			Key: "extractor.deviantart.include", Type: registry.TypeStringList, Default: []string{"gallery"},
			Description: "Subcategories to include when processing a user profile",
		},
		registry.Spec{
			Key: "extractor.deviantart.mature", Type: registry.TypeBool, Default: true,
			Description: "Enable mature content",
		},
		registry.Spec{
			Key: "extractor.deviantart.original", Type: registry.TypeBool, Default: true,
			Description: "Download original files when available",
		},
		registry.Spec{
			Key: "extractor.deviantart.journals", Type: registry.TypeString, Default: "html",
			Description: "Journal download format: html, text, or none",
		},
	); err != nil {
		return err
	}

	if err := reg.RegisterCategory("extractor", "pixiv",
		registry.Spec{
			Key: "extractor.pixiv.refresh-token", Type: registry.TypeStringOrNull,
			Description: "OAuth refresh token for the Pixiv API",
		},
		registry.Spec{
			Key: "extractor.pixiv.ugoira", Type: registry.TypeBool, Default: true,
			Description: "Download ugoira animations",
		},
		registry.Spec{
			Key: "extractor.pixiv.tags", Type: registry.TypeString, Default: "japanese",
			Description: "Tag language: japanese, translated, or original",
		},
	); err != nil {
		return err
	}

	return reg.RegisterCategory("extractor", "twitter",
		registry.Spec{
			Key: "extractor.twitter.videos", Type: registry.TypeBool, Default: true,
			Description: "Download videos",
		},
		registry.Spec{
			Key: "extractor.twitter.retweets", Type: registry.TypeBool, Default: false,
			Description: "Fetch media from retweets",
		},
		registry.Spec{
			Key: "extractor.twitter.replies", Type: registry.TypeBool, Default: true,
			Description: "Fetch media from replies",
		},
	)
}

func registerDownloader(reg *registry.Registry) error {
	err := reg.Register("downloader",
		registry.Spec{
			Key: "downloader.filesize-min", Type: registry.TypeStringOrNull,
			Scope:       registry.ScopeCategory,
			Description: "Minimum file size; smaller downloads are discarded",
		},
		registry.Spec{
			Key: "downloader.filesize-max", Type: registry.TypeStringOrNull,
			Scope:       registry.ScopeCategory,
			Description: "Maximum file size; larger downloads are discarded",
		},
		registry.Spec{
			Key: "downloader.mtime", Type: registry.TypeBool, Default: true,
			Scope:       registry.ScopeCategory,
			Description: "Set file modification times from metadata",
		},
		registry.Spec{
			Key: "downloader.part", Type: registry.TypeBool, Default: true,
			Scope:       registry.ScopeCategory,
			Description: "Write to .part files and rename on completion",
		},
		registry.Spec{
			Key: "downloader.part-directory", Type: registry.TypeStringOrNull,
			Scope:       registry.ScopeCategory,
			Description: "Alternate directory for .part files",
		},
		registry.Spec{
			Key: "downloader.progress", Type: registry.TypeFloat, Default: 3.0,
			Scope:       registry.ScopeCategory,
			Description: "Seconds until a progress indicator is shown",
		},
		registry.Spec{
			Key: "downloader.rate", Type: registry.TypeStringOrNull,
			Scope:       registry.ScopeCategory,
			Description: "Maximum download rate, e.g. 32000 or 500k",
		},
		registry.Spec{
			Key: "downloader.retries", Type: registry.TypeInt, Default: 4,
			Scope:       registry.ScopeCategory,
			Description: "Maximum retries for failed downloads",
		},
		registry.Spec{
			Key: "downloader.timeout", Type: registry.TypeFloat, Default: 30.0,
			Scope:       registry.ScopeCategory,
			Description: "Connection timeout in seconds",
		},
		registry.Spec{
			Key: "downloader.verify", Type: registry.TypeBool, Default: true,
			Scope:       registry.ScopeCategory,
			Description: "Verify TLS certificates",
		},
	)
	if err != nil {
		return err
	}

	if err := reg.RegisterCategory("downloader", "http",
		registry.Spec{
			Key: "downloader.http.retries", Type: registry.TypeInt, Default: 5,
			Description: "Maximum retries for failed HTTP downloads",
		},
		registry.Spec{
			Key: "downloader.http.adjust-extensions", Type: registry.TypeBool, Default: true,
			Description: "Check file headers and fix mismatched extensions",
		},
		registry.Spec{
			Key: "downloader.http.chunk-size", Type: registry.TypeInt, Default: 32768,
			Description: "Number of bytes read per iteration",
		},
		registry.Spec{
			Key: "downloader.http.headers", Type: registry.TypeObject, Default: map[string]any{},
			Opaque:      true,
			Description: "Additional HTTP headers sent on download requests",
		},
		registry.Spec{
			Key: "downloader.http.validate", Type: registry.TypeBool, Default: true,
			Description: "Check for unsupported content types",
		},
	); err != nil {
		return err
	}

	return reg.RegisterCategory("downloader", "ytdl",
		registry.Spec{
			Key: "downloader.ytdl.module", Type: registry.TypeStringOrNull,
			Description: "Downloader module name; null selects the first available",
		},
		registry.Spec{
			Key: "downloader.ytdl.format", Type: registry.TypeStringOrNull,
			Description: "Video format selection string",
		},
		registry.Spec{
			Key: "downloader.ytdl.forward-cookies", Type: registry.TypeBool, Default: false,
			Description: "Forward extractor cookies to the downloader",
		},
	)
}

func registerOutput(reg *registry.Registry) error {
	return reg.Register("output",
		registry.Spec{
			Key: "output.mode", Type: registry.TypeString, Default: "auto",
			Description: "Output mode: auto, pipe, terminal, color, or null",
		},
		registry.Spec{
			Key: "output.progress", Type: registry.TypeBool, Default: true,
			Description: "Show a progress indicator for URL lists",
		},
		registry.Spec{
			Key: "output.shorten", Type: registry.TypeBool, Default: true,
			Description: "Shorten filenames to fit the terminal width",
		},
		registry.Spec{
			Key: "output.skip", Type: registry.TypeBool, Default: true,
			Description: "Show skipped downloads",
		},
		registry.Spec{
			Key: "output.ansi", Type: registry.TypeBool, Default: true,
			Description: "Enable ANSI escape sequences on Windows",
		},
		registry.Spec{
			Key: "output.log", Type: registry.TypeObject, Default: map[string]any{},
			Description: "Logging output settings",
		},
		registry.Spec{
			Key: "output.log.level", Type: registry.TypeString, Default: "info",
			Description: "Minimum logging level",
		},
		registry.Spec{
			Key: "output.log.format", Type: registry.TypeString, Default: "[{name}][{levelname}] {message}",
			Description: "Format string for logging messages",
		},
		registry.Spec{
			Key: "output.log.format-date", Type: registry.TypeString, Default: "%Y-%m-%d %H:%M:%S",
			Description: "Format string for {asctime} fields",
		},
		registry.Spec{
			Key: "output.logfile", Type: registry.TypeStringOrNull,
			Description: "Path to the output logfile; null disables it",
		},
		registry.Spec{
			Key: "output.unsupportedfile", Type: registry.TypeStringOrNull,
			Description: "Path to the file collecting unsupported URLs",
		},
	)
}

func registerPostprocessor(reg *registry.Registry) error {
	return reg.RegisterComponent("postprocessor", registry.WithOpaqueNested())
}
