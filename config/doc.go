// Package config provides the configuration engine for grabkit.
//
// The config package manages loading, merging, and resolving options for
// the extraction, download, and output components, including per-site
// overrides and live reload.
//
// # Architecture
//
// An effective configuration is resolved per (component, category) pair by
// merging four tiers, higher tiers overriding lower:
//
//	┌─────────────────────────────┐
//	│  4. Category overrides      │  ← extractor.deviantart.*
//	├─────────────────────────────┤
//	│  3. Component overrides     │  ← extractor.*
//	├─────────────────────────────┤
//	│  2. Global document values  │  ← document root scalars
//	├─────────────────────────────┤
//	│  1. Schema defaults         │  ← Lowest priority
//	└─────────────────────────────┘
//
// Merging is key by key at every depth: a tier that sets one field of a
// nested object overrides that field only, and sibling fields from lower
// tiers survive. Every value is coerced against its registered spec, so a
// resolution either yields fully typed values or reports exactly which key
// is wrong.
//
// # Sub-packages
//
//   - registry: option specs with types, defaults, and override scopes
//   - coerce: type coercion of raw document values to canonical Go types
//   - layer: merge tiers, deep merge, and copy-on-write path editing
//   - store: the versioned configuration tree with atomic snapshot swap
//   - loader: configuration file loading (JSON, TOML, YAML, environment)
//   - cache: memoized resolutions keyed by component, category, and version
//   - watcher: file watching for live reload
//   - notify: change notification and observer pattern
//
// # Basic Usage
//
// Register specs, load a document, and resolve:
//
//	reg := registry.New()
//	catalog.MustRegister(reg)
//
//	eng := config.New(config.WithRegistry(reg))
//	defer eng.Close()
//
//	if _, err := eng.LoadFile("~/.config/grabkit/grabkit.conf"); err != nil {
//	    log.Fatal(err)
//	}
//
//	eff, err := eng.Resolve("extractor", "deviantart")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	retries, _ := eff.Int("retries")
//	token, _ := eff.StringOrNull("refresh-token")
//
// Resolutions are immutable snapshots: a reload or override after Resolve
// never mutates an Effective a caller already holds.
//
// # Configuration Files
//
// The primary format is JSON with the component blocks at the root:
//
//	{
//	    "netrc": false,
//	    "extractor": {
//	        "base-directory": "./grabkit/",
//	        "deviantart": {
//	            "refresh-token": null,
//	            "mature": true
//	        }
//	    },
//	    "downloader": {
//	        "retries": 4
//	    }
//	}
//
// TOML and YAML documents with the same shape load identically.
//
// # Error Handling
//
// The package surfaces typed errors from its sub-packages:
//
//   - loader.ParseError: configuration file parsing failed
//   - registry.UnknownKeyError: unregistered key in strict mode
//   - registry.DuplicateKeyError: conflicting spec registration
//   - coerce.TypeMismatchError: value does not satisfy its spec's type
//   - ErrOptionNotFound: resolved configuration has no such option
//   - ErrUnknownComponent: resolution against an unregistered component
package config
