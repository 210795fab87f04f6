package catalog

import (
	"testing"

	"github.com/dshills/grabkit/config"
	"github.com/dshills/grabkit/config/registry"
)

func TestRegisterIdempotent(t *testing.T) {
	reg := registry.New()
	if err := Register(reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second Register() error = %v", err)
	}
}

func TestBuiltinComponents(t *testing.T) {
	reg := NewRegistry()

	want := []string{"downloader", "extractor", "output", "postprocessor"}
	got := reg.Components()
	if len(got) != len(want) {
		t.Fatalf("Components() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Components()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if !reg.OpaqueNested("postprocessor") {
		t.Error("OpaqueNested(postprocessor) = false, want true")
	}
	if reg.OpaqueNested("extractor") {
		t.Error("OpaqueNested(extractor) = true, want false")
	}
}

func TestBuiltinSpecs(t *testing.T) {
	reg := NewRegistry()

	cases := []struct {
		key   string
		typ   registry.OptionType
		def   any
		scope registry.Scope
	}{
		{"netrc", registry.TypeBool, false, registry.ScopeGlobal},
		{"extractor.base-directory", registry.TypeString, "./grabkit/", registry.ScopeCategory},
		{"extractor.retries", registry.TypeInt, 4, registry.ScopeCategory},
		{"extractor.timeout", registry.TypeFloat, 30.0, registry.ScopeCategory},
		{"extractor.keywords-default", registry.TypeStringOrNull, nil, registry.ScopeCategory},
		{"extractor.deviantart.refresh-token", registry.TypeStringOrNull, nil, registry.ScopeCategory},
		{"extractor.deviantart.mature", registry.TypeBool, true, registry.ScopeCategory},
		{"downloader.retries", registry.TypeInt, 4, registry.ScopeCategory},
		{"downloader.http.retries", registry.TypeInt, 5, registry.ScopeCategory},
		{"output.mode", registry.TypeString, "auto", registry.ScopeComponent},
		{"output.log.level", registry.TypeString, "info", registry.ScopeComponent},
	}
	for _, tc := range cases {
		spec, err := reg.Lookup(tc.key)
		if err != nil {
			t.Errorf("Lookup(%s) error = %v", tc.key, err)
			continue
		}
		if spec.Type != tc.typ {
			t.Errorf("%s: Type = %v, want %v", tc.key, spec.Type, tc.typ)
		}
		if spec.Default != tc.def {
			t.Errorf("%s: Default = %v, want %v", tc.key, spec.Default, tc.def)
		}
		if spec.Scope != tc.scope {
			t.Errorf("%s: Scope = %v, want %v", tc.key, spec.Scope, tc.scope)
		}
	}

	headers, err := reg.Lookup("extractor.headers")
	if err != nil {
		t.Fatalf("Lookup(extractor.headers) error = %v", err)
	}
	if !headers.Opaque {
		t.Error("extractor.headers Opaque = false, want true")
	}

	logSpec, err := reg.Lookup("output.log")
	if err != nil {
		t.Fatalf("Lookup(output.log) error = %v", err)
	}
	if got := len(logSpec.Children()); got != 3 {
		t.Errorf("output.log children = %d, want 3", got)
	}
}

func TestBuiltinSpecsResolve(t *testing.T) {
	eng := config.New(config.WithRegistry(NewRegistry()), config.WithMode(config.Strict))
	defer eng.Close()

	eng.Load(map[string]any{
		"netrc": true,
		"extractor": map[string]any{
			"base-directory": "/data",
			"deviantart": map[string]any{
				"refresh-token": nil,
				"mature":        false,
			},
		},
		"downloader": map[string]any{
			"retries": 2,
		},
	})

	eff, err := eng.Resolve("extractor", "deviantart")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got, _ := eff.String("base-directory"); got != "/data" {
		t.Errorf("base-directory = %q, want /data", got)
	}
	if token, err := eff.StringOrNull("refresh-token"); err != nil || token != nil {
		t.Errorf("refresh-token = %v, %v, want explicit null", token, err)
	}
	if got, _ := eff.Bool("mature"); got != false {
		t.Errorf("mature = %v, want false", got)
	}
	if got, _ := eff.Bool("netrc"); got != true {
		t.Errorf("netrc = %v, want true", got)
	}

	dl, err := eng.Resolve("downloader", "http")
	if err != nil {
		t.Fatalf("Resolve(downloader, http) error = %v", err)
	}
	// The component tier overrides the http-specific default of 5.
	if got, _ := dl.Int("retries"); got != 2 {
		t.Errorf("retries = %d, want 2", got)
	}
	if got, _ := dl.Int("chunk-size"); got != 32768 {
		t.Errorf("chunk-size = %d, want 32768", got)
	}
}
