package registry

import (
	"errors"
	"testing"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New()

	err := r.Register("downloader", Spec{
		Key:     "downloader.retries",
		Type:    TypeInt,
		Default: 4,
		Scope:   ScopeCategory,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	spec, err := r.Lookup("downloader.retries")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if spec.Type != TypeInt {
		t.Errorf("Type = %v, want %v", spec.Type, TypeInt)
	}
	if spec.Default != 4 {
		t.Errorf("Default = %v, want 4", spec.Default)
	}
	if spec.Leaf() != "retries" {
		t.Errorf("Leaf() = %q, want %q", spec.Leaf(), "retries")
	}
}

func TestLookupUnknownKey(t *testing.T) {
	r := New()

	_, err := r.Lookup("extractor.nope")
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if !errors.Is(err, ErrUnknownKey) {
		t.Errorf("error %v does not match ErrUnknownKey", err)
	}
	var uk *UnknownKeyError
	if !errors.As(err, &uk) {
		t.Fatalf("error %T is not *UnknownKeyError", err)
	}
	if uk.Key != "extractor.nope" {
		t.Errorf("Key = %q, want %q", uk.Key, "extractor.nope")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := New()

	first := Spec{Key: "extractor.timeout", Type: TypeFloat, Default: 30.0}
	if err := r.Register("extractor", first); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Same key, same type: no-op.
	if err := r.Register("extractor", first); err != nil {
		t.Errorf("identical re-registration failed: %v", err)
	}

	// Same key, differing type: DuplicateKeyError.
	err := r.Register("extractor", Spec{Key: "extractor.timeout", Type: TypeString, Default: "30"})
	if err == nil {
		t.Fatal("expected error for conflicting re-registration")
	}
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("error %v does not match ErrDuplicateKey", err)
	}
	var dup *DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("error %T is not *DuplicateKeyError", err)
	}
	if dup.Existing != TypeFloat || dup.Proposed != TypeString {
		t.Errorf("DuplicateKeyError = %+v, want existing float, proposed string", dup)
	}
}

func TestRegisterOutsideComponent(t *testing.T) {
	r := New()

	err := r.Register("extractor", Spec{Key: "downloader.rate", Type: TypeString, Default: ""})
	if err == nil {
		t.Fatal("expected error for spec outside component namespace")
	}
}

func TestRegisterNestedWithoutObjectParent(t *testing.T) {
	r := New()

	err := r.Register("extractor", Spec{Key: "extractor.a.b", Type: TypeInt, Default: 1})
	if err == nil {
		t.Fatal("expected error for nested key without object parent")
	}
}

func TestRegisterObjectChildren(t *testing.T) {
	r := New()

	err := r.Register("output", Spec{
		Key:     "output.log",
		Type:    TypeObject,
		Default: map[string]any{},
	})
	if err != nil {
		t.Fatalf("Register object failed: %v", err)
	}
	err = r.Register("output", Spec{Key: "output.log.level", Type: TypeString, Default: "info"})
	if err != nil {
		t.Fatalf("Register child failed: %v", err)
	}

	parent, err := r.Lookup("output.log")
	if err != nil {
		t.Fatalf("Lookup parent failed: %v", err)
	}
	child := parent.Child("level")
	if child == nil {
		t.Fatal("Child(\"level\") = nil")
	}
	if child.Key != "output.log.level" {
		t.Errorf("child key = %q, want %q", child.Key, "output.log.level")
	}

	// Child specs do not seed the defaults tier directly.
	for _, s := range r.SpecsFor("output", "") {
		if s.Key == "output.log.level" {
			t.Error("SpecsFor included a child spec")
		}
	}
}

func TestRegisterUnderOpaque(t *testing.T) {
	r := New()

	err := r.Register("extractor", Spec{
		Key:     "extractor.postprocessors",
		Type:    TypeObject,
		Default: map[string]any{},
		Opaque:  true,
	})
	if err != nil {
		t.Fatalf("Register opaque failed: %v", err)
	}
	err = r.Register("extractor", Spec{Key: "extractor.postprocessors.name", Type: TypeString, Default: ""})
	if err == nil {
		t.Fatal("expected error registering beneath an opaque spec")
	}
}

func TestRegisterIntermediateMissing(t *testing.T) {
	r := New()

	if err := r.Register("output", Spec{Key: "output.log", Type: TypeObject, Default: map[string]any{}}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	err := r.Register("output", Spec{Key: "output.log.file.path", Type: TypeString, Default: ""})
	if err == nil {
		t.Fatal("expected error for missing intermediate object spec")
	}
}

func TestDefaultValidation(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{"bool ok", Spec{Key: "c.a", Type: TypeBool, Default: true}, false},
		{"bool wrong", Spec{Key: "c.b", Type: TypeBool, Default: "true"}, true},
		{"int ok", Spec{Key: "c.c", Type: TypeInt, Default: 5}, false},
		{"int integral float ok", Spec{Key: "c.d", Type: TypeInt, Default: 5.0}, false},
		{"int fractional", Spec{Key: "c.e", Type: TypeInt, Default: 5.5}, true},
		{"int nil", Spec{Key: "c.f", Type: TypeInt, Default: nil}, true},
		{"float from int ok", Spec{Key: "c.g", Type: TypeFloat, Default: 3}, false},
		{"string ok", Spec{Key: "c.h", Type: TypeString, Default: "x"}, false},
		{"string nil", Spec{Key: "c.i", Type: TypeString, Default: nil}, true},
		{"string-or-null nil ok", Spec{Key: "c.j", Type: TypeStringOrNull, Default: nil}, false},
		{"string-or-null string ok", Spec{Key: "c.k", Type: TypeStringOrNull, Default: "tok"}, false},
		{"list ok", Spec{Key: "c.l", Type: TypeStringList, Default: []string{"a"}}, false},
		{"list any ok", Spec{Key: "c.m", Type: TypeStringList, Default: []any{"a"}}, false},
		{"list mixed", Spec{Key: "c.n", Type: TypeStringList, Default: []any{"a", 1}}, true},
		{"list scalar", Spec{Key: "c.o", Type: TypeStringList, Default: "a"}, true},
		{"object ok", Spec{Key: "c.p", Type: TypeObject, Default: map[string]any{}}, false},
		{"object wrong", Spec{Key: "c.q", Type: TypeObject, Default: []any{}}, true},
		{"opaque non-object", Spec{Key: "c.r", Type: TypeString, Default: "", Opaque: true}, true},
		{"empty key", Spec{Key: "", Type: TypeBool, Default: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			err := r.Register("c", tt.spec)
			if tt.wantErr && err == nil {
				t.Errorf("Register(%q) succeeded, want error", tt.spec.Key)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Register(%q) failed: %v", tt.spec.Key, err)
			}
		})
	}
}

func TestRegisterGlobal(t *testing.T) {
	r := New()

	if err := r.RegisterGlobal(Spec{Key: "netrc", Type: TypeBool, Default: false}); err != nil {
		t.Fatalf("RegisterGlobal failed: %v", err)
	}
	spec, err := r.Lookup("netrc")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if spec.Scope != ScopeGlobal {
		t.Errorf("Scope = %v, want %v", spec.Scope, ScopeGlobal)
	}

	if err := r.RegisterGlobal(Spec{Key: "a.b", Type: TypeBool, Default: false}); err == nil {
		t.Error("expected error for dotted global key")
	}
}

func TestRegisterCategory(t *testing.T) {
	r := New()

	err := r.RegisterCategory("extractor", "deviantart", Spec{
		Key:     "extractor.deviantart.refresh-token",
		Type:    TypeStringOrNull,
		Default: nil,
	})
	if err != nil {
		t.Fatalf("RegisterCategory failed: %v", err)
	}

	spec, err := r.Lookup("extractor.deviantart.refresh-token")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if spec.Scope != ScopeCategory {
		t.Errorf("Scope = %v, want %v", spec.Scope, ScopeCategory)
	}

	err = r.RegisterCategory("extractor", "deviantart", Spec{
		Key: "extractor.pixiv.refresh-token", Type: TypeStringOrNull,
	})
	if err == nil {
		t.Error("expected error for spec outside category namespace")
	}
}

func TestSpecsFor(t *testing.T) {
	r := New()
	r.MustRegisterGlobal(Spec{Key: "netrc", Type: TypeBool, Default: false})
	r.MustRegister("extractor",
		Spec{Key: "extractor.retries", Type: TypeInt, Default: 4, Scope: ScopeCategory},
		Spec{Key: "extractor.base-directory", Type: TypeString, Default: "./downloads/"},
	)
	r.MustRegisterCategory("extractor", "deviantart",
		Spec{Key: "extractor.deviantart.refresh-token", Type: TypeStringOrNull},
	)
	r.MustRegister("downloader",
		Spec{Key: "downloader.rate", Type: TypeStringOrNull},
	)

	specs := r.SpecsFor("extractor", "deviantart")
	want := []string{
		"extractor.base-directory",
		"extractor.deviantart.refresh-token",
		"extractor.retries",
		"netrc",
	}
	if len(specs) != len(want) {
		t.Fatalf("SpecsFor returned %d specs, want %d", len(specs), len(want))
	}
	for i, s := range specs {
		if s.Key != want[i] {
			t.Errorf("specs[%d].Key = %q, want %q", i, s.Key, want[i])
		}
	}

	// Without a category the category-specific spec drops out.
	specs = r.SpecsFor("extractor", "")
	for _, s := range specs {
		if s.Key == "extractor.deviantart.refresh-token" {
			t.Error("SpecsFor without category included a category spec")
		}
	}
}

func TestRegisterComponent(t *testing.T) {
	r := New()

	if err := r.RegisterComponent("output", WithOpaqueNested()); err != nil {
		t.Fatalf("RegisterComponent failed: %v", err)
	}
	if !r.OpaqueNested("output") {
		t.Error("OpaqueNested(\"output\") = false, want true")
	}
	if r.OpaqueNested("extractor") {
		t.Error("OpaqueNested(\"extractor\") = true for unregistered component")
	}

	// Idempotent with identical options.
	if err := r.RegisterComponent("output", WithOpaqueNested()); err != nil {
		t.Errorf("identical re-registration failed: %v", err)
	}
	// Changing options fails.
	if err := r.RegisterComponent("output"); err == nil {
		t.Error("expected error re-registering component with different options")
	}

	if err := r.RegisterComponent("bad.name"); err == nil {
		t.Error("expected error for dotted component name")
	}
}

func TestComponentsAndIsComponent(t *testing.T) {
	r := New()
	r.MustRegister("downloader", Spec{Key: "downloader.rate", Type: TypeStringOrNull})
	r.MustRegister("extractor", Spec{Key: "extractor.retries", Type: TypeInt, Default: 4})

	if !r.IsComponent("downloader") {
		t.Error("IsComponent(\"downloader\") = false")
	}
	if r.IsComponent("archive") {
		t.Error("IsComponent(\"archive\") = true for unregistered name")
	}

	got := r.Components()
	want := []string{"downloader", "extractor"}
	if len(got) != len(want) {
		t.Fatalf("Components() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Components()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMustRegisterPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustRegister did not panic on invalid spec")
		}
	}()

	r := New()
	r.MustRegister("c", Spec{Key: "c.x", Type: TypeInt, Default: nil})
}

func TestTierAccessors(t *testing.T) {
	r := New()
	r.MustRegisterGlobal(Spec{Key: "netrc", Type: TypeBool, Default: false})
	r.MustRegister("extractor",
		Spec{Key: "extractor.skip", Type: TypeBool, Default: false},
		Spec{Key: "extractor.retries", Type: TypeInt, Default: 4},
	)
	r.MustRegisterCategory("extractor", "deviantart",
		Spec{Key: "extractor.deviantart.mature", Type: TypeBool, Default: false},
		Spec{Key: "extractor.deviantart.refresh-token", Type: TypeStringOrNull, Default: nil},
	)

	globals := r.GlobalSpecs()
	if len(globals) != 1 || globals[0].Key != "netrc" {
		t.Errorf("GlobalSpecs = %v", specKeys(globals))
	}

	comp := r.ComponentSpecs("extractor")
	if got := specKeys(comp); len(got) != 2 || got[0] != "extractor.retries" || got[1] != "extractor.skip" {
		t.Errorf("ComponentSpecs = %v", got)
	}
	if r.ComponentSpecs("archive") != nil {
		t.Error("ComponentSpecs for unregistered component is not nil")
	}

	cats := r.CategorySpecs("extractor", "deviantart")
	if got := specKeys(cats); len(got) != 2 || got[0] != "extractor.deviantart.mature" {
		t.Errorf("CategorySpecs = %v", got)
	}
	if got := r.CategorySpecs("extractor", "pixiv"); len(got) != 0 {
		t.Errorf("CategorySpecs for other category = %v", specKeys(got))
	}

	spec, ok := r.CategorySpec("extractor", "deviantart", "mature")
	if !ok || spec.Key != "extractor.deviantart.mature" {
		t.Errorf("CategorySpec = %v, %v", spec, ok)
	}
	if _, ok := r.CategorySpec("extractor", "deviantart", "videos"); ok {
		t.Error("CategorySpec found an unregistered leaf")
	}
}

func TestSpecChildren(t *testing.T) {
	r := New()
	r.MustRegister("output",
		Spec{Key: "output.log", Type: TypeObject, Default: map[string]any{}},
		Spec{Key: "output.log.level", Type: TypeString, Default: "info"},
		Spec{Key: "output.log.colors", Type: TypeBool, Default: true},
	)

	spec, err := r.Lookup("output.log")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	children := spec.Children()
	if got := specKeys(children); len(got) != 2 || got[0] != "output.log.colors" || got[1] != "output.log.level" {
		t.Errorf("Children = %v", got)
	}

	leaf, _ := r.Lookup("output.log.level")
	if leaf.Children() != nil {
		t.Error("leaf spec reports children")
	}
}

func specKeys(specs []*Spec) []string {
	keys := make([]string, len(specs))
	for i, s := range specs {
		keys[i] = s.Key
	}
	return keys
}
