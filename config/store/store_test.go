package store

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewStoreIsEmpty(t *testing.T) {
	st := New()
	if st.Version() != 0 {
		t.Errorf("Version = %d, want 0", st.Version())
	}
	if len(st.Snapshot().Root()) != 0 {
		t.Errorf("Root = %v, want empty", st.Snapshot().Root())
	}
}

func TestReplaceBumpsVersion(t *testing.T) {
	st := New()

	v := st.Replace(map[string]any{"netrc": true})
	if v != 1 {
		t.Errorf("first Replace version = %d, want 1", v)
	}
	v = st.Replace(map[string]any{"netrc": false})
	if v != 2 {
		t.Errorf("second Replace version = %d, want 2", v)
	}
	got, ok := st.Snapshot().Node("netrc")
	if !ok || got != false {
		t.Errorf("Node(netrc) = %v, %v", got, ok)
	}
}

func TestReplaceClonesInput(t *testing.T) {
	st := New()
	tree := map[string]any{"downloader": map[string]any{"retries": 3}}
	st.Replace(tree)

	tree["downloader"].(map[string]any)["retries"] = 99
	got, _ := st.Snapshot().Node("downloader.retries")
	if got != 3 {
		t.Errorf("Node(downloader.retries) = %v, want 3 after caller mutation", got)
	}
}

func TestSnapshotSurvivesLaterMutations(t *testing.T) {
	st := New()
	st.Replace(map[string]any{"downloader": map[string]any{"retries": 3}})

	snap := st.Snapshot()
	st.Replace(map[string]any{"downloader": map[string]any{"retries": 7}})

	got, _ := snap.Node("downloader.retries")
	if got != 3 {
		t.Errorf("old snapshot Node = %v, want 3", got)
	}
	if snap.Version() != 1 {
		t.Errorf("old snapshot Version = %d, want 1", snap.Version())
	}
	got, _ = st.Snapshot().Node("downloader.retries")
	if got != 7 {
		t.Errorf("current Node = %v, want 7", got)
	}
}

func TestSetCreatesIntermediates(t *testing.T) {
	st := New()

	v, err := st.Set("extractor.deviantart.mature", true)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v != 1 {
		t.Errorf("Set version = %d, want 1", v)
	}
	got, ok := st.Snapshot().Node("extractor.deviantart.mature")
	if !ok || got != true {
		t.Errorf("Node = %v, %v", got, ok)
	}
}

func TestSetDoesNotDisturbSiblings(t *testing.T) {
	st := New()
	st.Replace(map[string]any{
		"extractor": map[string]any{"skip": true},
		"output":    map[string]any{"mode": "auto"},
	})

	before := st.Snapshot()
	if _, err := st.Set("extractor.retries", 4); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	after := st.Snapshot()

	want := map[string]any{"skip": true, "retries": 4}
	got, _ := after.Node("extractor")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extractor = %v, want %v", got, want)
	}

	// The prior snapshot still shows the old shape.
	old, _ := before.Node("extractor")
	if !reflect.DeepEqual(old, map[string]any{"skip": true}) {
		t.Errorf("prior snapshot extractor = %v", old)
	}

	// Untouched branches are shared, not copied.
	if reflect.ValueOf(before.Root()["output"]).Pointer() != reflect.ValueOf(after.Root()["output"]).Pointer() {
		t.Error("untouched branch was copied instead of shared")
	}
}

func TestSetClonesValue(t *testing.T) {
	st := New()
	val := map[string]any{"level": "debug"}
	if _, err := st.Set("output.log", val); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val["level"] = "error"
	got, _ := st.Snapshot().Node("output.log.level")
	if got != "debug" {
		t.Errorf("Node = %v, want debug after caller mutation", got)
	}
}

func TestRemove(t *testing.T) {
	st := New()
	st.Replace(map[string]any{"downloader": map[string]any{"retries": 3, "timeout": 30}})

	v, removed, err := st.Remove("downloader.retries")
	if err != nil || !removed {
		t.Fatalf("Remove = %d, %v, %v", v, removed, err)
	}
	if v != 2 {
		t.Errorf("Remove version = %d, want 2", v)
	}
	if _, ok := st.Snapshot().Node("downloader.retries"); ok {
		t.Error("removed path still present")
	}
	if got, _ := st.Snapshot().Node("downloader.timeout"); got != 30 {
		t.Errorf("sibling = %v, want 30", got)
	}
}

func TestRemoveAbsentKeepsVersion(t *testing.T) {
	st := New()
	st.Replace(map[string]any{"netrc": true})

	v, removed, err := st.Remove("downloader.retries")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed {
		t.Error("Remove reported success for an absent path")
	}
	if v != 1 || st.Version() != 1 {
		t.Errorf("version = %d/%d, want 1", v, st.Version())
	}
}

func TestInvalidPaths(t *testing.T) {
	st := New()
	for _, path := range []string{"", "a..b", ".a", "a."} {
		if _, err := st.Set(path, 1); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Set(%q) error = %v, want ErrInvalidPath", path, err)
		}
		if _, _, err := st.Remove(path); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Remove(%q) error = %v, want ErrInvalidPath", path, err)
		}
	}
}
