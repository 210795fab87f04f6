package loader

import (
	"errors"
	"io/fs"
	"testing"
	"time"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) Open(name string) (fs.File, error) {
	return nil, fs.ErrNotExist
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m.files[path]; ok {
		return &memFileInfo{name: path}, nil
	}
	return nil, fs.ErrNotExist
}

type memFileInfo struct {
	name string
}

func (f *memFileInfo) Name() string       { return f.name }
func (f *memFileInfo) Size() int64        { return 0 }
func (f *memFileInfo) Mode() fs.FileMode  { return 0644 }
func (f *memFileInfo) ModTime() time.Time { return time.Now() }
func (f *memFileInfo) IsDir() bool        { return false }
func (f *memFileInfo) Sys() any           { return nil }

func TestForPath(t *testing.T) {
	tests := []struct {
		path string
		want any
	}{
		{"/etc/grabkit.json", &JSONLoader{}},
		{"/etc/grabkit.conf", &JSONLoader{}},
		{"/etc/grabkit.toml", &TOMLLoader{}},
		{"/etc/grabkit.yaml", &YAMLLoader{}},
		{"/etc/grabkit.yml", &YAMLLoader{}},
		{"/etc/GRABKIT.JSON", &JSONLoader{}},
	}

	for _, tt := range tests {
		got, err := ForPath(tt.path)
		if err != nil {
			t.Fatalf("ForPath(%q) failed: %v", tt.path, err)
		}
		switch tt.want.(type) {
		case *JSONLoader:
			if _, ok := got.(*JSONLoader); !ok {
				t.Errorf("ForPath(%q) = %T, want *JSONLoader", tt.path, got)
			}
		case *TOMLLoader:
			if _, ok := got.(*TOMLLoader); !ok {
				t.Errorf("ForPath(%q) = %T, want *TOMLLoader", tt.path, got)
			}
		case *YAMLLoader:
			if _, ok := got.(*YAMLLoader); !ok {
				t.Errorf("ForPath(%q) = %T, want *YAMLLoader", tt.path, got)
			}
		}
	}
}

func TestForPathUnsupported(t *testing.T) {
	if _, err := ForPath("/etc/grabkit.ini"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ForPath(.ini) error = %v, want ErrUnsupportedFormat", err)
	}
}
