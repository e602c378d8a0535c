package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/comtrade-viewer/backend/internal/models"
)

// Registry maps file extensions to the kind of COMTRADE file they hold.
type Registry struct {
	kinds map[string]models.FileKind
}

// Global registry instance
var globalRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{
		kinds: map[string]models.FileKind{
			".cfg": models.FileKindConfig,
			".dat": models.FileKindData,
			".inf": models.FileKindInfo,
		},
	}
}

// GetGlobalRegistry returns the singleton registry.
func GetGlobalRegistry() *Registry {
	return globalRegistry
}

// Register adds or replaces an extension mapping. ext may omit the leading dot.
func (r *Registry) Register(ext string, kind models.FileKind) {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.kinds[strings.ToLower(ext)] = kind
}

// DetectKind returns the file kind for a file name, matching the extension case-insensitively.
func (r *Registry) DetectKind(name string) models.FileKind {
	if kind, ok := r.kinds[strings.ToLower(filepath.Ext(name))]; ok {
		return kind
	}
	return models.FileKindUnknown
}

// RequireKind fails unless name has the expected kind.
func (r *Registry) RequireKind(name string, want models.FileKind) error {
	if got := r.DetectKind(name); got != want {
		return fmt.Errorf("file %q is %s, expected %s", name, got, want)
	}
	return nil
}
