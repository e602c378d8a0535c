package parser

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/comtrade-viewer/backend/internal/models"
)

// PathMarker prefixes a path reference, e.g. ":/data/rec1.cfg".
const PathMarker = ":"

// IsPathReference reports whether s looks like a path reference rather than inline content.
func IsPathReference(s string) bool {
	return strings.HasPrefix(s, PathMarker) && !strings.ContainsAny(s, "\r\n")
}

// resolvePath strips the marker from ref.
func resolvePath(ref string) (string, error) {
	path, ok := strings.CutPrefix(ref, PathMarker)
	if !ok || path == "" {
		return "", &DecodeError{Kind: ErrInvalidPathReference, File: ref, Reason: "invalid file name - missing ':'"}
	}
	return path, nil
}

// ReadBytes loads the raw contents of the file named by a path reference.
func ReadBytes(ref string) ([]byte, error) {
	path, err := resolvePath(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, &DecodeError{Kind: ErrFileNotFound, File: path, Reason: "no such file"}
		}
		return nil, err
	}
	return data, nil
}

// ReadText loads the text contents of the file named by a path reference.
func ReadText(ref string) (string, error) {
	data, err := ReadBytes(ref)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseConfigurationRef decodes a configuration file named by a path reference.
func ParseConfigurationRef(ref string) (*models.ConfigurationRecord, error) {
	text, err := ReadText(ref)
	if err != nil {
		return nil, err
	}
	return ParseConfiguration(text)
}

// ParseDataRef decodes a data file named by a path reference.
func ParseDataRef(ref string, schema DataSchema) (models.DataTable, error) {
	data, err := ReadBytes(ref)
	if err != nil {
		return nil, err
	}
	return ParseData(data, schema)
}

// ParseInfoRef decodes an information file named by a path reference.
func ParseInfoRef(ref string) (*models.InfoRecord, error) {
	text, err := ReadText(ref)
	if err != nil {
		return nil, err
	}
	return ParseInfo(text)
}
