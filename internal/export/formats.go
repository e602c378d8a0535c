package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/comtrade-viewer/backend/internal/models"
)

// Format is a document encoding for a decoded recording.
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat accepts json, yaml/yml and msgpack, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "msgpack", "mp":
		return FormatMsgpack, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

// ContentType returns the HTTP content type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml"
	case FormatMsgpack:
		return "application/msgpack"
	}
	return "application/json"
}

// Recording bundles the decoded files of one recording.
type Recording struct {
	Config *models.ConfigurationRecord `json:"config" yaml:"config" msgpack:"config"`
	Info   *models.InfoRecord          `json:"info,omitempty" yaml:"info,omitempty" msgpack:"info,omitempty"`
	Data   models.DataTable            `json:"data" yaml:"data" msgpack:"data"`
}

// Write encodes v in format f.
func Write(w io.Writer, f Format, v interface{}) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(v)
	}
	return fmt.Errorf("unsupported format %q", f)
}

// Marshal encodes v in format f into a byte slice.
func Marshal(f Format, v interface{}) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.Marshal(v)
	case FormatYAML:
		return yaml.Marshal(v)
	case FormatMsgpack:
		return msgpack.Marshal(v)
	}
	return nil, fmt.Errorf("unsupported format %q", f)
}

// Unmarshal decodes data in format f into v.
func Unmarshal(f Format, data []byte, v interface{}) error {
	switch f {
	case FormatJSON:
		return json.Unmarshal(data, v)
	case FormatYAML:
		return yaml.Unmarshal(data, v)
	case FormatMsgpack:
		return msgpack.Unmarshal(data, v)
	}
	return fmt.Errorf("unsupported format %q", f)
}
