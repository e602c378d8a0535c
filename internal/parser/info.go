package parser

import (
	"strings"

	"github.com/comtrade-viewer/backend/internal/models"
)

// ParseInfo decodes a .inf file into its sections.
// Blank lines are skipped. Every other line is either a "[Marker Section Name]"
// header or a "key=v1,v2,..." entry belonging to the latest header.
func ParseInfo(input string) (*models.InfoRecord, error) {
	rec := &models.InfoRecord{Sections: []models.InfoSection{}}
	var current *models.InfoSection

	for i, line := range splitLines(input) {
		lineNo := i + 1
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") {
			name, err := parseInfoHeader(line, lineNo)
			if err != nil {
				return nil, err
			}
			rec.Sections = append(rec.Sections, models.InfoSection{Name: name, Entries: []models.InfoEntry{}})
			current = &rec.Sections[len(rec.Sections)-1]
			continue
		}

		if current == nil {
			return nil, malformed(fileInfo, lineNo, "invalid section - entry before the first section header")
		}
		key, values, ok := strings.Cut(line, "=")
		if !ok {
			return nil, malformed(fileInfo, lineNo, "invalid entry - missing '='")
		}
		current.Entries = append(current.Entries, models.InfoEntry{
			Key:    key,
			Values: strings.Split(values, ","),
		})
	}
	return rec, nil
}

// parseInfoHeader turns "[Public General Info]" into "General_Info".
// The word before the first space is a visibility marker and is dropped.
func parseInfoHeader(line string, lineNo int) (string, error) {
	inner, ok := strings.CutSuffix(line[1:], "]")
	if !ok {
		return "", malformed(fileInfo, lineNo, "invalid section - missing ']'")
	}
	_, name, ok := strings.Cut(inner, " ")
	if !ok {
		return "", malformed(fileInfo, lineNo, "invalid section - missing space after 'Public' or other marker")
	}
	return strings.ReplaceAll(name, " ", "_"), nil
}
