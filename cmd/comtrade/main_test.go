package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comtrade-viewer/backend/internal/export"
	"github.com/comtrade-viewer/backend/internal/models"
	"github.com/comtrade-viewer/backend/internal/parser"
	"github.com/comtrade-viewer/backend/internal/testutil"
)

func writeRecording(t *testing.T, ft models.FileType) (dir string) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r.cfg"), []byte(testutil.ConfigText(ft)), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r.dat"), testutil.DataBytes(ft), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r.inf"), []byte(testutil.InfoText()), 0644))
	return dir
}

func TestRun(t *testing.T) {
	dir := writeRecording(t, models.FileTypeBinary)
	opts := options{
		cfg:    filepath.Join(dir, "r.cfg"),
		dat:    ":" + filepath.Join(dir, "r.dat"),
		inf:    filepath.Join(dir, "r.inf"),
		format: "yaml",
		arrow:  filepath.Join(dir, "out.arrow"),
		out:    filepath.Join(dir, "out.yaml"),
	}
	require.NoError(t, run(opts, zap.NewNop()))

	data, err := os.ReadFile(opts.out)
	require.NoError(t, err)
	var rec export.Recording
	require.NoError(t, export.Unmarshal(export.FormatYAML, data, &rec))
	assert.Equal(t, testutil.Records(), rec.Data)
	assert.NotNil(t, rec.Info)

	f, err := os.Open(opts.arrow)
	require.NoError(t, err)
	defer f.Close()
	table, err := export.ReadArrow(f)
	require.NoError(t, err)
	assert.Equal(t, testutil.Records(), table)
}

func TestRun_Errors(t *testing.T) {
	dir := writeRecording(t, models.FileTypeASCII)

	err := run(options{cfg: filepath.Join(dir, "r.cfg"), format: "xml"}, zap.NewNop())
	assert.Error(t, err)

	err = run(options{cfg: filepath.Join(dir, "missing.cfg"), format: "json", out: filepath.Join(dir, "o")}, zap.NewNop())
	assert.ErrorIs(t, err, parser.ErrFileNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.dat"), []byte("1,0\r\n"), 0644))
	err = run(options{cfg: filepath.Join(dir, "r.cfg"), dat: filepath.Join(dir, "bad.dat"), format: "json", out: filepath.Join(dir, "o")}, zap.NewNop())
	assert.ErrorIs(t, err, parser.ErrMalformedLine)
}

func TestAsRef(t *testing.T) {
	assert.Equal(t, ":/a/b.cfg", asRef("/a/b.cfg"))
	assert.Equal(t, ":/a/b.cfg", asRef(":/a/b.cfg"))
}
