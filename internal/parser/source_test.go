package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec.cfg")
	content := crlf(configLines()...)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Run("resolves a marked path", func(t *testing.T) {
		text, err := ReadText(":" + path)
		require.NoError(t, err)
		assert.Equal(t, content, text)
	})

	t.Run("missing marker", func(t *testing.T) {
		_, err := ReadText(path)
		assert.ErrorIs(t, err, ErrInvalidPathReference)
	})

	t.Run("marker without path", func(t *testing.T) {
		_, err := ReadText(":")
		assert.ErrorIs(t, err, ErrInvalidPathReference)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadBytes(":" + filepath.Join(dir, "nope.dat"))
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("parse from reference", func(t *testing.T) {
		cfg, err := ParseConfigurationRef(":" + path)
		require.NoError(t, err)
		assert.Equal(t, "STATION_A", cfg.Station.StationName)
	})
}

func TestParseDataRefAndInfoRef(t *testing.T) {
	dir := t.TempDir()
	dat := filepath.Join(dir, "rec.dat")
	inf := filepath.Join(dir, "rec.inf")
	require.NoError(t, os.WriteFile(dat, []byte(crlf("1,0,5,1")), 0644))
	require.NoError(t, os.WriteFile(inf, []byte(crlf("[Public General]", "a=b")), 0644))

	table, err := ParseDataRef(":"+dat, asciiSchema(1, 1))
	require.NoError(t, err)
	assert.Len(t, table, 1)

	info, err := ParseInfoRef(":" + inf)
	require.NoError(t, err)
	assert.Equal(t, "General", info.Sections[0].Name)

	_, err = ParseInfoRef(inf)
	assert.ErrorIs(t, err, ErrInvalidPathReference)
}

func TestIsPathReference(t *testing.T) {
	assert.True(t, IsPathReference(":/tmp/a.cfg"))
	assert.False(t, IsPathReference("/tmp/a.cfg"))
	assert.False(t, IsPathReference(":x\r\nmore"))
}
