package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjpeg/pkg/config"
	"adjpeg/pkg/models"
)

func TestParseFlagsDefaults(t *testing.T) {
	var stderr bytes.Buffer
	opts, err := parseFlags([]string{"photo.jpg"}, &stderr)
	require.NoError(t, err)

	assert.Equal(t, []string{"photo.jpg"}, opts.inputs)
	assert.Equal(t, config.CoefficientRange{Start: 1, End: 12}, opts.cfg.Range)
	assert.Equal(t, config.Exclusive, opts.cfg.RangeEnd)
	assert.Equal(t, config.Normal, opts.cfg.Verbosity)
	assert.True(t, opts.cfg.UseMixture)
	assert.Equal(t, 100, opts.cfg.MaxCandidateStep)
	assert.Equal(t, 1024, opts.cfg.SymmetricRange)
	assert.Equal(t, "output", opts.outputDir)
}

func TestParseFlags(t *testing.T) {
	var stderr bytes.Buffer
	opts, err := parseFlags([]string{"-r", "2-9", "-range-end", "inclusive", "-d", "-no-mixture",
		"-max-step", "40", "-dct-bound", "2048", "-o", "map.jpg", "a.jpg"}, &stderr)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3, 4, 5, 6, 7, 8, 9}, opts.cfg.Indices())
	assert.Equal(t, config.Debug, opts.cfg.Verbosity)
	assert.False(t, opts.cfg.UseMixture)
	assert.Equal(t, 40, opts.cfg.MaxCandidateStep)
	assert.Equal(t, 2048, opts.cfg.SymmetricRange)
	assert.Equal(t, "map.jpg", opts.outputPath)
}

func TestParseFlagsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"reversed range", []string{"-r", "9-2", "a.jpg"}},
		{"equal range", []string{"-dct-range", "4-4", "a.jpg"}},
		{"malformed range", []string{"-r", "1:12", "a.jpg"}},
		{"range end", []string{"-range-end", "open", "a.jpg"}},
		{"quiet and debug", []string{"-q", "-d", "a.jpg"}},
		{"no input", nil},
		{"quality", []string{"-quality", "0", "a.jpg"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var stderr bytes.Buffer
			_, err := parseFlags(tc.args, &stderr)
			assert.ErrorIs(t, err, models.ErrConfig)
		})
	}

	var stderr bytes.Buffer
	_, err := parseFlags([]string{"-h"}, &stderr)
	assert.ErrorIs(t, err, flag.ErrHelp)
}

func TestParseFlagsListFile(t *testing.T) {
	list := filepath.Join(t.TempDir(), "inputs.txt")
	require.NoError(t, os.WriteFile(list, []byte("# batch\none.jpg\ntwo.jpg\n"), 0644))

	var stderr bytes.Buffer
	opts, err := parseFlags([]string{"-list", list, "zero.jpg"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, []string{"zero.jpg", "one.jpg", "two.jpg"}, opts.inputs)
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jpg", "a.jpeg", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte{0}, 0644))
	}
	single := filepath.Join(dir, "notes.txt")

	files, err := expandInputs([]string{dir, single}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.jpeg"), filepath.Join(dir, "b.jpg"), single}, files)

	_, err = expandInputs([]string{filepath.Join(dir, "missing.jpg")}, nil)
	assert.ErrorIs(t, err, models.ErrInput)
}
