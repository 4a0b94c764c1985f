package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"part1.csv", "part2.csv", "part3.csv", "part4.csv", "part5.csv"}, c.DataFiles)
	assert.Equal(t, "parts", c.Source)
	assert.Equal(t, "Diabetes", c.DefaultTrait)
	assert.Equal(t, "African American", c.DefaultAncestry)
	assert.Equal(t, int64(42), c.Seed)
	assert.Equal(t, 100, c.Trees)
	assert.Equal(t, ":8080", c.ServerAddr)
	assert.False(t, c.DatesAsYears)
}

func TestSaveAndReload(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Set("data_files", "a.csv, b.csv"))
	require.NoError(t, c.Set("seed", "7"))
	require.NoError(t, c.Set("dates_as_years", "true"))
	require.NoError(t, c.Set("direction", "sample-size"))
	require.NoError(t, Save(c, path))

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv", "b.csv"}, again.DataFiles)
	assert.Equal(t, int64(7), again.Seed)
	assert.True(t, again.DatesAsYears)
	assert.Equal(t, "sample-size", again.Get("direction"))
	assert.Equal(t, "a.csv,b.csv", again.Get("data_files"))
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GWASTREND_TREES", "12")
	t.Setenv("GWASTREND_SERVER_ADDR", "127.0.0.1:9999")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 12, c.Trees)
	assert.Equal(t, "127.0.0.1:9999", c.ServerAddr)
}

func TestSetRejectsBadValues(t *testing.T) {
	c := &Global{}
	for key, val := range map[string]string{
		"seed":       "x",
		"trees":      "-1",
		"direction":  "up",
		"source":     "parquet",
		"log_format": "xml",
		"data_files": " , ",
		"nope":       "1",
	} {
		assert.Error(t, c.Set(key, val), key)
	}
}
