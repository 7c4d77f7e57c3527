package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dennwc/fileref/location"
)

const testYAML = `
default_root: /var/lib/fileref
locations:
  photos:
    type: dir
    dir: /srv/photos
    atomic: true
  checked:
    dir: /srv/checked
    verify: true
`

func TestDecodeYAML(t *testing.T) {
	conf, err := Decode(strings.NewReader(testYAML), true)
	require.NoError(t, err)
	require.Equal(t, &Config{
		DefaultRoot: "/var/lib/fileref",
		Locations: map[string]location.Config{
			"photos":  {Type: "dir", Dir: "/srv/photos", Atomic: true},
			"checked": {Dir: "/srv/checked", Verify: true},
		},
	}, conf)
}

func TestDecodeUnknownField(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"locations": {"a": {"root": "/x"}}}`), false)
	require.Error(t, err)
	_, err = Decode(strings.NewReader("locations:\n  a:\n    root: /x\n"), true)
	require.Error(t, err)
}

func TestReadWrite(t *testing.T) {
	dir := t.TempDir()
	conf := &Config{
		DefaultRoot: filepath.Join(dir, "default"),
		Locations: map[string]location.Config{
			"a": {Type: location.TypeDir, Dir: filepath.Join(dir, "a")},
		},
	}
	for _, name := range []string{"conf", "conf.yaml", "conf.yml", string(filepath.Separator)} {
		path := filepath.Join(dir, name)
		if name == string(filepath.Separator) {
			path = dir + name
		}
		require.NoError(t, WriteConfig(path, conf))
		got, err := ReadConfig(path)
		require.NoError(t, err, name)
		require.Equal(t, conf, got, name)
	}
	_, err := os.Stat(filepath.Join(dir, "conf.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, DefaultConfig))
	require.NoError(t, err)
}

func TestRegistry(t *testing.T) {
	dir := t.TempDir()
	conf := &Config{
		DefaultRoot: filepath.Join(dir, "default"),
		Locations: map[string]location.Config{
			"a": {Dir: filepath.Join(dir, "a")},
			"b": {Dir: filepath.Join(dir, "b"), Verify: true},
		},
	}
	reg, err := conf.Registry(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, reg.Keys())

	_, ok := reg.Get("b").(*location.Checked)
	require.True(t, ok)

	h, err := reg.Get("a").Resolve(context.Background(), "a", "x")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "a", "x"), h.Provenance())

	h, err = reg.Get("").Resolve(context.Background(), "", "x")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "default", "x"), h.Provenance())

	conf.Locations["bad"] = location.Config{Type: "unknown"}
	_, err = conf.Registry(context.Background(), nil)
	require.Error(t, err)
}
