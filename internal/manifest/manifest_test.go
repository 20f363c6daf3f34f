package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lf-lang/lingo/internal/manifest"
	"github.com/lf-lang/lingo/pkg/result"
	"github.com/lf-lang/lingo/pkg/types"
)

const sample = `
[package]
name = "demo"
version = "0.2.0"
toolchain = ">= 0.8"

[[app]]
name = "sender"
target = "Cpp"

[[app]]
name = "receiver"
target = "rust"
platform = "Native"
main = "src/Receiver.lf"

[[app]]
name = "sensor"
target = "C"
platform = "zephyr"
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, manifest.FileName), []byte(content), 0644))
	return root
}

func TestLoad(t *testing.T) {
	root := writeManifest(t, sample)

	m, err := manifest.Load(root)
	require.NoError(t, err)

	assert.Equal(t, "demo", m.Package.Name)
	assert.Equal(t, ">= 0.8", m.Package.Toolchain)

	apps := m.AppList()
	require.Len(t, apps, 3)
	assert.Equal(t, []string{"sender", "receiver", "sensor"}, types.BatchCommand{Apps: apps}.AppNames())

	sender := apps[0]
	assert.Equal(t, types.TargetLanguageCpp, sender.Target)
	assert.Equal(t, types.PlatformNative, sender.Platform)
	assert.Equal(t, manifest.DefaultMain, sender.MainReactor)
	assert.Equal(t, filepath.Join(m.Root, "target", "sender"), sender.OutputRoot)
	assert.Equal(t, m.Root, sender.RootPath)

	assert.Equal(t, types.TargetLanguageRust, apps[1].Target)
	assert.Equal(t, "src/Receiver.lf", apps[1].MainReactor)
	assert.Equal(t, types.PlatformZephyr, apps[2].Platform)
}

func TestLoad_Missing(t *testing.T) {
	_, err := manifest.Load(t.TempDir())
	require.Error(t, err)
	assert.True(t, result.IsConfig(err))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no apps", "[package]\nname = \"demo\"\n"},
		{"no package name", "[package]\n\n[[app]]\nname = \"a\"\ntarget = \"C\"\n"},
		{"unknown target", "[package]\nname = \"demo\"\n\n[[app]]\nname = \"a\"\ntarget = \"Java\"\n"},
		{"unknown platform", "[package]\nname = \"demo\"\n\n[[app]]\nname = \"a\"\ntarget = \"C\"\nplatform = \"Arduino\"\n"},
		{"duplicate app", "[package]\nname = \"demo\"\n\n[[app]]\nname = \"a\"\ntarget = \"C\"\n\n[[app]]\nname = \"a\"\ntarget = \"Cpp\"\n"},
		{"bad version", "[package]\nname = \"demo\"\nversion = \"one\"\n\n[[app]]\nname = \"a\"\ntarget = \"C\"\n"},
		{"syntax", "[package\nname = "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manifest.Load(writeManifest(t, tt.content))
			require.Error(t, err)
			assert.True(t, result.IsConfig(err), "expected configuration error, got %v", err)
		})
	}
}

func TestSelect(t *testing.T) {
	m, err := manifest.Load(writeManifest(t, sample))
	require.NoError(t, err)

	t.Run("empty filter selects all in manifest order", func(t *testing.T) {
		apps, err := m.Select(nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"sender", "receiver", "sensor"}, types.BatchCommand{Apps: apps}.AppNames())
	})

	t.Run("keeps command line order", func(t *testing.T) {
		apps, err := m.Select([]string{"sensor", "sender"})
		require.NoError(t, err)
		assert.Equal(t, []string{"sensor", "sender"}, types.BatchCommand{Apps: apps}.AppNames())
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		apps, err := m.Select([]string{"sender", " sender", ""})
		require.NoError(t, err)
		assert.Len(t, apps, 1)
	})

	t.Run("unknown app", func(t *testing.T) {
		_, err := m.Select([]string{"sender", "ghost"})
		require.Error(t, err)
		assert.True(t, result.IsConfig(err))
		assert.Contains(t, err.Error(), "ghost")
	})
}

func TestInit(t *testing.T) {
	root := filepath.Join(t.TempDir(), "blink")
	require.NoError(t, os.MkdirAll(root, 0755))

	m, err := manifest.Init(root, "", types.PlatformZephyr)
	require.NoError(t, err)
	assert.Equal(t, "blink", m.Package.Name)

	loaded, err := manifest.Load(root)
	require.NoError(t, err)
	apps := loaded.AppList()
	require.Len(t, apps, 1)
	assert.Equal(t, types.TargetLanguageC, apps[0].Target)
	assert.Equal(t, types.PlatformZephyr, apps[0].Platform)

	src, err := os.ReadFile(filepath.Join(root, manifest.DefaultMain))
	require.NoError(t, err)
	assert.Contains(t, string(src), "target C")
	assert.Contains(t, string(src), "Zephyr")

	_, err = manifest.Init(root, types.TargetLanguageCpp, types.PlatformNative)
	require.Error(t, err)
	assert.True(t, result.IsConfig(err))
}

func TestInit_DefaultsToCpp(t *testing.T) {
	root := t.TempDir()

	_, err := manifest.Init(root, "", types.PlatformNative)
	require.NoError(t, err)

	src, err := os.ReadFile(filepath.Join(root, manifest.DefaultMain))
	require.NoError(t, err)
	assert.Contains(t, string(src), "target Cpp;")
	assert.Contains(t, string(src), "std::cout")
}
