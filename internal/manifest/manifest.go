// Package manifest loads Lingo.toml and turns it into the app list a build works on
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/lf-lang/lingo/pkg/result"
	"github.com/lf-lang/lingo/pkg/types"
)

// FileName is the manifest file in the project root
const FileName = "Lingo.toml"

// DefaultMain is the main reactor used when an app does not name one
const DefaultMain = "src/Main.lf"

// Manifest is a parsed Lingo.toml
type Manifest struct {
	Package PackageInfo `mapstructure:"package" toml:"package"`
	Apps    []AppSpec   `mapstructure:"app" toml:"app" validate:"required,min=1,dive"`

	// Root is the directory holding the manifest
	Root string `mapstructure:"-" toml:"-"`
}

// PackageInfo is the [package] table
type PackageInfo struct {
	Name    string `mapstructure:"name" toml:"name" validate:"required"`
	Version string `mapstructure:"version" toml:"version,omitempty" validate:"omitempty,semver"`
	// Toolchain is an optional semver constraint on lfc, e.g. ">= 0.8"
	Toolchain string `mapstructure:"toolchain" toml:"toolchain,omitempty"`
}

// AppSpec is one [[app]] table
type AppSpec struct {
	Name     string `mapstructure:"name" toml:"name" validate:"required,excludesall=/\\"`
	Target   string `mapstructure:"target" toml:"target" validate:"required"`
	Platform string `mapstructure:"platform" toml:"platform,omitempty"`
	Main     string `mapstructure:"main" toml:"main,omitempty"`
}

var validate = validator.New()

// Load reads and validates <root>/Lingo.toml
func Load(root string) (*Manifest, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	path := filepath.Join(absRoot, FileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, result.Configf("no %s found in %s", FileName, absRoot)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, result.Configf("failed to parse %s: %v", FileName, err)
	}

	var m Manifest
	if err := v.Unmarshal(&m); err != nil {
		return nil, result.Configf("failed to decode %s: %v", FileName, err)
	}
	m.Root = absRoot

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks field constraints, app name uniqueness and that every
// target and platform is known
func (m *Manifest) Validate() error {
	if err := validate.Struct(m); err != nil {
		return result.Configf("invalid %s: %v", FileName, err)
	}

	seen := make(map[string]bool, len(m.Apps))
	for _, app := range m.Apps {
		if seen[app.Name] {
			return result.Configf("duplicate app name: %s", app.Name)
		}
		seen[app.Name] = true

		if _, err := types.ParseTargetLanguage(app.Target); err != nil {
			return result.Configf("app %s: %v", app.Name, err)
		}
		if app.Platform != "" {
			if _, err := types.ParsePlatform(app.Platform); err != nil {
				return result.Configf("app %s: %v", app.Name, err)
			}
		}
	}
	return nil
}

// AppList returns every app in manifest order. Output goes to <root>/target/<name>.
func (m *Manifest) AppList() []*types.App {
	apps := make([]*types.App, 0, len(m.Apps))
	for _, spec := range m.Apps {
		apps = append(apps, m.toApp(spec))
	}
	return apps
}

// Select resolves an app filter. Names keep the order they were given in;
// an empty filter selects all apps in manifest order. Unknown names are a
// configuration error.
func (m *Manifest) Select(names []string) ([]*types.App, error) {
	if len(names) == 0 {
		return m.AppList(), nil
	}

	byName := make(map[string]AppSpec, len(m.Apps))
	for _, spec := range m.Apps {
		byName[spec.Name] = spec
	}

	var unknown []string
	seen := make(map[string]bool, len(names))
	apps := make([]*types.App, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		spec, ok := byName[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		apps = append(apps, m.toApp(spec))
	}

	if len(unknown) > 0 {
		return nil, result.Configf("unknown app(s): %s", strings.Join(unknown, ", "))
	}
	return apps, nil
}

func (m *Manifest) toApp(spec AppSpec) *types.App {
	target, _ := types.ParseTargetLanguage(spec.Target)
	platform := types.PlatformNative
	if spec.Platform != "" {
		platform, _ = types.ParsePlatform(spec.Platform)
	}
	main := spec.Main
	if main == "" {
		main = DefaultMain
	}

	return &types.App{
		Name:        spec.Name,
		RootPath:    m.Root,
		OutputRoot:  filepath.Join(m.Root, "target", spec.Name),
		MainReactor: main,
		Target:      target,
		Platform:    platform,
	}
}

// Save writes the manifest as TOML to <root>/Lingo.toml
func (m *Manifest) Save() error {
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.Root, FileName), data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
