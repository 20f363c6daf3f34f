package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lf-lang/lingo/pkg/result"
	"github.com/lf-lang/lingo/pkg/types"
)

var helloBodies = map[types.TargetLanguage]string{
	types.TargetLanguageC:          `printf("Hello World.\n");`,
	types.TargetLanguageCpp:        `std::cout << "Hello World." << std::endl;`,
	types.TargetLanguageRust:       `println!("Hello World.");`,
	types.TargetLanguageTypeScript: `console.log("Hello World.")`,
	types.TargetLanguagePython:     `print("Hello World.")`,
}

// Init creates a new project in root: a Lingo.toml with one app and a hello
// world main reactor. An existing manifest is a configuration error.
func Init(root string, lang types.TargetLanguage, platform types.Platform) (*Manifest, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	if _, err := os.Stat(filepath.Join(absRoot, FileName)); err == nil {
		return nil, result.Configf("%s already exists in %s", FileName, absRoot)
	}
	if lang == "" {
		lang = types.DefaultLanguage(platform)
	}

	name := filepath.Base(absRoot)
	m := &Manifest{
		Package: PackageInfo{Name: name, Version: "0.1.0"},
		Apps: []AppSpec{{
			Name:     name,
			Target:   string(lang),
			Platform: string(platform),
			Main:     DefaultMain,
		}},
		Root: absRoot,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Join(absRoot, "src"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create src directory: %w", err)
	}
	mainPath := filepath.Join(absRoot, DefaultMain)
	if _, err := os.Stat(mainPath); os.IsNotExist(err) {
		if err := os.WriteFile(mainPath, []byte(mainReactor(lang, platform)), 0644); err != nil {
			return nil, fmt.Errorf("failed to write main reactor: %w", err)
		}
	}

	if err := m.Save(); err != nil {
		return nil, err
	}
	return m, nil
}

func mainReactor(lang types.TargetLanguage, platform types.Platform) string {
	target := fmt.Sprintf("target %s", lang)
	if platform == types.PlatformZephyr {
		target += " {\n  platform: \"Zephyr\"\n}"
	}
	return fmt.Sprintf("%s;\n\nmain reactor {\n  reaction(startup) {=\n    %s\n  =}\n}\n", target, helloBodies[lang])
}
