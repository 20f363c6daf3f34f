// Package toolchain resolves the lfc compiler used by a build
package toolchain

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"

	"github.com/Masterminds/semver/v3"

	"github.com/lf-lang/lingo/pkg/process"
	"github.com/lf-lang/lingo/pkg/result"
)

// Binary is the lfc executable looked up on PATH
const Binary = "lfc"

var versionPattern = regexp.MustCompile(`\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?`)

// Properties describe a resolved lfc. They are read-only once resolved.
type Properties struct {
	Path string
	// Version is nil when lfc did not report a parseable version
	Version *semver.Version
}

// String renders the toolchain for status output
func (p Properties) String() string {
	if p.Version == nil {
		return fmt.Sprintf("%s (unknown version)", p.Path)
	}
	return fmt.Sprintf("%s (%s)", p.Path, p.Version)
}

// Resolver locates lfc and queries its version
type Resolver struct {
	Runner   process.Runner
	LookPath func(file string) (string, error)
}

// NewResolver creates a resolver using PATH lookup
func NewResolver(runner process.Runner) *Resolver {
	return &Resolver{Runner: runner, LookPath: exec.LookPath}
}

// Resolve returns the toolchain at explicitPath, or lfc from PATH when no
// path is given. An explicit path that does not exist is a configuration
// error; it never falls back to PATH.
func (r *Resolver) Resolve(ctx context.Context, explicitPath string) (Properties, error) {
	var path string
	if explicitPath != "" {
		info, err := os.Stat(explicitPath)
		if err != nil {
			return Properties{}, result.Configf("lfc not found at %s: %v", explicitPath, err)
		}
		if info.IsDir() {
			return Properties{}, result.Configf("lfc path %s is a directory", explicitPath)
		}
		path = explicitPath
	} else {
		lookPath := r.LookPath
		if lookPath == nil {
			lookPath = exec.LookPath
		}
		found, err := lookPath(Binary)
		if err != nil {
			return Properties{}, result.Configf("%s not found on PATH, pass --lfc: %v", Binary, err)
		}
		path = found
	}

	props := Properties{Path: path}
	if r.Runner != nil {
		out, err := r.Runner.Run(ctx, process.Command{Name: path, Args: []string{"--version"}})
		if err != nil {
			return props, fmt.Errorf("failed to query lfc version: %w", err)
		}
		props.Version = ParseVersion(string(out))
	}
	return props, nil
}

// ParseVersion extracts the first semantic version found in lfc output
func ParseVersion(output string) *semver.Version {
	match := versionPattern.FindString(output)
	if match == "" {
		return nil
	}
	v, err := semver.NewVersion(match)
	if err != nil {
		return nil
	}
	return v
}

// CheckConstraint verifies the toolchain satisfies a manifest constraint
// such as ">= 0.8". An empty constraint always passes.
func (p Properties) CheckConstraint(constraint string) error {
	if constraint == "" {
		return nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return result.Configf("invalid toolchain constraint %q: %v", constraint, err)
	}
	if p.Version == nil {
		return result.Configf("cannot check constraint %q: lfc version unknown", constraint)
	}
	if ok, errs := c.Validate(p.Version); !ok {
		msg := fmt.Sprintf("lfc %s does not satisfy %q", p.Version, constraint)
		if len(errs) > 0 {
			msg += ": " + errs[0].Error()
		}
		return result.Configf("%s", msg)
	}
	return nil
}
