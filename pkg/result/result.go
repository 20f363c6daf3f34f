// Package result implements build results and the error-merge combinator.
// A nil error is success; failures accumulate instead of replacing each other.
package result

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/lf-lang/lingo/pkg/types"
)

// ErrConfig marks configuration errors. They are raised before any
// subprocess is spawned.
var ErrConfig = errors.New("configuration error")

// Configf formats a configuration error that matches ErrConfig
func Configf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// IsConfig reports whether err, or any merged failure in it, is a configuration error
func IsConfig(err error) bool {
	for _, e := range Failures(err) {
		if errors.Is(e, ErrConfig) {
			return true
		}
	}
	return false
}

// AppError attributes a failure to one app and phase
type AppError struct {
	App   string
	Phase types.Phase
	Err   error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.App, e.Phase, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ForApp wraps err for app and phase. A nil err stays nil.
func ForApp(app string, phase types.Phase, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{App: app, Phase: phase, Err: err}
}

// Merge combines two results. Success is the identity; when both failed the
// result holds both. Nested merges are flattened, so Merge is associative.
func Merge(a, b error) error {
	return multierr.Append(a, b)
}

// Fold merges results left to right
func Fold(results ...error) error {
	var merged error
	for _, r := range results {
		merged = Merge(merged, r)
	}
	return merged
}

// Failures lists every individual failure contained in err
func Failures(err error) []error {
	return multierr.Errors(err)
}

// FailedApps lists the apps named by AppErrors in err, in merge order
func FailedApps(err error) []string {
	var apps []string
	seen := make(map[string]bool)
	for _, e := range Failures(err) {
		var appErr *AppError
		if errors.As(e, &appErr) && !seen[appErr.App] {
			seen[appErr.App] = true
			apps = append(apps, appErr.App)
		}
	}
	return apps
}
