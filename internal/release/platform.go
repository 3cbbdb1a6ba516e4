package release

import (
	"runtime"
	"strings"

	"golang.org/x/text/cases"
)

// DefaultPlatformKeyword returns the asset name keyword for the running OS.
func DefaultPlatformKeyword() string {
	return runtime.GOOS
}

// MatchAsset returns the first asset, in feed order, whose name contains the
// keyword under Unicode case folding.
func MatchAsset(assets []Asset, keyword string) (Asset, bool) {
	if keyword == "" {
		return Asset{}, false
	}

	fold := cases.Fold()
	needle := fold.String(keyword)
	for _, a := range assets {
		if strings.Contains(fold.String(a.Name), needle) {
			return a, true
		}
	}
	return Asset{}, false
}
