package release

import "context"

// Source lists raw releases from a feed, newest first as the feed orders them.
type Source interface {
	Name() string
	ListReleases(ctx context.Context) ([]Release, error)
}
