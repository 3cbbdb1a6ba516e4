package release

import (
	"context"

	"github.com/valksor/go-julesetup/internal/events"
	"github.com/valksor/go-julesetup/internal/log"
)

// Catalog turns a release feed into the ordered list of versions that can be
// installed on this platform.
type Catalog struct {
	source      Source
	keyword     string
	preReleases bool
	bus         *events.Bus
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithPlatformKeyword overrides the asset name keyword (default runtime.GOOS).
func WithPlatformKeyword(keyword string) CatalogOption {
	return func(c *Catalog) {
		if keyword != "" {
			c.keyword = keyword
		}
	}
}

// WithPreReleases includes releases flagged as pre-releases.
func WithPreReleases(include bool) CatalogOption {
	return func(c *Catalog) { c.preReleases = include }
}

// WithEventBus publishes a ReleasesLoadedEvent after each successful fetch.
func WithEventBus(bus *events.Bus) CatalogOption {
	return func(c *Catalog) { c.bus = bus }
}

// NewCatalog creates a catalog reading from source.
func NewCatalog(source Source, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		source:  source,
		keyword: DefaultPlatformKeyword(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Keyword returns the platform keyword used for asset matching.
func (c *Catalog) Keyword() string {
	return c.keyword
}

// Fetch returns installable releases in feed order. Releases without an asset
// for this platform are left out. Any malformed entry fails the whole fetch
// with ErrParse and no list.
func (c *Catalog) Fetch(ctx context.Context) ([]ReleaseInfo, error) {
	log.DebugContext(ctx, "fetching releases", "source", c.source.Name(), "keyword", c.keyword)

	raw, err := c.source.ListReleases(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]ReleaseInfo, 0, len(raw))
	for _, r := range raw {
		if r.Draft {
			continue
		}
		if r.PreRelease && !c.preReleases {
			continue
		}

		asset, ok := MatchAsset(r.Assets, c.keyword)
		if !ok {
			log.Debug("release has no platform asset", "version", r.TagName, "keyword", c.keyword)
			continue
		}

		infos = append(infos, ReleaseInfo{
			Version:       r.TagName,
			PublishedDate: dateOf(r.PublishedAt),
			Description:   r.Body,
			AssetURL:      asset.URL,
			AssetName:     asset.Name,
			AssetSize:     asset.Size,
			PreRelease:    r.PreRelease,
		})
	}

	if c.bus != nil {
		c.bus.Publish(events.ReleasesLoadedEvent{Source: c.source.Name(), Count: len(infos)})
	}

	return infos, nil
}

// FetchResult is the outcome of an asynchronous fetch.
type FetchResult struct {
	Releases []ReleaseInfo
	Err      error
}

// FetchAsync runs Fetch on its own goroutine. The returned channel receives
// exactly one result and is then closed.
func (c *Catalog) FetchAsync(ctx context.Context) <-chan FetchResult {
	ch := make(chan FetchResult, 1)
	go func() {
		defer close(ch)
		releases, err := c.Fetch(ctx)
		ch <- FetchResult{Releases: releases, Err: err}
	}()
	return ch
}
