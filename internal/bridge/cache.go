package bridge

import (
	"context"
	"fmt"
	"sync/atomic"

	"taskbridge/internal/host"
)

const (
	unassignedProjectName = "Unassigned"
)

// MetadataSource is the subset of the host API the cache reads from.
// Params: context for cancellation.
// Returns: project and tag listings or fetch error.
type MetadataSource interface {
	Projects(ctx context.Context) ([]host.Project, error)
	Tags(ctx context.Context) ([]host.Tag, error)
}

type lookupTables struct {
	projects map[string]string
	tags     map[string]string
}

// MetadataCache maintains id to display-name lookups for projects and tags.
// Both tables are replaced with a single pointer swap on refresh, so
// concurrent readers always see a consistent pair.
// Params: metadata source.
// Returns: cache instance with empty tables.
type MetadataCache struct {
	source MetadataSource
	tables atomic.Pointer[lookupTables]
}

// NewMetadataCache creates an empty metadata cache.
// Params: source host metadata provider.
// Returns: cache instance.
func NewMetadataCache(source MetadataSource) *MetadataCache {
	cache := &MetadataCache{source: source}
	cache.tables.Store(&lookupTables{
		projects: map[string]string{},
		tags:     map[string]string{},
	})
	return cache
}

// Refresh rebuilds both lookup tables from the host. On any fetch failure
// the refresh is abandoned and the previous tables stay in effect; the
// tables are never left partially updated.
// Params: ctx for cancellation.
// Returns: fetch error for the caller's absorption policy.
func (c *MetadataCache) Refresh(ctx context.Context) error {
	projects, err := c.source.Projects(ctx)
	if err != nil {
		return fmt.Errorf("fetch projects: %w", err)
	}

	tags, err := c.source.Tags(ctx)
	if err != nil {
		return fmt.Errorf("fetch tags: %w", err)
	}

	next := &lookupTables{
		projects: make(map[string]string, len(projects)),
		tags:     make(map[string]string, len(tags)),
	}
	for _, project := range projects {
		if project.ID == "" {
			continue
		}
		next.projects[project.ID] = project.Title
	}
	for _, tag := range tags {
		if tag.ID == "" {
			continue
		}
		next.tags[tag.ID] = tag.Title
	}

	c.tables.Store(next)
	return nil
}

// ProjectName resolves a project id to its display name.
// Params: id project identifier, possibly empty.
// Returns: display name or "Unassigned" for unknown/empty ids.
func (c *MetadataCache) ProjectName(id string) string {
	if id == "" {
		return unassignedProjectName
	}
	if name, ok := c.tables.Load().projects[id]; ok && name != "" {
		return name
	}
	return unassignedProjectName
}

// TagName resolves a tag id to its display name.
// Params: id tag identifier.
// Returns: display name, or the raw id when unknown (never fails).
func (c *MetadataCache) TagName(id string) string {
	if name, ok := c.tables.Load().tags[id]; ok && name != "" {
		return name
	}
	return id
}
