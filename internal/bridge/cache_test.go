package bridge

import (
	"context"
	"fmt"
	"testing"

	"taskbridge/internal/host"
)

type fakeMetadataSource struct {
	projects    []host.Project
	tags        []host.Tag
	projectsErr error
	tagsErr     error
}

// Projects returns the canned project list.
// Params: ctx unused.
// Returns: configured projects or error.
func (s *fakeMetadataSource) Projects(_ context.Context) ([]host.Project, error) {
	return s.projects, s.projectsErr
}

// Tags returns the canned tag list.
// Params: ctx unused.
// Returns: configured tags or error.
func (s *fakeMetadataSource) Tags(_ context.Context) ([]host.Tag, error) {
	return s.tags, s.tagsErr
}

// TestMetadataCache_Refresh validates table replacement from the source.
// Params: testing.T for assertions.
// Returns: none.
func TestMetadataCache_Refresh(t *testing.T) {
	source := &fakeMetadataSource{
		projects: []host.Project{
			{ID: "p1", Title: "Alpha"},
			{ID: "", Title: "ghost"},
		},
		tags: []host.Tag{
			{ID: "t1", Title: "Deep Work"},
		},
	}
	cache := NewMetadataCache(source)

	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if got := cache.ProjectName("p1"); got != "Alpha" {
		t.Fatalf("project name: got %q, want Alpha", got)
	}
	if got := cache.TagName("t1"); got != "Deep Work" {
		t.Fatalf("tag name: got %q, want Deep Work", got)
	}
}

// TestMetadataCache_Defaults validates fallbacks for unknown and empty ids.
// Params: testing.T for assertions.
// Returns: none.
func TestMetadataCache_Defaults(t *testing.T) {
	cache := NewMetadataCache(&fakeMetadataSource{})

	if got := cache.ProjectName(""); got != "Unassigned" {
		t.Fatalf("empty project id: got %q, want Unassigned", got)
	}
	if got := cache.ProjectName("missing"); got != "Unassigned" {
		t.Fatalf("unknown project id: got %q, want Unassigned", got)
	}
	if got := cache.TagName("missing-tag"); got != "missing-tag" {
		t.Fatalf("unknown tag id: got %q, want raw id", got)
	}
}

// TestMetadataCache_RefreshFailureKeepsTables validates the abandon-on-error
// policy: a failing refresh leaves the previous tables in effect.
// Params: testing.T for assertions.
// Returns: none.
func TestMetadataCache_RefreshFailureKeepsTables(t *testing.T) {
	source := &fakeMetadataSource{
		projects: []host.Project{{ID: "p1", Title: "Alpha"}},
		tags:     []host.Tag{{ID: "t1", Title: "Focus"}},
	}
	cache := NewMetadataCache(source)
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("initial refresh: %v", err)
	}

	source.projects = []host.Project{{ID: "p2", Title: "Beta"}}
	source.tagsErr = fmt.Errorf("host unavailable")
	if err := cache.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	if got := cache.ProjectName("p1"); got != "Alpha" {
		t.Fatalf("stale table lost: got %q, want Alpha", got)
	}
	if got := cache.ProjectName("p2"); got != "Unassigned" {
		t.Fatalf("partial update visible: got %q, want Unassigned", got)
	}
}
