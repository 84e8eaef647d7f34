package bridge

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"taskbridge/internal/config"
	"taskbridge/internal/host"
)

// importTasks builds a numbered task list for batch tests.
// Params: count task count; projectID assigned project.
// Returns: task list.
func importTasks(count int, projectID string) []host.Task {
	out := make([]host.Task, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, host.Task{
			ID:        fmt.Sprintf("t%d", i),
			Title:     fmt.Sprintf("Task %d", i),
			ProjectID: projectID,
		})
	}
	return out
}

// TestImport_Batching validates sequential batch slicing: 120 tasks with a
// batch size of 50 issue exactly three writes of 50/50/20 points.
// Params: testing.T for assertions.
// Returns: none.
func TestImport_Batching(t *testing.T) {
	fixture := newDispatcherFixture(t, DispatcherConfig{BatchSize: 50})
	fixture.tasks.archived = importTasks(100, "p1")
	fixture.tasks.active = importTasks(20, "p1")

	fixture.dispatcher.runImport(context.Background())

	calls := fixture.sender.Calls()
	if len(calls) != 3 {
		t.Fatalf("batches: got %d, want 3", len(calls))
	}
	for idx, want := range []int{50, 50, 20} {
		if len(calls[idx].points) != want {
			t.Fatalf("batch %d size: got %d, want %d", idx, len(calls[idx].points), want)
		}
	}

	notes := fixture.notifier.Calls()
	if len(notes) != 1 {
		t.Fatalf("notifications: got %d, want 1", len(notes))
	}
	if notes[0].severity != host.SeverityInfo || !strings.Contains(notes[0].message, "120 tasks") {
		t.Fatalf("success notification: got %+v", notes[0])
	}
}

// TestImport_AbortsOnFirstFailure validates that a failing batch stops the
// run and yields a single failure notification without partial counts.
// Params: testing.T for assertions.
// Returns: none.
func TestImport_AbortsOnFirstFailure(t *testing.T) {
	fixture := newDispatcherFixture(t, DispatcherConfig{BatchSize: 50})
	fixture.tasks.archived = importTasks(120, "p1")
	fixture.sender.failAt = 2

	fixture.dispatcher.runImport(context.Background())

	if len(fixture.sender.Calls()) != 2 {
		t.Fatalf("batches attempted: got %d, want 2", len(fixture.sender.Calls()))
	}

	notes := fixture.notifier.Calls()
	if len(notes) != 1 {
		t.Fatalf("notifications: got %d, want 1", len(notes))
	}
	if notes[0].severity != host.SeverityError {
		t.Fatalf("severity: got %q, want error", notes[0].severity)
	}
	if !strings.HasPrefix(notes[0].message, "History import failed") {
		t.Fatalf("message: got %q", notes[0].message)
	}
}

// TestImport_FetchFailure validates that a failing task listing produces one
// failure notification and no writes.
// Params: testing.T for assertions.
// Returns: none.
func TestImport_FetchFailure(t *testing.T) {
	fixture := newDispatcherFixture(t, DispatcherConfig{})
	fixture.tasks.archivedErr = fmt.Errorf("host unavailable")

	fixture.dispatcher.runImport(context.Background())

	if len(fixture.sender.Calls()) != 0 {
		t.Fatalf("sends: got %d, want 0", len(fixture.sender.Calls()))
	}
	notes := fixture.notifier.Calls()
	if len(notes) != 1 || notes[0].severity != host.SeverityError {
		t.Fatalf("notifications: got %+v", notes)
	}
}

// TestImport_Unconfigured validates the interactive failure notification
// when no connection settings exist.
// Params: testing.T for assertions.
// Returns: none.
func TestImport_Unconfigured(t *testing.T) {
	fixture := newDispatcherFixture(t, DispatcherConfig{})
	fixture.dispatcher.active.Store(&config.InfluxConfig{})
	fixture.tasks.archived = importTasks(10, "p1")

	fixture.dispatcher.runImport(context.Background())

	if len(fixture.sender.Calls()) != 0 {
		t.Fatalf("sends: got %d, want 0", len(fixture.sender.Calls()))
	}
	notes := fixture.notifier.Calls()
	if len(notes) != 1 || notes[0].severity != host.SeverityError {
		t.Fatalf("notifications: got %+v", notes)
	}
}

// TestImport_AppliesProjectMasks validates that masked projects are dropped
// from the import set.
// Params: testing.T for assertions.
// Returns: none.
func TestImport_AppliesProjectMasks(t *testing.T) {
	fixture := newDispatcherFixture(t, DispatcherConfig{
		BatchSize:       50,
		IncludeProjects: []string{"Alpha"},
	})
	fixture.tasks.archived = importTasks(10, "p1")
	fixture.tasks.active = importTasks(5, "p2")

	fixture.dispatcher.runImport(context.Background())

	calls := fixture.sender.Calls()
	if len(calls) != 1 {
		t.Fatalf("batches: got %d, want 1", len(calls))
	}
	if len(calls[0].points) != 10 {
		t.Fatalf("points: got %d, want 10", len(calls[0].points))
	}
}
