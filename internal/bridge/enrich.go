package bridge

import (
	"strconv"
	"strings"
	"time"

	"taskbridge/internal/host"
	"taskbridge/internal/lineproto"
)

const (
	// DefaultMeasurement is used when no measurement name is configured.
	DefaultMeasurement = "tasks"

	defaultContextName = "Default"
	unknownTaskID      = "unknown"
	untitledTaskTitle  = "Untitled"
)

// Enricher maps loosely-typed host task records into structured points.
// Params: metadata cache for display-name lookups and a clock for the
// current-time fallback.
// Returns: enricher instance.
type Enricher struct {
	cache *MetadataCache
	now   func() time.Time
}

// NewEnricher creates a task enricher.
// Params: cache metadata cache for lookups.
// Returns: enricher using the wall clock.
func NewEnricher(cache *MetadataCache) *Enricher {
	return &Enricher{
		cache: cache,
		now:   time.Now,
	}
}

// Enrich builds one point from a task record. It is deterministic and
// total: every field degrades to a documented default, so a best-effort
// point is always produced.
// Params: task host task record; measurement configured measurement name.
// Returns: structured point ready for encoding.
func (e *Enricher) Enrich(task host.Task, measurement string) lineproto.Point {
	point := lineproto.Point{
		Measurement: measurementOrDefault(measurement),
		TimestampMs: e.taskTimestamp(task),
	}

	point.AddTag("project", e.cache.ProjectName(task.ProjectID))
	point.AddTag("context", e.taskContext(task))
	point.AddTag("task_id", taskID(task))
	point.AddTag("is_done", strconv.FormatBool(bool(task.IsDone)))

	spent := float64(0)
	if task.TimeSpentMs.Valid {
		spent = task.TimeSpentMs.Value
	}
	estimate := float64(0)
	if task.TimeEstimateMs.Valid {
		estimate = task.TimeEstimateMs.Value
	}

	title := task.Title
	if title == "" {
		title = untitledTaskTitle
	}

	point.AddField("duration_ms", spent)
	point.AddField("title", title)
	point.AddField("estimate_ms", estimate)
	point.AddField("efficiency_ratio", efficiencyRatio(task, spent, estimate))

	return point
}

// taskContext resolves the display name of the task's first tag. Only the
// first tag is represented; remaining tags are dropped from the output.
// Params: task host task record.
// Returns: first tag display name or "Default".
func (e *Enricher) taskContext(task host.Task) string {
	if len(task.TagIDs) == 0 || task.TagIDs[0] == "" {
		return defaultContextName
	}
	return e.cache.TagName(task.TagIDs[0])
}

// taskTimestamp picks the point timestamp from the task record.
// Params: task host task record.
// Returns: updatedAt, else createdAt, else the current time in ms.
func (e *Enricher) taskTimestamp(task host.Task) int64 {
	if task.UpdatedAt.Valid {
		return task.UpdatedAt.Ms
	}
	if task.CreatedAt.Valid {
		return task.CreatedAt.Ms
	}
	return e.now().UnixMilli()
}

// efficiencyRatio derives time-spent over time-estimate with a guarded
// division so the path never produces NaN or infinities.
// Params: task source record; spent/estimate resolved millisecond values.
// Returns: spent/estimate when estimate > 0 and spent is present, else 1.
func efficiencyRatio(task host.Task, spent float64, estimate float64) float64 {
	if estimate > 0 && task.TimeSpentMs.Valid {
		return spent / estimate
	}
	return 1
}

// taskID returns the task identifier or its documented fallback.
// Params: task host task record.
// Returns: task id or "unknown".
func taskID(task host.Task) string {
	if task.ID == "" {
		return unknownTaskID
	}
	return task.ID
}

// measurementOrDefault normalizes the configured measurement name.
// Params: measurement configured name, possibly blank.
// Returns: trimmed name or the default measurement.
func measurementOrDefault(measurement string) string {
	trimmed := strings.TrimSpace(measurement)
	if trimmed == "" {
		return DefaultMeasurement
	}
	return trimmed
}

// HeartbeatPoint builds the synthetic connectivity-test point.
// Params: measurement configured name; at point timestamp.
// Returns: heartbeat point with a single status field.
func HeartbeatPoint(measurement string, at time.Time) lineproto.Point {
	point := lineproto.Point{
		Measurement: measurementOrDefault(measurement),
		TimestampMs: at.UnixMilli(),
	}
	point.AddTag("service", "bridge")
	point.AddTag("type", "heartbeat")
	point.AddField("status", int64(1))
	return point
}
