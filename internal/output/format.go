// Package output provides formatters for CLI output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"geotask/internal/geo"
	"geotask/internal/location"
	"geotask/internal/task"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Separator is the separator line for detail sections.
const Separator = "------------"

// FormatTask formats a task line for the task list.
// Format: "{N:>4}  [ ] {TITLE}  ({PRIORITY}, {RADIUS}m)\n"
func FormatTask(w io.Writer, num int, t task.Task) {
	box := "[ ]"
	if t.IsComplete {
		box = "[x]"
	}
	extra := fmt.Sprintf("%s, %dm", t.Priority, t.Location.Radius)
	if t.TriggerTime != "" {
		extra += " at " + t.TriggerTime
	}
	if t.IsRecurring {
		extra += ", recurring"
	}
	fmt.Fprintf(w, "%4d  %s %s  (%s)\n", num, box, normalizeTitle(t.Title), extra)
}

// FormatTaskDetail prints every field of a task.
func FormatTaskDetail(w io.Writer, t task.Task) {
	fmt.Fprintln(w, Separator)
	fmt.Fprintln(w, normalizeTitle(t.Title))
	fmt.Fprintln(w, Separator)
	fmt.Fprintf(w, "id:          %s\n", t.ID)
	if t.Description != "" {
		fmt.Fprintf(w, "description: %s\n", t.Description)
	}
	fmt.Fprintf(w, "priority:    %s\n", t.Priority)
	fmt.Fprintf(w, "location:    %s (radius %dm)\n", formatCoords(t.Location.Latitude, t.Location.Longitude), t.Location.Radius)
	if t.TriggerTime != "" {
		fmt.Fprintf(w, "at:          %s\n", t.TriggerTime)
	}
	fmt.Fprintf(w, "recurring:   %s\n", yesNo(t.IsRecurring))
	fmt.Fprintf(w, "created:     %s\n", formatMillis(t.CreatedAt))
	if t.IsComplete {
		completed := "yes"
		if t.CompletedAt != nil {
			completed = formatMillis(*t.CompletedAt)
		}
		fmt.Fprintf(w, "completed:   %s\n", completed)
	} else {
		fmt.Fprintln(w, "completed:   no")
	}
}

// FormatReading prints a location reading and where it came from.
func FormatReading(w io.Writer, r location.Reading, source string) {
	line := fmt.Sprintf("%s  %s", formatCoords(r.Coords.Latitude, r.Coords.Longitude), source)
	if r.Coords.Accuracy != nil {
		line += fmt.Sprintf("  ±%.0fm", *r.Coords.Accuracy)
	}
	line += "  " + formatMillis(r.Timestamp)
	fmt.Fprintln(w, line)
}

// FormatRegion prints a map region.
func FormatRegion(w io.Writer, r geo.Region) {
	fmt.Fprintf(w, "region: %s span %.4f x %.4f\n", formatCoords(r.Latitude, r.Longitude), r.LatitudeDelta, r.LongitudeDelta)
}

// Export writes tasks in the given format.
func Export(w io.Writer, tasks []task.Task, format string) error {
	if tasks == nil {
		tasks = []task.Task{}
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tasks); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func formatCoords(lat, lng float64) string {
	return fmt.Sprintf("%.5f,%.5f", lat, lng)
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04 UTC")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
