package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Change descriptors reported by DiffTask, in the order they are checked.
const (
	ChangeTitle       = "Title"
	ChangeDescription = "Description"
	ChangeDeadline    = "Deadline"
	ChangeDuration    = "Duration"
	ChangeStatus      = "Status"
	ChangeAssignment  = "Assignment"
	ChangeNotes       = "Notes"
	ChangeTags        = "Tags"
	ChangeAttachments = "Attachments"
	ChangeProgress    = "Progress"
)

// DiffTask compares two versions of a task and returns the human-readable
// change descriptors together with the field-level changes for the edit
// history. It does not look at bookkeeping fields (timestamps, version,
// histories, priority).
func DiffTask(before, after *Task) ([]string, []FieldChange) {
	if before == nil || after == nil {
		return nil, nil
	}

	var descriptors []string
	var changes []FieldChange

	add := func(descriptor, field, oldValue, newValue string) {
		descriptors = append(descriptors, descriptor)
		changes = append(changes, FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
	}

	if before.Title != after.Title {
		add(ChangeTitle, "title", before.Title, after.Title)
	}
	if before.Description != after.Description {
		add(ChangeDescription, "description", before.Description, after.Description)
	}
	if !before.Deadline.Equal(after.Deadline) {
		add(ChangeDeadline, "deadline", formatTime(before.Deadline), formatTime(after.Deadline))
	}
	if before.Duration != after.Duration {
		add(ChangeDuration, "duration", formatFloat(before.Duration), formatFloat(after.Duration))
	}
	if before.Status != after.Status {
		add(ChangeStatus, "status", string(before.Status), string(after.Status))
	}
	if !sameUUID(before.AssignedTo, after.AssignedTo) {
		add(ChangeAssignment, "assigned_to", formatUUID(before.AssignedTo), formatUUID(after.AssignedTo))
	}
	if before.Notes != after.Notes {
		add(ChangeNotes, "notes", before.Notes, after.Notes)
	}
	if !slices.Equal(before.Tags, after.Tags) {
		add(ChangeTags, "tags", strings.Join(before.Tags, ","), strings.Join(after.Tags, ","))
	}
	if !slices.Equal(before.Attachments, after.Attachments) {
		add(ChangeAttachments, "attachments",
			strings.Join(before.Attachments, ","), strings.Join(after.Attachments, ","))
	}
	if !sameInt(before.CompletedSteps, after.CompletedSteps) || !sameInt(before.TotalSteps, after.TotalSteps) {
		add(ChangeProgress, "progress",
			formatProgress(before.CompletedSteps, before.TotalSteps),
			formatProgress(after.CompletedSteps, after.TotalSteps))
	}

	return descriptors, changes
}

func sameUUID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func formatUUID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatProgress(done, total *int) string {
	d, t := 0, 0
	if done != nil {
		d = *done
	}
	if total != nil {
		t = *total
	}
	return fmt.Sprintf("%d/%d", d, t)
}
