package cases

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/case-importer/internal/db"
)

// Timeline event kinds
const (
	EventImport = "import"
	EventStatus = "status"
	EventNote   = "note"
)

// Detail is a case with its notes and derived timeline.
type Detail struct {
	Case     *db.Case        `json:"case"`
	Notes    []db.Note       `json:"notes"`
	Timeline []TimelineEvent `json:"timeline"`
}

// TimelineEvent is one entry of a case's history.
type TimelineEvent struct {
	Kind     string     `json:"kind"`
	At       *time.Time `json:"at"`
	Summary  string     `json:"summary"`
	NoteID   *uuid.UUID `json:"note_id,omitempty"`
	AuthorID *uuid.UUID `json:"author_id,omitempty"`
}

// BuildTimeline merges the import event, a status snapshot and the notes of a
// case, newest first. Events without a time sort last.
func BuildTimeline(c *db.Case, notes []db.Note) []TimelineEvent {
	events := make([]TimelineEvent, 0, len(notes)+2)

	events = append(events, TimelineEvent{
		Kind:    EventImport,
		At:      c.ImportedAt,
		Summary: "Imported as " + c.CaseKey,
	})

	summary := "Status " + c.Status
	if c.ErrorMessage != nil {
		summary = fmt.Sprintf("Status %s: %s", c.Status, *c.ErrorMessage)
	}
	var updated *time.Time
	if !c.UpdatedAt.IsZero() {
		at := c.UpdatedAt
		updated = &at
	}
	events = append(events, TimelineEvent{Kind: EventStatus, At: updated, Summary: summary})

	for _, n := range notes {
		id := n.ID
		var at *time.Time
		if !n.CreatedAt.IsZero() {
			t := n.CreatedAt
			at = &t
		}
		events = append(events, TimelineEvent{
			Kind:     EventNote,
			At:       at,
			Summary:  n.Content,
			NoteID:   &id,
			AuthorID: n.AuthorID,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].At, events[j].At
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return events
}
