// Package types provides type definitions for structured data used throughout the case importer.
package types

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a case record.
type Status string

// Case status values
const (
	StatusNew        Status = "NEW"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// FallbackKeyPrefix starts the key of every FAILED record written by an import.
// Imported rows may not use it.
const FallbackKeyPrefix = "FAILED-"

// IsFallbackKey reports whether key falls in the namespace reserved for FAILED
// records, ignoring case.
func IsFallbackKey(key string) bool {
	return len(key) >= len(FallbackKeyPrefix) && strings.EqualFold(key[:len(FallbackKeyPrefix)], FallbackKeyPrefix)
}

// AllStatuses lists every status a stored case may carry.
var AllStatuses = []Status{StatusNew, StatusProcessing, StatusCompleted, StatusFailed}

// ParseStatus parses a status case-insensitively. The second return value is false
// when the input is not a known status.
func ParseStatus(s string) (Status, bool) {
	candidate := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range AllStatuses {
		if st == candidate {
			return st, true
		}
	}
	return "", false
}

// Priority levels (domain convention)
const (
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
)

// RawRow is one loosely-typed row as it arrives from an upload. Values are limited to
// string, number (float64, int, int64, json.Number) or nil; anything else is a
// contract violation rejected before persistence.
type RawRow map[string]any

// CaseFields is the closed, validated shape of a row. Nothing reaches persistence
// without first becoming a CaseFields.
type CaseFields struct {
	CaseKey       string     `json:"case_key"`
	ApplicantName string     `json:"applicant_name,omitempty"`
	DOB           *time.Time `json:"dob,omitempty"`
	Email         string     `json:"email,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Category      string     `json:"category,omitempty"`
	Priority      *int       `json:"priority,omitempty"`
	// Status is the declared status, empty when the row did not declare one.
	Status Status `json:"status,omitempty"`
}
