// Package report assembles project analytics into structured, ordered report
// documents. The composer emits section sequences; pagination, fonts, and PDF
// encoding belong to the render collaborator.
package report

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind selects which report document is composed.
type Kind string

const (
	KindGeneral   Kind = "general"
	KindFinancial Kind = "financial"
	KindTeams     Kind = "teams"
	KindSchedule  Kind = "schedule"
	KindApproval  Kind = "approval"
)

// ParseKind validates a raw report kind.
func ParseKind(v string) (Kind, error) {
	switch Kind(strings.TrimSpace(strings.ToLower(v))) {
	case KindGeneral:
		return KindGeneral, nil
	case KindFinancial:
		return KindFinancial, nil
	case KindTeams:
		return KindTeams, nil
	case KindSchedule:
		return KindSchedule, nil
	case KindApproval:
		return KindApproval, nil
	default:
		return "", ErrUnknownKind
	}
}

// SectionKind tells the renderer how to lay a section out.
type SectionKind string

const (
	SectionTable     SectionKind = "table"
	SectionText      SectionKind = "text"
	SectionSignature SectionKind = "signature"
)

// Section is one titled block of a composed report. Rows are pre-formatted
// strings; the renderer never re-derives values.
type Section struct {
	Title  string      `json:"title"`
	Kind   SectionKind `json:"kind"`
	Header []string    `json:"header,omitempty"`
	Rows   [][]string  `json:"rows"`
}

// IsTable reports whether the section renders as a bordered table.
func (s Section) IsTable() bool { return s.Kind == SectionTable }

// IsText reports whether the section renders as plain text rows.
func (s Section) IsText() bool { return s.Kind == SectionText }

// IsSignature reports whether the section renders as signature lines.
func (s Section) IsSignature() bool { return s.Kind == SectionSignature }

// Document is the ordered section sequence handed to the renderer, plus the
// counters callers use to tell a partial result from a failed one.
type Document struct {
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	ProjectID   int64     `json:"projectId"`
	ProjectName string    `json:"projectName"`
	GeneratedAt time.Time `json:"generatedAt"`
	Sections    []Section `json:"sections"`
	RowsSkipped int       `json:"rowsSkipped"`
	GuardTrips  int       `json:"guardTrips"`
}

// Status captures the lifecycle of a queued report generation.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReady      Status = "READY"
	StatusFailed     Status = "FAILED"
)

// NormaliseStatus uppercases and trims the provided status string.
func NormaliseStatus(v string) Status {
	v = strings.TrimSpace(strings.ToUpper(v))
	switch Status(v) {
	case StatusPending, StatusInProgress, StatusReady, StatusFailed:
		return Status(v)
	default:
		return StatusPending
	}
}

// ReportDocument is a persisted generation request/result.
type ReportDocument struct {
	ID           uuid.UUID  `json:"id"`
	ProjectID    int64      `json:"projectId"`
	Kind         Kind       `json:"kind"`
	Status       Status     `json:"status"`
	FilePath     string     `json:"-"`
	FileSize     *int64     `json:"fileSize,omitempty"`
	RowsSkipped  int        `json:"rowsSkipped"`
	GuardTrips   int        `json:"guardTrips"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	RequestedAt  time.Time  `json:"requestedAt"`
	GeneratedAt  *time.Time `json:"generatedAt,omitempty"`
}

// GenerateRequest is the payload accepted when requesting a report.
type GenerateRequest struct {
	ProjectID int64  `json:"projectId" validate:"required,gt=0"`
	Kind      string `json:"kind" validate:"required,oneof=general financial teams schedule approval"`
}

var (
	ErrUnknownKind    = errors.New("report: unknown report kind")
	ErrReportNotFound = errors.New("report: document not found")
	ErrInvalidStatus  = errors.New("report: invalid status transition")
)

// noData is the explicit placeholder row for mandatory sections with an empty
// source collection.
const noData = "No data available"

// undetermined marks indicator cells whose formula has no defined value for
// the current inputs.
const undetermined = "N/A"
