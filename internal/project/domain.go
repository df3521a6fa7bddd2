package project

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ServiceStatus captures the execution state of a contracted service.
type ServiceStatus string

const (
	StatusNotStarted ServiceStatus = "NOT_STARTED"
	StatusInProgress ServiceStatus = "IN_PROGRESS"
	StatusDone       ServiceStatus = "DONE"
	StatusLate       ServiceStatus = "LATE"
	StatusPaused     ServiceStatus = "PAUSED"
)

// MaterialStatus reflects stock health for a tracked material.
type MaterialStatus string

const (
	MaterialOK       MaterialStatus = "OK"
	MaterialLow      MaterialStatus = "LOW"
	MaterialCritical MaterialStatus = "CRITICAL"
	MaterialDepleted MaterialStatus = "DEPLETED"
)

// UpdateType classifies timeline entries posted against a project.
type UpdateType string

const (
	UpdateInfo    UpdateType = "INFO"
	UpdateAlert   UpdateType = "ALERT"
	UpdateError   UpdateType = "ERROR"
	UpdateSuccess UpdateType = "SUCCESS"
)

// Category is the trade/craft classification of a service.
type Category string

const (
	CategoryMasonry       Category = "MASONRY"
	CategoryPlaster       Category = "PLASTER"
	CategoryElectrical    Category = "ELECTRICAL"
	CategoryPlumbing      Category = "PLUMBING"
	CategoryCivil         Category = "CIVIL"
	CategoryPainting      Category = "PAINTING"
	CategoryGardening     Category = "GARDENING"
	CategoryMetalwork     Category = "METALWORK"
	CategoryMarble        Category = "MARBLE"
	CategoryGlazing       Category = "GLAZING"
	CategoryHVAC          Category = "HVAC"
	CategoryAwnings       Category = "AWNINGS"
	CategoryCarpentry     Category = "CARPENTRY"
	CategoryFlooring      Category = "FLOORING"
	CategoryPestControl   Category = "PEST_CONTROL"
	CategoryDrainCleaning Category = "DRAIN_CLEANING"
	CategoryRefrigeration Category = "REFRIGERATION"
	CategoryDemolition    Category = "DEMOLITION"
	CategoryCleaning      Category = "CLEANING"
	CategoryDoorsGates    Category = "DOORS_GATES"
	CategoryOther         Category = "OTHER"
)

var categoryLabels = map[Category]string{
	CategoryMasonry:       "Alvenaria",
	CategoryPlaster:       "Gesso",
	CategoryElectrical:    "Eletricidade",
	CategoryPlumbing:      "Hidráulica",
	CategoryCivil:         "Construção Civil",
	CategoryPainting:      "Pintura",
	CategoryGardening:     "Jardinagem",
	CategoryMetalwork:     "Serralheria",
	CategoryMarble:        "Marmoaria",
	CategoryGlazing:       "Vidraçaria",
	CategoryHVAC:          "Climatização",
	CategoryAwnings:       "Toldos e Coberturas",
	CategoryCarpentry:     "Carpintaria",
	CategoryFlooring:      "Revestimento",
	CategoryPestControl:   "Dedetização",
	CategoryDrainCleaning: "Desentupimento",
	CategoryRefrigeration: "Refrigeração",
	CategoryDemolition:    "Demolição",
	CategoryCleaning:      "Limpeza",
	CategoryDoorsGates:    "Portas e Portões",
	CategoryOther:         "Outros",
}

// Label returns the display name for the category, falling back to the raw code.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// NormaliseServiceStatus uppercases and trims a raw status, defaulting to NOT_STARTED.
func NormaliseServiceStatus(v string) ServiceStatus {
	v = strings.TrimSpace(strings.ToUpper(v))
	switch ServiceStatus(v) {
	case StatusNotStarted, StatusInProgress, StatusDone, StatusLate, StatusPaused:
		return ServiceStatus(v)
	default:
		return StatusNotStarted
	}
}

// Project is the workspace record owning services, materials, payments, and updates.
type Project struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Location  string          `json:"location"`
	Manager   string          `json:"manager"`
	Budget    decimal.Decimal `json:"budget"`
	StartDate *time.Time      `json:"startDate,omitempty"`
	EndDate   *time.Time      `json:"endDate,omitempty"`
	Status    string          `json:"status"`
	RiskCount int             `json:"riskCount"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Service is a contracted unit of work inside a project.
type Service struct {
	ID        int64           `json:"id"`
	ProjectID int64           `json:"projectId"`
	TeamID    *int64          `json:"teamId,omitempty"`
	Name      string          `json:"name"`
	Category  Category        `json:"category"`
	Status    ServiceStatus   `json:"status"`
	Budget    decimal.Decimal `json:"budget"`
	Progress  float64         `json:"progress"`
	StartDate *time.Time      `json:"startDate,omitempty"`
	EndDate   *time.Time      `json:"endDate,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Notes     string          `json:"notes,omitempty"`
}

// Team groups the crew executing one or more services.
type Team struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Representative string `json:"representative"`
	MemberCount    int    `json:"memberCount"`
}

// Material tracks stock for a project site.
type Material struct {
	ID        int64          `json:"id"`
	ProjectID int64          `json:"projectId"`
	Name      string         `json:"name"`
	Quantity  float64        `json:"quantity"`
	Unit      string         `json:"unit"`
	Status    MaterialStatus `json:"status"`
}

// Payment records an outgoing cash movement booked against a project.
type Payment struct {
	ID        int64           `json:"id"`
	ProjectID int64           `json:"projectId"`
	Date      *time.Time      `json:"date,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
}

// Update is a free-text timeline entry for a project.
type Update struct {
	ID        int64      `json:"id"`
	ProjectID int64      `json:"projectId"`
	At        time.Time  `json:"at"`
	Type      UpdateType `json:"type"`
	Text      string     `json:"text"`
}

// Snapshot bundles every record of one project fetched in a single read batch.
// All rollups for a report or dashboard request are derived from one Snapshot.
type Snapshot struct {
	Project   Project        `json:"project"`
	Services  []Service      `json:"services"`
	Teams     map[int64]Team `json:"teams"`
	Materials []Material     `json:"materials"`
	Payments  []Payment      `json:"payments"`
	Updates   []Update       `json:"updates"`
}

// TeamName resolves the display name for an optional team reference. Services
// without a resolvable team are treated as unassigned.
func (s Snapshot) TeamName(id *int64) string {
	if id == nil {
		return ""
	}
	team, ok := s.Teams[*id]
	if !ok {
		return ""
	}
	return team.Name
}

// ErrNotFound indicates the referenced project does not exist.
var ErrNotFound = errors.New("project: not found")
