// Package model holds the canonical records shared across the pipeline stages.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// ATS vendors the pipeline knows how to talk to.
const (
	ATSGreenhouse = "greenhouse"
	ATSLever      = "lever"
	ATSAshby      = "ashby"
	ATSWorkday    = "workday"
	ATSCustom     = "custom"
	ATSUnknown    = "unknown"
)

// SupportedATS lists the vendors with dedicated extractors, in crawl order.
var SupportedATS = []string{ATSGreenhouse, ATSLever, ATSAshby, ATSWorkday, ATSCustom}

// HasIdentifier reports whether the ATS type requires a board identifier.
func HasIdentifier(atsType string) bool {
	switch atsType {
	case ATSGreenhouse, ATSLever, ATSAshby, ATSWorkday:
		return true
	}
	return false
}

// Company is an employer whose careers presence we crawl.
type Company struct {
	ID            uuid.UUID
	Name          string
	Domain        string
	CareersURL    string
	WebsiteURL    string
	ATSType       string
	ATSIdentifier string
	CrawlPriority int
	IsActive      bool

	LastCrawledAt     *time.Time
	LastMaintenanceAt *time.Time
	CrawlAttempts     int
	NotFoundStreak    int

	// Discovery metadata
	DiscoverySource string
	DiscoveredAt    *time.Time
	Country         string
	Location        string
	Industry        string
	EmployeeCount   *int
	FundingStage    string

	CreatedAt time.Time
}

// CrawlSnapshot is the stored body of a listing page at a point in time.
type CrawlSnapshot struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	URL         string
	HTMLHash    string
	HTMLContent string
	StatusCode  int
	Rendered    bool
	CrawledAt   time.Time
}

// RawJob is a job exactly as observed at the source, strings untouched.
type RawJob struct {
	ID                uuid.UUID
	CompanyID         uuid.UUID
	SourceURL         string
	TitleRaw          string
	DescriptionRaw    string
	LocationRaw       string
	DepartmentRaw     string
	EmploymentTypeRaw string
	PostedAtRaw       string
	SalaryRaw         string
	ExtractedAt       time.Time
}

// Job is the canonical normalized job.
type Job struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	RawJobID  *uuid.UUID

	Title       string
	Description string
	SourceURL   string

	RoleFamily         string
	RoleSpecialization string
	Seniority          string
	LocationType       string
	Locations          []string
	Skills             []string
	MinSalary          *int
	MaxSalary          *int
	EmploymentType     string

	PostedAt       *time.Time
	FreshnessScore float64
	Embedding      *pgvector.Vector
	IsActive       bool

	LastVerifiedAt *time.Time
	DelistedAt     *time.Time
	DelistReason   string
	EnrichFailedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// CompanyName is populated on reads that join companies.
	CompanyName string
}

// Delist reasons.
const (
	DelistRemovedFromATS  = "removed_from_ats"
	DelistPageNotFound    = "page_not_found"
	DelistCompanyInactive = "company_inactive"
)

// CandidateProfile holds a candidate's preferences and embedding.
type CandidateProfile struct {
	ID    uuid.UUID
	Email string
	Name  string

	RoleFamilies  []string
	Seniority     string
	MinSalary     *int
	Locations     []string
	LocationTypes []string
	RoleTypes     []string
	Skills        []string
	Exclusions    []string
	ProfileText   string

	Embedding      *pgvector.Vector
	LastMatchedAt  *time.Time
	LastNotifiedAt *time.Time
	IsActive       bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Match is a scored candidate/job pair with its explanation.
type Match struct {
	ID          uuid.UUID
	CandidateID uuid.UUID
	JobID       uuid.UUID

	Score        float64
	HardMatch    bool
	MatchReasons map[string]any

	ShownAt     *time.Time
	ClickedAt   *time.Time
	AppliedAt   *time.Time
	DismissedAt *time.Time

	CreatedAt time.Time

	// Job is populated on reads that join jobs.
	Job *Job
}

// Pipeline run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// PipelineRun is the durable record of one stage execution.
type PipelineRun struct {
	ID          uuid.UUID
	Stage       string
	Status      string
	Processed   int
	Failed      int
	CurrentStep string
	Error       string
	Cascade     bool
	Logs        []RunLogEntry
	StartedAt   time.Time
	CompletedAt *time.Time
}

// RunLogEntry is one append-only log line on a pipeline run.
type RunLogEntry struct {
	TS    time.Time      `json:"ts"`
	Level string         `json:"level"`
	Msg   string         `json:"msg"`
	Data  map[string]any `json:"data,omitempty"`
}

// Discovery queue statuses.
const (
	QueueStatusPending    = "pending"
	QueueStatusProcessing = "processing"
	QueueStatusCompleted  = "completed"
	QueueStatusFailed     = "failed"
	QueueStatusSkipped    = "skipped"
	QueueStatusReview     = "review"
)

// QueueItem is a staged company proposal awaiting intake.
type QueueItem struct {
	ID         uuid.UUID
	Name       string
	Domain     string
	CareersURL string
	WebsiteURL string
	Source     string
	SourceURL  string

	Location      string
	Country       string
	Industry      string
	EmployeeCount *int
	FundingStage  string

	ATSType       string
	ATSIdentifier string

	Status       string
	ErrorMessage string
	RetryCount   int
	CompanyID    *uuid.UUID

	CreatedAt   time.Time
	ProcessedAt *time.Time
}
