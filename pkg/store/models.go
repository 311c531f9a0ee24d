package store

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a research task.
type TaskStatus string

const (
	TaskRunning   TaskStatus = "running"
	TaskSatisfied TaskStatus = "satisfied"
	TaskExhausted TaskStatus = "exhausted"
	TaskCancelled TaskStatus = "cancelled"
	TaskFailed    TaskStatus = "failed"
	TaskPaused    TaskStatus = "paused"
)

// Task is a research hypothesis under investigation.
type Task struct {
	ID                 uuid.UUID
	Status             TaskStatus
	QueryText          string
	BudgetTokens       *int64
	BudgetRequests     *int64
	SpentTokens        int64
	SpentRequests      int64
	NoveltyStaleCycles int
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CancelledAt        *time.Time
}

// PageStatus is the fetch lifecycle of a page.
type PageStatus string

const (
	PageStatusPending PageStatus = "pending"
	PageStatusFetched PageStatus = "fetched"
	PageStatusFailed  PageStatus = "failed"
	PageStatusBlocked PageStatus = "blocked"
)

// Page is a fetched resource keyed by canonical URL within a task.
type Page struct {
	ID           uuid.UUID
	TaskID       uuid.UUID
	WorkID       *uuid.UUID
	URL          string
	CanonicalURL string
	Domain       string
	Title        string
	Status       PageStatus
	FetchedAt    *time.Time
	CreatedAt    time.Time
}

// Fragment is an immutable contiguous text span extracted from a page.
type Fragment struct {
	ID            uuid.UUID
	PageID        uuid.UUID
	Text          string
	HeadingPath   []string
	PositionIndex int
	IsAbstract    bool
	Embedding     []byte
	CreatedAt     time.Time
}

// ClaimStatus is the adoption lifecycle of a claim.
type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "pending"
	ClaimAccepted ClaimStatus = "accepted"
	ClaimRejected ClaimStatus = "rejected"
)

// Claim is an atomic factual statement attributed to a task.
type Claim struct {
	ID             uuid.UUID
	TaskID         uuid.UUID
	Text           string
	Status         ClaimStatus
	Polarity       ClaimPolarity
	Granularity    ClaimGranularity
	// RawConfidence is the LLM's self-reported extraction confidence. It
	// measures extraction quality, not truth, and never feeds the
	// Bayesian truth_confidence computation.
	RawConfidence  *float64
	Embedding      []byte
	RejectedReason *string
	CreatedAt      time.Time
}

// ClaimPolarity distinguishes an asserted claim from its negation.
type ClaimPolarity string

const (
	PolarityAsserted ClaimPolarity = "asserted"
	PolarityNegated  ClaimPolarity = "negated"
)

// ClaimGranularity distinguishes a specific, checkable claim from a general
// background statement.
type ClaimGranularity string

const (
	GranularitySpecific ClaimGranularity = "specific"
	GranularityGeneral  ClaimGranularity = "general"
)

// EdgeRelation is the typed relation between a fragment/page source and a
// claim/page target in the evidence graph.
type EdgeRelation string

const (
	RelationOrigin   EdgeRelation = "origin"
	RelationSupports EdgeRelation = "supports"
	RelationRefutes  EdgeRelation = "refutes"
	RelationNeutral  EdgeRelation = "neutral"
	RelationCites    EdgeRelation = "cites"
)

// Edge is a typed, directed link from a fragment to a claim (origin/NLI
// relations) recording calibrated confidence.
type Edge struct {
	ID                  uuid.UUID
	FragmentID          uuid.UUID
	ClaimID             uuid.UUID
	Relation            EdgeRelation
	Confidence          *float64
	CalibrationVersion  *int
	CreatedAt           time.Time
}

// JobKind is the category of scheduled unit of work.
type JobKind string

const (
	JobSERP     JobKind = "serp"
	JobPrefetch JobKind = "prefetch"
	JobExtract  JobKind = "extract"
	JobEmbed    JobKind = "embed"
	JobRerank   JobKind = "rerank"
	JobLLMFast  JobKind = "llm_fast"
	JobLLMSlow  JobKind = "llm_slow"
)

// JobSlot is the execution resource a job contends for.
type JobSlot string

const (
	SlotGPU            JobSlot = "gpu"
	SlotBrowserHeadful JobSlot = "browser_headful"
	SlotNetworkClient  JobSlot = "network_client"
	SlotCPUNLP         JobSlot = "cpu_nlp"
)

// JobStatus is the lifecycle state of a scheduled job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobClaimed   JobStatus = "claimed"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled    JobStatus = "cancelled"
	JobAwaitingAuth JobStatus = "awaiting_auth"
)

// Job is a scheduled unit of work claimed by exactly one worker at a time.
type Job struct {
	ID          uuid.UUID
	TaskID      uuid.UUID
	Kind        JobKind
	Slot        JobSlot
	Domain      *string
	Status      JobStatus
	Payload     []byte // raw JSONB
	Attempts    int
	LastError   *string
	ClaimedBy   *string
	ClaimedAt   *time.Time
	HeartbeatAt *time.Time
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// ResourceClaim is the result of attempting to claim a shared resource
// (URL/DOI/PMID) for exclusive processing within a task.
type ResourceClaim struct {
	Claimed   bool
	ClaimedBy string
}

// ExtractionError records a claim-extraction validation or LLM failure for
// a page, per the extraction engine's "give up and log" path.
type ExtractionError struct {
	ID        uuid.UUID
	PageID    uuid.UUID
	Stage     string
	ErrorKind string
	Message   string
	Attempt   int
	CreatedAt time.Time
}

// QueryType distinguishes a task's initial query from the follow-on
// searches the orchestrator spawns against it.
type QueryType string

const (
	QueryInitial   QueryType = "initial"
	QueryExpansion QueryType = "expansion"
	QueryMirror    QueryType = "mirror"
	QueryReverse   QueryType = "reverse"
)

// QueryStatus is the lifecycle state of a sub-search.
type QueryStatus string

const (
	QueryPending   QueryStatus = "pending"
	QueryRunning   QueryStatus = "running"
	QuerySatisfied QueryStatus = "satisfied"
	QueryPartial   QueryStatus = "partial"
	QueryExhausted QueryStatus = "exhausted"
	QuerySkipped   QueryStatus = "skipped"
)

// Query is a sub-search belonging to exactly one task. HarvestRate is
// computed by the caller (useful fragments / pages fetched), not stored.
type Query struct {
	ID                      uuid.UUID
	TaskID                  uuid.UUID
	Text                    string
	Provider                *string
	Type                    QueryType
	ParentQueryID           *uuid.UUID
	Depth                   int
	Status                  QueryStatus
	PagesFetched            int
	FragmentsHarvested      int
	UsefulFragmentCount     int
	IndependentDomainCount  int
	HasPrimarySource        bool
	NoveltyStaleCycles      int
	CreatedAt               time.Time
}

// AuthQueueEntry is a fetch job suspended on an auth wall, awaiting a
// human to resolve credentials out of band.
type AuthQueueEntry struct {
	ID         uuid.UUID
	TaskID     uuid.UUID
	JobID      uuid.UUID
	URL        string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// Work is a bibliographic record normalised from a provider's academic-API
// response, used to deduplicate pages that describe the same paper across
// sources. CanonicalID (doi:…, pmid:…, arxiv:…, or title:<hash>) is derived,
// not stored — see CanonicalID.
type Work struct {
	ID             uuid.UUID
	Title          string
	DOI            *string
	Venue          *string
	Year           *int
	CitationCount  *int
	SourceProvider string
	ExternalID     string
	CreatedAt      time.Time
}

// WorkAuthor is one ordered author credit on a Work.
type WorkAuthor struct {
	WorkID     uuid.UUID
	AuthorName string
	Position   int
}

// CalibrationParams is a versioned set of NLI-confidence calibration
// coefficients; exactly one version is active at a time.
type CalibrationParams struct {
	Version     int
	Method      string // "temperature" | "platt"
	Temperature *float64
	PlattA      *float64
	PlattB      *float64
	BrierScore  *float64
	ECE         *float64
	SampleSize  int
	Active      bool
	CreatedAt   time.Time
}
