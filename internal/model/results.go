package model

import "time"

// MarkResult is returned by a human classification.
type MarkResult struct {
	Success          bool         `json:"success"`
	Message          string       `json:"message"`
	Target           Target       `json:"target"`
	Category         Category     `json:"category"`
	PreviousCategory Category     `json:"previousCategory"`
	PreviousSource   Source       `json:"previousSource"`
	FeedbackType     FeedbackType `json:"feedbackType"`
	VideosUpdated    int          `json:"videosUpdated"`
	VideosLinked     int          `json:"videosLinked"`
}

// PropagationResult counts what a playlist propagation did.
type PropagationResult struct {
	Success          bool     `json:"success"`
	Message          string   `json:"message"`
	PlaylistID       int64    `json:"playlistId"`
	Category         Category `json:"category"`
	Source           Source   `json:"source"`
	Total            int      `json:"total"`
	Updated          int      `json:"videosUpdated"`
	Unchanged        int      `json:"unchanged"`
	SkippedProtected int      `json:"skippedProtected"`
	SkippedWeaker    int      `json:"skippedWeaker"`
}

// FeedbackResult is returned by a feedback submission.
type FeedbackResult struct {
	Success         bool         `json:"success"`
	Message         string       `json:"message"`
	Target          Target       `json:"target"`
	FeedbackType    FeedbackType `json:"feedbackType"`
	Language        Language     `json:"language,omitempty"`
	PatternsLearned int          `json:"patternsLearned"`
	ExemplarAdded   bool         `json:"exemplarAdded"`
	VideosUpdated   int          `json:"videosUpdated"`
	LearningError   string       `json:"learningError,omitempty"`
}

// JobState is the lifecycle state of a background job.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobDone      JobState = "done"
	JobCancelled JobState = "cancelled"
	JobFailed    JobState = "failed"
)

// BulkCounters count the outcome of a bulk reclassification.
type BulkCounters struct {
	Total      int `json:"total"`
	Classified int `json:"classified"`
	Unchanged  int `json:"unchanged"`
	Protected  int `json:"protected"`
	Failed     int `json:"failed"`
}

// JobStatus reports a bulk reclassification job.
type JobStatus struct {
	ID           string       `json:"id"`
	CompetitorID int64        `json:"competitorId"`
	Force        bool         `json:"force"`
	State        JobState     `json:"state"`
	Counters     BulkCounters `json:"counters"`
	Error        string       `json:"error,omitempty"`
	StartedAt    *time.Time   `json:"startedAt,omitempty"`
	FinishedAt   *time.Time   `json:"finishedAt,omitempty"`
}

// IssueCode names an integrity check.
type IssueCode string

const (
	IssueHumanFlagMismatch   IssueCode = "H1"
	IssueHumanConfidence     IssueCode = "H2"
	IssuePropagationMismatch IssueCode = "P1"
	IssueDuplicatePattern    IssueCode = "D1"
	IssueOrphanLink          IssueCode = "O1"
	IssueShortFlag           IssueCode = "S1"
)

// Severity grades an integrity issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// IntegrityIssue is one failed integrity check with the ids involved.
type IntegrityIssue struct {
	Code        IssueCode `json:"code"`
	Severity    Severity  `json:"severity"`
	Table       string    `json:"table"`
	Description string    `json:"description"`
	IDs         []int64   `json:"ids"`
	AutoFixable bool      `json:"autoFixable"`
}

// IntegrityReport is the result of verify_integrity.
type IntegrityReport struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message"`
	IsHealthy bool             `json:"isHealthy"`
	Issues    []IntegrityIssue `json:"issues"`
	CheckedAt time.Time        `json:"checkedAt"`
}

// FixLevel selects how far auto_fix may go.
type FixLevel string

const (
	FixSafe FixLevel = "safe"
	FixFull FixLevel = "full"
)

// FixResult counts the repairs made by auto_fix.
type FixResult struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Level     FixLevel          `json:"level"`
	Fixed     map[IssueCode]int `json:"fixed"`
	Remaining IntegrityReport   `json:"remaining"`
}

// PatternResult is returned by pattern administration.
type PatternResult struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Pattern Pattern `json:"pattern"`
	Changed bool    `json:"changed"`
}

// SourceCount is one row of the classification statistics.
type SourceCount struct {
	Source         Source   `json:"source"`
	Count          int      `json:"count"`
	HumanValidated int      `json:"humanValidated"`
	PriorityLevel  Priority `json:"priorityLevel"`
}

// ClassificationStats groups item counts by source per target type.
type ClassificationStats struct {
	Videos    []SourceCount `json:"videos"`
	Playlists []SourceCount `json:"playlists"`
}

// CategoryAccuracy is per-category feedback accuracy.
type CategoryAccuracy struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
	Correct  int      `json:"correct"`
	Accuracy float64  `json:"accuracy"`
}

// LearningStats summarises the feedback loop.
type LearningStats struct {
	TotalFeedback   int                `json:"totalFeedback"`
	Corrections     int                `json:"corrections"`
	Validations     int                `json:"validations"`
	Accuracy        float64            `json:"accuracy"`
	ByCategory      []CategoryAccuracy `json:"byCategory"`
	LearnedPatterns int                `json:"learnedPatterns"`
	CustomPatterns  int                `json:"customPatterns"`
	HumanExemplars  map[Category]int   `json:"humanExemplars,omitempty"`
}

// PreviewResult shows what each automatic tier would decide for a text.
type PreviewResult struct {
	Language   Language             `json:"language"`
	Keyword    TierVerdict          `json:"keyword"`
	Semantic   TierVerdict          `json:"semantic"`
	Winner     TierVerdict          `json:"winner"`
	Similarity map[Category]float64 `json:"similarity,omitempty"`
}

// TierVerdict is one tier's decision, or its abstention.
type TierVerdict struct {
	Category   Category `json:"category"`
	Source     Source   `json:"source"`
	Confidence int      `json:"confidence"`
	Abstained  bool     `json:"abstained"`
	Reason     string   `json:"reason,omitempty"`
}
