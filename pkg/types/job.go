// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the ocr2md pipeline:
// conversion jobs and their progress events, the canonical OCR result,
// source document metadata, and configuration.
package types

import "time"

// JobID identifies one conversion. It is opaque to callers; the orchestrator
// generates it and is the only component that interprets it.
type JobID string

// String returns the identifier text.
func (id JobID) String() string { return string(id) }

// JobStatus is a stage in a conversion's lifecycle.
type JobStatus string

const (
	StatusStarting           JobStatus = "starting"
	StatusExtractingMetadata JobStatus = "extracting_metadata"
	StatusProcessingOCR      JobStatus = "processing_ocr"
	StatusProcessingResults  JobStatus = "processing_results"
	StatusGeneratingMarkdown JobStatus = "generating_markdown"
	StatusCompleted          JobStatus = "completed"
	StatusFailed             JobStatus = "failed"
)

// statusOrder ranks the non-failed states. Transitions must move strictly
// forward through this order.
var statusOrder = map[JobStatus]int{
	StatusStarting:           0,
	StatusExtractingMetadata: 1,
	StatusProcessingOCR:      2,
	StatusProcessingResults:  3,
	StatusGeneratingMarkdown: 4,
	StatusCompleted:          5,
}

// Terminal reports whether no further transitions are allowed from s.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	if s == StatusFailed {
		return true
	}
	_, ok := statusOrder[s]
	return ok
}

// CanTransition reports whether a job in state s may move to next. Failed is
// reachable from any non-terminal state; every other move must go forward.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s.Terminal() || !next.Valid() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	return statusOrder[next] > statusOrder[s]
}

// ConversionJob is the orchestrator's record of one conversion.
type ConversionJob struct {
	ID         JobID     `json:"id" yaml:"id"`
	Status     JobStatus `json:"status" yaml:"status"`
	Progress   int       `json:"progress" yaml:"progress"`
	SourcePath string    `json:"source_path" yaml:"source_path"`
	TempDir    string    `json:"temp_dir,omitempty" yaml:"temp_dir,omitempty"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`

	// Result holds the rendered Markdown once the job completes.
	Result *string `json:"result,omitempty" yaml:"result,omitempty"`

	// Error holds the failure message once the job fails.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Clone returns a deep copy of the job.
func (j *ConversionJob) Clone() *ConversionJob {
	if j == nil {
		return nil
	}
	c := *j
	if j.Result != nil {
		r := *j.Result
		c.Result = &r
	}
	return &c
}

// ProgressEvent is one notification on a job's progress channel. A completed
// event carries the rendered document in Content; a failed event carries the
// message in Error and an error report in Content.
type ProgressEvent struct {
	JobID    JobID     `json:"jobId"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
	Message  string    `json:"message,omitempty"`
	Content  string    `json:"content,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// InlineResult is the structured outcome of an in-memory conversion.
type InlineResult struct {
	Success  bool            `json:"success"`
	Content  string          `json:"content"`
	Metadata *SourceMetadata `json:"metadata,omitempty"`
	OCRInfo  *DocumentInfo   `json:"ocrInfo,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// ValidationResult reports whether a provider credential was accepted.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}
