package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/finance-insights/internal/documents"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeParseStatement represents a statement parsing job.
	JobTypeParseStatement JobType = "parse_statement"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed. Jobs are never retried.
	JobStatusFailed JobStatus = "failed"
)

// ErrJobNotFound is returned when no job has the requested ID.
var ErrJobNotFound = errors.New("job not found")

// ParseStatementJob represents a job to parse one statement into the workspace.
type ParseStatementJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Type is always JobTypeParseStatement.
	Type JobType `json:"type"`

	// URI is the gs:// URI or local path of the statement, if it is fetched.
	URI string `json:"uri,omitempty"`

	// Filename is the uploaded file name, if the bytes were uploaded directly.
	Filename string `json:"filename,omitempty"`

	// Document carries uploaded bytes. It is never serialized.
	Document *documents.Document `json:"-"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// TransactionCount is how many transactions the statement added.
	TransactionCount int `json:"transaction_count"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`
}

// Active reports whether the job is still waiting or running.
func (j *ParseStatementJob) Active() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusRunning
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishParseStatement publishes a statement parsing job.
	PublishParseStatement(ctx context.Context, job *ParseStatementJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. It may record results such as
// TransactionCount on the job; a returned error marks the job failed.
type JobHandler func(ctx context.Context, job *ParseStatementJob) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ParseStatementJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ParseStatementJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ParseStatementJob, error)

	// HasActive reports whether any job is pending or running.
	HasActive(ctx context.Context) (bool, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
