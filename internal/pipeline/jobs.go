package pipeline

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a merge build.
type JobStatus string

const (
	StatusQueued       JobStatus = "queued"
	StatusCollecting   JobStatus = "collecting"
	StatusOrdering     JobStatus = "ordering"
	StatusTransforming JobStatus = "transforming"
	StatusAssembling   JobStatus = "assembling"
	StatusRendering    JobStatus = "rendering"
	StatusCompleted    JobStatus = "completed"
	StatusFailed       JobStatus = "failed"
)

// Job tracks the state of a single merge build.
type Job struct {
	mu sync.Mutex

	ID         string   `json:"job_id"`
	Input      string   `json:"input"`
	OutputBase string   `json:"output_base"`
	Formats    []string `json:"formats"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	errors []string
}

// Progress tracks processing progress.
type Progress struct {
	Packages  int      `json:"packages"`
	Classes   int      `json:"classes"`
	PagesDone int      `json:"pages_done"`
	Styles    int      `json:"styles"`
	Skipped   int      `json:"skipped"`
	Outputs   []string `json:"outputs"`
	Errors    []string `json:"errors"`
}

// NewJob returns a queued build of input. Output files are written to
// outputBase plus the format extension; a job without formats only keeps the
// merged HTML in memory.
func NewJob(input, outputBase string, formats []string) *Job {
	now := time.Now()
	return &Job{
		ID:         uuid.NewString(),
		Input:      input,
		OutputBase: outputBase,
		Formats:    slices.Clone(formats),
		Status:     StatusQueued,
		Phase:      "queued",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetTree records the size of the collected tree.
func (j *Job) SetTree(packages, classes, skipped int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Packages = packages
	j.Progress.Classes = classes
	j.Progress.Skipped = skipped
	j.UpdatedAt = time.Now()
}

// IncrPagesDone atomically increments the transformed page count.
func (j *Job) IncrPagesDone() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.PagesDone++
	j.UpdatedAt = time.Now()
}

// SetStyles records the number of canonical style rules.
func (j *Job) SetStyles(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Styles = n
	j.UpdatedAt = time.Now()
}

// AddOutput records a written artifact.
func (j *Job) AddOutput(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Outputs = append(j.Progress.Outputs, path)
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Input     string    `json:"input"`
	Formats   []string  `json:"formats"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	p := j.Progress
	p.Errors = nonNil(slices.Clone(p.Errors))
	p.Outputs = nonNil(slices.Clone(p.Outputs))
	return JobSnapshot{
		ID:        j.ID,
		Input:     j.Input,
		Formats:   nonNil(slices.Clone(j.Formats)),
		Status:    j.Status,
		Phase:     j.Phase,
		Progress:  p,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
