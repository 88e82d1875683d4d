// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pdiddy/ocr2md/pkg/types"
)

// DefaultMaxFinishedJobs bounds the finished jobs a store keeps.
const DefaultMaxFinishedJobs = 256

// JobStore holds every conversion the orchestrator knows about. In-flight
// jobs are kept until they finish; finished jobs live in an LRU so the store
// stays bounded.
type JobStore struct {
	mu       sync.RWMutex
	active   map[types.JobID]*types.ConversionJob
	finished *lru.Cache[types.JobID, *types.ConversionJob]
	now      func() time.Time
}

// NewJobStore creates a store retaining up to maxFinished finished jobs.
// Non-positive values use DefaultMaxFinishedJobs.
func NewJobStore(maxFinished int) *JobStore {
	if maxFinished <= 0 {
		maxFinished = DefaultMaxFinishedJobs
	}
	finished, err := lru.New[types.JobID, *types.ConversionJob](maxFinished)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &JobStore{
		active:   make(map[types.JobID]*types.ConversionJob),
		finished: finished,
		now:      time.Now,
	}
}

// Add registers a new job.
func (s *JobStore) Add(job *types.ConversionJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[job.ID] = job.Clone()
}

// Get returns a snapshot of the job with id.
func (s *JobStore) Get(id types.JobID) (*types.ConversionJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if job, ok := s.active[id]; ok {
		return job.Clone(), true
	}
	if job, ok := s.finished.Peek(id); ok {
		return job.Clone(), true
	}
	return nil, false
}

// List returns snapshots of all jobs, oldest first.
func (s *JobStore) List() []*types.ConversionJob {
	s.mu.RLock()
	jobs := make([]*types.ConversionJob, 0, len(s.active)+s.finished.Len())
	for _, job := range s.active {
		jobs = append(jobs, job.Clone())
	}
	for _, id := range s.finished.Keys() {
		if job, ok := s.finished.Peek(id); ok {
			jobs = append(jobs, job.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(jobs, func(a, b *types.ConversionJob) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return jobs
}

// Advance moves an in-flight job to status with the given progress and
// returns a snapshot. Staying in the current status only updates progress.
// Progress never decreases, and a move the state machine forbids is an
// error. Jobs reaching a terminal status move to the finished LRU.
func (s *JobStore) Advance(id types.JobID, status types.JobStatus, progress int, mutate func(*types.ConversionJob)) (*types.ConversionJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.active[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	if status != job.Status && !job.Status.CanTransition(status) {
		return nil, fmt.Errorf("job %s: invalid transition %s -> %s", id, job.Status, status)
	}

	job.Status = status
	if progress > job.Progress {
		job.Progress = min(progress, 100)
	}
	job.UpdatedAt = s.now().UTC()
	if mutate != nil {
		mutate(job)
	}

	if status.Terminal() {
		delete(s.active, id)
		s.finished.Add(id, job)
	}
	return job.Clone(), nil
}
