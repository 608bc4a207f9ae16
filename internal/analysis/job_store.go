package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/service"
)

var _ service.JobStore = (*MemoryJobStore)(nil)

// Default job retention.
const (
	DefaultJobTTL          = 24 * time.Hour
	DefaultCleanupInterval = time.Hour
)

// MemoryJobStore provides in-memory storage for report jobs. Finished
// jobs are evicted once they are older than the TTL.
type MemoryJobStore struct {
	jobs            map[string]*model.Job
	stopCh          chan struct{}
	now             func() time.Time
	ttl             time.Duration
	cleanupInterval time.Duration
	mu              sync.RWMutex
	stopOnce        sync.Once
}

// NewMemoryJobStore creates a store with the default TTL and starts its
// cleanup loop. Call Stop to end the loop.
func NewMemoryJobStore() *MemoryJobStore {
	return NewMemoryJobStoreWithTTL(DefaultJobTTL, DefaultCleanupInterval)
}

// NewMemoryJobStoreWithTTL creates a store with custom retention.
func NewMemoryJobStoreWithTTL(ttl, cleanupInterval time.Duration) *MemoryJobStore {
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	store := &MemoryJobStore{
		jobs:            make(map[string]*model.Job),
		stopCh:          make(chan struct{}),
		now:             time.Now,
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
	}

	go store.cleanupLoop()

	return store
}

// Create registers a new pending job.
func (s *MemoryJobStore) Create(ctx context.Context) (*model.Job, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	now := s.now()
	job := &model.Job{
		ID:        uuid.New().String(),
		Status:    model.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.jobs[job.ID] = copyJob(job)
	s.mu.Unlock()

	return job, nil
}

// Update replaces an existing job.
func (s *MemoryJobStore) Update(ctx context.Context, job *model.Job) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; !exists {
		return fmt.Errorf("job %s: %w", job.ID, common.ErrNotFound)
	}

	stored := copyJob(job)
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = s.now()
	}
	s.jobs[job.ID] = stored
	return nil
}

// Get retrieves a job by ID.
func (s *MemoryJobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	return copyJob(job), nil
}

// Len returns the number of retained jobs.
func (s *MemoryJobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// cleanupLoop periodically removes expired finished jobs.
func (s *MemoryJobStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup removes finished jobs last updated before the TTL cutoff.
// Pending jobs are kept until they finish.
func (s *MemoryJobStore) cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, job := range s.jobs {
		if job.Status == model.JobPending {
			continue
		}
		if job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// Stop gracefully shuts down the cleanup loop. It is safe to call twice.
func (s *MemoryJobStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func copyJob(job *model.Job) *model.Job {
	c := *job
	if job.Result != nil {
		report := *job.Result
		report.Analysis = job.Result.Analysis.Clone()
		c.Result = &report
	}
	return &c
}

// validateContext ensures the context is valid.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
