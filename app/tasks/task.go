package tasks

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lysyi3m/news-sieve/app/database"
	"github.com/lysyi3m/news-sieve/app/ingest"
)

type TaskType string

const (
	TaskTypeIngest      TaskType = "ingest"
	TaskTypeSyncReview  TaskType = "sync_review"
	TaskTypeSyncSources TaskType = "sync_sources"
)

const (
	DefaultMaxRetries = 3
)

// AllSources is the target of tasks that are not bound to one source.
const AllSources = "all"

var taskSeq atomic.Uint64

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetTarget() string
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	Start()
	GetDuration() time.Duration
	Finish(err error) Record
}

// Task carries the bookkeeping shared by every pipeline task. Concrete tasks
// embed it and override Finish to attach their results.
type Task struct {
	ID         string
	Type       TaskType
	Target     string
	RetryCount int
	MaxRetries int
	StartedAt  *time.Time
}

// NewTask returns a task with an ID of the form "<type>-<seq>", unique within
// the process. An empty target means every source.
func NewTask(taskType TaskType, target string) Task {
	if target == "" {
		target = AllSources
	}

	return Task{
		ID:         fmt.Sprintf("%s-%d", taskType, taskSeq.Add(1)),
		Type:       taskType,
		Target:     target,
		MaxRetries: DefaultMaxRetries,
	}
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetTarget() string {
	return t.Target
}

func (t *Task) GetRetryCount() int {
	return t.RetryCount
}

func (t *Task) GetMaxRetries() int {
	return t.MaxRetries
}

func (t *Task) IncrementRetryCount() {
	t.RetryCount++
}

func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

// Start stamps the current attempt. A retried task is stamped again.
func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

// Finish describes the attempt that just ended. Attempts count from 1.
func (t *Task) Finish(err error) Record {
	rec := Record{
		ID:         t.ID,
		Type:       t.Type,
		Target:     t.Target,
		Attempt:    t.RetryCount + 1,
		FinishedAt: time.Now().UTC(),
		Duration:   t.GetDuration(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// Record is the outcome of one finished task attempt. Ingest and Review are
// set by the tasks that produce them, and only on success.
type Record struct {
	ID         string               `json:"id"`
	Type       TaskType             `json:"type"`
	Target     string               `json:"target"`
	Attempt    int                  `json:"attempt"`
	FinishedAt time.Time            `json:"finished_at"`
	Duration   time.Duration        `json:"duration"`
	Error      string               `json:"error,omitempty"`
	Ingest     *ingest.Summary      `json:"ingest,omitempty"`
	Review     *database.SyncResult `json:"review,omitempty"`
}

// runHistory keeps the last size records. It is safe for concurrent use.
type runHistory struct {
	mu      sync.Mutex
	size    int
	records []Record
}

func newRunHistory(size int) *runHistory {
	return &runHistory{size: size}
}

func (h *runHistory) add(rec Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, rec)
	if len(h.records) > h.size {
		h.records = slices.Clone(h.records[len(h.records)-h.size:])
	}
}

// list returns the records most recent first.
func (h *runHistory) list() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	records := slices.Clone(h.records)
	slices.Reverse(records)
	return records
}
