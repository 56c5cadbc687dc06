package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/news-sieve/app/database"
	"github.com/lysyi3m/news-sieve/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	queueSize   = 300
	historySize = 50
	taskTimeout = 5 * time.Minute
	maxBackoff  = 30 * time.Second
)

type Scheduler struct {
	ingester    Ingester
	reviews     database.ReviewStore
	feeds       database.FeedStore
	registry    *feed.Registry
	interval    time.Duration
	workerCount int
	retryDelay  func(retry int) time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
	history     *runHistory
}

// NewScheduler creates a scheduler that ingests every interval. A zero interval
// disables the ticker; tasks then only run when enqueued. feeds may be nil.
func NewScheduler(ingester Ingester, reviews database.ReviewStore, feeds database.FeedStore,
	registry *feed.Registry, interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if workerCount < 1 {
		workerCount = 1
	}

	return &Scheduler{
		ingester:    ingester,
		reviews:     reviews,
		feeds:       feeds,
		registry:    registry,
		interval:    interval,
		workerCount: workerCount,
		retryDelay:  backoff,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, queueSize),
		history:     newRunHistory(historySize),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.enqueueStartupTasks()

		if s.interval <= 0 {
			return
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) EnqueueIngest(source string) (string, error) {
	task := NewIngestTask(source, s.ingester)
	if err := s.EnqueueTask(task); err != nil {
		return "", err
	}
	return task.GetID(), nil
}

func (s *Scheduler) EnqueueReviewSync() (string, error) {
	if s.reviews == nil {
		return "", fmt.Errorf("review store is not configured")
	}
	task := NewSyncReviewTask(s.reviews)
	if err := s.EnqueueTask(task); err != nil {
		return "", err
	}
	return task.GetID(), nil
}

// History returns finished task attempts, most recent first.
func (s *Scheduler) History() []Record {
	return s.history.list()
}

func (s *Scheduler) enqueueStartupTasks() {
	if s.feeds != nil && s.registry != nil {
		if err := s.EnqueueTask(NewSyncSourcesTask(s.registry, s.feeds)); err != nil {
			slog.Warn("Failed to enqueue SyncSourcesTask", "error", err)
		}
	}

	s.enqueueTasks()
}

func (s *Scheduler) enqueueTasks() {
	if _, err := s.EnqueueIngest(""); err != nil {
		slog.Warn("Failed to enqueue IngestTask", "error", err)
	}

	if s.reviews != nil {
		if _, err := s.EnqueueReviewSync(); err != nil {
			slog.Warn("Failed to enqueue SyncReviewTask", "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	s.history.add(task.Finish(err))

	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := s.retryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "target", task.GetTarget(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-time.After(retryDelay):
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			return
		}

		if retryErr := s.EnqueueTask(task); retryErr != nil {
			slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
		}
	}()
}

// backoff doubles from one second and is capped at maxBackoff.
func backoff(retry int) time.Duration {
	delay := time.Duration(1<<uint(retry-1)) * time.Second
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay
}
