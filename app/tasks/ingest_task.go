package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/news-sieve/app/ingest"
)

// Ingester runs one pipeline pass. *ingest.Runner satisfies it.
type Ingester interface {
	Run(ctx context.Context, opts ingest.Options) (*ingest.Summary, error)
}

type IngestTask struct {
	Task
	Source   string
	ingester Ingester
	Summary  *ingest.Summary
}

// NewIngestTask runs the pipeline for one source, or all active sources when
// source is empty.
func NewIngestTask(source string, ingester Ingester) *IngestTask {
	return &IngestTask{
		Task:     NewTask(TaskTypeIngest, source),
		Source:   source,
		ingester: ingester,
	}
}

// Finish attaches the run summary of a successful attempt.
func (t *IngestTask) Finish(err error) Record {
	rec := t.Task.Finish(err)
	if err == nil {
		rec.Ingest = t.Summary
	}
	return rec
}

func (t *IngestTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	summary, err := t.ingester.Run(ctx, ingest.Options{Source: t.Source})
	if errors.Is(err, ingest.ErrUnknownSource) {
		// Retrying cannot fix a bad source name.
		slog.Warn("Task skipped", "type", "Ingest", "source", t.Source, "error", err)
		t.MaxRetries = 0
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to ingest feeds: %w", err)
	}
	t.Summary = summary

	slog.Info("Task completed",
		"type", "Ingest",
		"source", t.Target,
		"duration", t.GetDuration(),
		"feeds", summary.Feeds,
		"failed", summary.Failed,
		"new", summary.New,
		"duplicates", summary.Duplicates)

	return nil
}
