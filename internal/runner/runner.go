package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GeneralToucan/alkinson-newsletter/internal/dispatch"
	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
	"github.com/GeneralToucan/alkinson-newsletter/internal/quota"
	"github.com/GeneralToucan/alkinson-newsletter/internal/repository"
)

// Runner drives one end-to-end distribution run: load the issue, list the
// active subscribers, partition them into batches, push each batch through
// the dispatch engine with a pause in between, and aggregate the results
// into a RunSummary.
//
// Runs are mutually exclusive (a second trigger while one is in progress
// is rejected) and strictly sequential inside: the rate gate already
// spaces every send, so intra-run parallelism would only contend on the
// same gate while complicating quota accounting.
type Runner struct {
	subs       repository.SubscriberRepository
	issues     repository.IssueRepository
	runs       repository.RunRepository
	quotaStore repository.QuotaStore
	tracker    *quota.Tracker
	engine     *dispatch.Engine
	batchSize  int
	batchPause time.Duration
	logger     *zap.Logger

	running    atomic.Bool
	onFinished func(*domain.RunSummary)
}

func New(
	subs repository.SubscriberRepository,
	issues repository.IssueRepository,
	runs repository.RunRepository,
	quotaStore repository.QuotaStore,
	tracker *quota.Tracker,
	engine *dispatch.Engine,
	batchSize int,
	batchPause time.Duration,
	logger *zap.Logger,
) *Runner {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Runner{
		subs:       subs,
		issues:     issues,
		runs:       runs,
		quotaStore: quotaStore,
		tracker:    tracker,
		engine:     engine,
		batchSize:  batchSize,
		batchPause: batchPause,
		logger:     logger,
	}
}

// RunDistribution executes one run for the given week (empty week selects
// the current issue). The caller receives either a RunSummary or an error,
// never both: collaborator failures (no issue, subscriber listing down)
// abort with an error, while quota exhaustion and mid-run cancellation are
// expected terminal conditions that still produce a (partial) summary.
func (r *Runner) RunDistribution(ctx context.Context, weekID string) (*domain.RunSummary, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, domain.ErrRunInProgress
	}
	defer r.running.Store(false)

	issue, err := r.loadIssue(ctx, weekID)
	if err != nil {
		return nil, err
	}

	subscribers, err := r.subs.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active subscribers: %w", err)
	}

	runID := uuid.New().String()
	startedAt := time.Now().UTC()
	log := r.logger.With(
		zap.String("run_id", runID),
		zap.String("week_id", issue.WeekID),
	)
	log.Info("distribution run started", zap.Int("subscribers", len(subscribers)))

	summary := &domain.RunSummary{
		RunID:     runID,
		WeekID:    issue.WeekID,
		StartedAt: startedAt,
	}

	// Every result flows through here the moment it is produced: counted
	// into the summary and appended to the durable delivery log, so an
	// interrupted run leaves a partial, inspectable record.
	sink := func(res *domain.SendAttemptResult) {
		summary.Total++
		switch res.Outcome {
		case domain.OutcomeSent:
			summary.Sent++
		case domain.OutcomeFailed:
			summary.Failed++
		case domain.OutcomeSkipped:
			summary.Skipped++
		}
		if err := r.runs.AppendResult(ctx, runID, res); err != nil {
			log.Warn("failed to append delivery log entry",
				zap.String("subscriber_id", res.SubscriberID), zap.Error(err))
		}
	}

	batches := partition(subscribers, r.batchSize)
	exhausted := false
	for i, batch := range batches {
		if ctx.Err() != nil {
			log.Info("run cancelled, returning partial summary",
				zap.Int("batches_done", i), zap.Int("batches_total", len(batches)))
			break
		}

		exhausted = r.engine.Dispatch(ctx, issue, batch, sink)
		if exhausted {
			// Hard stop: record the untouched remainder of the run as
			// skipped so every subscriber gets exactly one result.
			for _, rest := range batches[i+1:] {
				for _, sub := range rest {
					sink(&domain.SendAttemptResult{
						SubscriberID: sub.ID,
						Email:        sub.Email,
						Outcome:      domain.OutcomeSkipped,
						SkipReason:   domain.SkipQuotaExhausted,
						Timestamp:    time.Now().UTC(),
					})
				}
			}
			break
		}

		if i < len(batches)-1 {
			if !r.pause(ctx) {
				log.Info("run cancelled during inter-batch pause")
				break
			}
		}
	}

	snap := r.tracker.Snapshot()
	summary.QuotaRemaining = snap.Remaining
	summary.FinishedAt = time.Now().UTC()
	summary.Duration = summary.FinishedAt.Sub(summary.StartedAt)

	r.persist(ctx, log, summary, snap)

	log.Info("distribution run finished",
		zap.Int("total", summary.Total),
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("quota_remaining", summary.QuotaRemaining),
		zap.Bool("quota_exhausted", exhausted),
		zap.Duration("duration", summary.Duration),
	)
	if r.onFinished != nil {
		r.onFinished(summary)
	}
	return summary, nil
}

// OnFinished registers a callback invoked with the final summary of every
// run that produced one, including partial runs. Used for metrics.
func (r *Runner) OnFinished(fn func(*domain.RunSummary)) {
	r.onFinished = fn
}

func (r *Runner) loadIssue(ctx context.Context, weekID string) (*domain.Issue, error) {
	var issue *domain.Issue
	var err error
	if weekID == "" {
		issue, err = r.issues.GetCurrent(ctx)
	} else {
		issue, err = r.issues.GetByWeekID(ctx, weekID)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoIssue
	}
	if err != nil {
		return nil, fmt.Errorf("load issue: %w", err)
	}
	return issue, nil
}

// pause waits out the inter-batch delay; returns false when ctx was
// cancelled while waiting.
func (r *Runner) pause(ctx context.Context) bool {
	if r.batchPause <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(r.batchPause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// persist saves the run summary and the quota counter. The summary
// returned to the caller is already complete; persistence failures are
// logged, not escalated. context.Background() because the run ctx may
// already be cancelled and the record is still worth keeping.
func (r *Runner) persist(ctx context.Context, log *zap.Logger, summary *domain.RunSummary, snap quota.Snapshot) {
	saveCtx := ctx
	if saveCtx.Err() != nil {
		var cancel context.CancelFunc
		saveCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	if err := r.runs.SaveSummary(saveCtx, summary); err != nil {
		log.Error("failed to persist run summary", zap.Error(err))
	}
	if r.quotaStore != nil {
		if err := r.quotaStore.Save(saveCtx, snap.WindowStart, snap.Used); err != nil {
			log.Error("failed to persist quota counter", zap.Error(err))
		}
	}
}

// partition splits subscribers into consecutive batches of at most size.
func partition(subs []*domain.Subscriber, size int) [][]*domain.Subscriber {
	var batches [][]*domain.Subscriber
	for start := 0; start < len(subs); start += size {
		end := start + size
		if end > len(subs) {
			end = len(subs)
		}
		batches = append(batches, subs[start:end])
	}
	return batches
}
