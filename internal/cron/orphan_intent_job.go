package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/rogermolina/residencia-backend/internal/bills"
	"github.com/rogermolina/residencia-backend/pkg/logger"
	"github.com/rogermolina/residencia-backend/pkg/metrics"
	"github.com/rogermolina/residencia-backend/pkg/stripe"
)

const defaultOrphanLookback = 72 * time.Hour

type intentSearcher interface {
	SearchIntents(ctx context.Context, query string) ([]stripe.Intent, error)
}

// OrphanIntentJobParams configure the orphan report job.
type OrphanIntentJobParams struct {
	Repo     bills.Repository
	Gateway  intentSearcher
	Logger   *logger.Logger
	Metrics  *metrics.ReconcileMetrics
	Lookback time.Duration
}

// OrphanIntentJob reports gateway intents created by this service that no
// bill references. These appear when the attach step loses its race after
// the gateway call succeeded. The job only surfaces them; cancellation is a
// manual decision.
type OrphanIntentJob struct {
	repo     bills.Repository
	gateway  intentSearcher
	logg     *logger.Logger
	metrics  *metrics.ReconcileMetrics
	lookback time.Duration
}

// NewOrphanIntentJob builds the orphan report job.
func NewOrphanIntentJob(params OrphanIntentJobParams) (*OrphanIntentJob, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("bill repo required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = defaultOrphanLookback
	}
	return &OrphanIntentJob{
		repo:     params.Repo,
		gateway:  params.Gateway,
		logg:     params.Logger,
		metrics:  params.Metrics,
		lookback: lookback,
	}, nil
}

// Name implements Job.
func (j *OrphanIntentJob) Name() string {
	return "orphan-intent-report"
}

// Run implements Job.
func (j *OrphanIntentJob) Run(ctx context.Context) error {
	since := time.Now().Add(-j.lookback)
	query := fmt.Sprintf("metadata['%s']:'%s' AND created>%d",
		stripe.MetadataAppKey, stripe.MetadataAppValue, since.Unix())

	intents, err := j.gateway.SearchIntents(ctx, query)
	if err != nil {
		return fmt.Errorf("search gateway intents: %w", err)
	}

	attached, err := j.repo.ListAttachedIntentIDs(ctx, since)
	if err != nil {
		return fmt.Errorf("list attached intents: %w", err)
	}
	known := make(map[string]struct{}, len(attached))
	for _, id := range attached {
		known[id] = struct{}{}
	}

	var errs error
	orphans := 0
	for _, intent := range intents {
		if _, ok := known[intent.ID]; ok {
			continue
		}
		// The updated_at window can miss a bill that attached before the
		// lookback horizon; confirm with a direct lookup before flagging.
		bill, lookupErr := j.repo.FindByPaymentIntentID(ctx, intent.ID)
		if lookupErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("lookup intent %s: %w", intent.ID, lookupErr))
			continue
		}
		if bill != nil {
			continue
		}
		orphans++
		j.metrics.IncOrphanedIntent()
		j.logg.Warn(j.logg.WithField(ctx, "intent_id", intent.ID), "gateway intent has no bill attached")
	}

	summary := j.logg.WithFields(ctx, map[string]any{
		"scanned": len(intents),
		"orphans": orphans,
	})
	j.logg.Info(summary, "orphan intent report complete")
	return errs
}
