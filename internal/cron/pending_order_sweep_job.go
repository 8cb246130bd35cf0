package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/brickfield/brickfield-backend/pkg/logger"
)

const pendingOrderSweepBatchSize = 100

type staleOrderExpirer interface {
	ExpireStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// PendingOrderSweepJobParams configure the stale pending order sweep.
type PendingOrderSweepJobParams struct {
	Logger *logger.Logger
	Orders staleOrderExpirer
	// TTL is how long an unpaid order may wait for its webhook before the
	// sweep cancels it.
	TTL time.Duration
}

// NewPendingOrderSweepJob builds the job that cancels orders whose payment
// never arrived.
func NewPendingOrderSweepJob(params PendingOrderSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.TTL <= 0 {
		return nil, fmt.Errorf("pending order ttl must be positive")
	}
	return &pendingOrderSweepJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    params.TTL,
	}, nil
}

type pendingOrderSweepJob struct {
	logg   *logger.Logger
	orders staleOrderExpirer
	ttl    time.Duration
}

func (j *pendingOrderSweepJob) Name() string { return "pending-order-sweep" }

func (j *pendingOrderSweepJob) Run(ctx context.Context) error {
	expired, err := j.orders.ExpireStalePending(ctx, j.ttl, pendingOrderSweepBatchSize)
	if err != nil {
		return fmt.Errorf("expire stale pending orders: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "expired", expired), "stale pending order sweep complete")
	return nil
}
