package cron

import (
	"context"
	"errors"

	"github.com/rinaldiihsan/sixstreet-sub001/pkg/logger"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/metrics"
)

const SessionPurgeJobName = "checkout_session_purge"

type sessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// SessionPurgeJob deletes checkout sessions past their TTL from the SQL store.
// Redis-backed sessions expire on their own and need no job.
type SessionPurgeJob struct {
	store   sessionPurger
	logg    *logger.Logger
	metrics *metrics.JobMetrics
}

func NewSessionPurgeJob(store sessionPurger, logg *logger.Logger, m *metrics.JobMetrics) (*SessionPurgeJob, error) {
	if store == nil {
		return nil, errors.New("session store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &SessionPurgeJob{store: store, logg: logg, metrics: m}, nil
}

func (j *SessionPurgeJob) Name() string { return SessionPurgeJobName }

func (j *SessionPurgeJob) Run(ctx context.Context) error {
	removed, err := j.store.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	j.metrics.AddAffected(SessionPurgeJobName, removed)
	j.logg.Info(j.logg.WithField(ctx, "removed", removed), "cron.checkout_sessions_purged")
	return nil
}
