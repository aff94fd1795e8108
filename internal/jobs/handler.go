package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shaiso/futurejob/internal/domain"
	"github.com/shaiso/futurejob/internal/mq"
)

// FromSubmitPayload строит Job из сообщения jobs.submit.
// Время выполнения считается через ResolveDueAt.
func FromSubmitPayload(p mq.JobSubmitPayload, now time.Time) (*domain.Job, error) {
	dueAt, err := ResolveDueAt(p.DueAt, p.DelaySec, now)
	if err != nil {
		return nil, err
	}

	return &domain.Job{
		Name:        p.Name,
		Kind:        p.Kind,
		Config:      p.Config,
		CronExpr:    p.CronExpr,
		IntervalSec: p.IntervalSec,
		Timezone:    p.Timezone,
		Retry:       p.Retry,
		DueAt:       dueAt,
	}, nil
}

// HandleSubmit — обработчик очереди jobs.submit.
// Некорректные jobs отклоняются в DLQ без повторов.
func (s *Service) HandleSubmit(ctx context.Context, d *mq.Delivery) error {
	if d.Message.Type != mq.MessageTypeJobSubmit {
		return fmt.Errorf("%w: unexpected message type %q", mq.ErrPermanent, d.Message.Type)
	}

	payload, err := mq.ParsePayload[mq.JobSubmitPayload](&d.Message)
	if err != nil {
		return fmt.Errorf("%w: %v", mq.ErrPermanent, err)
	}

	job, err := FromSubmitPayload(payload, time.Now())
	if err != nil {
		return fmt.Errorf("%w: %v", mq.ErrPermanent, err)
	}

	job, err = s.Submit(ctx, job)
	if err != nil {
		if errors.Is(err, ErrInvalidJob) {
			return fmt.Errorf("%w: %v", mq.ErrPermanent, err)
		}
		return err
	}

	s.logger.Debug("job submitted from queue",
		"job_id", job.ID,
		"message_id", d.Message.ID,
	)
	return nil
}
