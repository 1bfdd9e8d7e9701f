package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coachhub/backend/internal/models"
	"github.com/coachhub/backend/pkg/mailer"
	"github.com/coachhub/backend/pkg/queue"
)

// JobQueue is the subset of *queue.Queue the worker loop needs.
type JobQueue interface {
	Dequeue(ctx context.Context, keys ...string) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// AssetDeleter removes provider assets. *mux.Client implements it.
type AssetDeleter interface {
	DeleteAsset(ctx context.Context, assetID string) error
}

// EmailSender renders and delivers transactional email. *mailer.Mailer implements it.
type EmailSender interface {
	Send(ctx context.Context, emailType, recipient string, data map[string]string) (string, error)
}

// EmailLogStore records delivery attempts. *emaillogs.Repository implements it.
type EmailLogStore interface {
	Create(ctx context.Context, el *models.EmailLog) error
}

// errPermanent marks a job that must not be retried.
var errPermanent = errors.New("permanent failure")

// Processor executes queued asset cleanup and email jobs.
type Processor struct {
	queue   JobQueue
	assets  AssetDeleter
	mail    EmailSender
	logs    EmailLogStore
	logger  *zap.Logger
	backoff time.Duration
	now     func() time.Time
}

// NewProcessor creates a job processor. logs may be nil.
func NewProcessor(q JobQueue, assets AssetDeleter, mail EmailSender, logs EmailLogStore, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		queue:   q,
		assets:  assets,
		mail:    mail,
		logs:    logs,
		logger:  logger,
		backoff: queue.RetryBackoff,
		now:     time.Now,
	}
}

// Process executes one job. A nil error acknowledges it.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeAssetDelete:
		var payload queue.AssetDeletePayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("%w: unmarshal payload: %v", errPermanent, err)
		}
		return p.deleteAsset(ctx, payload)
	case queue.JobTypeEmail:
		var payload queue.EmailPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("%w: unmarshal payload: %v", errPermanent, err)
		}
		return p.sendEmail(ctx, payload)
	}
	return fmt.Errorf("%w: unknown job type: %s", errPermanent, job.Type)
}

func (p *Processor) deleteAsset(ctx context.Context, payload queue.AssetDeletePayload) error {
	if payload.AssetID == "" {
		return fmt.Errorf("%w: empty asset id", errPermanent)
	}
	if err := p.assets.DeleteAsset(ctx, payload.AssetID); err != nil {
		return fmt.Errorf("delete asset %s: %w", payload.AssetID, err)
	}
	p.logger.Info("provider asset deleted", zap.String("asset_id", payload.AssetID), zap.String("video_id", payload.VideoID.String()))
	return nil
}

func (p *Processor) sendEmail(ctx context.Context, payload queue.EmailPayload) error {
	subject, err := p.mail.Send(ctx, payload.EmailType, payload.RecipientEmail, payload.Data)

	el := &models.EmailLog{
		UserID:         payload.UserID,
		EmailType:      payload.EmailType,
		RecipientEmail: payload.RecipientEmail,
		Subject:        subject,
		Status:         models.EmailLogStatusSent,
	}
	if err != nil {
		el.Status = models.EmailLogStatusFailed
		el.ErrorMessage = err.Error()
	} else {
		sentAt := p.now()
		el.SentAt = &sentAt
	}
	if p.logs != nil {
		if logErr := p.logs.Create(ctx, el); logErr != nil {
			p.logger.Warn("email log write failed", zap.Error(logErr))
		}
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, mailer.ErrUnknownTemplate), errors.Is(err, mailer.ErrNotConfigured):
		return fmt.Errorf("%w: %v", errPermanent, err)
	}
	return err
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	p.logger.Info("worker started", zap.Strings("queues", []string{queue.QueueAssets, queue.QueueEmails}))
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		err = p.Process(ctx, job)
		if err == nil {
			continue
		}
		if errors.Is(err, errPermanent) {
			p.logger.Error("job dropped", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.Error(err))
			continue
		}
		p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
		if reErr := p.queue.Retry(ctx, job); reErr != nil {
			p.logger.Error("retry enqueue failed", zap.Error(reErr))
		}
		p.sleep(ctx)
	}
}

func (p *Processor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
