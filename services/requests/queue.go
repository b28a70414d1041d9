// Package requests hands staff call-back requests off the webhook path.
// The webhook enqueues; a background worker files each request in the inbox.
package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"bookiovoice/models"
	"bookiovoice/services/tasks"
	"bookiovoice/utils/textfold"
)

// Queue accepts a booking request for later handling by staff.
type Queue interface {
	Enqueue(ctx context.Context, req models.BookingRequest) (models.BookingRequest, error)
}

// RequestID is stable for one caller asking for one slot, so an agent that
// repeats the tool call maps onto the same task.
func RequestID(req models.BookingRequest) string {
	key := strings.Join([]string{
		digits(req.Phone),
		textfold.Fold(req.Service),
		strings.TrimSpace(req.Date),
		strings.TrimSpace(req.Time),
	}, "|")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("booking-request|"+key)).String()
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Stamp fills in the id and receive time if the caller left them empty.
func Stamp(req models.BookingRequest, now time.Time) models.BookingRequest {
	if req.ID == "" {
		req.ID = RequestID(req)
	}
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = now.UTC()
	}
	return req
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskQueue enqueues requests as asynq tasks.
type TaskQueue struct {
	client enqueuer
	logger *zap.Logger
	now    func() time.Time
}

func NewTaskQueue(client *asynq.Client, logger *zap.Logger) *TaskQueue {
	return newTaskQueue(client, logger)
}

func newTaskQueue(client enqueuer, logger *zap.Logger) *TaskQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskQueue{client: client, logger: logger, now: time.Now}
}

func (q *TaskQueue) Enqueue(ctx context.Context, req models.BookingRequest) (models.BookingRequest, error) {
	req = Stamp(req, q.now())
	task, opts, err := tasks.NewBookingRequestTask(req)
	if err != nil {
		return req, err
	}
	info, err := q.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		q.logger.Info("booking request already queued", zap.String("requestId", req.ID))
		return req, nil
	}
	if err != nil {
		return req, fmt.Errorf("enqueue booking request %s: %w", req.ID, err)
	}
	q.logger.Info("booking request enqueued",
		zap.String("requestId", req.ID),
		zap.String("queue", info.Queue),
		zap.String("service", req.Service))
	return req, nil
}

// LogQueue is used when Redis is not configured; requests only reach the log.
type LogQueue struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewLogQueue(logger *zap.Logger) *LogQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogQueue{logger: logger, now: time.Now}
}

func (q *LogQueue) Enqueue(_ context.Context, req models.BookingRequest) (models.BookingRequest, error) {
	req = Stamp(req, q.now())
	q.logger.Warn("booking request received without a queue",
		zap.String("requestId", req.ID),
		zap.String("service", req.Service),
		zap.String("date", req.Date),
		zap.String("time", req.Time),
		zap.String("name", req.Name),
		zap.String("phone", req.Phone))
	return req, nil
}
