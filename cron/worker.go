// Package cron runs the background jobs: the booking request worker and the
// scheduled catalog refresh.
package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"bookiovoice/config"
	"bookiovoice/services/requests"
	"bookiovoice/services/tasks"
)

// Worker wraps the asynq server so main can stop it on shutdown.
type Worker struct {
	srv    *asynq.Server
	logger *zap.Logger
}

// RedisOpt builds the asynq connection from the shared Redis settings.
func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}
}

// StartBookingRequestWorker runs the worker in the background, retrying startup
// with a growing pause if Redis is not reachable yet.
func StartBookingRequestWorker(cfg *config.Config, inbox requests.Inbox, logger *zap.Logger) *Worker {
	srv := asynq.NewServer(RedisOpt(cfg), asynq.Config{
		Concurrency: 2,
		Queues:      map[string]int{tasks.BookingRequestQueue: 1},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeBookingRequest, HandleBookingRequest(inbox, logger))

	w := &Worker{srv: srv, logger: logger}
	go func() {
		const maxAttempts = 5
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			err := srv.Run(mux)
			if err == nil {
				return
			}
			logger.Warn("booking request worker failed to start",
				zap.Int("attempt", attempt), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			if attempt == maxAttempts {
				logger.Error("booking request worker gave up; requests stay queued in redis")
				return
			}
			time.Sleep(time.Duration(attempt*2) * time.Second)
		}
	}()
	logger.Info("booking request worker started", zap.String("queue", tasks.BookingRequestQueue))
	return w
}

func (w *Worker) Shutdown() {
	if w == nil {
		return
	}
	w.srv.Shutdown()
	w.logger.Info("booking request worker stopped")
}

// HandleBookingRequest files each request in the staff inbox. A bad payload is
// dropped with SkipRetry; inbox errors are returned so asynq retries.
func HandleBookingRequest(inbox requests.Inbox, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		req, err := tasks.DecodeBookingRequest(task)
		if err != nil {
			logger.Error("invalid booking request payload", zap.Error(err))
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		if err := inbox.Add(ctx, req); err != nil {
			logger.Warn("could not file booking request", zap.String("requestId", req.ID), zap.Error(err))
			return err
		}
		logger.Info("booking request filed for staff",
			zap.String("requestId", req.ID),
			zap.String("service", req.Service),
			zap.String("date", req.Date),
			zap.String("time", req.Time))
		return nil
	}
}
