// Package tasks defines the background task types shared by the webhook
// process (producer) and the booking request worker (consumer).
package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"bookiovoice/models"
)

const TypeBookingRequest = "booking:request"

// BookingRequestQueue is the asynq queue staff call-back requests go to.
const BookingRequestQueue = "booking"

func NewBookingRequestTask(req models.BookingRequest) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, nil, fmt.Errorf("encode booking request: %w", err)
	}
	task := asynq.NewTask(TypeBookingRequest, b)
	opts := []asynq.Option{
		asynq.Queue(BookingRequestQueue),
		asynq.MaxRetry(5),
		asynq.TaskID(req.ID),
		asynq.Retention(24 * time.Hour),
	}
	return task, opts, nil
}

// DecodeBookingRequest reads the payload written by NewBookingRequestTask.
func DecodeBookingRequest(t *asynq.Task) (models.BookingRequest, error) {
	var req models.BookingRequest
	if err := json.Unmarshal(t.Payload(), &req); err != nil {
		return req, fmt.Errorf("decode booking request: %w", err)
	}
	return req, nil
}
