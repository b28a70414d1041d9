package requests

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"bookiovoice/models"
)

const (
	InboxKey = "booking:requests"
	// inboxCap bounds the list; staff tooling reads the newest entries.
	inboxCap = 1000
)

// Inbox is where the worker files processed requests for staff.
type Inbox interface {
	Add(ctx context.Context, req models.BookingRequest) error
	Recent(ctx context.Context, n int) ([]models.BookingRequest, error)
}

// RedisInbox keeps requests as JSON in a capped Redis list, newest last.
type RedisInbox struct {
	client *redis.Client
}

func NewRedisInbox(client *redis.Client) *RedisInbox {
	return &RedisInbox{client: client}
}

func (i *RedisInbox) Add(ctx context.Context, req models.BookingRequest) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	pipe := i.client.TxPipeline()
	pipe.RPush(ctx, InboxKey, b)
	pipe.LTrim(ctx, InboxKey, -inboxCap, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("file booking request %s: %w", req.ID, err)
	}
	return nil
}

func (i *RedisInbox) Recent(ctx context.Context, n int) ([]models.BookingRequest, error) {
	if n <= 0 {
		n = 20
	}
	raw, err := i.client.LRange(ctx, InboxKey, int64(-n), -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.BookingRequest, 0, len(raw))
	for _, r := range raw {
		var req models.BookingRequest
		if err := json.Unmarshal([]byte(r), &req); err != nil {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}
