// Package bookio is a thin client for the Bookio booking widget API: allowed
// times per day, the service catalog and the create-reservation passthrough.
package bookio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"bookiovoice/datetime"
	"bookiovoice/metrics"
	"bookiovoice/models"
)

const (
	endpointAllowedTimes = "/allowedTimes"
	endpointCategories   = "/categories"
	endpointServices     = "/services"
	endpointReservation  = "/createReservation"
)

// AnyWorker asks the provider for slots of any worker.
const AnyWorker = -1

// Options configures a Client.
type Options struct {
	BaseURL    string
	Facility   string
	Lang       string
	Timeout    time.Duration
	RatePerSec float64 // outbound pacing; <= 0 disables
	Burst      int
}

// Client talks to the widget API. It never caches and never retries.
type Client struct {
	hc      *http.Client
	opts    Options
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient builds a Client. A nil logger is replaced with a no-op one.
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.Lang == "" {
		opts.Lang = "sk"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSec > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}
	return &Client{
		hc:      &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		limiter: limiter,
		logger:  logger,
	}
}

type allowedTimesRequest struct {
	ServiceID         int    `json:"serviceId"`
	WorkerID          int    `json:"workerId"`
	Date              string `json:"date"`
	Count             int    `json:"count"`
	ParticipantsCount int    `json:"participantsCount"`
	Addons            []int  `json:"addons"`
	Lang              string `json:"lang"`
}

type allowedTimesResponse struct {
	Data struct {
		Times struct {
			All      []models.Slot `json:"all"`
			Mornings struct {
				Data []models.Slot `json:"data"`
			} `json:"mornings"`
			Afternoon struct {
				Data []models.Slot `json:"data"`
			} `json:"afternoon"`
		} `json:"times"`
	} `json:"data"`
}

// FetchDaySlots returns the provider's slot list for one (service, worker, date).
// workerID is forwarded as-is; AnyWorker means "any worker".
func (c *Client) FetchDaySlots(ctx context.Context, serviceID, workerID int, date time.Time) (models.DaySlots, error) {
	req := allowedTimesRequest{
		ServiceID:         serviceID,
		WorkerID:          workerID,
		Date:              datetime.ProviderDate(date),
		Count:             1,
		ParticipantsCount: 0,
		Addons:            []int{},
		Lang:              c.opts.Lang,
	}
	var resp allowedTimesResponse
	if err := c.post(ctx, endpointAllowedTimes, req, &resp); err != nil {
		return models.DaySlots{}, err
	}
	times := resp.Data.Times
	return models.DaySlots{
		Date:      datetime.Midnight(date),
		All:       times.All,
		Mornings:  times.Mornings.Data,
		Afternoon: times.Afternoon.Data,
	}, nil
}

type categoryDTO struct {
	CategoryID         int    `json:"categoryId"`
	Title              string `json:"title"`
	SelectServiceTitle string `json:"selectServiceTitle"`
}

// FetchCategories lists the facility's service categories.
func (c *Client) FetchCategories(ctx context.Context) ([]models.Category, error) {
	body := map[string]any{"facility": c.opts.Facility, "lang": c.opts.Lang}
	var raw json.RawMessage
	if err := c.post(ctx, endpointCategories, body, &raw); err != nil {
		return nil, err
	}
	var dtos []categoryDTO
	if err := decodeList(raw, &dtos); err != nil {
		return nil, &ProviderError{Endpoint: endpointCategories, Message: "unexpected payload", Err: err}
	}
	out := make([]models.Category, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, models.Category{ID: d.CategoryID, Title: d.Title, SelectServiceTitle: d.SelectServiceTitle})
	}
	return out, nil
}

type serviceDTO struct {
	ServiceID      int     `json:"serviceId"`
	Title          string  `json:"title"`
	Price          string  `json:"price"`
	PriceNumber    float64 `json:"priceNumber"`
	DurationString string  `json:"durationString"`
	Duration       int     `json:"duration"`
	Description    string  `json:"description"`
}

// FetchServices lists the services of one category.
func (c *Client) FetchServices(ctx context.Context, categoryID int) ([]models.Service, error) {
	body := map[string]any{"facility": c.opts.Facility, "categoryId": categoryID, "lang": c.opts.Lang}
	var raw json.RawMessage
	if err := c.post(ctx, endpointServices, body, &raw); err != nil {
		return nil, err
	}
	var dtos []serviceDTO
	if err := decodeList(raw, &dtos); err != nil {
		return nil, &ProviderError{Endpoint: endpointServices, Message: "unexpected payload", Err: err}
	}
	out := make([]models.Service, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, models.Service{
			ID:             d.ServiceID,
			CategoryID:     categoryID,
			Title:          strings.TrimSpace(d.Title),
			Price:          d.Price,
			PriceNumber:    d.PriceNumber,
			DurationString: d.DurationString,
			Duration:       d.Duration,
			Description:    strings.TrimSpace(d.Description),
		})
	}
	return out, nil
}

type reservationRequest struct {
	Facility          string `json:"facility"`
	ServiceID         int    `json:"serviceId"`
	WorkerID          int    `json:"workerId"`
	Date              string `json:"date"`
	Count             int    `json:"count"`
	ParticipantsCount int    `json:"participantsCount"`
	Addons            []int  `json:"addons"`
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	Note              string `json:"note"`
	Lang              string `json:"lang"`
}

type reservationResponse struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Data    struct {
		ID            json.RawMessage `json:"id"`
		ReservationID json.RawMessage `json:"reservationId"`
	} `json:"data"`
}

// CreateReservation forwards a booking once. No retry, no idempotency key.
func (c *Client) CreateReservation(ctx context.Context, r models.Reservation) (models.ReservationResult, error) {
	minutes, err := datetime.ParseTimeOfDay(r.Time)
	if err != nil {
		return models.ReservationResult{}, err
	}
	at := datetime.Midnight(r.Date).Add(time.Duration(minutes) * time.Minute)
	req := reservationRequest{
		Facility:  c.opts.Facility,
		ServiceID: r.ServiceID,
		WorkerID:  r.WorkerID,
		Date:      at.Format(datetime.ProviderLayout),
		Count:     1,
		Addons:    []int{},
		Name:      r.Name,
		Phone:     r.Phone,
		Email:     r.Email,
		Note:      r.Note,
		Lang:      c.opts.Lang,
	}
	var resp reservationResponse
	if err := c.post(ctx, endpointReservation, req, &resp); err != nil {
		return models.ReservationResult{}, err
	}
	res := models.ReservationResult{Success: true, Message: resp.Message}
	if resp.Success != nil {
		res.Success = *resp.Success
	}
	res.ReservationID = rawID(resp.Data.ReservationID)
	if res.ReservationID == "" {
		res.ReservationID = rawID(resp.Data.ID)
	}
	return res, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	start := time.Now()
	err := c.doPost(ctx, endpoint, body, out)
	metrics.ProviderLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderCalls.WithLabelValues(endpoint, "error").Inc()
		c.logger.Warn("bookio call failed", zap.String("endpoint", endpoint), zap.Error(err))
		return err
	}
	metrics.ProviderCalls.WithLabelValues(endpoint, "ok").Inc()
	return nil
}

func (c *Client) doPost(ctx context.Context, endpoint string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &ProviderError{Endpoint: endpoint, Message: "rate limiter", Err: err}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", endpoint, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.opts.BaseURL, "/")+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return &ProviderError{Endpoint: endpoint, Message: "transport", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &ProviderError{Endpoint: endpoint, Status: resp.StatusCode, Message: "read body", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderError{Endpoint: endpoint, Status: resp.StatusCode, Message: upstreamMessage(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ProviderError{Endpoint: endpoint, Status: resp.StatusCode, Message: "decode body", Err: err}
	}
	return nil
}

// decodeList accepts either a bare JSON array or an object wrapping it in "data".
func decodeList(raw json.RawMessage, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return err
		}
		trimmed = bytes.TrimSpace(wrapped.Data)
	}
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	return json.Unmarshal(trimmed, out)
}

// rawID renders a JSON id that may arrive as a number or a string.
func rawID(raw json.RawMessage) string {
	v := strings.TrimSpace(string(raw))
	if v == "null" {
		return ""
	}
	return strings.Trim(v, `"`)
}

func upstreamMessage(body []byte) string {
	var r struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &r) == nil {
		if r.Message != "" {
			return r.Message
		}
		if r.Error != "" {
			return r.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
