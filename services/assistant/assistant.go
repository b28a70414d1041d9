// Package assistant dispatches voice agent tool calls to the scanner, matcher,
// catalog and booking collaborators and renders every outcome as speech.
// It keeps no state between calls: each request carries all gathered fields.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"bookiovoice/datetime"
	"bookiovoice/metrics"
	"bookiovoice/models"
	"bookiovoice/services/availability"
	"bookiovoice/services/bookio"
	"bookiovoice/services/catalog"
	"bookiovoice/services/requests"
	"bookiovoice/services/voice"
	"bookiovoice/utils/textfold"
)

const (
	// DefaultScanReserve is kept back from the request deadline so there is
	// still time to render and write the answer after a scan gives up.
	DefaultScanReserve = 2 * time.Second
	// DefaultScanBudget applies when the request context has no deadline.
	DefaultScanBudget = 22 * time.Second
)

// Availability is the slot side of the assistant; *availability.Scanner implements it.
type Availability interface {
	FindSoonest(ctx context.Context, serviceID, workerID int, start time.Time, maxDays int) (models.SoonestResult, error)
	Overview(ctx context.Context, serviceID, workerID int, start time.Time, days int) ([]models.DayOverview, error)
	DaySlots(ctx context.Context, serviceID, workerID int, date time.Time) (models.DaySlots, error)
}

// Booker creates reservations; *bookio.Client implements it.
type Booker interface {
	CreateReservation(ctx context.Context, r models.Reservation) (models.ReservationResult, error)
}

// Deps are the collaborators an Assistant needs.
type Deps struct {
	Catalog  catalog.Catalog
	Slots    Availability
	Booker   Booker
	Requests requests.Queue
	Voice    voice.Composer
}

// Options tune dispatch.
type Options struct {
	// Locations maps a spoken branch name to the worker id serving it.
	Locations       map[string]int
	DefaultWorkerID int
	OpeningHours    []voice.DayHours
	OverviewDays    int
	Location        *time.Location
	ScanReserve     time.Duration
	ScanBudget      time.Duration
	Now             func() time.Time
}

type Assistant struct {
	Deps
	opts      Options
	locations map[string]int
	logger    *zap.Logger
}

func New(deps Deps, opts Options, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.ScanReserve <= 0 {
		opts.ScanReserve = DefaultScanReserve
	}
	if opts.ScanBudget <= 0 {
		opts.ScanBudget = DefaultScanBudget
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	locations := make(map[string]int, len(opts.Locations))
	for name, id := range opts.Locations {
		locations[textfold.Fold(name)] = id
	}
	return &Assistant{Deps: deps, opts: opts, locations: locations, logger: logger}
}

// Handle answers one tool call. The reply always carries a Response, including
// when a collaborator panics.
func (a *Assistant) Handle(ctx context.Context, req models.ToolRequest) (reply models.ToolReply) {
	intent := ParseIntent(req.ActionName())
	log := a.logger.With(zap.String("action", intent.String()))
	defer func() {
		if r := recover(); r != nil {
			log.Error("tool call panicked", zap.Any("panic", r))
			reply = models.ToolReply{Response: a.Voice.Apology()}
		}
		metrics.WebhookRequests.WithLabelValues(intent.String(), strconv.FormatBool(reply.Success)).Inc()
	}()

	var err error
	switch intent {
	case IntentGetAvailableTimes:
		reply, err = a.availableTimes(ctx, req)
	case IntentGetSoonestAvailable:
		reply, err = a.soonest(ctx, req)
	case IntentBookAppointment:
		reply, err = a.book(ctx, req, log)
	case IntentCancelAppointment:
		reply = models.ToolReply{Response: a.Voice.CancelInfo(), Success: true}
	case IntentSearchService:
		reply, err = a.searchService(ctx, req)
	case IntentGetServicesOverview:
		reply = a.servicesOverview(ctx)
	case IntentGetOpeningHours:
		reply = models.ToolReply{Response: a.Voice.OpeningHours(a.opts.OpeningHours), Success: true}
	case IntentRequestBooking:
		reply, err = a.requestBooking(ctx, req, log)
	case IntentUnknown:
		log.Info("unrecognized action", zap.String("raw", req.ActionName()))
		reply = models.ToolReply{
			Response: a.Voice.Unrecognized(),
			Data:     map[string]any{"action": req.ActionName()},
		}
	}
	if err != nil {
		reply = a.replyForError(err, log)
	}
	return reply
}

func (a *Assistant) replyForError(err error, log *zap.Logger) models.ToolReply {
	var (
		ve *ValidationError
		ue *UnknownServiceError
		se *availability.ScanError
	)
	switch {
	case errors.As(err, &ve):
		log.Info("validation failed", zap.String("field", ve.Field), zap.String("reason", ve.Reason))
		text := a.Voice.MissingField(ve.Field)
		switch ve.Reason {
		case ReasonInvalid:
			text = a.Voice.InvalidField(ve.Field)
		case ReasonPast:
			text = a.Voice.InvalidField(ReasonPast)
		}
		return models.ToolReply{Response: text, Data: map[string]any{ve.Reason: ve.Field}}
	case errors.As(err, &ue):
		return models.ToolReply{Response: a.Voice.UnknownService(ue.Name)}
	case errors.As(err, &se):
		log.Warn("availability scan failed", zap.Bool("permanent", se.Permanent), zap.Error(err))
		return models.ToolReply{Response: a.Voice.ProviderDown(se.Permanent)}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		log.Warn("tool call ran out of time", zap.Error(err))
		return models.ToolReply{Response: a.Voice.ProviderDown(false)}
	}
	var pe *bookio.ProviderError
	if errors.As(err, &pe) {
		log.Warn("provider call failed", zap.Error(err))
		return models.ToolReply{Response: a.Voice.ProviderDown(!pe.Temporary())}
	}
	log.Error("tool call failed", zap.Error(err))
	return models.ToolReply{Response: a.Voice.Apology()}
}

func (a *Assistant) today() time.Time {
	return datetime.Midnight(a.opts.Now().In(a.opts.Location))
}

// scanContext leaves ScanReserve of the caller's deadline for answering.
func (a *Assistant) scanContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := ctx.Deadline(); ok {
		return context.WithDeadline(ctx, dl.Add(-a.opts.ScanReserve))
	}
	return context.WithTimeout(ctx, a.opts.ScanBudget)
}

func (a *Assistant) resolveService(ctx context.Context, req models.ToolRequest) (models.Service, error) {
	if req.ServiceID > 0 {
		if svc, ok := a.Catalog.ServiceByID(ctx, req.ServiceID); ok {
			return svc, nil
		}
		// Catalog may be cold; the provider only needs the id.
		title := strings.TrimSpace(req.Service)
		if title == "" {
			title = "vybranú službu"
		}
		return models.Service{ID: req.ServiceID, Title: title}, nil
	}
	name := strings.TrimSpace(req.Service)
	if name == "" {
		return models.Service{}, missing("service")
	}
	found := a.Catalog.FindServices(ctx, name)
	if len(found) == 0 {
		return models.Service{}, &UnknownServiceError{Name: name}
	}
	return found[0], nil
}

func (a *Assistant) workerID(req models.ToolRequest) int {
	if req.WorkerID != nil {
		return *req.WorkerID
	}
	if loc := textfold.Fold(req.Location); loc != "" {
		if id, ok := a.locations[loc]; ok {
			return id
		}
		for name, id := range a.locations {
			if strings.Contains(loc, name) || strings.Contains(name, loc) {
				return id
			}
		}
	}
	return a.opts.DefaultWorkerID
}

// parseDay reads a requested day; required controls whether empty is an error.
func (a *Assistant) parseDay(s string, required bool) (time.Time, bool, error) {
	if strings.TrimSpace(s) == "" {
		if required {
			return time.Time{}, false, missing("date")
		}
		return time.Time{}, false, nil
	}
	today := a.today()
	d, err := datetime.ParseDate(s, today)
	if err != nil {
		return time.Time{}, false, invalid("date")
	}
	if d.Before(today) {
		return time.Time{}, false, &ValidationError{Field: "date", Reason: ReasonPast}
	}
	return d, true, nil
}

func slotIDs(slots []models.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.ID)
	}
	return out
}

func (a *Assistant) availableTimes(ctx context.Context, req models.ToolRequest) (models.ToolReply, error) {
	svc, err := a.resolveService(ctx, req)
	if err != nil {
		return models.ToolReply{}, err
	}
	date, hasDate, err := a.parseDay(req.Date, false)
	if err != nil {
		return models.ToolReply{}, err
	}
	worker := a.workerID(req)
	scanCtx, cancel := a.scanContext(ctx)
	defer cancel()

	if !hasDate {
		rows, err := a.Slots.Overview(scanCtx, svc.ID, worker, a.today(), a.opts.OverviewDays)
		if err != nil {
			return models.ToolReply{}, err
		}
		days := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			days = append(days, map[string]any{
				"date":  r.Date.Format(datetime.ISOLayout),
				"times": slotIDs(r.Slots),
			})
		}
		return models.ToolReply{
			Response: a.Voice.Overview(svc.Title, rows),
			Success:  true,
			Data:     map[string]any{"service": svc.Title, "days": days},
		}, nil
	}

	day, err := a.Slots.DaySlots(scanCtx, svc.ID, worker, date)
	if err != nil {
		return models.ToolReply{}, err
	}
	data := map[string]any{
		"service": svc.Title,
		"date":    date.Format(datetime.ISOLayout),
		"times":   slotIDs(day.All),
	}
	if strings.TrimSpace(req.Time) == "" {
		return models.ToolReply{Response: a.Voice.DayTimes(date, day), Success: true, Data: data}, nil
	}

	match, err := availability.CheckDesired(day, req.Time)
	if err != nil {
		return models.ToolReply{}, invalid("time")
	}
	alts := make([]string, 0, len(match.Alternatives))
	for _, r := range match.Alternatives {
		alts = append(alts, r.Slot.ID)
	}
	data["time"] = match.Requested
	data["available"] = match.Available
	data["alternatives"] = alts
	return models.ToolReply{Response: a.Voice.DesiredSlot(date, match), Success: true, Data: data}, nil
}

func (a *Assistant) soonest(ctx context.Context, req models.ToolRequest) (models.ToolReply, error) {
	svc, err := a.resolveService(ctx, req)
	if err != nil {
		return models.ToolReply{}, err
	}
	start, hasDate, err := a.parseDay(req.Date, false)
	if err != nil {
		return models.ToolReply{}, err
	}
	today := a.today()
	if !hasDate {
		start = today
	}
	scanCtx, cancel := a.scanContext(ctx)
	defer cancel()

	res, err := a.Slots.FindSoonest(scanCtx, svc.ID, a.workerID(req), start, 0)
	if err != nil {
		return models.ToolReply{}, err
	}
	// DaysFromNow is relative to the scan start; speech is relative to today.
	spoken := res
	if res.Found {
		spoken.DaysFromNow = datetime.DaysBetween(today, res.Date)
	}
	data := map[string]any{
		"service":      svc.Title,
		"found":        res.Found,
		"daysExamined": res.DaysExamined,
		"partial":      res.Partial,
	}
	if res.Found {
		data["date"] = res.Date.Format(datetime.ISOLayout)
		data["time"] = res.Slot.ID
		data["daysFromNow"] = spoken.DaysFromNow
		data["totalSlots"] = res.TotalSlots
		data["alternativeSlots"] = slotIDs(res.Alternatives)
	}
	return models.ToolReply{Response: a.Voice.Soonest(svc.Title, spoken), Success: true, Data: data}, nil
}

// normalizePhone keeps digits and a leading plus; fewer than 9 digits is invalid.
func normalizePhone(s string) (string, error) {
	var b strings.Builder
	digits := 0
	for i, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
			digits++
		case r == '+' && i == 0:
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '-', r == '/', r == '(', r == ')':
		default:
			return "", invalid("phone")
		}
	}
	if digits < 9 {
		return "", invalid("phone")
	}
	return b.String(), nil
}

func (a *Assistant) book(ctx context.Context, req models.ToolRequest, log *zap.Logger) (models.ToolReply, error) {
	svc, err := a.resolveService(ctx, req)
	if err != nil {
		return models.ToolReply{}, err
	}
	date, _, err := a.parseDay(req.Date, true)
	if err != nil {
		return models.ToolReply{}, err
	}
	if strings.TrimSpace(req.Time) == "" {
		return models.ToolReply{}, missing("time")
	}
	if _, err := datetime.NormalizeTime(req.Time); err != nil {
		return models.ToolReply{}, invalid("time")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.ToolReply{}, missing("name")
	}
	if strings.TrimSpace(req.Phone) == "" {
		return models.ToolReply{}, missing("phone")
	}
	phone, err := normalizePhone(req.Phone)
	if err != nil {
		return models.ToolReply{}, err
	}
	worker := a.workerID(req)

	scanCtx, cancel := a.scanContext(ctx)
	day, err := a.Slots.DaySlots(scanCtx, svc.ID, worker, date)
	cancel()
	if err != nil {
		return models.ToolReply{}, err
	}
	match, err := availability.CheckDesired(day, req.Time)
	if err != nil {
		return models.ToolReply{}, invalid("time")
	}
	if !match.Available {
		// Slot was taken since the caller last checked.
		reply := models.ToolReply{
			Response: a.Voice.DesiredSlot(date, match),
			Data: map[string]any{
				"available": false,
				"date":      date.Format(datetime.ISOLayout),
				"time":      match.Requested,
			},
		}
		return reply, nil
	}

	res, err := a.Booker.CreateReservation(ctx, models.Reservation{
		ServiceID: svc.ID,
		WorkerID:  worker,
		Date:      date,
		Time:      match.Requested,
		Name:      name,
		Phone:     phone,
		Email:     strings.TrimSpace(req.Email),
		Note:      strings.TrimSpace(req.Note),
	})
	if err != nil || !res.Success {
		log.Warn("reservation not created",
			zap.Int("serviceId", svc.ID),
			zap.String("date", date.Format(datetime.ISOLayout)),
			zap.String("time", match.Requested),
			zap.String("message", res.Message),
			zap.Error(err))
		return models.ToolReply{Response: a.Voice.BookingFailed()}, nil
	}
	log.Info("reservation created",
		zap.String("reservationId", res.ReservationID), zap.Int("serviceId", svc.ID))
	return models.ToolReply{
		Response: a.Voice.BookingConfirmed(name, svc.Title, date, match.Requested),
		Success:  true,
		Data: map[string]any{
			"reservationId": res.ReservationID,
			"service":       svc.Title,
			"date":          date.Format(datetime.ISOLayout),
			"time":          match.Requested,
		},
	}, nil
}

func (a *Assistant) searchService(ctx context.Context, req models.ToolRequest) (models.ToolReply, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		query = strings.TrimSpace(req.Service)
	}
	if query == "" {
		return models.ToolReply{}, missing("service")
	}
	found := a.Catalog.FindServices(ctx, query)
	list := make([]map[string]any, 0, len(found))
	for _, s := range found {
		list = append(list, map[string]any{
			"serviceId": s.ID,
			"title":     s.Title,
			"price":     s.Price,
			"duration":  s.DurationString,
		})
	}
	return models.ToolReply{
		Response: a.Voice.ServiceFound(found),
		Success:  len(found) > 0,
		Data:     map[string]any{"services": list},
	}, nil
}

func (a *Assistant) servicesOverview(ctx context.Context) models.ToolReply {
	cats := a.Catalog.Categories(ctx)
	titles := make([]string, 0, len(cats))
	for _, c := range cats {
		titles = append(titles, c.Title)
	}
	return models.ToolReply{
		Response: a.Voice.ServicesOverview(cats),
		Success:  len(cats) > 0,
		Data:     map[string]any{"categories": titles},
	}
}

func (a *Assistant) requestBooking(ctx context.Context, req models.ToolRequest, log *zap.Logger) (models.ToolReply, error) {
	service := strings.TrimSpace(req.Service)
	if service == "" && req.ServiceID > 0 {
		if svc, ok := a.Catalog.ServiceByID(ctx, req.ServiceID); ok {
			service = svc.Title
		} else {
			service = fmt.Sprintf("služba %d", req.ServiceID)
		}
	}
	if service == "" {
		return models.ToolReply{}, missing("service")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.ToolReply{}, missing("name")
	}
	if strings.TrimSpace(req.Phone) == "" {
		return models.ToolReply{}, missing("phone")
	}
	phone, err := normalizePhone(req.Phone)
	if err != nil {
		return models.ToolReply{}, err
	}
	date := strings.TrimSpace(req.Date)
	if d, ok, err := a.parseDay(date, false); err == nil && ok {
		date = d.Format(datetime.ISOLayout)
	}
	tm := strings.TrimSpace(req.Time)
	if n, err := datetime.NormalizeTime(tm); err == nil {
		tm = n
	}

	queued, err := a.Requests.Enqueue(ctx, models.BookingRequest{
		Service:  service,
		Location: strings.TrimSpace(req.Location),
		Date:     date,
		Time:     tm,
		Name:     name,
		Phone:    phone,
		Email:    strings.TrimSpace(req.Email),
		Note:     strings.TrimSpace(req.Note),
	})
	if err != nil {
		log.Error("booking request not queued", zap.Error(err))
		return models.ToolReply{Response: a.Voice.BookingFailed()}, nil
	}
	return models.ToolReply{
		Response: a.Voice.BookingRequested(name),
		Success:  true,
		Data:     map[string]any{"requestId": queued.ID},
	}, nil
}
