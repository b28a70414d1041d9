package assistant

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"bookiovoice/models"
	"bookiovoice/services/availability"
	"bookiovoice/services/bookio"
	"bookiovoice/services/voice"
)

var now = time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)

func day(offset int) string {
	return now.AddDate(0, 0, offset).Format("2006-01-02")
}

type fakeCatalog struct {
	services []models.Service
	cats     []models.Category
	panic    bool
}

func (f *fakeCatalog) Categories(context.Context) []models.Category {
	if f.panic {
		panic("catalog exploded")
	}
	return f.cats
}

func (f *fakeCatalog) Services(_ context.Context, id int) []models.Service {
	var out []models.Service
	for _, s := range f.services {
		if s.CategoryID == id {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeCatalog) AllServices(context.Context) []models.Service { return f.services }

func (f *fakeCatalog) ServiceByID(_ context.Context, id int) (models.Service, bool) {
	for _, s := range f.services {
		if s.ID == id {
			return s, true
		}
	}
	return models.Service{}, false
}

func (f *fakeCatalog) FindServices(_ context.Context, q string) []models.Service {
	var out []models.Service
	for _, s := range f.services {
		if strings.Contains(strings.ToLower(s.Title), strings.ToLower(q)) {
			out = append(out, s)
		}
	}
	return out
}

type fakeSlots struct {
	mu      sync.Mutex
	slots   map[string][]models.Slot
	failAll error
	workers []int
}

func (f *fakeSlots) FetchDaySlots(_ context.Context, _, workerID int, date time.Time) (models.DaySlots, error) {
	f.mu.Lock()
	f.workers = append(f.workers, workerID)
	f.mu.Unlock()
	if f.failAll != nil {
		return models.DaySlots{}, f.failAll
	}
	return models.DaySlots{Date: date, All: f.slots[date.Format("2006-01-02")]}, nil
}

type fakeBooker struct {
	calls []models.Reservation
	res   models.ReservationResult
	err   error
}

func (f *fakeBooker) CreateReservation(_ context.Context, r models.Reservation) (models.ReservationResult, error) {
	f.calls = append(f.calls, r)
	return f.res, f.err
}

type fakeQueue struct {
	got []models.BookingRequest
	err error
}

func (f *fakeQueue) Enqueue(_ context.Context, r models.BookingRequest) (models.BookingRequest, error) {
	if f.err != nil {
		return r, f.err
	}
	r.ID = "req-1"
	f.got = append(f.got, r)
	return r, nil
}

type fixture struct {
	a       *Assistant
	catalog *fakeCatalog
	slots   *fakeSlots
	booker  *fakeBooker
	queue   *fakeQueue
}

func newFixture() *fixture {
	f := &fixture{
		catalog: &fakeCatalog{
			services: []models.Service{
				{ID: 130113, CategoryID: 1, Title: "Pánsky strih", Price: "15 €", DurationString: "30 min"},
				{ID: 130114, CategoryID: 1, Title: "Dámsky strih"},
			},
			cats: []models.Category{{ID: 1, Title: "kaderníctvo"}},
		},
		slots:  &fakeSlots{slots: map[string][]models.Slot{}},
		booker: &fakeBooker{res: models.ReservationResult{Success: true, ReservationID: "R-77"}},
		queue:  &fakeQueue{},
	}
	f.a = New(Deps{
		Catalog:  f.catalog,
		Slots:    availability.NewScanner(f.slots, nil, 14),
		Booker:   f.booker,
		Requests: f.queue,
		Voice:    voice.Composer{SalonName: "Salón", Phone: "0900 000 000"},
	}, Options{
		Locations:       map[string]int{"Bratislava": 31576, "Košice": 31577},
		DefaultWorkerID: bookio.AnyWorker,
		OpeningHours:    []voice.DayHours{{Day: "pondelok", Hours: "9:00 až 17:00"}},
		Location:        time.UTC,
		Now:             func() time.Time { return now },
	}, nil)
	return f
}

func TestHandle_UnknownAction(t *testing.T) {
	f := newFixture()
	reply := f.a.Handle(context.Background(), models.ToolRequest{Action: "dance"})
	if reply.Success || reply.Response != f.a.Voice.Unrecognized() {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestHandle_ToolNameDiscriminator(t *testing.T) {
	f := newFixture()
	reply := f.a.Handle(context.Background(), models.ToolRequest{ToolName: "get_opening_hours"})
	if !reply.Success || !strings.Contains(reply.Response, "pondelok 9:00 až 17:00") {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestSoonest_FindsDayAndMapsLocation(t *testing.T) {
	f := newFixture()
	f.slots.slots[day(4)] = []models.Slot{{ID: "09:00"}, {ID: "10:30"}}

	reply := f.a.Handle(context.Background(), models.ToolRequest{
		Action:   "get_soonest_available",
		Service:  "pánsky",
		Location: "bratislava",
	})
	if !reply.Success {
		t.Fatalf("expected success, got %+v", reply)
	}
	if reply.Data["daysFromNow"] != 4 || reply.Data["time"] != "09:00" {
		t.Fatalf("unexpected data %+v", reply.Data)
	}
	if alts := reply.Data["alternativeSlots"].([]string); len(alts) != 1 || alts[0] != "10:30" {
		t.Fatalf("unexpected alternatives %v", alts)
	}
	if !strings.Contains(reply.Response, "o 4 dni") {
		t.Fatalf("unexpected response %q", reply.Response)
	}
	for _, w := range f.slots.workers {
		if w != 31576 {
			t.Fatalf("expected Bratislava worker, got %d", w)
		}
	}
}

func TestSoonest_FromLaterStartSpeaksRelativeToToday(t *testing.T) {
	f := newFixture()
	f.slots.slots[day(3)] = []models.Slot{{ID: "12:00"}}
	reply := f.a.Handle(context.Background(), models.ToolRequest{
		Action:    "get_soonest_available",
		ServiceID: 130113,
		Date:      day(2),
	})
	if reply.Data["daysFromNow"] != 3 {
		t.Fatalf("expected offset from today, got %+v", reply.Data)
	}
}

func TestSoonest_NoAvailabilityIsSuccess(t *testing.T) {
	f := newFixture()
	reply := f.a.Handle(context.Background(), models.ToolRequest{Action: "get_soonest_available", ServiceID: 130113})
	if !reply.Success || reply.Data["found"] != false {
		t.Fatalf("expected successful not-found reply, got %+v", reply)
	}
	if !strings.Contains(reply.Response, "v najbližších 14 dňoch") {
		t.Fatalf("unexpected response %q", reply.Response)
	}
	if len(f.slots.workers) != 14 || f.slots.workers[0] != bookio.AnyWorker {
		t.Fatalf("expected 14 calls for any worker, got %v", f.slots.workers)
	}
}

func TestSoonest_TotalFailure(t *testing.T) {
	f := newFixture()
	f.slots.failAll = &bookio.ProviderError{Endpoint: "/allowedTimes", Status: http.StatusBadRequest}
	reply := f.a.Handle(context.Background(), models.ToolRequest{Action: "get_soonest_available", ServiceID: 999})
	if reply.Success || reply.Response != f.a.Voice.ProviderDown(true) {
		t.Fatalf("expected permanent failure reply, got %+v", reply)
	}
}

func TestAvailableTimes_Validation(t *testing.T) {
	f := newFixture()
	cases := []struct {
		name string
		req  models.ToolRequest
		want string
	}{
		{"no service", models.ToolRequest{Action: "get_available_times"}, f.a.Voice.MissingField("service")},
		{"unknown service", models.ToolRequest{Action: "get_available_times", Service: "tetovanie"}, f.a.Voice.UnknownService("tetovanie")},
		{"bad date", models.ToolRequest{Action: "get_available_times", ServiceID: 130113, Date: "raz"}, f.a.Voice.InvalidField("date")},
		{"past date", models.ToolRequest{Action: "get_available_times", ServiceID: 130113, Date: day(-1)}, f.a.Voice.InvalidField("past")},
		{"bad time", models.ToolRequest{Action: "get_available_times", ServiceID: 130113, Date: day(1), Time: "poobede"}, f.a.Voice.InvalidField("time")},
	}
	for _, tc := range cases {
		reply := f.a.Handle(context.Background(), tc.req)
		if reply.Success || reply.Response != tc.want {
			t.Errorf("%s: got %+v", tc.name, reply)
		}
	}
}

func TestAvailableTimes_DesiredTime(t *testing.T) {
	f := newFixture()
	f.slots.slots[day(1)] = []models.Slot{{ID: "09:00"}, {ID: "11:00"}, {ID: "14:00"}}

	reply := f.a.Handle(context.Background(), models.ToolRequest{
		Action: "get_available_times", ServiceID: 130113, Date: "zajtra", Time: "10:00",
	})
	if !reply.Success || reply.Data["available"] != false {
		t.Fatalf("unexpected reply %+v", reply)
	}
	alts := reply.Data["alternatives"].([]string)
	if len(alts) != 3 || alts[2] != "14:00" {
		t.Fatalf("unexpected alternatives %v", alts)
	}

	reply = f.a.Handle(context.Background(), models.ToolRequest{
		Action: "get_available_times", ServiceID: 130113, Date: "zajtra", Time: "11",
	})
	if reply.Data["available"] != true || reply.Data["time"] != "11:00" {
		t.Fatalf("expected exact match, got %+v", reply.Data)
	}
}

func TestAvailableTimes_WholeDayAndOverview(t *testing.T) {
	f := newFixture()
	f.slots.slots[day(0)] = []models.Slot{{ID: "15:00"}}
	f.slots.slots[day(2)] = []models.Slot{{ID: "09:00"}, {ID: "09:30"}}

	reply := f.a.Handle(context.Background(), models.ToolRequest{Action: "get_available_times", ServiceID: 130113, Date: day(2)})
	if times := reply.Data["times"].([]string); len(times) != 2 || !reply.Success {
		t.Fatalf("unexpected day reply %+v", reply)
	}

	reply = f.a.Handle(context.Background(), models.ToolRequest{Action: "get_available_times", ServiceID: 130113})
	days := reply.Data["days"].([]map[string]any)
	if len(days) != 3 || days[0]["date"] != day(0) || days[2]["date"] != day(2) {
		t.Fatalf("unexpected overview %+v", days)
	}
	if !strings.HasPrefix(reply.Response, "Na Pánsky strih máme dnes 1 voľný termín") {
		t.Fatalf("unexpected overview text %q", reply.Response)
	}
}

func TestBook_Success(t *testing.T) {
	f := newFixture()
	f.slots.slots[day(1)] = []models.Slot{{ID: "09:00"}, {ID: "10:30"}}
	reply := f.a.Handle(context.Background(), models.ToolRequest{
		Action: "book_appointment", ServiceID: 130113, Date: "zajtra", Time: "10.30",
		Name: "Ján Novák", Phone: "+421 900 111 222",
	})
	if !reply.Success || reply.Data["reservationId"] != "R-77" {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if len(f.booker.calls) != 1 {
		t.Fatalf("expected one reservation, got %d", len(f.booker.calls))
	}
	got := f.booker.calls[0]
	if got.Time != "10:30" || got.Phone != "+421900111222" || got.WorkerID != bookio.AnyWorker || got.Date.Format("2006-01-02") != day(1) {
		t.Fatalf("unexpected reservation %+v", got)
	}
}

func TestBook_SlotGoneOffersAlternatives(t *testing.T) {
	f := newFixture()
	f.slots.slots[day(1)] = []models.Slot{{ID: "09:00"}}
	reply := f.a.Handle(context.Background(), models.ToolRequest{
		Action: "book_appointment", ServiceID: 130113, Date: "zajtra", Time: "10:00",
		Name: "Ján", Phone: "0900111222",
	})
	if reply.Success || len(f.booker.calls) != 0 {
		t.Fatalf("expected no reservation, got %+v (%d calls)", reply, len(f.booker.calls))
	}
	if !strings.Contains(reply.Response, "9:00") {
		t.Fatalf("expected alternative in response, got %q", reply.Response)
	}
}

func TestBook_ValidationOrder(t *testing.T) {
	f := newFixture()
	base := models.ToolRequest{Action: "book_appointment", ServiceID: 130113}
	steps := []struct {
		fill  func(*models.ToolRequest)
		field string
	}{
		{func(r *models.ToolRequest) {}, "date"},
		{func(r *models.ToolRequest) { r.Date = "zajtra" }, "time"},
		{func(r *models.ToolRequest) { r.Time = "9:00" }, "name"},
		{func(r *models.ToolRequest) { r.Name = "Eva" }, "phone"},
	}
	req := base
	for _, s := range steps {
		s.fill(&req)
		reply := f.a.Handle(context.Background(), req)
		if reply.Data["missing"] != s.field {
			t.Fatalf("expected missing %s, got %+v", s.field, reply)
		}
	}
	req.Phone = "12"
	if reply := f.a.Handle(context.Background(), req); reply.Data["invalid"] != "phone" {
		t.Fatalf("expected invalid phone, got %+v", reply)
	}
}

func TestBook_ProviderRefuses(t *testing.T) {
	f := newFixture()
	f.slots.slots[day(1)] = []models.Slot{{ID: "09:00"}}
	f.booker.err = errors.New("boom")
	reply := f.a.Handle(context.Background(), models.ToolRequest{
		Action: "book_appointment", ServiceID: 130113, Date: "zajtra", Time: "9:00", Name: "Eva", Phone: "0900111222",
	})
	if reply.Success || reply.Response != f.a.Voice.BookingFailed() {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestSearchAndOverview(t *testing.T) {
	f := newFixture()
	reply := f.a.Handle(context.Background(), models.ToolRequest{Action: "search_service", Query: "strih"})
	if !reply.Success || len(reply.Data["services"].([]map[string]any)) != 2 {
		t.Fatalf("unexpected search reply %+v", reply)
	}
	reply = f.a.Handle(context.Background(), models.ToolRequest{Action: "search_service", Query: "masáž"})
	if reply.Success {
		t.Fatalf("expected unsuccessful empty search")
	}
	reply = f.a.Handle(context.Background(), models.ToolRequest{Action: "get_services_overview"})
	if !reply.Success || !strings.Contains(reply.Response, "kaderníctvo") {
		t.Fatalf("unexpected overview %+v", reply)
	}
}

func TestRequestBooking(t *testing.T) {
	f := newFixture()
	reply := f.a.Handle(context.Background(), models.ToolRequest{
		Action: "request_booking", Service: "farbenie", Date: "zajtra", Time: "9", Name: "Eva", Phone: "0900 111 222",
	})
	if !reply.Success || reply.Data["requestId"] != "req-1" {
		t.Fatalf("unexpected reply %+v", reply)
	}
	got := f.queue.got[0]
	if got.Date != day(1) || got.Time != "09:00" || got.Phone != "0900111222" {
		t.Fatalf("unexpected queued request %+v", got)
	}

	f.queue.err = errors.New("redis down")
	reply = f.a.Handle(context.Background(), models.ToolRequest{Action: "request_booking", Service: "farbenie", Name: "Eva", Phone: "0900111222"})
	if reply.Success || reply.Response == "" {
		t.Fatalf("expected failure reply with text, got %+v", reply)
	}
}

func TestCancelAndPanic(t *testing.T) {
	f := newFixture()
	if reply := f.a.Handle(context.Background(), models.ToolRequest{Action: "cancel_appointment"}); !reply.Success || reply.Response != f.a.Voice.CancelInfo() {
		t.Fatalf("unexpected cancel reply %+v", reply)
	}
	f.catalog.panic = true
	reply := f.a.Handle(context.Background(), models.ToolRequest{Action: "get_services_overview"})
	if reply.Success || reply.Response != f.a.Voice.Apology() {
		t.Fatalf("expected apology after panic, got %+v", reply)
	}
}

func TestScanContextKeepsReserve(t *testing.T) {
	f := newFixture()
	dl := time.Now().Add(25 * time.Second)
	ctx, cancel := context.WithDeadline(context.Background(), dl)
	defer cancel()
	scanCtx, scanCancel := f.a.scanContext(ctx)
	defer scanCancel()
	got, ok := scanCtx.Deadline()
	if !ok || !got.Equal(dl.Add(-DefaultScanReserve)) {
		t.Fatalf("expected deadline %s, got %s", dl.Add(-DefaultScanReserve), got)
	}
}
