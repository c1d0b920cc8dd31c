package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/parkaro/internal/domain/locations"
	"github.com/Spok95/parkaro/internal/domain/pricing"
	"github.com/Spok95/parkaro/internal/domain/vehicles"
	"github.com/Spok95/parkaro/internal/infra/payments"
	"github.com/Spok95/parkaro/internal/lifecycle"
	"github.com/Spok95/parkaro/internal/storage/memory"
	"github.com/Spok95/parkaro/internal/ticket"
)

func init() { gin.SetMode(gin.TestMode) }

var now = time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)

type env struct {
	store   *memory.Store
	router  *gin.Engine
	loc     locations.Location
	slot    locations.Slot
	vehicle vehicles.Vehicle
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s := memory.New()
	e := &env{store: s}
	e.loc = s.AddLocation(locations.Location{Name: "Central", TotalSlots: 1, HourlyRate: decimal.NewFromInt(100), DailyRate: decimal.NewFromInt(600), Active: true})
	e.slot = s.AddSlot(locations.Slot{LocationID: e.loc.ID, Code: "A-01", VehicleTypeAllowed: locations.Class4W})
	e.vehicle = s.AddVehicle(vehicles.Vehicle{OwnerID: 1, Number: "KA01AB1234", Type: locations.Class4W, IsDefault: true})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := lifecycle.New(s, pricing.NewEngine(time.UTC), payments.NewStub(), log)
	e.router = NewRouter(mgr, log, true, func() time.Time { return now })
	return e
}

func (e *env) do(t *testing.T, method, path string, user string, staff bool, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	if staff {
		req.Header.Set("X-Staff", "true")
		req.Header.Set("X-Employee-ID", "7")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) book(t *testing.T, from, to time.Time) bookingDTO {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/bookings", "1", false, gin.H{
		"location_id": e.loc.ID, "slot_id": e.slot.ID, "vehicle_id": e.vehicle.ID,
		"entry": from, "exit": to,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var b bookingDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	return b
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodGet, "/health", "", false, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestMetricsExposed(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodGet, "/health", "", false, nil)
	w := e.do(t, http.MethodGet, "/metrics", "", false, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "parkaro_http_requests_total")
}

func TestCreateAndGet(t *testing.T) {
	e := newEnv(t)
	b := e.book(t, now.Add(time.Hour), now.Add(3*time.Hour))

	assert.Equal(t, "CONFIRMED", b.Status)
	assert.Equal(t, "200.00", b.AmountExpected)
	assert.Equal(t, "200.00", b.AmountPaid)
	assert.Equal(t, ticket.Code(b.ID), b.TicketCode)

	w := e.do(t, http.MethodGet, "/api/bookings/"+strconv.FormatInt(b.ID, 10), "1", false, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["payments"], 1)
}

func TestErrorMapping(t *testing.T) {
	e := newEnv(t)
	b := e.book(t, now.Add(time.Hour), now.Add(3*time.Hour))
	id := strconv.FormatInt(b.ID, 10)

	t.Run("missing principal", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/bookings/"+id, "", false, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
	t.Run("foreign booking", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/bookings/"+id, "2", false, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "forbidden", decode(t, w)["kind"])
	})
	t.Run("unknown booking", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/bookings/999", "1", false, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
	t.Run("bad id", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/bookings/abc", "1", false, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("overlap", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/bookings", "1", false, gin.H{
			"location_id": e.loc.ID, "slot_id": e.slot.ID, "vehicle_id": e.vehicle.ID,
			"entry": now.Add(2 * time.Hour), "exit": now.Add(4 * time.Hour),
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
	t.Run("inverted window", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/bookings", "1", false, gin.H{
			"location_id": e.loc.ID, "slot_id": e.slot.ID, "vehicle_id": e.vehicle.ID,
			"entry": now.Add(6 * time.Hour), "exit": now.Add(5 * time.Hour),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("malformed body", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/bookings", "1", false, gin.H{"slot_id": "x"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("no-show needs staff", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/bookings/"+id+"/no-show", "1", false, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestCancelFlow(t *testing.T) {
	e := newEnv(t)
	b := e.book(t, now.Add(time.Hour), now.Add(3*time.Hour))
	id := strconv.FormatInt(b.ID, 10)

	w := e.do(t, http.MethodGet, "/api/bookings/"+id+"/cancel", "1", false, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0.00", decode(t, w)["refundable"])

	w = e.do(t, http.MethodPost, "/api/bookings/"+id+"/cancel", "1", false, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/api/bookings/"+id+"/cancel", "1", false, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestScanEntryThenExit(t *testing.T) {
	e := newEnv(t)
	b := e.book(t, now.Add(time.Hour), now.Add(3*time.Hour))

	w := e.do(t, http.MethodPost, "/api/staff/scan", "100", true, gin.H{"code": b.TicketCode})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, string(lifecycle.ActionEntry), decode(t, w)["action"])

	w = e.do(t, http.MethodPost, "/api/staff/scan", "100", true, gin.H{"code": b.TicketCode})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, string(lifecycle.ActionExit), body["action"])
	assert.Equal(t, "COMPLETED", body["booking"].(map[string]any)["status"])

	w = e.do(t, http.MethodPost, "/api/staff/scan", "1", false, gin.H{"code": b.TicketCode})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLiveSlots(t *testing.T) {
	e := newEnv(t)
	e.book(t, now.Add(-time.Hour), now.Add(time.Hour))

	w := e.do(t, http.MethodGet, "/api/locations/"+strconv.FormatInt(e.loc.ID, 10)+"/slots", "", false, nil)
	require.Equal(t, http.StatusOK, w.Code)
	slots := decode(t, w)["slots"].([]any)
	require.Len(t, slots, 1)
	assert.Equal(t, "BOOKED", slots[0].(map[string]any)["status"])
}

func TestStaffSlotControls(t *testing.T) {
	e := newEnv(t)
	slot := "/api/staff/slots/" + strconv.FormatInt(e.slot.ID, 10)

	w := e.do(t, http.MethodPut, slot+"/status", "1", false, gin.H{"status": "TEMP_BLOCKED"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPut, slot+"/status", "100", true, gin.H{"status": "BOOKED"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPut, slot+"/status", "100", true, gin.H{"status": "TEMP_BLOCKED"})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/api/bookings", "1", false, gin.H{
		"location_id": e.loc.ID, "slot_id": e.slot.ID, "vehicle_id": e.vehicle.ID,
		"entry": now.Add(time.Hour), "exit": now.Add(2 * time.Hour),
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, slot+"/maintenance", "100", true, gin.H{"reason": "painting"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	rec := decode(t, w)
	recID := strconv.FormatInt(int64(rec["id"].(float64)), 10)

	w = e.do(t, http.MethodPost, "/api/staff/maintenance/"+recID+"/end", "100", true, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = e.do(t, http.MethodPost, "/api/staff/maintenance/"+recID+"/end", "100", true, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordEntryExitRoutes(t *testing.T) {
	e := newEnv(t)
	b := e.book(t, now.Add(time.Hour), now.Add(3*time.Hour))
	base := "/api/staff/bookings/" + strconv.FormatInt(b.ID, 10)

	w := e.do(t, http.MethodPost, base+"/exit", "100", true, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = e.do(t, http.MethodPost, base+"/entry", "1", false, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, base+"/entry", "100", true, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, http.MethodPost, base+"/entry", "100", true, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(lifecycle.ActionAlreadyRecorded), decode(t, w)["action"])

	w = e.do(t, http.MethodPost, base+"/exit", "100", true, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, e.store.EntryExitLogs(b.ID), 2)
}
