package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/parkaro/internal/apperr"
	"github.com/Spok95/parkaro/internal/domain/bookings"
	"github.com/Spok95/parkaro/internal/domain/locations"
	"github.com/Spok95/parkaro/internal/lifecycle"
	"github.com/Spok95/parkaro/internal/ticket"
)

type handlers struct {
	mgr *lifecycle.Manager
	log *slog.Logger
	now func() time.Time
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:        http.StatusBadRequest,
	apperr.KindConflict:          http.StatusConflict,
	apperr.KindInvalidTransition: http.StatusUnprocessableEntity,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindPaymentDeclined:   http.StatusPaymentRequired,
	apperr.KindForbidden:         http.StatusForbidden,
}

func (h *handlers) fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		h.log.Error("request failed", "path", c.FullPath(), "err", err)
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": apperr.Message(err), "kind": kind})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "kind": apperr.KindValidation})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "bad id")
		return 0, false
	}
	return id, true
}

type bookingDTO struct {
	ID                   int64      `json:"id"`
	UserID               int64      `json:"user_id"`
	VehicleID            int64      `json:"vehicle_id"`
	LocationID           int64      `json:"location_id"`
	SlotID               int64      `json:"slot_id"`
	Status               string     `json:"status"`
	Entry                time.Time  `json:"entry"`
	Exit                 time.Time  `json:"exit"`
	ActualEntry          *time.Time `json:"actual_entry,omitempty"`
	ActualExit           *time.Time `json:"actual_exit,omitempty"`
	DurationHours        string     `json:"duration_hours"`
	AmountExpected       string     `json:"amount_expected"`
	AmountPaid           string     `json:"amount_paid"`
	ReservationExpiresAt *time.Time `json:"reservation_expires_at,omitempty"`
	TicketCode           string     `json:"ticket_code,omitempty"`
}

func toDTO(b *bookings.Booking) bookingDTO {
	d := bookingDTO{
		ID: b.ID, UserID: b.UserID, VehicleID: b.VehicleID, LocationID: b.LocationID, SlotID: b.SlotID,
		Status:               string(b.Status),
		Entry:                b.EntryExpected,
		Exit:                 b.ExitExpected,
		ActualEntry:          b.ActualEntry,
		ActualExit:           b.ActualExit,
		DurationHours:        b.DurationHours.StringFixed(2),
		AmountExpected:       b.AmountExpected.StringFixed(2),
		AmountPaid:           b.AmountPaid.StringFixed(2),
		ReservationExpiresAt: b.ReservationExpiresAt,
	}
	if len(b.Ticket) > 0 {
		d.TicketCode = ticket.Code(b.ID)
	}
	return d
}

type paymentDTO struct {
	ID     int64     `json:"id"`
	Amount string    `json:"amount"`
	Status string    `json:"status"`
	Method string    `json:"method"`
	TxnID  string    `json:"gateway_txn_id,omitempty"`
	At     time.Time `json:"created_at"`
}

type fineDTO struct {
	ID     int64      `json:"id"`
	Reason string     `json:"reason"`
	Amount string     `json:"amount"`
	Status string     `json:"status"`
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

func toFineDTO(f bookings.Fine) fineDTO {
	return fineDTO{ID: f.ID, Reason: f.Reason, Amount: f.Amount.StringFixed(2), Status: string(f.Status), PaidAt: f.PaidAt}
}

// GET /api/locations/:id/slots
func (h *handlers) liveSlots(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	views, err := h.mgr.LiveSlots(c, id, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]gin.H, 0, len(views))
	for _, v := range views {
		out = append(out, gin.H{
			"id":           v.Slot.ID,
			"code":         v.Slot.Code,
			"level":        v.Slot.Level,
			"vehicle_type": v.Slot.VehicleTypeAllowed,
			"status":       v.Live,
		})
	}
	c.JSON(http.StatusOK, gin.H{"location_id": id, "slots": out})
}

// POST /api/bookings
func (h *handlers) create(c *gin.Context) {
	var in struct {
		LocationID int64     `json:"location_id" binding:"required"`
		SlotID     int64     `json:"slot_id"     binding:"required"`
		VehicleID  int64     `json:"vehicle_id"  binding:"required"`
		Entry      time.Time `json:"entry"       binding:"required"` // RFC3339
		Exit       time.Time `json:"exit"        binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	b, err := h.mgr.Create(c, principalOf(c), lifecycle.CreateRequest{
		LocationID: in.LocationID,
		SlotID:     in.SlotID,
		VehicleID:  in.VehicleID,
		Entry:      in.Entry,
		Exit:       in.Exit,
	}, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toDTO(b))
}

// GET /api/bookings/:id
func (h *handlers) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	v, err := h.mgr.GetBooking(c, principalOf(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	pays := make([]paymentDTO, 0, len(v.Payments))
	for _, p := range v.Payments {
		pays = append(pays, paymentDTO{ID: p.ID, Amount: p.Amount.StringFixed(2), Status: string(p.Status), Method: p.Method, TxnID: p.GatewayTxnID, At: p.CreatedAt})
	}
	fines := make([]fineDTO, 0, len(v.Fines))
	for _, f := range v.Fines {
		fines = append(fines, toFineDTO(f))
	}
	c.JSON(http.StatusOK, gin.H{
		"booking":    toDTO(&v.Booking),
		"payments":   pays,
		"extensions": len(v.Extensions),
		"fines":      fines,
	})
}

// POST /api/bookings/:id/extend
func (h *handlers) extend(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in struct {
		NewExit time.Time `json:"new_exit" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	b, err := h.mgr.Extend(c, principalOf(c), id, in.NewExit, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toDTO(b))
}

func quoteBody(q lifecycle.CancellationQuote) gin.H {
	out := gin.H{
		"minutes_before": q.MinutesBefore,
		"percentage":     q.Percentage.StringFixed(2),
		"refundable":     q.Refundable.StringFixed(2),
	}
	if q.Policy != nil {
		out["policy"] = q.Policy.String()
	}
	return out
}

// GET /api/bookings/:id/cancel — предпросмотр возврата
func (h *handlers) quoteCancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	q, err := h.mgr.QuoteCancellation(c, principalOf(c), id, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, quoteBody(q))
}

// POST /api/bookings/:id/cancel
func (h *handlers) cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.mgr.Cancel(c, principalOf(c), id, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": toDTO(res.Booking), "refund": quoteBody(res.Quote)})
}

// POST /api/bookings/:id/no-show (персонал)
func (h *handlers) noShow(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	b, err := h.mgr.MarkNoShow(c, principalOf(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toDTO(b))
}

// POST /api/staff/scan
func (h *handlers) scan(c *gin.Context) {
	var in struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.mgr.Scan(c, principalOf(c), in.Code, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"action":  res.Action,
		"message": res.Action.Message(),
		"booking": toDTO(res.Booking),
	})
}

type gate int

const (
	gateEntry gate = iota
	gateExit
)

// POST /api/staff/bookings/:id/entry, POST /api/staff/bookings/:id/exit
func (h *handlers) record(g gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		p := principalOf(c)
		if !p.Staff {
			h.fail(c, lifecycle.ErrForbidden)
			return
		}
		var (
			res lifecycle.CheckResult
			err error
		)
		if g == gateEntry {
			res, err = h.mgr.RecordEntry(c, id, p.EmployeeID, h.now())
		} else {
			res, err = h.mgr.RecordExit(c, id, p.EmployeeID, h.now())
		}
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"action": res.Action, "message": res.Action.Message(), "booking": toDTO(res.Booking)})
	}
}

// POST /api/fines/:id/pay
func (h *handlers) payFine(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	f, err := h.mgr.PayFine(c, principalOf(c), id, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toFineDTO(*f))
}

// PUT /api/staff/slots/:id/status
func (h *handlers) slotStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in struct {
		Status locations.SlotStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.mgr.SetSlotStatus(c, principalOf(c), id, in.Status); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": in.Status})
}

// POST /api/staff/slots/:id/maintenance
func (h *handlers) startMaintenance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in struct {
		Start  *time.Time `json:"start"`
		End    *time.Time `json:"end"`
		Reason string     `json:"reason"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	start := h.now()
	if in.Start != nil {
		start = *in.Start
	}
	rec, err := h.mgr.StartMaintenance(c, principalOf(c), id, start, in.End, in.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": rec.ID, "slot_id": rec.SlotID, "start": rec.Start, "end": rec.End, "reason": rec.Reason})
}

// POST /api/staff/maintenance/:id/end
func (h *handlers) endMaintenance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.mgr.EndMaintenance(c, principalOf(c), id, h.now()); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
