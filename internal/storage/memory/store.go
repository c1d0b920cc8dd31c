// Package memory — хранилище в памяти для тестов и режима --memory.
// Транзакции выполняются строго по одной; ошибка fn возвращает состояние к снимку.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/parkaro/internal/domain/availability"
	"github.com/Spok95/parkaro/internal/domain/bookings"
	"github.com/Spok95/parkaro/internal/domain/locations"
	"github.com/Spok95/parkaro/internal/domain/pricing"
	"github.com/Spok95/parkaro/internal/domain/refunds"
	"github.com/Spok95/parkaro/internal/domain/vehicles"
	"github.com/Spok95/parkaro/internal/storage"
)

type state struct {
	seq         int64
	locations   map[int64]locations.Location
	slots       map[int64]locations.Slot
	vehicles    map[int64]vehicles.Vehicle
	maintenance map[int64]locations.MaintenanceLog
	rules       map[int64]pricing.Rule
	policies    map[int64]refunds.Policy
	bookings    map[int64]bookings.Booking
	payments    map[int64]bookings.Payment
	extensions  map[int64]bookings.Extension
	fines       map[int64]bookings.Fine
	logs        map[int64]bookings.EntryExitLog
}

func (s *state) clone() *state {
	return &state{
		seq:         s.seq,
		locations:   maps.Clone(s.locations),
		slots:       maps.Clone(s.slots),
		vehicles:    maps.Clone(s.vehicles),
		maintenance: maps.Clone(s.maintenance),
		rules:       maps.Clone(s.rules),
		policies:    maps.Clone(s.policies),
		bookings:    maps.Clone(s.bookings),
		payments:    maps.Clone(s.payments),
		extensions:  maps.Clone(s.extensions),
		fines:       maps.Clone(s.fines),
		logs:        maps.Clone(s.logs),
	}
}

func (s *state) next() int64 {
	s.seq++
	return s.seq
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func New() *Store {
	return &Store{
		st: &state{
			locations:   map[int64]locations.Location{},
			slots:       map[int64]locations.Slot{},
			vehicles:    map[int64]vehicles.Vehicle{},
			maintenance: map[int64]locations.MaintenanceLog{},
			rules:       map[int64]pricing.Rule{},
			policies:    map[int64]refunds.Policy{},
			bookings:    map[int64]bookings.Booking{},
			payments:    map[int64]bookings.Payment{},
			extensions:  map[int64]bookings.Extension{},
			fines:       map[int64]bookings.Fine{},
			logs:        map[int64]bookings.EntryExitLog{},
		},
		now: time.Now,
	}
}

func (s *Store) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(&memTx{st: s.st, now: s.now}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

/* Заполнение справочников */

func (s *Store) AddLocation(l locations.Location) locations.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.st.next()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now()
	}
	s.st.locations[l.ID] = l
	return l
}

func (s *Store) AddSlot(sl locations.Slot) locations.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl.ID = s.st.next()
	if sl.Status == "" {
		sl.Status = locations.SlotAvailable
	}
	if sl.VehicleTypeAllowed == "" {
		sl.VehicleTypeAllowed = locations.Class4W
	}
	s.st.slots[sl.ID] = sl
	return sl
}

// SetSlotStatus меняет административный флаг места.
func (s *Store) SetSlotStatus(id int64, st locations.SlotStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.st.slots[id]; ok {
		sl.Status = st
		s.st.slots[id] = sl
	}
}

func (s *Store) AddVehicle(v vehicles.Vehicle) vehicles.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = s.st.next()
	s.st.vehicles[v.ID] = v
	return v
}

func (s *Store) AddRule(r pricing.Rule) pricing.Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.st.next()
	s.st.rules[r.ID] = r
	return r
}

func (s *Store) AddPolicy(p refunds.Policy) refunds.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.st.next()
	s.st.policies[p.ID] = p
	return p
}

/* Чтение вне транзакции, для проверок */

func (s *Store) Booking(id int64) (bookings.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.st.bookings[id]
	return b, ok
}

func (s *Store) Bookings() []bookings.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.st.bookings, func(b bookings.Booking) int64 { return b.ID })
}

func (s *Store) Payments(bookingID int64) []bookings.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filter(sortedValues(s.st.payments, func(p bookings.Payment) int64 { return p.ID }),
		func(p bookings.Payment) bool { return p.BookingID == bookingID })
}

func (s *Store) Fines(bookingID int64) []bookings.Fine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filter(sortedValues(s.st.fines, func(f bookings.Fine) int64 { return f.ID }),
		func(f bookings.Fine) bool { return f.BookingID == bookingID })
}

func (s *Store) EntryExitLogs(bookingID int64) []bookings.EntryExitLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filter(sortedValues(s.st.logs, func(l bookings.EntryExitLog) int64 { return l.ID }),
		func(l bookings.EntryExitLog) bool { return l.BookingID == bookingID })
}

func sortedValues[T any](m map[int64]T, id func(T) int64) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return id(out[i]) < id(out[j]) })
	return out
}

func filter[T any](in []T, keep func(T) bool) []T {
	var out []T
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

var _ storage.Store = (*Store)(nil)
var _ storage.Tx = (*memTx)(nil)

type memTx struct {
	st  *state
	now func() time.Time
}

func (t *memTx) GetLocation(_ context.Context, id int64) (*locations.Location, error) {
	l, ok := t.st.locations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &l, nil
}

func (t *memTx) GetSlot(_ context.Context, id int64) (*locations.Slot, error) {
	sl, ok := t.st.slots[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &sl, nil
}

func (t *memTx) ListSlots(_ context.Context, locationID int64) ([]locations.Slot, error) {
	out := filter(sortedValues(t.st.slots, func(s locations.Slot) int64 { return s.ID }),
		func(s locations.Slot) bool { return s.LocationID == locationID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// LockSlot — транзакции и так идут по одной, остаётся проверить, что место есть.
func (t *memTx) LockSlot(_ context.Context, id int64) error {
	if _, ok := t.st.slots[id]; !ok {
		return storage.ErrNotFound
	}
	return nil
}

func (t *memTx) SetSlotStatus(_ context.Context, id int64, st locations.SlotStatus) error {
	sl, ok := t.st.slots[id]
	if !ok {
		return storage.ErrNotFound
	}
	sl.Status = st
	t.st.slots[id] = sl
	return nil
}

func (t *memTx) GetVehicle(_ context.Context, id int64) (*vehicles.Vehicle, error) {
	v, ok := t.st.vehicles[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &v, nil
}

func (t *memTx) MaintenanceAt(_ context.Context, locationID int64, at time.Time) ([]locations.MaintenanceLog, error) {
	all := sortedValues(t.st.maintenance, func(m locations.MaintenanceLog) int64 { return m.ID })
	return filter(all, func(m locations.MaintenanceLog) bool {
		sl, ok := t.st.slots[m.SlotID]
		return ok && sl.LocationID == locationID && m.Covers(at)
	}), nil
}

func (t *memTx) AddMaintenance(_ context.Context, m *locations.MaintenanceLog) error {
	if _, ok := t.st.slots[m.SlotID]; !ok {
		return storage.ErrNotFound
	}
	m.ID = t.st.next()
	t.st.maintenance[m.ID] = *m
	return nil
}

func (t *memTx) CloseMaintenance(_ context.Context, id int64, end time.Time) error {
	m, ok := t.st.maintenance[id]
	if !ok || m.End != nil {
		return storage.ErrNotFound
	}
	m.End = &end
	t.st.maintenance[id] = m
	return nil
}

func (t *memTx) PricingRules(_ context.Context, locationID int64) ([]pricing.Rule, error) {
	all := sortedValues(t.st.rules, func(r pricing.Rule) int64 { return r.ID })
	return filter(all, func(r pricing.Rule) bool {
		return r.LocationID == nil || *r.LocationID == locationID
	}), nil
}

func (t *memTx) CancellationPolicies(_ context.Context, locationID int64) ([]refunds.Policy, error) {
	all := sortedValues(t.st.policies, func(p refunds.Policy) int64 { return p.ID })
	return refunds.Ordered(filter(all, func(p refunds.Policy) bool {
		return p.LocationID == nil || *p.LocationID == locationID
	})), nil
}

func window(b bookings.Booking) availability.Window {
	return availability.Window{BookingID: b.ID, SlotID: b.SlotID, Start: b.EntryExpected, End: b.ExitExpected}
}

func (t *memTx) confirmed(keep func(bookings.Booking) bool) []bookings.Booking {
	all := sortedValues(t.st.bookings, func(b bookings.Booking) int64 { return b.ID })
	return filter(all, func(b bookings.Booking) bool {
		return b.Status == bookings.StatusConfirmed && keep(b)
	})
}

func (t *memTx) ConfirmedWindows(_ context.Context, slotID int64, from, to time.Time) ([]availability.Window, error) {
	var out []availability.Window
	for _, b := range t.confirmed(func(b bookings.Booking) bool {
		return b.SlotID == slotID && availability.Overlaps(b.EntryExpected, b.ExitExpected, from, to)
	}) {
		out = append(out, window(b))
	}
	return out, nil
}

func (t *memTx) ActiveWindows(_ context.Context, locationID int64, at time.Time) ([]availability.Window, error) {
	var out []availability.Window
	for _, b := range t.confirmed(func(b bookings.Booking) bool {
		return b.LocationID == locationID && !b.EntryExpected.After(at) && !b.ExitExpected.Before(at)
	}) {
		out = append(out, window(b))
	}
	return out, nil
}

func (t *memTx) GetBooking(_ context.Context, id int64) (*bookings.Booking, error) {
	b, ok := t.st.bookings[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &b, nil
}

func (t *memTx) GetBookingForUpdate(ctx context.Context, id int64) (*bookings.Booking, error) {
	return t.GetBooking(ctx, id)
}

func (t *memTx) InsertBooking(_ context.Context, b *bookings.Booking) error {
	b.ID = t.st.next()
	b.CreatedAt = t.now()
	b.UpdatedAt = b.CreatedAt
	t.st.bookings[b.ID] = *b
	return nil
}

// overlapping повторяет исключающее ограничение на подтверждённые брони.
func (t *memTx) overlapping(b bookings.Booking) bool {
	return len(t.confirmed(func(o bookings.Booking) bool {
		return o.ID != b.ID && o.SlotID == b.SlotID &&
			availability.Overlaps(o.EntryExpected, o.ExitExpected, b.EntryExpected, b.ExitExpected)
	})) > 0
}

func (t *memTx) update(id int64, fn func(b *bookings.Booking) bool) error {
	b, ok := t.st.bookings[id]
	if !ok || !fn(&b) {
		return storage.ErrStale
	}
	if b.Status == bookings.StatusConfirmed && t.overlapping(b) {
		return storage.ErrOverlap
	}
	b.UpdatedAt = t.now()
	t.st.bookings[id] = b
	return nil
}

func (t *memTx) ConfirmBooking(_ context.Context, id int64, paid decimal.Decimal) error {
	return t.update(id, func(b *bookings.Booking) bool {
		if b.Status != bookings.StatusPendingPayment {
			return false
		}
		b.Status = bookings.StatusConfirmed
		b.AmountPaid = paid
		b.ReservationExpiresAt = nil
		return true
	})
}

func (t *memTx) SetStatus(_ context.Context, id int64, from, to bookings.Status) error {
	return t.update(id, func(b *bookings.Booking) bool {
		if b.Status != from {
			return false
		}
		b.Status = to
		return true
	})
}

func (t *memTx) ExtendBooking(_ context.Context, id int64, newExit time.Time, extra decimal.Decimal) error {
	return t.update(id, func(b *bookings.Booking) bool {
		if b.Status != bookings.StatusConfirmed || !b.ExitExpected.Before(newExit) {
			return false
		}
		b.ExitExpected = newExit
		b.DurationHours = pricing.Hours(b.EntryExpected, newExit)
		b.AmountExpected = b.AmountExpected.Add(extra)
		b.AmountPaid = b.AmountPaid.Add(extra)
		return true
	})
}

func (t *memTx) DeductPaid(_ context.Context, id int64, amount decimal.Decimal) error {
	return t.update(id, func(b *bookings.Booking) bool {
		b.AmountPaid = decimal.Max(b.AmountPaid.Sub(amount), decimal.Zero)
		return true
	})
}

func (t *memTx) SetActualEntry(_ context.Context, id int64, at time.Time) (bool, error) {
	err := t.update(id, func(b *bookings.Booking) bool {
		if b.Status != bookings.StatusConfirmed || b.ActualEntry != nil {
			return false
		}
		b.ActualEntry = &at
		return true
	})
	return err == nil, ignoreStale(err)
}

func (t *memTx) SetActualExit(_ context.Context, id int64, at time.Time) (bool, error) {
	err := t.update(id, func(b *bookings.Booking) bool {
		if b.Status != bookings.StatusConfirmed || b.ActualEntry == nil || b.ActualExit != nil {
			return false
		}
		b.ActualExit = &at
		b.Status = bookings.StatusCompleted
		return true
	})
	return err == nil, ignoreStale(err)
}

func ignoreStale(err error) error {
	if err == storage.ErrStale {
		return nil
	}
	return err
}

func (t *memTx) SaveTicket(_ context.Context, id int64, blob []byte) error {
	b, ok := t.st.bookings[id]
	if !ok {
		return storage.ErrNotFound
	}
	b.Ticket = append([]byte(nil), blob...)
	t.st.bookings[id] = b
	return nil
}

func (t *memTx) InsertPayment(_ context.Context, p *bookings.Payment) error {
	p.ID = t.st.next()
	p.CreatedAt = t.now()
	t.st.payments[p.ID] = *p
	return nil
}

func (t *memTx) ListPayments(_ context.Context, bookingID int64) ([]bookings.Payment, error) {
	return filter(sortedValues(t.st.payments, func(p bookings.Payment) int64 { return p.ID }),
		func(p bookings.Payment) bool { return p.BookingID == bookingID }), nil
}

func (t *memTx) InsertExtension(_ context.Context, e *bookings.Extension) error {
	e.ID = t.st.next()
	e.CreatedAt = t.now()
	t.st.extensions[e.ID] = *e
	return nil
}

func (t *memTx) ListExtensions(_ context.Context, bookingID int64) ([]bookings.Extension, error) {
	return filter(sortedValues(t.st.extensions, func(e bookings.Extension) int64 { return e.ID }),
		func(e bookings.Extension) bool { return e.BookingID == bookingID }), nil
}

func (t *memTx) InsertEntryExitLog(_ context.Context, l *bookings.EntryExitLog) error {
	l.ID = t.st.next()
	t.st.logs[l.ID] = *l
	return nil
}

func (t *memTx) ExpirePending(_ context.Context, now time.Time) ([]bookings.Booking, error) {
	var out []bookings.Booking
	for _, b := range sortedValues(t.st.bookings, func(b bookings.Booking) int64 { return b.ID }) {
		if b.Status != bookings.StatusPendingPayment || b.ReservationExpiresAt == nil || !b.ReservationExpiresAt.Before(now) {
			continue
		}
		b.Status = bookings.StatusCancelled
		b.UpdatedAt = t.now()
		t.st.bookings[b.ID] = b
		out = append(out, b)
	}
	return out, nil
}

func (t *memTx) Overdue(_ context.Context, now time.Time) ([]bookings.Booking, error) {
	return t.confirmed(func(b bookings.Booking) bool { return b.ExitExpected.Before(now) }), nil
}

func (t *memTx) EndingBetween(_ context.Context, from, to time.Time) ([]bookings.Booking, error) {
	out := t.confirmed(func(b bookings.Booking) bool {
		return !b.ExitExpected.Before(from) && !b.ExitExpected.After(to)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExitExpected.Before(out[j].ExitExpected) })
	return out, nil
}

func (t *memTx) CreateFineIfNoneUnpaid(_ context.Context, f *bookings.Fine) (bool, error) {
	for _, existing := range t.st.fines {
		if existing.BookingID == f.BookingID && existing.Status == bookings.FineUnpaid {
			return false, nil
		}
	}
	f.ID = t.st.next()
	f.Status = bookings.FineUnpaid
	f.CreatedAt = t.now()
	t.st.fines[f.ID] = *f
	return true, nil
}

func (t *memTx) GetFineForUpdate(_ context.Context, id int64) (*bookings.Fine, error) {
	f, ok := t.st.fines[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &f, nil
}

func (t *memTx) MarkFinePaid(_ context.Context, id int64, at time.Time) error {
	f, ok := t.st.fines[id]
	if !ok || f.Status != bookings.FineUnpaid {
		return storage.ErrStale
	}
	f.Status = bookings.FinePaid
	f.PaidAt = &at
	t.st.fines[id] = f
	return nil
}

func (t *memTx) ListFines(_ context.Context, bookingID int64) ([]bookings.Fine, error) {
	return filter(sortedValues(t.st.fines, func(f bookings.Fine) int64 { return f.ID }),
		func(f bookings.Fine) bool { return f.BookingID == bookingID }), nil
}
