package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"parking_facility/internal/domain"
	"parking_facility/internal/repository"
)

// In-memory repositories mirroring the behavior of the Postgres layer,
// including the conditional counter updates and the one-open-session-per-plate
// rule, so lifecycle tests exercise the same admission semantics.

type fakeLotRepo struct {
	mu     sync.Mutex
	lots   map[int]domain.ParkingLot
	nextID int
}

func newFakeLotRepo() *fakeLotRepo {
	return &fakeLotRepo{lots: map[int]domain.ParkingLot{}, nextID: 1}
}

func (r *fakeLotRepo) Create(_ context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lot.ID = r.nextID
	r.nextID++
	r.lots[lot.ID] = *lot
	return lot, nil
}

func (r *fakeLotRepo) FindByID(_ context.Context, id int) (*domain.ParkingLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lot, ok := r.lots[id]
	if !ok || lot.Status == domain.LotDeleted {
		return nil, repository.ErrNotFound
	}
	out := lot
	return &out, nil
}

func (r *fakeLotRepo) FindAll(_ context.Context) ([]domain.ParkingLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ParkingLot
	for _, lot := range r.lots {
		if lot.Status != domain.LotDeleted {
			out = append(out, lot)
		}
	}
	return out, nil
}

func (r *fakeLotRepo) Update(_ context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lots[lot.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	r.lots[lot.ID] = *lot
	return lot, nil
}

func (r *fakeLotRepo) SoftDelete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lot, ok := r.lots[id]
	if !ok || lot.Status == domain.LotDeleted {
		return repository.ErrNotFound
	}
	lot.Status = domain.LotDeleted
	r.lots[id] = lot
	return nil
}

func (r *fakeLotRepo) Reserve(_ context.Context, id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lot, ok := r.lots[id]
	if !ok || lot.Status != domain.LotOpen || lot.ReservedCount+lot.OccupiedCount >= lot.Capacity {
		return false, nil
	}
	lot.ReservedCount++
	r.lots[id] = lot
	return true, nil
}

func (r *fakeLotRepo) Release(_ context.Context, id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lot, ok := r.lots[id]
	if !ok || lot.ReservedCount <= 0 {
		return false, nil
	}
	lot.ReservedCount--
	r.lots[id] = lot
	return true, nil
}

func (r *fakeLotRepo) Occupy(_ context.Context, id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lot, ok := r.lots[id]
	if !ok || lot.Status != domain.LotOpen || lot.ReservedCount+lot.OccupiedCount >= lot.Capacity {
		return false, nil
	}
	lot.OccupiedCount++
	r.lots[id] = lot
	return true, nil
}

func (r *fakeLotRepo) Vacate(_ context.Context, id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lot, ok := r.lots[id]
	if !ok || lot.OccupiedCount <= 0 {
		return false, nil
	}
	lot.OccupiedCount--
	r.lots[id] = lot
	return true, nil
}

func (r *fakeLotRepo) ConvertHold(_ context.Context, id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lot, ok := r.lots[id]
	if !ok || lot.ReservedCount <= 0 {
		return false, nil
	}
	lot.ReservedCount--
	lot.OccupiedCount++
	r.lots[id] = lot
	return true, nil
}

type fakeVehicleRepo struct {
	mu       sync.Mutex
	vehicles map[int]domain.Vehicle
	nextID   int
}

func newFakeVehicleRepo() *fakeVehicleRepo {
	return &fakeVehicleRepo{vehicles: map[int]domain.Vehicle{}, nextID: 1}
}

func (r *fakeVehicleRepo) Create(_ context.Context, v *domain.Vehicle) (*domain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.vehicles {
		if existing.LicensePlate == v.LicensePlate {
			return nil, repository.ErrDuplicateEntry
		}
	}
	v.ID = r.nextID
	r.nextID++
	r.vehicles[v.ID] = *v
	return v, nil
}

func (r *fakeVehicleRepo) FindByID(_ context.Context, id int) (*domain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := v
	return &out, nil
}

func (r *fakeVehicleRepo) FindByPlate(_ context.Context, plate string) (*domain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.vehicles {
		if v.LicensePlate == plate {
			out := v
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeVehicleRepo) FindByOwner(_ context.Context, ownerID int) ([]domain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Vehicle
	for _, v := range r.vehicles {
		if v.OwnerID == ownerID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *fakeVehicleRepo) Update(_ context.Context, v *domain.Vehicle) (*domain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vehicles[v.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	r.vehicles[v.ID] = *v
	return v, nil
}

func (r *fakeVehicleRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vehicles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.vehicles, id)
	return nil
}

type fakeReservationRepo struct {
	mu           sync.Mutex
	reservations map[int]domain.Reservation
	nextID       int
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{reservations: map[int]domain.Reservation{}, nextID: 1}
}

func (r *fakeReservationRepo) Create(_ context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reservations {
		if existing.VehicleID != res.VehicleID {
			continue
		}
		if existing.Status != domain.ReservationBooked && existing.Status != domain.ReservationActive {
			continue
		}
		if overlaps(existing.StartTime, existing.EndTime.Time, existing.EndTime.Valid,
			res.StartTime, res.EndTime.Time, res.EndTime.Valid) {
			return nil, repository.ErrOverlap
		}
	}
	res.ID = r.nextID
	r.nextID++
	r.reservations[res.ID] = *res
	return res, nil
}

func overlaps(aStart, aEnd time.Time, aClosed bool, bStart, bEnd time.Time, bClosed bool) bool {
	if aClosed && !aEnd.After(bStart) {
		return false
	}
	if bClosed && !bEnd.After(aStart) {
		return false
	}
	return true
}

func (r *fakeReservationRepo) FindByID(_ context.Context, id int) (*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := res
	return &out, nil
}

func (r *fakeReservationRepo) Find(_ context.Context, filter domain.ReservationFilterDTO) ([]domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Reservation
	for _, res := range r.reservations {
		if filter.LotID != nil && res.LotID != *filter.LotID {
			continue
		}
		if filter.VehicleID != nil && res.VehicleID != *filter.VehicleID {
			continue
		}
		if filter.Status != nil && string(res.Status) != *filter.Status {
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

func (r *fakeReservationRepo) FindByUser(_ context.Context, userID int) ([]domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Reservation
	for _, res := range r.reservations {
		if res.UserID == userID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *fakeReservationRepo) HasOverlapping(_ context.Context, vehicleID int, start, end time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.reservations {
		if res.VehicleID != vehicleID {
			continue
		}
		if res.Status != domain.ReservationBooked && res.Status != domain.ReservationActive {
			continue
		}
		if overlaps(res.StartTime, res.EndTime.Time, res.EndTime.Valid, start, end, true) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeReservationRepo) HasFutureByLot(_ context.Context, lotID int, after time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.reservations {
		if res.LotID != lotID {
			continue
		}
		if res.Status != domain.ReservationBooked && res.Status != domain.ReservationActive {
			continue
		}
		if !res.EndTime.Valid || res.EndTime.Time.After(after) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeReservationRepo) UpdateStatus(_ context.Context, id int, status domain.ReservationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return repository.ErrNotFound
	}
	res.Status = status
	r.reservations[id] = res
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[int]domain.Session
	nextID   int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[int]domain.Session{}, nextID: 1}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *domain.Session) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sessions {
		if existing.LicensePlate == s.LicensePlate && !existing.EndTime.Valid {
			return nil, repository.ErrDuplicateEntry
		}
	}
	s.ID = r.nextID
	r.nextID++
	r.sessions[s.ID] = *s
	return s, nil
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id int) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := s
	return &out, nil
}

func (r *fakeSessionRepo) FindOpenByPlate(_ context.Context, plate string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.LicensePlate == plate && !s.EndTime.Valid {
			out := s
			return &out, nil
		}
	}
	return nil, repository.ErrNoActiveSession
}

func (r *fakeSessionRepo) FindOpenByReservation(_ context.Context, reservationID int) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.ReservationID.Valid && int(s.ReservationID.Int64) == reservationID && !s.EndTime.Valid {
			out := s
			return &out, nil
		}
	}
	return nil, repository.ErrNoActiveSession
}

func (r *fakeSessionRepo) HasOpenByLot(_ context.Context, lotID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.LotID == lotID && !s.EndTime.Valid {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSessionRepo) Close(_ context.Context, id int, end time.Time, cost float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.EndTime.Valid {
		return false, nil
	}
	s.EndTime.SetValid(end)
	s.Cost.SetValid(cost)
	r.sessions[id] = s
	return true, nil
}

func (r *fakeSessionRepo) Find(_ context.Context, filter domain.SessionFilterDTO) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Session
	for _, s := range r.sessions {
		if filter.LotID != nil && s.LotID != *filter.LotID {
			continue
		}
		if filter.LicensePlate != nil && s.LicensePlate != *filter.LicensePlate {
			continue
		}
		if filter.Open != nil && *filter.Open == s.EndTime.Valid {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[int]domain.Payment
	nextID   int
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: map[int]domain.Payment{}, nextID: 1}
}

func (r *fakePaymentRepo) Create(_ context.Context, p *domain.Payment) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID
	r.nextID++
	r.payments[p.ID] = *p
	return p, nil
}

func (r *fakePaymentRepo) FindByID(_ context.Context, id int) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := p
	return &out, nil
}

func (r *fakePaymentRepo) FindByReservation(_ context.Context, reservationID int) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ReservationID.Valid && int(p.ReservationID.Int64) == reservationID {
			out := p
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePaymentRepo) FindByUser(_ context.Context, userID int) ([]domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Payment
	for _, p := range r.payments {
		if p.UserID.Valid && int(p.UserID.Int64) == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) AddAmount(_ context.Context, id int, delta float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Completed {
		return false, nil
	}
	p.Amount += delta
	r.payments[id] = p
	return true, nil
}

func (r *fakePaymentRepo) MarkCompleted(_ context.Context, id int, validationHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Completed {
		return repository.ErrNotFound
	}
	p.Completed = true
	p.ValidationHash.SetValid(validationHash)
	r.payments[id] = p
	return nil
}

func (r *fakePaymentRepo) RequestRefund(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.RefundRequested = true
	r.payments[id] = p
	return nil
}

type fakeDiscountRepo struct {
	mu        sync.Mutex
	discounts map[int]domain.Discount
	nextID    int
}

func newFakeDiscountRepo() *fakeDiscountRepo {
	return &fakeDiscountRepo{discounts: map[int]domain.Discount{}, nextID: 1}
}

func (r *fakeDiscountRepo) Create(_ context.Context, d *domain.Discount) (*domain.Discount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.discounts {
		if existing.Code == d.Code {
			return nil, repository.ErrDuplicateEntry
		}
	}
	d.ID = r.nextID
	r.nextID++
	r.discounts[d.ID] = *d
	return d, nil
}

func (r *fakeDiscountRepo) FindByCode(_ context.Context, code string) (*domain.Discount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.discounts {
		if d.Code == code {
			out := d
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeDiscountRepo) FindAll(_ context.Context) ([]domain.Discount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Discount
	for _, d := range r.discounts {
		out = append(out, d)
	}
	return out, nil
}

func (r *fakeDiscountRepo) Update(_ context.Context, d *domain.Discount) (*domain.Discount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.discounts[d.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	r.discounts[d.ID] = *d
	return d, nil
}

func (r *fakeDiscountRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.discounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.discounts, id)
	return nil
}

func (r *fakeDiscountRepo) ConsumeUse(_ context.Context, id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.discounts[id]
	if !ok || d.UsedCount >= d.UseLimit {
		return false, nil
	}
	d.UsedCount++
	r.discounts[id] = d
	return true, nil
}

// fakeStore snapshots every repository before running fn and restores the
// snapshot when fn fails, mimicking transaction rollback. The store-level
// mutex serializes whole transactions, so racing callers see either all or
// none of a transaction's writes, as they would under the real store.
type fakeStore struct {
	mu           sync.Mutex
	lots         *fakeLotRepo
	vehicles     *fakeVehicleRepo
	reservations *fakeReservationRepo
	sessions     *fakeSessionRepo
	payments     *fakePaymentRepo
	discounts    *fakeDiscountRepo
}

func (s *fakeStore) repositories() repository.Repositories {
	return repository.Repositories{
		Lots:         s.lots,
		Vehicles:     s.vehicles,
		Reservations: s.reservations,
		Sessions:     s.sessions,
		Payments:     s.payments,
		Discounts:    s.discounts,
	}
}

func (s *fakeStore) Transact(_ context.Context, fn func(r repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lots := snapshotMap(s.lots.lots)
	vehicles := snapshotMap(s.vehicles.vehicles)
	reservations := snapshotMap(s.reservations.reservations)
	sessions := snapshotMap(s.sessions.sessions)
	payments := snapshotMap(s.payments.payments)
	discounts := snapshotMap(s.discounts.discounts)

	if err := fn(s.repositories()); err != nil {
		s.lots.lots = lots
		s.vehicles.vehicles = vehicles
		s.reservations.reservations = reservations
		s.sessions.sessions = sessions
		s.payments.payments = payments
		s.discounts.discounts = discounts
		return err
	}
	return nil
}

func snapshotMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// fixture wires the full service graph over the fakes with a fixed clock.
type fixture struct {
	store        *fakeStore
	lots         *fakeLotRepo
	vehicles     *fakeVehicleRepo
	reservations *fakeReservationRepo
	sessions     *fakeSessionRepo
	payments     *fakePaymentRepo
	discounts    *fakeDiscountRepo

	ledger       *CapacityLedger
	tariff       *TariffCalculator
	reconciler   *PaymentReconciler
	reservationS *ReservationService
	sessionS     *SessionService

	now time.Time
}

func newFixture() *fixture {
	f := &fixture{
		lots:         newFakeLotRepo(),
		vehicles:     newFakeVehicleRepo(),
		reservations: newFakeReservationRepo(),
		sessions:     newFakeSessionRepo(),
		payments:     newFakePaymentRepo(),
		discounts:    newFakeDiscountRepo(),
		now:          time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC),
	}
	f.store = &fakeStore{
		lots:         f.lots,
		vehicles:     f.vehicles,
		reservations: f.reservations,
		sessions:     f.sessions,
		payments:     f.payments,
		discounts:    f.discounts,
	}
	repos := f.store.repositories()
	f.ledger = NewCapacityLedger(nil)
	f.tariff = NewTariffCalculator()
	f.reconciler = NewPaymentReconciler()
	f.reservationS = NewReservationService(f.store, repos, f.ledger, f.tariff)
	f.reservationS.now = func() time.Time { return f.now }
	f.sessionS = NewSessionService(f.store, repos, f.ledger, f.tariff, f.reconciler)
	f.sessionS.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) addLot(capacity int, tariff, daytariff float64) *domain.ParkingLot {
	lot, _ := f.lots.Create(context.Background(), &domain.ParkingLot{
		Name:      fmt.Sprintf("lot-%d", f.lots.nextID),
		Capacity:  capacity,
		Tariff:    tariff,
		DayTariff: daytariff,
		Status:    domain.LotOpen,
	})
	return lot
}

func (f *fixture) addVehicle(ownerID int, plate string) *domain.Vehicle {
	v, _ := f.vehicles.Create(context.Background(), &domain.Vehicle{
		OwnerID:      ownerID,
		LicensePlate: plate,
	})
	return v
}
