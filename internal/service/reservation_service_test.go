package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"parking_facility/internal/domain"
	"parking_facility/internal/repository"

	"gopkg.in/guregu/null.v4"
)

func TestReservationServiceCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	lot := f.addLot(5, 2.0, 10.0)
	vehicle := f.addVehicle(1, "AB-123-CD")
	actor := Actor{UserID: 1}

	dto := domain.CreateReservationDTO{
		VehicleID: vehicle.ID,
		LotID:     lot.ID,
		StartTime: f.now.Add(1 * time.Hour),
		EndTime:   f.now.Add(3 * time.Hour),
	}
	res, err := f.reservationS.Create(ctx, actor, dto)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if res.Status != domain.ReservationBooked {
		t.Errorf("status = %s, want booked", res.Status)
	}
	if res.Cost != 4.0 {
		t.Errorf("cost = %v, want 4.0", res.Cost)
	}

	got, err := f.lots.FindByID(ctx, lot.ID)
	if err != nil {
		t.Fatalf("FindByID() error: %v", err)
	}
	if got.ReservedCount != 1 {
		t.Errorf("reserved_count = %d, want 1", got.ReservedCount)
	}

	payment, err := f.payments.FindByReservation(ctx, res.ID)
	if err != nil {
		t.Fatalf("FindByReservation() error: %v", err)
	}
	if payment.Amount != 4.0 || payment.Completed {
		t.Errorf("payment = amount %v completed %v, want 4.0 and incomplete", payment.Amount, payment.Completed)
	}
}

func TestReservationServiceCreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	lot := f.addLot(5, 2.0, 10.0)
	vehicle := f.addVehicle(1, "AB-123-CD")

	tests := []struct {
		name    string
		actor   Actor
		dto     domain.CreateReservationDTO
		wantErr error
	}{
		{
			name:  "start after end",
			actor: Actor{UserID: 1},
			dto: domain.CreateReservationDTO{
				VehicleID: vehicle.ID,
				LotID:     lot.ID,
				StartTime: f.now.Add(3 * time.Hour),
				EndTime:   f.now.Add(1 * time.Hour),
			},
			wantErr: ErrInvalidTimeWindow,
		},
		{
			name:  "start equals end",
			actor: Actor{UserID: 1},
			dto: domain.CreateReservationDTO{
				VehicleID: vehicle.ID,
				LotID:     lot.ID,
				StartTime: f.now.Add(1 * time.Hour),
				EndTime:   f.now.Add(1 * time.Hour),
			},
			wantErr: ErrInvalidTimeWindow,
		},
		{
			name:  "start in the past",
			actor: Actor{UserID: 1},
			dto: domain.CreateReservationDTO{
				VehicleID: vehicle.ID,
				LotID:     lot.ID,
				StartTime: f.now.Add(-1 * time.Hour),
				EndTime:   f.now.Add(1 * time.Hour),
			},
			wantErr: ErrInvalidTimeWindow,
		},
		{
			name:  "someone else's vehicle",
			actor: Actor{UserID: 2},
			dto: domain.CreateReservationDTO{
				VehicleID: vehicle.ID,
				LotID:     lot.ID,
				StartTime: f.now.Add(1 * time.Hour),
				EndTime:   f.now.Add(2 * time.Hour),
			},
			wantErr: ErrNotVehicleOwner,
		},
		{
			name:  "unknown vehicle",
			actor: Actor{UserID: 1},
			dto: domain.CreateReservationDTO{
				VehicleID: 404,
				LotID:     lot.ID,
				StartTime: f.now.Add(1 * time.Hour),
				EndTime:   f.now.Add(2 * time.Hour),
			},
			wantErr: repository.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.reservationS.Create(ctx, tt.actor, tt.dto)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReservationServiceCreateLotFull(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	lot := f.addLot(1, 2.0, 10.0)
	v1 := f.addVehicle(1, "AB-123-CD")
	v2 := f.addVehicle(1, "EF-456-GH")

	dto := domain.CreateReservationDTO{
		VehicleID: v1.ID,
		LotID:     lot.ID,
		StartTime: f.now.Add(1 * time.Hour),
		EndTime:   f.now.Add(2 * time.Hour),
	}
	if _, err := f.reservationS.Create(ctx, Actor{UserID: 1}, dto); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	dto.VehicleID = v2.ID
	_, err := f.reservationS.Create(ctx, Actor{UserID: 1}, dto)
	if !errors.Is(err, ErrLotFull) {
		t.Fatalf("Create() on full lot = %v, want ErrLotFull", err)
	}
	// The rejected booking must not leak a hold or a payment.
	got, _ := f.lots.FindByID(ctx, lot.ID)
	if got.ReservedCount != 1 {
		t.Errorf("reserved_count = %d, want 1", got.ReservedCount)
	}
}

func TestReservationServiceCreateOverlap(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	lot := f.addLot(5, 2.0, 10.0)
	vehicle := f.addVehicle(1, "AB-123-CD")
	actor := Actor{UserID: 1}

	first := domain.CreateReservationDTO{
		VehicleID: vehicle.ID,
		LotID:     lot.ID,
		StartTime: f.now.Add(1 * time.Hour),
		EndTime:   f.now.Add(4 * time.Hour),
	}
	if _, err := f.reservationS.Create(ctx, actor, first); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	second := domain.CreateReservationDTO{
		VehicleID: vehicle.ID,
		LotID:     lot.ID,
		StartTime: f.now.Add(2 * time.Hour),
		EndTime:   f.now.Add(5 * time.Hour),
	}
	if _, err := f.reservationS.Create(ctx, actor, second); !errors.Is(err, ErrReservationConflict) {
		t.Fatalf("Create() with overlapping window = %v, want ErrReservationConflict", err)
	}

	// Back to back windows do not overlap.
	third := domain.CreateReservationDTO{
		VehicleID: vehicle.ID,
		LotID:     lot.ID,
		StartTime: f.now.Add(4 * time.Hour),
		EndTime:   f.now.Add(5 * time.Hour),
	}
	if _, err := f.reservationS.Create(ctx, actor, third); err != nil {
		t.Fatalf("Create() with adjacent window error: %v", err)
	}
}

func TestReservationServiceCreateWithDiscount(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	lot := f.addLot(5, 2.0, 50.0)
	vehicle := f.addVehicle(1, "AB-123-CD")

	seed := func(mutate func(*domain.Discount)) *domain.Discount {
		d := &domain.Discount{
			Code:     "SUMMER",
			Type:     domain.DiscountPercent,
			Value:    50,
			UseLimit: 5,
			Active:   true,
		}
		if mutate != nil {
			mutate(d)
		}
		created, err := f.discounts.Create(ctx, d)
		if err != nil {
			t.Fatalf("seeding discount: %v", err)
		}
		return created
	}

	tests := []struct {
		name     string
		mutate   func(*domain.Discount)
		wantErr  error
		wantCost float64
	}{
		{
			name:     "percent discount applied and use consumed",
			wantCost: 2.0,
		},
		{
			name:    "inactive code",
			mutate:  func(d *domain.Discount) { d.Active = false },
			wantErr: ErrDiscountInactive,
		},
		{
			name:    "owned by another user",
			mutate:  func(d *domain.Discount) { d.OwnerID = null.IntFrom(99) },
			wantErr: ErrDiscountWrongOwner,
		},
		{
			name:    "exhausted",
			mutate:  func(d *domain.Discount) { d.UsedCount = d.UseLimit },
			wantErr: ErrDiscountExhausted,
		},
		{
			name:    "not yet valid",
			mutate:  func(d *domain.Discount) { d.ValidFrom = null.TimeFrom(f.now.Add(24 * time.Hour)) },
			wantErr: ErrDiscountExpired,
		},
		{
			name:    "expired",
			mutate:  func(d *domain.Discount) { d.ValidUntil = null.TimeFrom(f.now.Add(-1 * time.Hour)) },
			wantErr: ErrDiscountExpired,
		},
		{
			name: "outside hour window",
			mutate: func(d *domain.Discount) {
				// Booking happens at 09:00.
				d.StartHour = 18
				d.EndHour = 23
			},
			wantErr: ErrDiscountOutsideWindow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := seed(tt.mutate)
			defer f.discounts.Delete(ctx, d.ID)

			dto := domain.CreateReservationDTO{
				VehicleID:    vehicle.ID,
				LotID:        lot.ID,
				StartTime:    f.now.Add(1 * time.Hour),
				EndTime:      f.now.Add(3 * time.Hour),
				DiscountCode: "SUMMER",
			}
			res, err := f.reservationS.Create(ctx, Actor{UserID: 1}, dto)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Create() = %v, want %v", err, tt.wantErr)
				}
				if !errors.Is(err, ErrDiscountRejected) {
					t.Errorf("Create() = %v, want it to wrap ErrDiscountRejected", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() error: %v", err)
			}
			if res.Cost != tt.wantCost {
				t.Errorf("cost = %v, want %v", res.Cost, tt.wantCost)
			}
			used, _ := f.discounts.FindByCode(ctx, "SUMMER")
			if used.UsedCount != d.UsedCount+1 {
				t.Errorf("used_count = %d, want %d", used.UsedCount, d.UsedCount+1)
			}
			if _, err := f.reservationS.Cancel(ctx, Actor{UserID: 1}, res.ID); err != nil {
				t.Fatalf("Cancel() cleanup error: %v", err)
			}
		})
	}
}

func TestReservationServiceCreateUnknownDiscount(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	lot := f.addLot(5, 2.0, 10.0)
	vehicle := f.addVehicle(1, "AB-123-CD")

	dto := domain.CreateReservationDTO{
		VehicleID:    vehicle.ID,
		LotID:        lot.ID,
		StartTime:    f.now.Add(1 * time.Hour),
		EndTime:      f.now.Add(2 * time.Hour),
		DiscountCode: "NOSUCH",
	}
	if _, err := f.reservationS.Create(ctx, Actor{UserID: 1}, dto); !errors.Is(err, ErrDiscountRejected) {
		t.Fatalf("Create() with unknown code = %v, want ErrDiscountRejected", err)
	}
}

func TestReservationServiceCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	lot := f.addLot(2, 2.0, 10.0)
	vehicle := f.addVehicle(1, "AB-123-CD")

	res, err := f.reservationS.Create(ctx, Actor{UserID: 1}, domain.CreateReservationDTO{
		VehicleID: vehicle.ID,
		LotID:     lot.ID,
		StartTime: f.now.Add(1 * time.Hour),
		EndTime:   f.now.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if _, err := f.reservationS.Cancel(ctx, Actor{UserID: 2}, res.ID); !errors.Is(err, ErrNotReservationOwner) {
		t.Fatalf("Cancel() by stranger = %v, want ErrNotReservationOwner", err)
	}

	cancelled, err := f.reservationS.Cancel(ctx, Actor{UserID: 1}, res.ID)
	if err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if cancelled.Status != domain.ReservationCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
	got, _ := f.lots.FindByID(ctx, lot.ID)
	if got.ReservedCount != 0 {
		t.Errorf("reserved_count after cancel = %d, want 0", got.ReservedCount)
	}

	if _, err := f.reservationS.Cancel(ctx, Actor{UserID: 1}, res.ID); !errors.Is(err, ErrReservationFinal) {
		t.Fatalf("Cancel() twice = %v, want ErrReservationFinal", err)
	}
}

func TestReservationServiceCancelAdminOverride(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	lot := f.addLot(2, 2.0, 10.0)
	vehicle := f.addVehicle(1, "AB-123-CD")

	res, err := f.reservationS.Create(ctx, Actor{UserID: 1}, domain.CreateReservationDTO{
		VehicleID: vehicle.ID,
		LotID:     lot.ID,
		StartTime: f.now.Add(1 * time.Hour),
		EndTime:   f.now.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := f.reservationS.Cancel(ctx, Actor{UserID: 99, Admin: true}, res.ID); err != nil {
		t.Fatalf("Cancel() by admin = %v, want nil", err)
	}
}

func TestReservationServiceGetByID(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	lot := f.addLot(2, 2.0, 10.0)
	vehicle := f.addVehicle(1, "AB-123-CD")

	res, err := f.reservationS.Create(ctx, Actor{UserID: 1}, domain.CreateReservationDTO{
		VehicleID: vehicle.ID,
		LotID:     lot.ID,
		StartTime: f.now.Add(1 * time.Hour),
		EndTime:   f.now.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if _, err := f.reservationS.GetByID(ctx, Actor{UserID: 2}, res.ID); !errors.Is(err, ErrNotReservationOwner) {
		t.Errorf("GetByID() by stranger = %v, want ErrNotReservationOwner", err)
	}
	if _, err := f.reservationS.GetByID(ctx, Actor{UserID: 2, Admin: true}, res.ID); err != nil {
		t.Errorf("GetByID() by admin = %v, want nil", err)
	}
	if _, err := f.reservationS.GetByID(ctx, Actor{UserID: 1}, 404); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("GetByID() unknown = %v, want ErrNotFound", err)
	}
}
