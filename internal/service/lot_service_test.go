package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"parking_facility/internal/domain"
	"parking_facility/internal/repository"
)

func TestLotServiceDeleteGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := NewLotService(f.store.repositories())
	svc.now = func() time.Time { return f.now }

	lot := f.addLot(3, 2.0, 10.0)

	// An open session blocks deletion.
	sess, err := f.sessionS.Start(ctx, Actor{}, domain.StartSessionDTO{LotID: lot.ID, LicensePlate: "AB-123-CD"})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := svc.Delete(ctx, lot.ID); !errors.Is(err, ErrLotInUse) {
		t.Fatalf("Delete() with open session = %v, want ErrLotInUse", err)
	}
	f.now = f.now.Add(10 * time.Minute)
	if _, err := f.sessionS.Stop(ctx, Actor{}, sess.ID); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	// A live booking blocks deletion.
	vehicle := f.addVehicle(1, "EF-456-GH")
	res, err := f.reservationS.Create(ctx, Actor{UserID: 1}, domain.CreateReservationDTO{
		VehicleID: vehicle.ID,
		LotID:     lot.ID,
		StartTime: f.now.Add(1 * time.Hour),
		EndTime:   f.now.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := svc.Delete(ctx, lot.ID); !errors.Is(err, ErrLotInUse) {
		t.Fatalf("Delete() with live booking = %v, want ErrLotInUse", err)
	}
	if _, err := f.reservationS.Cancel(ctx, Actor{UserID: 1}, res.ID); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}

	if err := svc.Delete(ctx, lot.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := f.lots.FindByID(ctx, lot.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("FindByID() after delete = %v, want ErrNotFound", err)
	}
}

func TestLotServiceCreateValidatesStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := NewLotService(f.store.repositories())

	if _, err := svc.Create(ctx, domain.ParkingLotDTO{Name: "north", Capacity: 10, Status: "bogus"}); err == nil {
		t.Fatal("Create() with bogus status should fail")
	}

	lot, err := svc.Create(ctx, domain.ParkingLotDTO{Name: "north", Capacity: 10})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if lot.Status != domain.LotOpen {
		t.Errorf("default status = %s, want open", lot.Status)
	}
}
