// Package storetest holds the behaviour every store.Store backend must share.
// Backends call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"mwas-backend/internal/model"
	"mwas-backend/internal/store"
)

func Run(t *testing.T, st store.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, st) })
	t.Run("therapists", func(t *testing.T) { testTherapists(t, st) })
	t.Run("appointments", func(t *testing.T) { testAppointments(t, st) })
	t.Run("concurrent decide", func(t *testing.T) { testConcurrentDecide(t, st) })
	t.Run("chats", func(t *testing.T) { testChats(t, st) })
}

func email() string {
	return fmt.Sprintf("test-%s@test.com", uuid.NewString()[:8])
}

func mkUser(t *testing.T, st store.Store, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Name: "Test User", Email: email(), PasswordHash: "x", Role: role}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func testUsers(t *testing.T, st store.Store) {
	ctx := context.Background()
	u := mkUser(t, st, model.RoleUser)
	if u.ID == "" {
		t.Fatal("empty user id")
	}

	dup := &model.User{Name: "Dup", Email: u.Email, PasswordHash: "x", Role: model.RoleAdmin}
	if err := st.CreateUser(ctx, dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, err := st.UserByEmailAndRole(ctx, u.Email, model.RoleUser)
	if err != nil {
		t.Fatalf("by email+role: %v", err)
	}
	if got.ID != u.ID || got.PasswordHash != "x" {
		t.Errorf("unexpected user %+v", got)
	}
	if _, err := st.UserByEmailAndRole(ctx, u.Email, model.RoleTherapist); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("role mismatch should be ErrNotFound, got %v", err)
	}

	other := mkUser(t, st, model.RoleUser)
	if _, err := st.UpdateUser(ctx, other.ID, "", u.Email); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("update to taken email: expected ErrDuplicate, got %v", err)
	}
	upd, err := st.UpdateUser(ctx, other.ID, "Renamed", "")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if upd.Name != "Renamed" || upd.Email != other.Email || upd.Role != model.RoleUser {
		t.Errorf("update result %+v", upd)
	}

	if err := st.DeleteUser(ctx, other.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.UserByID(ctx, other.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deleted user still found: %v", err)
	}
	if err := st.DeleteUser(ctx, other.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func testTherapists(t *testing.T, st store.Store) {
	ctx := context.Background()
	owner := mkUser(t, st, model.RoleTherapist)

	th := &model.Therapist{UserID: owner.ID, Specialization: "CBT", Bio: "bio", Experience: 4}
	if err := st.CreateTherapist(ctx, th); err != nil {
		t.Fatalf("create therapist: %v", err)
	}
	if err := st.CreateTherapist(ctx, &model.Therapist{UserID: owner.ID, Specialization: "other"}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("second profile: expected ErrDuplicate, got %v", err)
	}

	slots := []model.Slot{{Day: "Monday", Start: "09:00", End: "12:00"}, {Day: "Friday", Start: "13:00", End: "17:00"}}
	got, err := st.UpsertAvailability(ctx, owner.ID, slots)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got.ID != th.ID || got.Specialization != "CBT" || len(got.Availability) != 2 || got.Availability[1].Day != "Friday" {
		t.Errorf("upsert result %+v", got)
	}

	// wholesale replacement
	got, err = st.UpsertAvailability(ctx, owner.ID, []model.Slot{{Day: "Tuesday", Start: "10:00", End: "11:00"}})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(got.Availability) != 1 || got.Availability[0].Day != "Tuesday" {
		t.Errorf("availability not replaced: %+v", got.Availability)
	}

	// upsert creates a bare profile for an owner without one
	fresh := mkUser(t, st, model.RoleTherapist)
	got, err = st.UpsertAvailability(ctx, fresh.ID, []model.Slot{})
	if err != nil {
		t.Fatalf("upsert new: %v", err)
	}
	if got.UserID != fresh.ID || got.ID == "" {
		t.Errorf("upsert new result %+v", got)
	}
	if _, err := st.TherapistByUser(ctx, fresh.ID); err != nil {
		t.Errorf("upserted profile not found: %v", err)
	}

	// a bare profile can be completed once; availability is kept when omitted
	if _, err := st.UpsertAvailability(ctx, fresh.ID, []model.Slot{{Day: "Monday", Start: "09:00", End: "10:00"}}); err != nil {
		t.Fatalf("upsert slots: %v", err)
	}
	full := &model.Therapist{UserID: fresh.ID, Specialization: "Grief", Bio: "b", Experience: 2}
	if err := st.CompleteTherapist(ctx, full); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if full.Specialization != "Grief" || full.Experience != 2 || len(full.Availability) != 1 || full.ID != got.ID {
		t.Errorf("completed profile %+v", full)
	}
	again := &model.Therapist{UserID: fresh.ID, Specialization: "Other"}
	if err := st.CompleteTherapist(ctx, again); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("complete twice: expected ErrNotFound, got %v", err)
	}
	if err := st.CompleteTherapist(ctx, &model.Therapist{UserID: "nobody", Specialization: "x"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("complete without profile: expected ErrNotFound, got %v", err)
	}
}

func testAppointments(t *testing.T, st store.Store) {
	ctx := context.Background()
	u := mkUser(t, st, model.RoleUser)
	t1 := mkUser(t, st, model.RoleTherapist)
	t2 := mkUser(t, st, model.RoleTherapist)

	when := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	a := &model.Appointment{UserID: u.ID, TherapistID: t1.ID, Datetime: when, Status: model.StatusPending}
	if err := st.CreateAppointment(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}
	later := &model.Appointment{UserID: u.ID, TherapistID: t1.ID, Datetime: when.Add(time.Hour), Status: model.StatusPending}
	if err := st.CreateAppointment(ctx, later); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := st.ListAppointments(ctx, store.AppointmentFilter{TherapistID: t1.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != later.ID {
		t.Errorf("expected both appointments ordered by datetime, got %+v", list)
	}
	if list, _ := st.ListAppointments(ctx, store.AppointmentFilter{TherapistID: t2.ID}); len(list) != 0 {
		t.Errorf("t2 sees %d appointments", len(list))
	}

	// not owned is indistinguishable from missing
	if _, err := st.DecideAppointment(ctx, a.ID, t2.ID, model.StatusConfirmed); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("foreign therapist: expected ErrNotFound, got %v", err)
	}
	if _, err := st.DecideAppointment(ctx, uuid.NewString(), t1.ID, model.StatusConfirmed); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing id: expected ErrNotFound, got %v", err)
	}

	got, err := st.DecideAppointment(ctx, a.ID, t1.ID, model.StatusConfirmed)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if got.Status != model.StatusConfirmed {
		t.Errorf("status: %s", got.Status)
	}

	if _, err := st.DecideAppointment(ctx, a.ID, t1.ID, model.StatusRejected); !errors.Is(err, store.ErrNotPending) {
		t.Errorf("re-decide: expected ErrNotPending, got %v", err)
	}
	stored, err := st.AppointmentByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != model.StatusConfirmed {
		t.Errorf("stored status changed to %s", stored.Status)
	}
}

// Many therapists' requests racing on one pending appointment: exactly one
// decision lands.
func testConcurrentDecide(t *testing.T, st store.Store) {
	ctx := context.Background()
	u := mkUser(t, st, model.RoleUser)
	th := mkUser(t, st, model.RoleTherapist)

	a := &model.Appointment{UserID: u.ID, TherapistID: th.ID, Datetime: time.Now().Add(time.Hour).UTC(), Status: model.StatusPending}
	if err := st.CreateAppointment(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}

	const n = 10
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := model.StatusConfirmed
			if i%2 == 1 {
				status = model.StatusRejected
			}
			_, err := st.DecideAppointment(ctx, a.ID, th.ID, status)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	successes, lost := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, store.ErrNotPending):
			lost++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("expected exactly 1 success, got %d", successes)
	}
	if lost != n-1 {
		t.Errorf("expected %d ErrNotPending, got %d", n-1, lost)
	}
}

func testChats(t *testing.T, st store.Store) {
	ctx := context.Background()
	u := mkUser(t, st, model.RoleUser)
	before, err := st.CountChats(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	c := &model.Chat{UserID: u.ID, Message: "hi", Response: "hello", Timestamp: time.Now().UTC()}
	if err := st.CreateChat(ctx, c); err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if c.ID == "" {
		t.Error("empty chat id")
	}
	after, _ := st.CountChats(ctx)
	if after != before+1 {
		t.Errorf("count %d -> %d", before, after)
	}
}
