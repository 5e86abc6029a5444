package remote

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"broadoak/internal/model"
)

func TestUpdates_OnlyChangedFields(t *testing.T) {
	t.Parallel()

	mgr := "Sam Hughes"
	typ := model.ShiftMorning
	ups := updates(&model.ShiftUpdate{ID: "s1", Manager: &mgr, Type: &typ})
	if len(ups) != 2 || ups[0].Path != "manager" || ups[1].Path != "type" || ups[1].Value != "am" {
		t.Fatalf("updates=%+v", ups)
	}
}

func TestShiftDoc_DateIsCivil(t *testing.T) {
	t.Parallel()

	d := shiftDoc{Date: time.Date(2024, 6, 3, 23, 0, 0, 0, time.FixedZone("BST", 3600)), Type: "pm"}
	s := d.toShift("s1")
	if !s.Date.Equal(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date=%v", s.Date)
	}
	if s.ID != "s1" || s.Type != model.ShiftAfternoon {
		t.Fatalf("shift=%+v", s)
	}
}

// TestFirestoreStore_Emulator 需要本地 Firestore 模拟器
func TestFirestoreStore_Emulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	suffix := time.Now().Format("150405.000000")
	fs, err := New(ctx, Config{
		ProjectID:        "broadoak-test",
		UsersCollection:  "users-" + suffix,
		ShiftsCollection: "shifts-" + suffix,
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer fs.Close()

	u, err := fs.CreateUser(ctx, "Alice Smith")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	users, err := fs.ListUsers(ctx)
	if err != nil || len(users) != 1 || users[0].ID != u.ID {
		t.Fatalf("users=%+v, %v", users, err)
	}

	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	applied, err := fs.ApplyBatch(ctx, []model.ShiftOp{{Kind: model.OpCreate, Shift: model.Shift{
		UserID: u.ID, Date: day, Address: "12 High Street", Task: "Boiler", Manager: "Dave", Type: model.ShiftAllDay,
	}}}, nil)
	if err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}

	shifts, err := fs.ListShiftsInRange(ctx, day, day)
	if err != nil || len(shifts) != 1 || shifts[0].ID != applied.Applied[0].Shift.ID {
		t.Fatalf("shifts=%+v, %v", shifts, err)
	}

	done, err := fs.ApplyBatch(ctx, []model.ShiftOp{{Kind: model.OpCreate, Shift: model.Shift{
		UserID: u.ID, Date: day, Address: "3 Mill Lane", Task: "Survey", Manager: "Dave", Type: model.ShiftMorning,
		Status: model.StatusCompleted,
	}}}, nil)
	if err != nil {
		t.Fatalf("ApplyBatch completed: %v", err)
	}
	completed := done.Applied[0].Shift
	protected := model.NewStatusSet(model.DefaultProtectedStatuses())
	res, err := fs.ApplyBatch(ctx, []model.ShiftOp{{Kind: model.OpDelete, Shift: completed}}, protected)
	if err != nil {
		t.Fatalf("ApplyBatch delete: %v", err)
	}
	if len(res.Applied) != 0 || len(res.Skipped) != 1 {
		t.Fatalf("protected delete result=%+v", res)
	}
	if shifts, _ := fs.ListShiftsInRange(ctx, day, day); len(shifts) != 2 {
		t.Fatalf("completed shift should survive, got %d shifts", len(shifts))
	}

	mgr := "Sam"
	_, err = fs.ApplyBatch(ctx, []model.ShiftOp{{Kind: model.OpUpdate, Update: &model.ShiftUpdate{ID: "missing", Manager: &mgr}}}, protected)
	if !errors.Is(err, ErrShiftNotFound) {
		t.Fatalf("expected ErrShiftNotFound, got %v", err)
	}

	ops := make([]model.ShiftOp, MaxBatchOps+1)
	if _, err := fs.ApplyBatch(ctx, ops, protected); !errors.Is(err, ErrBatchTooLarge) {
		t.Fatalf("expected ErrBatchTooLarge, got %v", err)
	}
}
