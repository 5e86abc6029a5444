package matcher

import (
	"strings"
	"testing"
	"time"

	"broadoak/internal/model"
)

func directory() []model.User {
	return []model.User{
		{ID: "u2", Name: "Bob Jones"},
		{ID: "u1", Name: "Alice Smith"},
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	r := NewResolver(directory())
	cases := []struct {
		raw    string
		wantID string
		ok     bool
	}{
		{"Alice Smith", "u1", true},
		{" alice   SMITH. ", "u1", true},
		{"Bob", "u2", true},
		{"Alise", "u1", true},
		{"Bob Jone", "u2", true},
		{"Zachary", "", false},
		{"", "", false},
		{"--", "", false},
	}
	for _, tc := range cases {
		u, ok := r.Resolve(tc.raw)
		if ok != tc.ok || u.ID != tc.wantID {
			t.Fatalf("Resolve(%q)=%q,%v want %q,%v", tc.raw, u.ID, ok, tc.wantID, tc.ok)
		}
	}
}

func TestResolve_ShortNamesNeedExactMatch(t *testing.T) {
	t.Parallel()

	r := NewResolver([]model.User{
		{ID: "u3", Name: "Sam Price"},
		{ID: "u4", Name: "Al Green"},
		{ID: "u5", Name: "Jo"},
	})
	cases := []struct {
		raw    string
		wantID string
		ok     bool
	}{
		{"a", "", false},
		{"S", "", false},
		{"sa", "", false},
		{"pr", "", false},
		{"al", "u4", true},
		{"JO", "u5", true},
		{"Sam", "u3", true},
		{"Smm", "u3", true},
	}
	for _, tc := range cases {
		u, ok := r.Resolve(tc.raw)
		if ok != tc.ok || u.ID != tc.wantID {
			t.Fatalf("Resolve(%q)=%q,%v want %q,%v", tc.raw, u.ID, ok, tc.wantID, tc.ok)
		}
	}
}

func TestResolve_DeterministicTies(t *testing.T) {
	t.Parallel()

	a := []model.User{{ID: "u9", Name: "Sam Hughes"}, {ID: "u3", Name: "Sam Price"}}
	b := []model.User{{ID: "u3", Name: "Sam Price"}, {ID: "u9", Name: "Sam Hughes"}}

	for i := 0; i < 5; i++ {
		ua, _ := NewResolver(a).Resolve("Sam")
		ub, _ := NewResolver(b).Resolve("sam")
		if ua.ID != "u3" || ub.ID != "u3" {
			t.Fatalf("tie should resolve to lowest id: %q %q", ua.ID, ub.ID)
		}
	}
}

func TestResolveShifts_PartialFailure(t *testing.T) {
	t.Parallel()

	date := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	base := model.Shift{
		Date:       date,
		Address:    "12 High Street",
		Task:       "Boiler Service",
		SourceCell: "Boiler Service - Alise & Zachary",
		Sheet:      "Week 23",
	}
	alice, zach := base, base
	alice.RawName = "Alise"
	zach.RawName = "Zachary"

	shifts, failures := NewResolver(directory()).ResolveShifts([]model.Shift{alice, zach})
	if len(shifts) != 1 || shifts[0].UserID != "u1" || shifts[0].UserName != "Alice Smith" {
		t.Fatalf("shifts=%+v", shifts)
	}
	if len(failures) != 1 {
		t.Fatalf("failures=%+v", failures)
	}
	f := failures[0]
	if !strings.Contains(f.Reason, `"Zachary"`) || f.CellText != base.SourceCell || f.Sheet != "Week 23" {
		t.Fatalf("failure=%+v", f)
	}
	if f.Date == nil || !f.Date.Equal(date) {
		t.Fatalf("failure date=%v", f.Date)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	if got := Normalize("  O'Brien-Smith\tJr. "); got != "obriensmith jr" {
		t.Fatalf("Normalize=%q", got)
	}
}
