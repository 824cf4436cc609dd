package booking

import (
	"testing"
	"time"
)

func TestStartIntervalMatches(t *testing.T) {
	day := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		interval StartInterval
		begin    time.Time
		want     bool
	}{
		{"15 min on boundary", StartInterval15, day.Add(10*time.Hour + 45*time.Minute), true},
		{"15 min off boundary", StartInterval15, day.Add(10*time.Hour + 50*time.Minute), false},
		{"30 min on boundary", StartInterval30, day.Add(9*time.Hour + 30*time.Minute), true},
		{"30 min off boundary", StartInterval30, day.Add(9*time.Hour + 45*time.Minute), false},
		{"60 min on boundary", StartInterval60, day.Add(13 * time.Hour), true},
		{"60 min off boundary", StartInterval60, day.Add(13*time.Hour + 15*time.Minute), false},
		{"90 min on boundary", StartInterval90, day.Add(10*time.Hour + 30*time.Minute), true},
		{"90 min off boundary", StartInterval90, day.Add(11 * time.Hour), false},
		{"midnight always matches", StartInterval90, day, true},
		{"seconds break the boundary", StartInterval15, day.Add(10*time.Hour + 15*time.Minute + 30*time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.interval.Matches(tt.begin); got != tt.want {
				t.Fatalf("Matches(%v) = %v, want %v", tt.begin, got, tt.want)
			}
		})
	}
}

func TestStartIntervalValid(t *testing.T) {
	for _, si := range []StartInterval{StartInterval15, StartInterval30, StartInterval60, StartInterval90} {
		if !si.Valid() {
			t.Fatalf("%d should be valid", si)
		}
	}
	if StartInterval(45).Valid() {
		t.Fatalf("45 minutes is not a supported interval")
	}
}

func TestReservationBlocksSlot(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{StateCreated, true},
		{StateConfirmed, true},
		{StateRequiresHandling, true},
		{StateWaitingForPayment, true},
		{StateCancelled, false},
		{StateDenied, false},
	}

	for _, tt := range tests {
		reservation := Reservation{State: tt.state}
		if got := reservation.BlocksSlot(); got != tt.want {
			t.Fatalf("BlocksSlot() in %s = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestReservationLinksUnit(t *testing.T) {
	reservation := Reservation{ReservationUnitIDs: []string{"runit-1", "runit-2"}}
	if !reservation.LinksUnit("runit-2") {
		t.Fatal("LinksUnit must find a linked unit")
	}
	if reservation.LinksUnit("runit-3") {
		t.Fatal("LinksUnit must reject an unlinked unit")
	}
}

func TestStateTransitionsAllowed(t *testing.T) {
	if !StateCreated.CanConfirm() || !StateWaitingForPayment.CanConfirm() {
		t.Fatalf("CREATED and WAITING_FOR_PAYMENT must be confirmable")
	}
	if StateConfirmed.CanConfirm() {
		t.Fatalf("CONFIRMED must not be confirmable again")
	}
	if !StateRequiresHandling.CanApprove() || !StateRequiresHandling.CanDeny() {
		t.Fatalf("REQUIRES_HANDLING must accept approve and deny")
	}
	if StateCreated.CanApprove() || StateConfirmed.CanDeny() {
		t.Fatalf("approve/deny are restricted to REQUIRES_HANDLING")
	}
	if !StateCreated.CanCancel() || !StateConfirmed.CanCancel() {
		t.Fatalf("CREATED and CONFIRMED must be cancellable")
	}
	if StateDenied.CanCancel() || StateCancelled.CanCancel() {
		t.Fatalf("terminal states must not be cancellable")
	}
	if !StateCancelled.Terminal() || !StateDenied.Terminal() || StateConfirmed.Terminal() {
		t.Fatalf("terminal set must be exactly CANCELLED and DENIED")
	}
}
