package geo

import (
	"math"
	"strings"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestDistanceZeroAtSamePoint(t *testing.T) {
	if d := Distance(31.2, 34.8, 31.2, 34.8); d != 0 {
		t.Fatalf("expected zero distance, got %f", d)
	}
}

func TestDistanceKnownValue(t *testing.T) {
	// 0.0006 degrees of longitude at the equator is roughly 66.8 meters.
	d := Distance(0, 0, 0, 0.0006)
	if math.Abs(d-66.7) > 1.0 {
		t.Fatalf("expected ~66.7m, got %f", d)
	}
}

func TestEvaluateInsideFence(t *testing.T) {
	ev := Evaluate(0, 0, 50, f(0), f(0))
	if ev.Flagged {
		t.Fatalf("check-in at center flagged: %q", ev.Reason)
	}
	if ev.DistanceM == nil || *ev.DistanceM != 0 {
		t.Fatalf("expected distance 0, got %v", ev.DistanceM)
	}
	if ev.Reason != "" {
		t.Fatalf("expected empty reason, got %q", ev.Reason)
	}
}

func TestEvaluateOutsideFence(t *testing.T) {
	ev := Evaluate(0, 0, 50, f(0), f(0.0006))
	if !ev.Flagged {
		t.Fatal("check-in ~66m outside a 50m fence not flagged")
	}
	if ev.DistanceM == nil || *ev.DistanceM <= 50 {
		t.Fatalf("expected distance > 50m, got %v", ev.DistanceM)
	}
	if !strings.Contains(ev.Reason, "outside 50m geofence") {
		t.Fatalf("unexpected reason %q", ev.Reason)
	}
}

func TestEvaluateMissingCoordinates(t *testing.T) {
	ev := Evaluate(0, 0, 50, nil, nil)
	if !ev.Flagged {
		t.Fatal("missing coordinates must flag the check-in")
	}
	if ev.Reason != "no location reported" {
		t.Fatalf("unexpected reason %q", ev.Reason)
	}
	if ev.DistanceM != nil {
		t.Fatalf("expected nil distance, got %v", *ev.DistanceM)
	}
}

func TestValidCoordinates(t *testing.T) {
	cases := []struct {
		name string
		lat  *float64
		lng  *float64
		want bool
	}{
		{"both nil", nil, nil, true},
		{"only lat", f(10), nil, false},
		{"only lng", nil, f(10), false},
		{"in range", f(45.5), f(-73.6), true},
		{"lat too big", f(90.1), f(0), false},
		{"lng too small", f(0), f(-180.5), false},
		{"boundary", f(-90), f(180), true},
	}
	for _, tc := range cases {
		if got := ValidCoordinates(tc.lat, tc.lng); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}
