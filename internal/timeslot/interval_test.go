package timeslot

import (
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, time.June, 3, hour, minute, 0, 0, time.UTC)
}

func TestIntervalIntersects(t *testing.T) {
	tests := []struct {
		name string
		a    Interval
		b    Interval
		want bool
	}{
		{
			name: "partial overlap",
			a:    Interval{Begin: at(10, 0), End: at(11, 0)},
			b:    Interval{Begin: at(10, 30), End: at(11, 30)},
			want: true,
		},
		{
			name: "containment",
			a:    Interval{Begin: at(9, 0), End: at(12, 0)},
			b:    Interval{Begin: at(10, 0), End: at(11, 0)},
			want: true,
		},
		{
			name: "back to back does not intersect",
			a:    Interval{Begin: at(10, 0), End: at(11, 0)},
			b:    Interval{Begin: at(11, 0), End: at(12, 0)},
			want: false,
		},
		{
			name: "disjoint",
			a:    Interval{Begin: at(10, 0), End: at(11, 0)},
			b:    Interval{Begin: at(13, 0), End: at(14, 0)},
			want: false,
		},
		{
			name: "identical",
			a:    Interval{Begin: at(10, 0), End: at(11, 0)},
			b:    Interval{Begin: at(10, 0), End: at(11, 0)},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Intersects(tt.b); got != tt.want {
				t.Fatalf("Intersects() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Intersects(tt.a); got != tt.want {
				t.Fatalf("Intersects() not symmetric: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntervalExpand(t *testing.T) {
	iv := Interval{Begin: at(10, 0), End: at(11, 0)}

	expanded := iv.Expand(30*time.Minute, 15*time.Minute)
	if !expanded.Begin.Equal(at(9, 30)) || !expanded.End.Equal(at(11, 15)) {
		t.Fatalf("Expand() = [%v, %v)", expanded.Begin, expanded.End)
	}

	unchanged := iv.Expand(0, -time.Minute)
	if !unchanged.Begin.Equal(iv.Begin) || !unchanged.End.Equal(iv.End) {
		t.Fatalf("non-positive buffers must not move bounds, got [%v, %v)", unchanged.Begin, unchanged.End)
	}
}

func TestIntervalContains(t *testing.T) {
	outer := Interval{Begin: at(8, 0), End: at(16, 0)}

	if !outer.Contains(Interval{Begin: at(8, 0), End: at(16, 0)}) {
		t.Fatalf("interval should contain itself")
	}
	if !outer.Contains(Interval{Begin: at(9, 0), End: at(10, 0)}) {
		t.Fatalf("interval should contain inner range")
	}
	if outer.Contains(Interval{Begin: at(7, 59), End: at(9, 0)}) {
		t.Fatalf("interval must not contain range starting earlier")
	}
	if outer.Contains(Interval{Begin: at(15, 0), End: at(16, 1)}) {
		t.Fatalf("interval must not contain range ending later")
	}
}
