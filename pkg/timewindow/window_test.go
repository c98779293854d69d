package timewindow

import (
	"testing"
	"time"
)

func at(s string) time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return ts
}

func ptr(t time.Time) *time.Time { return &t }

func TestOverlaps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b Window
		want bool
	}{
		{
			name: "disjoint",
			a:    New(at("2026-01-01T00:00:00Z"), ptr(at("2026-02-01T00:00:00Z"))),
			b:    New(at("2026-03-01T00:00:00Z"), ptr(at("2026-04-01T00:00:00Z"))),
			want: false,
		},
		{
			name: "touching boundary is not overlap",
			a:    New(at("2026-01-01T00:00:00Z"), ptr(at("2026-02-01T00:00:00Z"))),
			b:    New(at("2026-02-01T00:00:00Z"), ptr(at("2026-03-01T00:00:00Z"))),
			want: false,
		},
		{
			name: "partial overlap",
			a:    New(at("2026-01-01T00:00:00Z"), ptr(at("2026-02-15T00:00:00Z"))),
			b:    New(at("2026-02-01T00:00:00Z"), ptr(at("2026-03-01T00:00:00Z"))),
			want: true,
		},
		{
			name: "containment",
			a:    New(at("2026-01-01T00:00:00Z"), ptr(at("2026-12-31T00:00:00Z"))),
			b:    New(at("2026-06-01T00:00:00Z"), ptr(at("2026-07-01T00:00:00Z"))),
			want: true,
		},
		{
			name: "unbounded end overlaps later window",
			a:    New(at("2026-01-01T00:00:00Z"), nil),
			b:    New(at("2030-01-01T00:00:00Z"), ptr(at("2030-02-01T00:00:00Z"))),
			want: true,
		},
		{
			name: "unbounded end before other starts",
			a:    New(at("2026-06-01T00:00:00Z"), nil),
			b:    New(at("2026-01-01T00:00:00Z"), ptr(at("2026-03-01T00:00:00Z"))),
			want: false,
		},
		{
			name: "two unbounded windows always overlap",
			a:    New(at("2026-01-01T00:00:00Z"), nil),
			b:    New(at("2027-01-01T00:00:00Z"), nil),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Fatalf("a.Overlaps(b) = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Fatalf("overlap must be symmetric: b.Overlaps(a) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContains(t *testing.T) {
	t.Parallel()

	w := New(at("2026-01-01T00:00:00Z"), ptr(at("2026-02-01T00:00:00Z")))

	if !w.Contains(at("2026-01-01T00:00:00Z")) {
		t.Fatal("start instant must be contained")
	}
	if w.Contains(at("2026-02-01T00:00:00Z")) {
		t.Fatal("end instant must be excluded under half-open semantics")
	}
	if w.Contains(at("2025-12-31T23:59:59Z")) {
		t.Fatal("instant before start must not be contained")
	}

	open := New(at("2026-01-01T00:00:00Z"), nil)
	if !open.Contains(at("2099-01-01T00:00:00Z")) {
		t.Fatal("unbounded window must contain any later instant")
	}
}

func TestContainsWindow(t *testing.T) {
	t.Parallel()

	outer := New(at("2026-01-01T00:00:00Z"), ptr(at("2026-12-31T00:00:00Z")))

	inner := New(at("2026-03-01T00:00:00Z"), ptr(at("2026-04-01T00:00:00Z")))
	if !outer.ContainsWindow(inner) {
		t.Fatal("inner window should be contained")
	}

	spilling := New(at("2026-03-01T00:00:00Z"), ptr(at("2027-01-15T00:00:00Z")))
	if outer.ContainsWindow(spilling) {
		t.Fatal("window spilling past the outer end should not be contained")
	}

	unboundedInner := New(at("2026-03-01T00:00:00Z"), nil)
	if outer.ContainsWindow(unboundedInner) {
		t.Fatal("unbounded window cannot fit inside a bounded one")
	}

	unboundedOuter := New(at("2026-01-01T00:00:00Z"), nil)
	if !unboundedOuter.ContainsWindow(unboundedInner) {
		t.Fatal("unbounded outer should contain later unbounded inner")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := New(at("2026-01-01T00:00:00Z"), ptr(at("2026-01-01T00:00:00Z"))).Validate(); err == nil {
		t.Fatal("zero-length window must be rejected")
	}
	if err := New(at("2026-02-01T00:00:00Z"), ptr(at("2026-01-01T00:00:00Z"))).Validate(); err == nil {
		t.Fatal("inverted window must be rejected")
	}
	if err := (Window{}).Validate(); err == nil {
		t.Fatal("zero start must be rejected")
	}
	if err := New(at("2026-01-01T00:00:00Z"), nil).Validate(); err != nil {
		t.Fatalf("unbounded window should validate: %v", err)
	}
}

func TestString(t *testing.T) {
	t.Parallel()

	bounded := New(at("2026-01-01T00:00:00Z"), ptr(at("2026-02-01T00:00:00Z")))
	if got := bounded.String(); got != "[2026-01-01T00:00:00Z, 2026-02-01T00:00:00Z)" {
		t.Fatalf("unexpected rendering: %q", got)
	}

	open := New(at("2026-01-01T00:00:00Z"), nil)
	if got := open.String(); got != "[2026-01-01T00:00:00Z, unbounded)" {
		t.Fatalf("unexpected open-end rendering: %q", got)
	}
	for _, r := range open.String() {
		if r > 127 {
			t.Fatalf("rendering must stay plain ASCII, got %q", open.String())
		}
	}
}
