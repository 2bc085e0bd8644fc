package interval

import (
	"reflect"
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestFlatten(t *testing.T) {
	tests := []struct {
		spans []Span
		want  []Span
	}{
		{
			[]Span{{200, 300}, {0, 100}},
			[]Span{{0, 100}, {200, 300}},
		},
		{
			[]Span{{0, 100}, {50, 150}, {150, 200}},
			[]Span{{0, 200}},
		},
		{
			[]Span{{10, 10}, {5, 20}, {30, 30}},
			[]Span{{5, 20}},
		},
		{
			[]Span{{0, 50}, {0, 100}, {0, 25}},
			[]Span{{0, 100}},
		},
		{
			nil,
			nil,
		},
	}
	for _, tt := range tests {
		got := Flatten(append([]Span(nil), tt.spans...))
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Flatten(%v): wanted %v, got %v", tt.spans, tt.want, got)
		}
	}
}

func TestAnyOverlap(t *testing.T) {
	spans := []Span{{100, 200}, {400, 500}, {700, 900}}
	tests := []struct {
		start, end PosType
		want       bool
	}{
		{0, 100, false},
		{0, 101, true},
		{199, 200, true},
		{200, 400, false},
		{200, 401, true},
		{500, 700, false},
		{899, 1000, true},
		{900, 2000, false},
		{0, PosTypeMax - 1, true},
	}
	for _, tt := range tests {
		expect.EQ(t, tt.want, AnyOverlap(spans, tt.start, tt.end))
	}
	expect.False(t, AnyOverlap(nil, 0, PosTypeMax-1))
}

func TestSubtract(t *testing.T) {
	tests := []struct {
		spans []Span
		holes []Span
		want  []Span
	}{
		{
			[]Span{{0, 100}},
			nil,
			[]Span{{0, 100}},
		},
		{
			[]Span{{0, 100}},
			[]Span{{20, 30}},
			[]Span{{0, 20}, {30, 100}},
		},
		{
			[]Span{{0, 100}, {200, 300}},
			[]Span{{50, 250}},
			[]Span{{0, 50}, {250, 300}},
		},
		{
			[]Span{{0, 100}},
			[]Span{{0, 100}},
			nil,
		},
		{
			[]Span{{100, 200}},
			[]Span{{0, 50}, {300, 400}},
			[]Span{{100, 200}},
		},
	}
	for _, tt := range tests {
		got := Subtract(tt.spans, tt.holes)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Subtract(%v, %v): wanted %v, got %v", tt.spans, tt.holes, tt.want, got)
		}
	}
}

func TestTotalBases(t *testing.T) {
	expect.EQ(t, int64(0), TotalBases(nil))
	expect.EQ(t, int64(150), TotalBases([]Span{{0, 100}, {200, 250}}))
}
