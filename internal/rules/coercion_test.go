package rules

import (
	"testing"
)

func TestLooksNumeric(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"42", true},
		{"3.5", true},
		{".5", true},
		{"0", true},
		{"", false},
		{".", false},
		{"1.2.3", false},
		{"-1", false},
		{" 3", false},
		{"1e5", false},
		{"abc", false},
		{"12abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := looksNumeric(tt.in); got != tt.want {
				t.Errorf("looksNumeric(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   float64
		wantOK bool
	}{
		{name: "float64 passthrough", value: 42.5, want: 42.5, wantOK: true},
		{name: "int", value: 100, want: 100, wantOK: true},
		{name: "int64", value: int64(999), want: 999, wantOK: true},
		{name: "uint8", value: uint8(7), want: 7, wantOK: true},
		{name: "float32", value: float32(1.5), want: 1.5, wantOK: true},
		{name: "numeric string", value: "25", want: 25, wantOK: true},
		{name: "decimal string", value: "3.25", want: 3.25, wantOK: true},
		{name: "leading dot string", value: ".5", want: 0.5, wantOK: true},
		{name: "negative string fails", value: "-100", wantOK: false},
		{name: "exponent string fails", value: "1e10", wantOK: false},
		{name: "padded string fails", value: " 42 ", wantOK: false},
		{name: "empty string fails", value: "", wantOK: false},
		{name: "word fails", value: "abc", wantOK: false},
		{name: "nil fails", value: nil, wantOK: false},
		{name: "bool fails", value: true, wantOK: false},
		{name: "slice fails", value: []any{1}, wantOK: false},
		{name: "map fails", value: map[string]any{"a": 1}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toNumber(tt.value)
			if ok != tt.wantOK {
				t.Fatalf("toNumber(%#v) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("toNumber(%#v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestIsNativeNumber(t *testing.T) {
	for _, v := range []any{1, int8(1), int64(1), uint(1), uint64(1), float32(1), 1.0} {
		if !isNativeNumber(v) {
			t.Errorf("isNativeNumber(%T) = false, want true", v)
		}
	}
	for _, v := range []any{nil, "1", true, []int{1}} {
		if isNativeNumber(v) {
			t.Errorf("isNativeNumber(%#v) = true, want false", v)
		}
	}
}

func TestCoerceEpoch(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		wantOK bool
	}{
		{name: "epoch seconds", value: 1_700_000_000.0, wantOK: true},
		{name: "epoch int64", value: int64(1_700_000_000), wantOK: true},
		{name: "epoch string", value: "1700000000", wantOK: true},
		{name: "year rejected", value: 2024, wantOK: false},
		{name: "threshold rejected", value: 10_000_000, wantOK: false},
		{name: "just above threshold", value: 10_000_001, wantOK: true},
		{name: "nil rejected", value: nil, wantOK: false},
		{name: "garbage rejected", value: "yesterday", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := coerceEpoch(tt.value)
			if ok != tt.wantOK {
				t.Errorf("coerceEpoch(%#v) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
		})
	}
}
