package core

import "testing"

func TestRoundAmount(t *testing.T) {
	cases := []struct {
		in  float64
		out float64
	}{
		{250.555, 250.56},
		{250.554, 250.55},
		{1000, 1000},
		{0.005, 0.01},
		{0, 0},
		{-1.005, -1.01},
	}
	for _, tc := range cases {
		if got := RoundAmount(tc.in); got != tc.out {
			t.Errorf("RoundAmount(%v) = %v, expected %v", tc.in, got, tc.out)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"1.23", 1.23, true},
		{"1,23", 1.23, true},
		{"250.555", 250.56, true},
		{" 2.50 ", 2.5, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Errorf("ParseAmount(%q) = %v (err=%v), expected %v", tc.in, got, err, tc.out)
			}
		} else if err == nil {
			t.Errorf("ParseAmount(%q) expected error", tc.in)
		}
	}
}
