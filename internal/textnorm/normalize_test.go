package textnorm

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "ocr noise stripped and spaces collapsed",
			in:   "Take 2   tablets!! every# 4-6 hrs",
			want: "Take 2 tablets!! every 4-6 hrs",
		},
		{
			name: "multiline label flattened",
			in:   "ASPIRIN 325mg\n\n  Take with food.\n\tMax 8 per day.",
			want: "ASPIRIN 325mg Take with food. Max 8 per day.",
		},
		{
			name: "stripped run becomes one space",
			in:   "dose:***4***tablets",
			want: "dose 4 tablets",
		},
		{
			name: "unicode noise removed",
			in:   "Ibuprofen® 200µg — twice daily",
			want: "Ibuprofen 200 g twice daily",
		},
		{
			name: "kept punctuation",
			in:   `He said "take it", didn't he?!`,
			want: `He said "take it", didn't he?!`,
		},
		{name: "empty", in: "", want: ""},
		{name: "only noise", in: "###@@@***", want: ""},
		{name: "only whitespace", in: " \n\t \n ", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.in)
			if got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Take 2   tablets!! every# 4-6 hrs",
		"ASPIRIN\n325mg\n\nwith food",
		"  leading and trailing  ",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("not a fixed point: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestNormalizeWhitespaceLaw(t *testing.T) {
	inputs := []string{
		"a  b\n\n c\t\td",
		"   x   ",
		"##a##b##",
	}
	for _, in := range inputs {
		out := Normalize(in)
		if strings.Contains(out, "  ") {
			t.Fatalf("output %q contains doubled spaces", out)
		}
		if out != strings.TrimSpace(out) {
			t.Fatalf("output %q has leading/trailing whitespace", out)
		}
	}
}
