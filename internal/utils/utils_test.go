package utils

import "testing"

func TestIsDate(t *testing.T) {
	cases := map[string]bool{
		"2024-05-01":  true,
		" 2024-05-01": true,
		"2024-13-01":  false,
		"2024-02-30":  false,
		"01/05/2024":  false,
		"":            false,
	}
	for in, want := range cases {
		if got := IsDate(in); got != want {
			t.Errorf("IsDate(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		in     string
		want   bool
		wantOK bool
	}{
		{"on", true, true},
		{"OFF", false, true},
		{"true", true, true},
		{"0", false, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		got, ok := ParseFlag(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseFlag(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestHumanMB(t *testing.T) {
	if got := HumanMB(0); got != "0.00 MB" {
		t.Fatalf("HumanMB(0) = %q", got)
	}
	if got := HumanMB(3 * 1024 * 1024 / 2); got != "1.50 MB" {
		t.Fatalf("HumanMB(1.5MB) = %q", got)
	}
}

func TestGetAbsDBPathDefault(t *testing.T) {
	p, err := GetAbsDBPath("")
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	if p == "" {
		t.Fatal("expected a default path")
	}
}
