package phone

import (
	"errors"
	"testing"
)

func TestNormalizeEquivalentForms(t *testing.T) {
	inputs := []string{
		"0912345678",
		"0912 345 678",
		"0912-345-678",
		"+84912345678",
		"84912345678",
		"(0912) 345.678",
	}

	want := "+84912345678"
	for _, in := range inputs {
		got, err := Normalize(in, "84")
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	cases := []string{
		"",
		"abc",
		"0912x45678",
		"+",
		"12+345678901",
		"123",            // too short
		"0912345678",     // valid digits but checked below with empty country code
		"091234567890123456", // too long
	}

	for _, in := range cases {
		cc := "84"
		if in == "0912345678" {
			cc = ""
		}
		if _, err := Normalize(in, cc); !errors.Is(err, ErrInvalidPhone) {
			t.Fatalf("Normalize(%q) expected ErrInvalidPhone, got %v", in, err)
		}
	}
}

func TestNormalizeKeepsForeignPrefix(t *testing.T) {
	got, err := Normalize("+23765000000", "84")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got != "+23765000000" {
		t.Fatalf("expected explicit country code preserved, got %q", got)
	}
}
