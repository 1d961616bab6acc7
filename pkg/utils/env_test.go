package utils

import "testing"

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("TANGLE_TEST_KEY", "value")
	if got := EnvOrDefault("TANGLE_TEST_KEY", "fallback"); got != "value" {
		t.Fatalf("got %q", got)
	}
	if got := EnvOrDefault("TANGLE_TEST_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("got %q", got)
	}
	t.Setenv("TANGLE_TEST_EMPTY", "")
	if got := EnvOrDefault("TANGLE_TEST_EMPTY", "fallback"); got != "fallback" {
		t.Fatalf("empty value must fall back, got %q", got)
	}
}

func TestEnvOrDefaultInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"Parsed", "42", 42},
		{"Unparseable", "forty-two", 7},
		{"Empty", "", 7},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TANGLE_TEST_INT", tc.value)
			if got := EnvOrDefaultInt("TANGLE_TEST_INT", 7); got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"One", "1", true},
		{"Zero", "0", false},
		{"True", "true", true},
		{"Junk", "junk", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TANGLE_TEST_BOOL", tc.value)
			if got := EnvOrDefaultBool("TANGLE_TEST_BOOL", false); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}
