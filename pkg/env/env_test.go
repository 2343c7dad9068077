package env

import "testing"

func TestGetPrefersPrefixedValue(t *testing.T) {
	t.Setenv("CAFEFLOW_LOG_FORMAT", "console")
	t.Setenv("LOG_FORMAT", "json")
	if got := Get("LOG_FORMAT", "text"); got != "console" {
		t.Fatalf("expected prefixed value, got %q", got)
	}
}

func TestGetFallsBack(t *testing.T) {
	t.Setenv("PORT", "")
	if got := Get("PORT", "8080"); got != "8080" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("PORT", " 9090 ")
	if got := Get("PORT", "8080"); got != "9090" {
		t.Fatalf("expected trimmed bare value, got %q", got)
	}
}
