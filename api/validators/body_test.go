package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/cafeflow-backend/pkg/errors"
)

type feedbackBody struct {
	Rating   int    `json:"rating" validate:"gte=1,lte=5"`
	Feedback string `json:"feedback" validate:"max=1000"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating":9}`))
	var body feedbackBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || details["rating"] != "must be at most 5" {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating":4,"tip":3}`))
	var body feedbackBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown field, got %v", err)
	}
}

func TestDecodeJSONBodyAccepts(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating":5,"feedback":"great"}`))
	var body feedbackBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Rating != 5 || body.Feedback != "great" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestSanitizeStringCutsRunes(t *testing.T) {
	if got := SanitizeString("  cà phê sữa  ", 6); got != "cà phê" {
		t.Fatalf("unexpected sanitize result %q", got)
	}
	if got := SanitizeString(" ok ", 0); got != "ok" {
		t.Fatalf("unexpected sanitize result %q", got)
	}
}
