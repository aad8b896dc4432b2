package validator

import (
	"errors"
	"testing"
)

type sample struct {
	Email string `json:"email" validate:"required,email"`
	Stage *int   `json:"stage" validate:"required,min=0,max=4"`
	Kind  string `json:"kind" validate:"omitempty,oneof=approve cancel"`
}

func TestStructReportsFieldsByJSONName(t *testing.T) {
	err := New().Struct(sample{Email: "nope", Kind: "launch"})

	var fe FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldErrors, got %T %v", err, err)
	}
	if fe["email"] != "must be a valid email" {
		t.Fatalf("email: %q", fe["email"])
	}
	if fe["stage"] != "is required" {
		t.Fatalf("stage: %q", fe["stage"])
	}
	if fe["kind"] != "must be one of approve cancel" {
		t.Fatalf("kind: %q", fe["kind"])
	}
	if got := fe.Error(); got != "email must be a valid email; kind must be one of approve cancel; stage is required" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestStructBounds(t *testing.T) {
	seven := 7
	err := New().Struct(sample{Email: "ada@example.com", Stage: &seven})

	var fe FieldErrors
	if !errors.As(err, &fe) || fe["stage"] != "must be at most 4" {
		t.Fatalf("expected max violation, got %v", err)
	}

	zero := 0
	if err := New().Struct(sample{Email: "ada@example.com", Stage: &zero}); err != nil {
		t.Fatalf("stage 0 is valid: %v", err)
	}
}
