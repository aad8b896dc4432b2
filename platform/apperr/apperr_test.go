package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindValidation, http.StatusBadRequest},
		{KindConflict, http.StatusConflict},
		{KindDuplicate, http.StatusOK},
		{KindExternal, http.StatusBadGateway},
		{KindGone, http.StatusGone},
		{KindUnknown, http.StatusBadRequest},
	}

	for _, tc := range cases {
		if got := New(tc.kind, "x").HTTPStatus(); got != tc.want {
			t.Fatalf("kind %d: expected %d, got %d", tc.kind, tc.want, got)
		}
	}
}

func TestGetKindFollowsWrapChain(t *testing.T) {
	base := Conflict("proposal already blasting")
	wrapped := fmt.Errorf("confirm: %w", base)

	if !Is(wrapped, KindConflict) {
		t.Fatalf("expected wrapped error to keep conflict kind")
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatalf("expected plain error to be unknown kind")
	}
}

func TestErrorMessageIncludesOpAndCause(t *testing.T) {
	err := External("crm", errors.New("timeout")).WithOp("crm.UpdateProperty")
	want := "crm.UpdateProperty: crm unavailable: timeout"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}
