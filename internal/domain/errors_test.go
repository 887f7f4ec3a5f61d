package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   ErrorKind
		status int
	}{
		{"validation", Validationf("bad input"), KindValidation, http.StatusBadRequest},
		{"not found", NotFoundf("missing"), KindNotFound, http.StatusNotFound},
		{"conflict", Conflictf("taken"), KindConflict, http.StatusConflict},
		{"unauthorized", Unauthorizedf("not yours"), KindUnauthorized, http.StatusForbidden},
		{"plain error", errors.New("boom"), KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.kind {
				t.Errorf("KindOf() = %v, want %v", got, tt.kind)
			}
			if got := StatusOf(tt.err); got != tt.status {
				t.Errorf("StatusOf() = %d, want %d", got, tt.status)
			}
		})
	}
}

func TestErrorUnwrapsThroughWrapping(t *testing.T) {
	base := NotFoundf("Game not found")
	wrapped := fmt.Errorf("handling request: %w", base)

	if KindOf(wrapped) != KindNotFound {
		t.Errorf("KindOf(wrapped) = %v, want KindNotFound", KindOf(wrapped))
	}
	if StatusOf(wrapped) != http.StatusNotFound {
		t.Errorf("StatusOf(wrapped) = %d, want 404", StatusOf(wrapped))
	}
}

func TestErrorMessageFormatting(t *testing.T) {
	err := Validationf("Unknown intent type: %s", "TELEPORT")
	if err.Error() != "Unknown intent type: TELEPORT" {
		t.Errorf("Error() = %q", err.Error())
	}
}
