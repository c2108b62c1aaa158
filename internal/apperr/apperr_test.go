package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestError_MatchesKindAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("generate: %w", Wrap(ErrGenerationFailed, "parse response", cause))

	if !errors.Is(err, ErrGenerationFailed) {
		t.Error("expected error to match ErrGenerationFailed")
	}
	if !errors.Is(err, cause) {
		t.Error("expected error to match its cause")
	}
	if errors.Is(err, ErrUpstream) {
		t.Error("did not expect error to match ErrUpstream")
	}
}

func TestUpstreamError_IsUpstream(t *testing.T) {
	err := fmt.Errorf("synthesize: %w", &UpstreamError{Provider: "anthropic", StatusCode: 529})
	if !errors.Is(err, ErrUpstream) {
		t.Fatal("expected UpstreamError to match ErrUpstream")
	}

	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.StatusCode != 529 {
		t.Errorf("expected status 529 via errors.As, got %+v", ue)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{New(ErrInvalidArgument, "bad difficulty"), http.StatusBadRequest},
		{New(ErrUnauthorized, "no token"), http.StatusUnauthorized},
		{New(ErrNotFound, "attempt"), http.StatusNotFound},
		{New(ErrConflict, "completed"), http.StatusConflict},
		{New(ErrAlreadyCompleted, "daily"), http.StatusConflict},
		{&UpstreamError{Provider: "anthropic", StatusCode: 500}, http.StatusBadGateway},
		{New(ErrGenerationFailed, "no json"), http.StatusBadGateway},
		{New(ErrConfiguration, "missing key"), http.StatusInternalServerError},
		{errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
