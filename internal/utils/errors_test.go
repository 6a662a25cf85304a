package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeNotFound, http.StatusNotFound},
		{CodeUnprocessable, http.StatusUnprocessableEntity},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeBadGateway, http.StatusBadGateway},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		got := HTTPStatus(E(tc.code, "Test", "msg", nil))
		if got != tc.want {
			t.Fatalf("code %s: expected %d, got %d", tc.code, tc.want, got)
		}
	}
}

func TestHTTPStatus_WrappedAppError(t *testing.T) {
	err := fmt.Errorf("outer: %w", E(CodeUnprocessable, "Op", "empty", nil))
	if got := HTTPStatus(err); got != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", got)
	}
}

func TestHTTPStatus_Fallbacks(t *testing.T) {
	if got := HTTPStatus(fmt.Errorf("x: %w", ErrNotFound)); got != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", got)
	}
	if got := HTTPStatus(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got)
	}
}

func TestAppError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := E(CodeUnavailable, "ChatService.Reply", "chat service unreachable", cause)

	if err.Error() != "ChatService.Reply: chat service unreachable: dial tcp: refused" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable")
	}
	if !IsCode(err, CodeUnavailable) {
		t.Fatal("expected CodeUnavailable")
	}
	if CodeOf(errors.New("plain")) != CodeInternal {
		t.Fatal("expected CodeInternal for plain errors")
	}
}

func TestPublicMessage(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:11434: connection refused")
	err := fmt.Errorf("wrapped: %w", E(CodeBadGateway, "ChatService.Reply", "chat service call failed", cause))
	if got := PublicMessage(err); got != "chat service call failed" {
		t.Fatalf("PublicMessage = %q", got)
	}
	if got := PublicMessage(cause); got != "" {
		t.Fatalf("plain errors must not leak, got %q", got)
	}
}

func TestCodeStatus_Unknown(t *testing.T) {
	if got := Code("SOMETHING_ELSE").Status(); got != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got)
	}
}
