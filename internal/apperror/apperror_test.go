package apperror

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_UsesCatalogueMessage(t *testing.T) {
	err := New(CodeGasPriceFailed, WithContext("fallback"))

	if err.Message != "Gas price lookup failed" {
		t.Errorf("Message = %q", err.Message)
	}
	want := "GAS_PRICE_FAILED: Gas price lookup failed (fallback)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestNew_UnknownCodeFallsBackToCode(t *testing.T) {
	err := New(Code("SOMETHING_ELSE"))
	if err.Message != "SOMETHING_ELSE" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestCauseChain(t *testing.T) {
	root := errors.New("dial tcp: refused")
	inner := New(CodePrimaryRPCFailed, WithCause(root))
	outer := fmt.Errorf("pull: %w", inner)

	if !errors.Is(outer, root) {
		t.Error("errors.Is(outer, root) = false")
	}
	if GetCode(outer) != CodePrimaryRPCFailed {
		t.Errorf("GetCode = %s", GetCode(outer))
	}
	if !HasCode(outer, CodePrimaryRPCFailed) {
		t.Error("HasCode = false")
	}
	if HasCode(outer, CodeFallbackRPCFailed) {
		t.Error("HasCode matched a different code")
	}
	if !strings.HasSuffix(inner.Error(), ": dial tcp: refused") {
		t.Errorf("Error() does not include cause: %q", inner.Error())
	}
	if GetCode(root) != CodeUnknownError {
		t.Errorf("GetCode(plain) = %s", GetCode(root))
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, CodeGasForecastFailed, "x") != nil {
		t.Error("Wrap(nil) != nil")
	}

	existing := New(CodeInvalidGasForecast)
	if got := Wrap(existing, CodeGasForecastFailed, "x"); got != error(existing) {
		t.Error("Wrap re-wrapped an AppError")
	}

	plain := errors.New("eof")
	got := Wrap(plain, CodeGasForecastFailed, "suggestedGasFees")
	if GetCode(got) != CodeGasForecastFailed || !errors.Is(got, plain) {
		t.Errorf("Wrap(plain) = %v", got)
	}
}

func TestLogValue(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	log.Info("refresh failed", "error", New(CodeCircuitOpen, WithContext("eth-primary-block")))

	out := buf.String()
	for _, want := range []string{`"code":"CIRCUIT_OPEN"`, `"context":"eth-primary-block"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}

func TestStack(t *testing.T) {
	if s := New(CodeInvalidState).Stack(); !strings.Contains(s, "TestStack") {
		t.Errorf("Stack() missing caller frame: %q", s)
	}
}
