package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/MegaGrindStone/genai-dashboard/internal/models"
)

type failureKind int

const (
	unauthenticated failureKind = iota + 1
	providerNotConfigured
	invalidInput
	providerFailure
)

// failure is every way a mediator request can end without a result. Each kind maps to exactly one status.
type failure struct {
	kind    failureKind
	message string
	err     error
}

const internalErrorFallback = "Internal error occurred"

func (f failure) status() int {
	switch f.kind {
	case unauthenticated:
		return http.StatusUnauthorized
	case invalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func unauthorized() failure {
	return failure{kind: unauthenticated, message: "Unauthorized"}
}

func notConfigured(provider string) failure {
	return failure{kind: providerNotConfigured, message: provider + " API key not configured"}
}

func badInput(message string, err error) failure {
	return failure{kind: invalidInput, message: message, err: err}
}

// providerFailed maps a generator error to a failure. The provider detail is passed on to the caller; an
// error that did not come from a provider adapter only gets the fixed fallback.
func providerFailed(err error) failure {
	f := failure{kind: providerFailure, message: internalErrorFallback, err: err}

	var pErr *models.ProviderError
	if !errors.As(err, &pErr) {
		return f
	}
	if pErr.Kind == models.ProviderErrorMalformed && pErr.Message != "" {
		f.message = pErr.Message
		return f
	}
	f.message = "Internal error: " + pErr.Detail()
	return f
}

// fail logs f and writes it as a plain text response.
func (m Main) fail(w http.ResponseWriter, r *http.Request, tool string, f failure) {
	attrs := []any{
		slog.String("tool", tool),
		slog.String("path", r.URL.Path),
		slog.Int("status", f.status()),
		slog.String("message", f.message),
	}
	if f.err != nil {
		attrs = append(attrs, slog.String(errLoggerKey, f.err.Error()))
	}

	switch f.kind {
	case providerFailure:
		m.logger.Error("Generation failed", attrs...)
	case providerNotConfigured:
		m.logger.Warn("Provider not configured", attrs...)
	default:
		m.logger.Debug("Request rejected", attrs...)
	}

	http.Error(w, f.message, f.status())
}

// authorize checks the preconditions shared by every tool, in order: the caller must be authenticated and
// the provider must be configured. It writes the failure and returns false when a check fails.
func (m Main) authorize(w http.ResponseWriter, r *http.Request, tool, provider string, configured bool) bool {
	userID, err := m.identity.UserID(r)
	if err != nil {
		m.logger.Warn("Identity lookup failed", slog.String(errLoggerKey, err.Error()))
	}
	if userID == "" {
		m.fail(w, r, tool, unauthorized())
		return false
	}

	if !configured {
		m.fail(w, r, tool, notConfigured(provider))
		return false
	}

	m.logger.Debug("Authorized", slog.String("tool", tool), slog.String("userID", userID))
	return true
}
