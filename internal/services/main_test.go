package services

import (
	"io"
	"log/slog"
	"testing"

	"github.com/MegaGrindStone/genai-dashboard/internal/models"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var hiTranscript = []models.Message{
	{Role: models.RoleSystem, Content: "Be brief."},
	{Role: models.RoleUser, Content: "hi"},
}

// requireProviderError asserts err is a models.ProviderError of the given kind and returns it.
func requireProviderError(t *testing.T, err error, kind models.ProviderErrorKind) *models.ProviderError {
	t.Helper()

	require.Error(t, err)
	var pErr *models.ProviderError
	require.ErrorAs(t, err, &pErr)
	require.Equal(t, kind, pErr.Kind, "unexpected kind for %v", err)
	return pErr
}
