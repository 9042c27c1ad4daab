package services

import (
	"context"
	"errors"
	"net"

	"github.com/MegaGrindStone/genai-dashboard/internal/models"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ollama/ollama/api"
	goopenai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// providerError converts an SDK error into a models.ProviderError so the handlers never need to know
// which SDK produced it.
func providerError(provider string, err error) *models.ProviderError {
	var pErr *models.ProviderError
	if errors.As(err, &pErr) {
		return pErr
	}

	res := &models.ProviderError{
		Provider: provider,
		Kind:     models.ProviderErrorUnknown,
		Message:  err.Error(),
		Err:      err,
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		res.Kind = models.ProviderErrorTimeout
		return res
	}

	var oaiAPIErr *goopenai.APIError
	var oaiReqErr *goopenai.RequestError
	var anthropicErr *anthropic.Error
	var ollamaErr api.StatusError
	var genaiErr genai.APIError
	switch {
	case errors.As(err, &oaiAPIErr):
		res.Kind = models.ProviderErrorRejected
		res.StatusCode = oaiAPIErr.HTTPStatusCode
		res.Message = oaiAPIErr.Message
	case errors.As(err, &oaiReqErr):
		res.Kind = models.ProviderErrorRejected
		res.StatusCode = oaiReqErr.HTTPStatusCode
	case errors.As(err, &anthropicErr):
		res.Kind = models.ProviderErrorRejected
		res.StatusCode = anthropicErr.StatusCode
	case errors.As(err, &ollamaErr):
		res.Kind = models.ProviderErrorRejected
		res.StatusCode = ollamaErr.StatusCode
		if ollamaErr.ErrorMessage != "" {
			res.Message = ollamaErr.ErrorMessage
		}
	case errors.As(err, &genaiErr):
		res.Kind = models.ProviderErrorRejected
		res.StatusCode = genaiErr.Code
		if genaiErr.Message != "" {
			res.Message = genaiErr.Message
		}
	}

	return res
}

// emptyResultError reports a provider answer that carried nothing usable.
func emptyResultError(provider, name string) *models.ProviderError {
	return &models.ProviderError{
		Provider: provider,
		Kind:     models.ProviderErrorMalformed,
		Message:  "No response from " + name + ".",
	}
}
