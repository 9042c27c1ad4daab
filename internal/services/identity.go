package services

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// HeaderIdentity reads the caller's user ID from a request header set by an authenticating reverse proxy.
// The header must be stripped from client traffic by that proxy.
type HeaderIdentity struct {
	header string
}

// DefaultIdentityHeader is the header HeaderIdentity reads when none is configured.
const DefaultIdentityHeader = "X-User-ID"

// NewHeaderIdentity creates a HeaderIdentity reading the given header.
func NewHeaderIdentity(header string) HeaderIdentity {
	if header == "" {
		header = DefaultIdentityHeader
	}
	return HeaderIdentity{header: header}
}

// Header returns the name of the header the user ID is read from.
func (h HeaderIdentity) Header() string {
	return h.header
}

// UserID returns the trimmed header value, empty when the caller is anonymous.
func (h HeaderIdentity) UserID(r *http.Request) (string, error) {
	return strings.TrimSpace(r.Header.Get(h.header)), nil
}

// RemoteIdentity resolves the caller by forwarding its credentials to a userinfo endpoint of the identity
// provider. The endpoint answers 2xx with {"user_id": "..."} or {"sub": "..."} for a known caller, and
// 401 or 403 otherwise.
type RemoteIdentity struct {
	url string

	client *resty.Client

	logger *slog.Logger
}

type userInfo struct {
	UserID string `json:"user_id"`
	Sub    string `json:"sub"`
}

// NewRemoteIdentity creates a RemoteIdentity calling the given userinfo URL.
func NewRemoteIdentity(url string, logger *slog.Logger) RemoteIdentity {
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	client.SetHeader("Accept", "application/json")

	return RemoteIdentity{
		url:    url,
		client: client,
		logger: logger.With(slog.String("module", "identity")),
	}
}

// UserID returns the caller's user ID, or an empty string when the caller presented no credentials or the
// identity provider did not recognise them. Transport failures and unexpected statuses are errors.
func (ri RemoteIdentity) UserID(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	cookie := r.Header.Get("Cookie")
	if auth == "" && cookie == "" {
		return "", nil
	}

	req := ri.client.R().
		SetContext(r.Context()).
		SetResult(&userInfo{})
	if auth != "" {
		req.SetHeader("Authorization", auth)
	}
	if cookie != "" {
		req.SetHeader("Cookie", cookie)
	}

	resp, err := req.Get(ri.url)
	if err != nil {
		return "", fmt.Errorf("failed to call identity provider: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized, resp.StatusCode() == http.StatusForbidden:
		ri.logger.Debug("Identity provider rejected credentials", slog.Int("status", resp.StatusCode()))
		return "", nil
	case !resp.IsSuccess():
		return "", fmt.Errorf("identity provider returned status %d", resp.StatusCode())
	}

	info, ok := resp.Result().(*userInfo)
	if !ok {
		return "", fmt.Errorf("unexpected identity provider response: %s", resp.String())
	}
	if info.UserID != "" {
		return info.UserID, nil
	}
	return info.Sub, nil
}
