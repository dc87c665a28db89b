package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "forum-service/pkg/errors"
)

// UpstreamSession is what the hosted auth backend returns from a
// credential exchange. The backend itself is opaque to this service.
type UpstreamSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// UpstreamClient is the user-directory collaborator consumed by the
// session resolver.
type UpstreamClient interface {
	// ExchangeSession validates an access/refresh credential pair and
	// returns the authoritative session, refreshing the pair if needed.
	ExchangeSession(ctx context.Context, accessToken, refreshToken string) (*UpstreamSession, error)
}

type upstreamHTTPClient struct {
	baseURL string
	anonKey string
	client  *http.Client
}

// NewUpstreamClient builds the HTTP implementation of UpstreamClient.
// The http.Client carries no timeout of its own; the resolver bounds
// every call through its context.
func NewUpstreamClient(baseURL, anonKey string) UpstreamClient {
	return &upstreamHTTPClient{
		baseURL: baseURL,
		anonKey: anonKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (u *upstreamHTTPClient) ExchangeSession(ctx context.Context, accessToken, refreshToken string) (*UpstreamSession, error) {
	// Validate the access credential first; fall back to a refresh
	// grant when it is no longer accepted.
	session, err := u.currentUser(ctx, accessToken, refreshToken)
	if err == nil {
		return session, nil
	}

	return u.refreshGrant(ctx, refreshToken)
}

func (u *upstreamHTTPClient) currentUser(ctx context.Context, accessToken, refreshToken string) (*UpstreamSession, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}
	u.decorate(req, accessToken)

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, apperrors.Upstream("user lookup failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Unauthorized(fmt.Sprintf("upstream rejected access token: status %d", resp.StatusCode))
	}

	session := &UpstreamSession{AccessToken: accessToken, RefreshToken: refreshToken}
	if err := json.NewDecoder(resp.Body).Decode(&session.User); err != nil {
		return nil, apperrors.Upstream("malformed user payload", err)
	}
	session.ExpiresAt = claimExpiry(accessToken)
	return session, nil
}

func (u *upstreamHTTPClient) refreshGrant(ctx context.Context, refreshToken string) (*UpstreamSession, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		u.baseURL+"/auth/v1/token?grant_type=refresh_token", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	u.decorate(req, "")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, apperrors.Upstream("token refresh failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Unauthorized(fmt.Sprintf("upstream rejected refresh token: status %d", resp.StatusCode))
	}

	session := &UpstreamSession{}
	if err := json.NewDecoder(resp.Body).Decode(session); err != nil {
		return nil, apperrors.Upstream("malformed session payload", err)
	}
	if session.ExpiresAt == 0 {
		session.ExpiresAt = claimExpiry(session.AccessToken)
	}
	return session, nil
}

func (u *upstreamHTTPClient) decorate(req *http.Request, bearer string) {
	req.Header.Set("apikey", u.anonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
}
