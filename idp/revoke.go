package idp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	gwerrors "github.com/jrsteele09/hireai-gateway/internal/errors"
	"github.com/jrsteele09/hireai-gateway/oauth2"
)

// Revoke ends the refresh token's session at the provider.
//
// Keycloak's end_session_endpoint accepts a back-channel POST with the refresh token; providers
// without one are sent an RFC 7009 revocation request instead.
func (c *Client) Revoke(ctx context.Context, refreshToken string) error {
	form := url.Values{"client_id": {c.oauth.ClientID}}
	if c.oauth.ClientSecret != "" {
		form.Set("client_secret", c.oauth.ClientSecret)
	}

	endpoint := c.endpoints.EndSession
	switch {
	case endpoint != "":
		form.Set("refresh_token", refreshToken)
	case c.endpoints.Revocation != "":
		endpoint = c.endpoints.Revocation
		form.Set("token", refreshToken)
		form.Set("token_type_hint", string(oauth2.RefreshTokenHint))
	default:
		return gwerrors.ErrRevocationSkipped
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("[idp Revoke] failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return providerError("revoke", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: revoke: unexpected status %d", gwerrors.ErrIdentityProvider, resp.StatusCode)
	}
	return nil
}
