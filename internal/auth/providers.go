// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/vantari/loadout/internal/platform/apperr"
	"github.com/vantari/loadout/internal/platform/config"
	"github.com/vantari/loadout/internal/platform/constants"
)

// # Identity Providers
//
// Each provider turns connection-supplied proof (a Mojang server-id hash or an
// OAuth2 authorization code) into a stable external subject id. All outbound
// calls share one rate limiter so a burst of connecting clients cannot trip
// upstream quotas.

// providerTimeout bounds every outbound identity-provider request.
const providerTimeout = 10 * time.Second

// Providers performs the outbound identity verification calls.
type Providers struct {
	cfg     *config.Config
	client  *http.Client
	limiter *rate.Limiter
}

// NewProviders creates the provider client set from configuration.
func NewProviders(cfg *config.Config) *Providers {
	return &Providers{
		cfg:     cfg,
		client:  &http.Client{Timeout: providerTimeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/constants.ProviderRequestsPerMinute), constants.ProviderRequestsPerMinute),
	}
}

// # Mojang

// mojangProfile is the session-server hasJoined response body.
type mojangProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

/*
VerifyMojang confirms a client completed the Minecraft joinServer flow against
our handshake token.

Description: The client joins a fictitious server whose id is derived from
the handshake token plus its own UUID. We recompute the same digest and ask
the session server whether that username joined that "server". A 200 with a
profile proves the client controls the Minecraft account it claims.

Parameters:
  - ctx: context.Context
  - username: string claimed Minecraft username
  - serverIDSeed: string digested into the server id; the issued handshake
    token concatenated with the account's UUID on file

Returns:
  - string: The verified undashed Minecraft UUID
  - error: *apperr.AppError with CodeAuthFailed on rejection
*/
func (providers *Providers) VerifyMojang(ctx context.Context, username, serverIDSeed string) (string, error) {
	if err := providers.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("provider_limiter_wait_failed: %w", err)
	}

	serverID := minecraftDigest(serverIDSeed)
	endpoint := fmt.Sprintf("%s/session/minecraft/hasJoined?username=%s&serverId=%s",
		providers.cfg.MojangSessionServerURL, url.QueryEscape(username), url.QueryEscape(serverID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("mojang_request_build_failed: %w", err)
	}

	resp, err := providers.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mojang_request_failed: %w", err)
	}
	defer resp.Body.Close()

	// Mojang answers 204 with no body when no such join was recorded.
	if resp.StatusCode != http.StatusOK {
		return "", apperr.AuthFailed(fmt.Errorf("mojang_has_joined_rejected: status %d", resp.StatusCode))
	}

	var profile mojangProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", fmt.Errorf("mojang_response_decode_failed: %w", err)
	}
	if profile.ID == "" {
		return "", apperr.AuthFailed(errors.New("mojang_profile_empty"))
	}
	return strings.ToLower(strings.ReplaceAll(profile.ID, "-", "")), nil
}

// # Discord

// discordTokenResponse is the OAuth2 code-exchange response body.
type discordTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// discordUser is the subset of /users/@me we consume.
type discordUser struct {
	ID string `json:"id"`
}

/*
VerifyDiscord exchanges a Discord OAuth2 authorization code for the user's
Discord id.

Parameters:
  - ctx: context.Context
  - code: string authorization code relayed by the client

Returns:
  - string: The Discord user id (snowflake)
  - error: *apperr.AppError with CodeAuthFailed on rejection
*/
func (providers *Providers) VerifyDiscord(ctx context.Context, code string) (string, error) {
	if err := providers.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("provider_limiter_wait_failed: %w", err)
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {providers.cfg.DiscordRedirectURI},
		"client_id":     {providers.cfg.DiscordClientID},
		"client_secret": {providers.cfg.DiscordClientSecret},
	}

	var token discordTokenResponse
	if err := providers.postForm(ctx, providers.cfg.DiscordAPIBaseURL+"/oauth2/token", form, &token); err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", apperr.AuthFailed(errors.New("discord_token_empty"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, providers.cfg.DiscordAPIBaseURL+"/users/@me", nil)
	if err != nil {
		return "", fmt.Errorf("discord_request_build_failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := providers.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("discord_request_failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperr.AuthFailed(fmt.Errorf("discord_me_rejected: status %d", resp.StatusCode))
	}

	var user discordUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("discord_response_decode_failed: %w", err)
	}
	if user.ID == "" {
		return "", apperr.AuthFailed(errors.New("discord_user_empty"))
	}
	return user.ID, nil
}

// # Google

// googleTokenResponse is the OAuth2 code-exchange response body.
type googleTokenResponse struct {
	IDToken string `json:"id_token"`
}

/*
VerifyGoogle exchanges a Google OAuth2 authorization code for the user's
Google subject id.

Description: The id_token arrives over TLS directly from Google's token
endpoint in the same exchange, so its signature is not re-verified here; the
claims are parsed without validation to extract "sub".

Parameters:
  - ctx: context.Context
  - code: string authorization code relayed by the client

Returns:
  - string: The Google subject id
  - error: *apperr.AppError with CodeAuthFailed on rejection
*/
func (providers *Providers) VerifyGoogle(ctx context.Context, code string) (string, error) {
	if err := providers.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("provider_limiter_wait_failed: %w", err)
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {providers.cfg.GoogleRedirectURI},
		"client_id":     {providers.cfg.GoogleClientID},
		"client_secret": {providers.cfg.GoogleClientSecret},
	}

	var token googleTokenResponse
	if err := providers.postForm(ctx, providers.cfg.GoogleTokenURL, form, &token); err != nil {
		return "", err
	}
	if token.IDToken == "" {
		return "", apperr.AuthFailed(errors.New("google_id_token_empty"))
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token.IDToken, claims); err != nil {
		return "", apperr.AuthFailed(fmt.Errorf("google_id_token_parse_failed: %w", err))
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return "", apperr.AuthFailed(errors.New("google_subject_missing"))
	}
	return subject, nil
}

// # Shared HTTP Plumbing

// postForm issues an OAuth2 form POST and decodes the JSON response into out.
func (providers *Providers) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("oauth_request_build_failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := providers.client.Do(req)
	if err != nil {
		return fmt.Errorf("oauth_request_failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperr.AuthFailed(fmt.Errorf("oauth_exchange_rejected: status %d body %q", resp.StatusCode, body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("oauth_response_decode_failed: %w", err)
	}
	return nil
}
