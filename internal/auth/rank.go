// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/vantari/loadout/internal/platform/config"
	"github.com/vantari/loadout/internal/platform/constants"
)

// # Rank Resolution

// rankCacheHash is the Redis hash holding cached rank snapshots keyed by
// Minecraft UUID.
const rankCacheHash = "rankcache"

// rankCacheFreshness bounds how stale a cached rank entry may be before a
// fresh upstream fetch.
const rankCacheFreshness = 20 * time.Minute

// RankProvider resolves externally-sourced rank data for an account, with a
// shared Redis cache in front of the upstream player API.
//
// Upstream outages degrade to [NoRank]; rank data is cosmetic and must never
// block authentication.
type RankProvider struct {
	cfg     *config.Config
	client  *http.Client
	redis   *redis.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRankProvider creates a rank provider backed by the configured player API.
func NewRankProvider(cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) *RankProvider {
	return &RankProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: providerTimeout},
		redis:   redisClient,
		limiter: rate.NewLimiter(rate.Every(time.Minute/constants.ProviderRequestsPerMinute), constants.ProviderRequestsPerMinute),
		logger:  logger,
	}
}

// playerResponse is the subset of the player API body we consume.
type playerResponse struct {
	Success bool `json:"success"`
	Player  *struct {
		Rank               string `json:"rank"`
		NewPackageRank     string `json:"newPackageRank"`
		OldPackageRank     string `json:"oldPackageRank"`
		MonthlyPackageRank string `json:"monthlyPackageRank"`
		BuildTeam          bool   `json:"buildTeam"`
		BuildTeamAdmin     bool   `json:"buildTeamAdmin"`
	} `json:"player"`
}

/*
Resolve returns rank data for the given Minecraft UUID.

Description: A cached snapshot younger than 20 minutes is served as-is.
Otherwise the upstream player API is queried, the result cached, and any
failure downgraded to [NoRank] so auth completion is never blocked on a
third-party outage.

Parameters:
  - ctx: context.Context
  - minecraftUUID: string (undashed); "" short-circuits to NoRank

Returns:
  - RankData: Resolved or fallback rank snapshot
*/
func (provider *RankProvider) Resolve(ctx context.Context, minecraftUUID string) RankData {
	if minecraftUUID == "" {
		return NoRank()
	}

	if cached, ok := provider.cached(ctx, minecraftUUID); ok {
		return cached
	}

	data, err := provider.fetch(ctx, minecraftUUID)
	if err != nil {
		provider.logger.Warn("rank_fetch_failed",
			slog.String("mc_uuid", minecraftUUID),
			slog.String("error", err.Error()))
		return NoRank()
	}

	if raw, err := json.Marshal(data); err == nil {
		if err := provider.redis.HSet(ctx, rankCacheHash, minecraftUUID, raw).Err(); err != nil {
			provider.logger.Warn("rank_cache_write_failed", slog.String("error", err.Error()))
		}
	}
	return data
}

// cached returns a still-fresh cache entry for the UUID.
func (provider *RankProvider) cached(ctx context.Context, minecraftUUID string) (RankData, bool) {
	raw, err := provider.redis.HGet(ctx, rankCacheHash, minecraftUUID).Result()
	if err != nil {
		return RankData{}, false
	}

	var data RankData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return RankData{}, false
	}
	if time.UnixMilli(data.CreatedAt).Before(time.Now().Add(-rankCacheFreshness)) {
		return RankData{}, false
	}
	return data, true
}

// fetch queries the upstream player API for a fresh rank snapshot.
func (provider *RankProvider) fetch(ctx context.Context, minecraftUUID string) (RankData, error) {
	if err := provider.limiter.Wait(ctx); err != nil {
		return RankData{}, fmt.Errorf("rank_limiter_wait_failed: %w", err)
	}

	endpoint := fmt.Sprintf("%s/player?uuid=%s", provider.cfg.RankAPIURL, url.QueryEscape(minecraftUUID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return RankData{}, fmt.Errorf("rank_request_build_failed: %w", err)
	}
	if provider.cfg.RankAPIKey != "" {
		req.Header.Set("API-Key", provider.cfg.RankAPIKey)
	}

	resp, err := provider.client.Do(req)
	if err != nil {
		return RankData{}, fmt.Errorf("rank_request_failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RankData{}, fmt.Errorf("rank_request_rejected: status %d", resp.StatusCode)
	}

	var body playerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return RankData{}, fmt.Errorf("rank_response_decode_failed: %w", err)
	}
	if !body.Success || body.Player == nil {
		return RankData{}, errors.New("rank_response_no_player")
	}

	data := RankData{
		Rank:             "NONE",
		PackageRank:      "NONE",
		IsBuildTeam:      body.Player.BuildTeam,
		IsBuildTeamAdmin: body.Player.BuildTeamAdmin,
		CreatedAt:        time.Now().UnixMilli(),
	}
	if body.Player.Rank != "" {
		data.Rank = body.Player.Rank
	}

	// Later tiers override earlier ones when several are set.
	for _, candidate := range []string{
		body.Player.NewPackageRank,
		body.Player.OldPackageRank,
		body.Player.MonthlyPackageRank,
	} {
		if candidate != "" && candidate != "NONE" {
			data.PackageRank = candidate
		}
	}
	return data, nil
}
