// Package valorant fetches Valorant rank data through the HenrikDev
// community API. The riot ID is a "name#tag" pair; the account lookup runs
// first so the MMR call can use the canonical region.
package valorant

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/imlucaa/dashboard-api/internal/platform"
)

const defaultBaseURL = "https://api.henrikdev.xyz/valorant"

// Client fetches Valorant account and MMR data.
type Client struct {
	doer    *platform.Doer
	apiKey  string
	baseURL string
}

// NewClient creates a Valorant client. The HenrikDev API key may be empty;
// Fetch then raises CONFIG_ERROR.
func NewClient(doer *platform.Doer, apiKey string) *Client {
	return &Client{doer: doer, apiKey: apiKey, baseURL: defaultBaseURL}
}

// SetBaseURL overrides the upstream base URL (for testing).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// Profile is the normalized Valorant payload.
type Profile struct {
	Name            string `json:"name"`
	Tag             string `json:"tag"`
	Region          string `json:"region"`
	AccountLevel    int    `json:"accountLevel"`
	Card            string `json:"card,omitempty"`
	CurrentTier     string `json:"currentTier"`
	CurrentTierIcon string `json:"currentTierIcon,omitempty"`
	RankingInTier   int    `json:"rankingInTier"`
	MMRChange       int    `json:"mmrChange"`
	Elo             int    `json:"elo"`
	HighestTier     string `json:"highestTier,omitempty"`
}

type accountResponse struct {
	Data struct {
		Name         string `json:"name"`
		Tag          string `json:"tag"`
		Region       string `json:"region"`
		AccountLevel int    `json:"account_level"`
		Card         struct {
			Small string `json:"small"`
		} `json:"card"`
	} `json:"data"`
}

type mmrResponse struct {
	Data struct {
		CurrentData struct {
			CurrentTierPatched string `json:"currenttierpatched"`
			RankingInTier      int    `json:"ranking_in_tier"`
			MMRChangeToLast    int    `json:"mmr_change_to_last_game"`
			Elo                int    `json:"elo"`
			Images             struct {
				Small string `json:"small"`
			} `json:"images"`
		} `json:"current_data"`
		HighestRank struct {
			PatchedTier string `json:"patched_tier"`
		} `json:"highest_rank"`
	} `json:"data"`
}

// splitRiotID splits "name#tag" into its halves. The tag is everything after
// the last '#' so names containing '#' keep working.
func splitRiotID(riotID string) (name, tag string, ok bool) {
	idx := strings.LastIndex(riotID, "#")
	if idx <= 0 || idx == len(riotID)-1 {
		return "", "", false
	}
	return riotID[:idx], riotID[idx+1:], true
}

// Fetch retrieves and normalizes the player's account and competitive MMR.
func (c *Client) Fetch(ctx context.Context, riotID string) (*Profile, error) {
	if c.apiKey == "" {
		return nil, platform.ConfigError("valorant api key is not configured")
	}
	name, tag, ok := splitRiotID(riotID)
	if !ok {
		return nil, platform.ConfigError("valorant riot id must be name#tag")
	}

	headers := map[string]string{"Authorization": c.apiKey}

	var account accountResponse
	accountURL := fmt.Sprintf("%s/v1/account/%s/%s", c.baseURL, url.PathEscape(name), url.PathEscape(tag))
	if err := c.doer.GetJSON(ctx, "valorant", accountURL, headers, &account); err != nil {
		return nil, err
	}

	region := account.Data.Region
	if region == "" {
		region = "eu"
	}

	var mmr mmrResponse
	mmrURL := fmt.Sprintf("%s/v2/mmr/%s/%s/%s", c.baseURL, region, url.PathEscape(name), url.PathEscape(tag))
	if err := c.doer.GetJSON(ctx, "valorant", mmrURL, headers, &mmr); err != nil {
		return nil, err
	}

	current := mmr.Data.CurrentData
	profile := &Profile{
		Name:            account.Data.Name,
		Tag:             account.Data.Tag,
		Region:          region,
		AccountLevel:    account.Data.AccountLevel,
		Card:            account.Data.Card.Small,
		CurrentTier:     current.CurrentTierPatched,
		CurrentTierIcon: current.Images.Small,
		RankingInTier:   current.RankingInTier,
		MMRChange:       current.MMRChangeToLast,
		Elo:             current.Elo,
		HighestTier:     mmr.Data.HighestRank.PatchedTier,
	}
	if profile.CurrentTier == "" {
		profile.CurrentTier = "Unrated"
	}
	return profile, nil
}
