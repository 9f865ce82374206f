// Package steam fetches a player's Steam profile and recent playtime via the
// Steam Web API. Profile and recent games are fetched concurrently; a failed
// recent-games call degrades that block to null unless the failure is a rate
// limit, which aborts the whole aggregate.
package steam

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/imlucaa/dashboard-api/internal/platform"
)

const defaultBaseURL = "https://api.steampowered.com"

// Client fetches Steam player data.
type Client struct {
	doer    *platform.Doer
	apiKey  string
	baseURL string
}

// NewClient creates a Steam client. The API key may be empty; Fetch then
// raises CONFIG_ERROR.
func NewClient(doer *platform.Doer, apiKey string) *Client {
	return &Client{doer: doer, apiKey: apiKey, baseURL: defaultBaseURL}
}

// SetBaseURL overrides the upstream base URL (for testing).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// Game is one recently played game.
type Game struct {
	AppID           int    `json:"appId"`
	Name            string `json:"name"`
	Playtime2Weeks  int    `json:"playtime2Weeks"`
	PlaytimeForever int    `json:"playtimeForever"`
	IconURL         string `json:"iconUrl,omitempty"`
}

// Player is the normalized Steam payload. RecentGames is nil when that
// sub-fetch failed non-fatally.
type Player struct {
	SteamID     string `json:"steamId"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar,omitempty"`
	ProfileURL  string `json:"profileUrl,omitempty"`
	Status      int    `json:"status"`
	CurrentGame string `json:"currentGame,omitempty"`
	RecentGames []Game `json:"recentGames"`
	LastLogoff  int64  `json:"lastLogoff,omitempty"`
}

type summariesResponse struct {
	Response struct {
		Players []struct {
			SteamID      string `json:"steamid"`
			PersonaName  string `json:"personaname"`
			AvatarFull   string `json:"avatarfull"`
			ProfileURL   string `json:"profileurl"`
			PersonaState int    `json:"personastate"`
			GameExtra    string `json:"gameextrainfo"`
			LastLogoff   int64  `json:"lastlogoff"`
		} `json:"players"`
	} `json:"response"`
}

type recentGamesResponse struct {
	Response struct {
		Games []struct {
			AppID           int    `json:"appid"`
			Name            string `json:"name"`
			Playtime2Weeks  int    `json:"playtime_2weeks"`
			PlaytimeForever int    `json:"playtime_forever"`
			ImgIconURL      string `json:"img_icon_url"`
		} `json:"games"`
	} `json:"response"`
}

type vanityResponse struct {
	Response struct {
		Success int    `json:"success"`
		SteamID string `json:"steamid"`
	} `json:"response"`
}

// looksLikeSteamID reports whether the identity is already a 64-bit Steam ID
// (17 digits) rather than a vanity name.
func looksLikeSteamID(identity string) bool {
	if len(identity) != 17 {
		return false
	}
	for _, r := range identity {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// resolveID turns a vanity name into a 64-bit Steam ID, passing raw IDs
// through untouched.
func (c *Client) resolveID(ctx context.Context, identity string) (string, error) {
	if looksLikeSteamID(identity) {
		return identity, nil
	}

	var raw vanityResponse
	reqURL := fmt.Sprintf("%s/ISteamUser/ResolveVanityURL/v1/?key=%s&vanityurl=%s",
		c.baseURL, c.apiKey, url.QueryEscape(identity))
	if err := c.doer.GetJSON(ctx, "steam", reqURL, nil, &raw); err != nil {
		return "", err
	}
	if raw.Response.Success != 1 || raw.Response.SteamID == "" {
		return "", platform.NewError(platform.CodeNotFound, 404, "steam vanity url did not resolve")
	}
	return raw.Response.SteamID, nil
}

// Fetch retrieves and normalizes the player's profile and recent games.
func (c *Client) Fetch(ctx context.Context, identity string) (*Player, error) {
	if c.apiKey == "" {
		return nil, platform.ConfigError("steam api key is not configured")
	}
	if identity == "" {
		return nil, platform.ConfigError("steam id is not configured")
	}

	steamID, err := c.resolveID(ctx, identity)
	if err != nil {
		return nil, err
	}

	var summaries summariesResponse
	var recent recentGamesResponse
	var recentErr error

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		reqURL := fmt.Sprintf("%s/ISteamUser/GetPlayerSummaries/v2/?key=%s&steamids=%s",
			c.baseURL, c.apiKey, steamID)
		return c.doer.GetJSON(groupCtx, "steam", reqURL, nil, &summaries)
	})
	group.Go(func() error {
		reqURL := fmt.Sprintf("%s/IPlayerService/GetRecentlyPlayedGames/v1/?key=%s&steamid=%s&count=5",
			c.baseURL, c.apiKey, steamID)
		recentErr = c.doer.GetJSON(groupCtx, "steam", reqURL, nil, &recent)
		if platform.IsRateLimited(recentErr) {
			// Partial data under active throttling is misleading; abort.
			return recentErr
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if len(summaries.Response.Players) == 0 {
		return nil, platform.NewError(platform.CodeNotFound, 404, "steam profile not found")
	}
	upstream := summaries.Response.Players[0]

	player := &Player{
		SteamID:     upstream.SteamID,
		Name:        upstream.PersonaName,
		Avatar:      upstream.AvatarFull,
		ProfileURL:  upstream.ProfileURL,
		Status:      upstream.PersonaState,
		CurrentGame: upstream.GameExtra,
		LastLogoff:  upstream.LastLogoff,
	}

	if recentErr == nil {
		player.RecentGames = make([]Game, 0, len(recent.Response.Games))
		for _, game := range recent.Response.Games {
			entry := Game{
				AppID:           game.AppID,
				Name:            game.Name,
				Playtime2Weeks:  game.Playtime2Weeks,
				PlaytimeForever: game.PlaytimeForever,
			}
			if game.ImgIconURL != "" {
				entry.IconURL = fmt.Sprintf(
					"https://media.steampowered.com/steamcommunity/public/images/apps/%d/%s.jpg",
					game.AppID, game.ImgIconURL)
			}
			player.RecentGames = append(player.RecentGames, entry)
		}
	}

	return player, nil
}
