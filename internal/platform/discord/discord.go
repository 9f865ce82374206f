// Package discord fetches Discord presence through the Lanyard API and
// normalizes it for the dashboard's presence card.
package discord

import (
	"context"
	"fmt"
	"net/http"

	"github.com/imlucaa/dashboard-api/internal/platform"
)

const defaultBaseURL = "https://api.lanyard.rest/v1"

// Client fetches presence for one Discord user.
type Client struct {
	doer    *platform.Doer
	baseURL string
}

// NewClient creates a Discord presence client.
func NewClient(doer *platform.Doer) *Client {
	return &Client{doer: doer, baseURL: defaultBaseURL}
}

// SetBaseURL overrides the upstream base URL (for testing).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// Activity is one presence activity (game, custom status, ...).
type Activity struct {
	Name    string `json:"name"`
	Type    int    `json:"type"`
	State   string `json:"state,omitempty"`
	Details string `json:"details,omitempty"`
}

// Spotify is the currently playing track, when any.
type Spotify struct {
	Song     string `json:"song"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	AlbumArt string `json:"albumArt,omitempty"`
}

// Presence is the normalized Discord presence payload.
type Presence struct {
	UserID             string     `json:"userId"`
	Username           string     `json:"username"`
	Avatar             string     `json:"avatar,omitempty"`
	Status             string     `json:"status"`
	Activities         []Activity `json:"activities"`
	Spotify            *Spotify   `json:"spotify,omitempty"`
	ListeningToSpotify bool       `json:"listeningToSpotify"`
}

// lanyardResponse is the raw upstream shape; it never leaves this package.
type lanyardResponse struct {
	Success bool `json:"success"`
	Data    struct {
		DiscordUser struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			Avatar   string `json:"avatar"`
		} `json:"discord_user"`
		DiscordStatus string `json:"discord_status"`
		Activities    []struct {
			Name    string `json:"name"`
			Type    int    `json:"type"`
			State   string `json:"state"`
			Details string `json:"details"`
		} `json:"activities"`
		ListeningToSpotify bool `json:"listening_to_spotify"`
		Spotify            *struct {
			Song     string `json:"song"`
			Artist   string `json:"artist"`
			Album    string `json:"album"`
			AlbumArt string `json:"album_art_url"`
		} `json:"spotify"`
	} `json:"data"`
}

// Fetch retrieves and normalizes the user's presence.
func (c *Client) Fetch(ctx context.Context, userID string) (*Presence, error) {
	if userID == "" {
		return nil, platform.ConfigError("discord user id is not configured")
	}

	var raw lanyardResponse
	url := fmt.Sprintf("%s/users/%s", c.baseURL, userID)
	if err := c.doer.GetJSON(ctx, "discord", url, nil, &raw); err != nil {
		return nil, err
	}
	if !raw.Success {
		return nil, platform.NewError(platform.CodeNotFound, http.StatusNotFound,
			"discord user is not tracked by the presence relay")
	}

	presence := &Presence{
		UserID:             raw.Data.DiscordUser.ID,
		Username:           raw.Data.DiscordUser.Username,
		Status:             raw.Data.DiscordStatus,
		Activities:         make([]Activity, 0, len(raw.Data.Activities)),
		ListeningToSpotify: raw.Data.ListeningToSpotify,
	}
	if raw.Data.DiscordUser.Avatar != "" {
		presence.Avatar = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png",
			raw.Data.DiscordUser.ID, raw.Data.DiscordUser.Avatar)
	}
	for _, activity := range raw.Data.Activities {
		presence.Activities = append(presence.Activities, Activity{
			Name:    activity.Name,
			Type:    activity.Type,
			State:   activity.State,
			Details: activity.Details,
		})
	}
	if raw.Data.Spotify != nil {
		presence.Spotify = &Spotify{
			Song:     raw.Data.Spotify.Song,
			Artist:   raw.Data.Spotify.Artist,
			Album:    raw.Data.Spotify.Album,
			AlbumArt: raw.Data.Spotify.AlbumArt,
		}
	}

	return presence, nil
}
