// Package lastfm fetches recent scrobbles through the Last.fm API, flagging
// the track currently playing when one is.
package lastfm

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/imlucaa/dashboard-api/internal/platform"
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0"

// trackLimit bounds how many recent tracks the dashboard shows.
const trackLimit = 5

// Client fetches Last.fm scrobbles.
type Client struct {
	doer    *platform.Doer
	apiKey  string
	baseURL string
}

// NewClient creates a Last.fm client. The API key may be empty; Fetch then
// raises CONFIG_ERROR.
func NewClient(doer *platform.Doer, apiKey string) *Client {
	return &Client{doer: doer, apiKey: apiKey, baseURL: defaultBaseURL}
}

// SetBaseURL overrides the upstream base URL (for testing).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// Track is one scrobble.
type Track struct {
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Album      string `json:"album,omitempty"`
	Image      string `json:"image,omitempty"`
	URL        string `json:"url,omitempty"`
	NowPlaying bool   `json:"nowPlaying"`
	PlayedAt   int64  `json:"playedAt,omitempty"`
}

// Scrobbles is the normalized Last.fm payload.
type Scrobbles struct {
	User       string  `json:"user"`
	TotalPlays int     `json:"totalPlays"`
	NowPlaying *Track  `json:"nowPlaying"`
	Tracks     []Track `json:"tracks"`
}

type recentTracksResponse struct {
	RecentTracks struct {
		Attr struct {
			User  string `json:"user"`
			Total string `json:"total"`
		} `json:"@attr"`
		Track []struct {
			Name   string `json:"name"`
			URL    string `json:"url"`
			Artist struct {
				Text string `json:"#text"`
			} `json:"artist"`
			Album struct {
				Text string `json:"#text"`
			} `json:"album"`
			Image []struct {
				Size string `json:"size"`
				Text string `json:"#text"`
			} `json:"image"`
			Attr struct {
				NowPlaying string `json:"nowplaying"`
			} `json:"@attr"`
			Date struct {
				UTS string `json:"uts"`
			} `json:"date"`
		} `json:"track"`
	} `json:"recenttracks"`
}

// Fetch retrieves the user's recent tracks with a now-playing flag.
func (c *Client) Fetch(ctx context.Context, user string) (*Scrobbles, error) {
	if c.apiKey == "" {
		return nil, platform.ConfigError("lastfm api key is not configured")
	}
	if user == "" {
		return nil, platform.ConfigError("lastfm user is not configured")
	}

	var raw recentTracksResponse
	reqURL := fmt.Sprintf("%s/?method=user.getrecenttracks&user=%s&api_key=%s&format=json&limit=%d",
		c.baseURL, url.QueryEscape(user), c.apiKey, trackLimit)
	if err := c.doer.GetJSON(ctx, "lastfm", reqURL, nil, &raw); err != nil {
		return nil, err
	}

	total, _ := strconv.Atoi(raw.RecentTracks.Attr.Total)
	scrobbles := &Scrobbles{
		User:       raw.RecentTracks.Attr.User,
		TotalPlays: total,
		Tracks:     make([]Track, 0, len(raw.RecentTracks.Track)),
	}

	for _, upstream := range raw.RecentTracks.Track {
		track := Track{
			Name:       upstream.Name,
			Artist:     upstream.Artist.Text,
			Album:      upstream.Album.Text,
			URL:        upstream.URL,
			NowPlaying: upstream.Attr.NowPlaying == "true",
		}
		// The largest image last.fm offers is "extralarge"; fall back to
		// whatever is listed last.
		for _, image := range upstream.Image {
			if image.Text == "" {
				continue
			}
			track.Image = image.Text
			if image.Size == "extralarge" {
				break
			}
		}
		if uts, err := strconv.ParseInt(upstream.Date.UTS, 10, 64); err == nil {
			track.PlayedAt = uts
		}
		if track.NowPlaying && scrobbles.NowPlaying == nil {
			scrobbles.NowPlaying = &track
		}
		scrobbles.Tracks = append(scrobbles.Tracks, track)
	}

	return scrobbles, nil
}
