// Package osu fetches osu! player stats through the v2 API. Access tokens
// come from the client-credentials grant and are cached until shortly before
// expiry so the dashboard does not mint a token per request.
package osu

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/imlucaa/dashboard-api/internal/platform"
)

const (
	defaultBaseURL  = "https://osu.ppy.sh/api/v2"
	defaultTokenURL = "https://osu.ppy.sh/oauth/token"

	// Tokens are refreshed a minute early so in-flight requests never race
	// the expiry.
	tokenExpiryMargin = time.Minute
)

// Client fetches osu! player data.
type Client struct {
	doer         *platform.Doer
	clientID     string
	clientSecret string
	baseURL      string
	tokenURL     string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
	now         func() time.Time
}

// NewClient creates an osu! client. Missing credentials raise CONFIG_ERROR
// at Fetch time.
func NewClient(doer *platform.Doer, clientID, clientSecret string) *Client {
	return &Client{
		doer:         doer,
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      defaultBaseURL,
		tokenURL:     defaultTokenURL,
		now:          time.Now,
	}
}

// SetBaseURL overrides the API and token base URLs (for testing).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
	c.tokenURL = baseURL + "/oauth/token"
}

// Score is one recent or top play.
type Score struct {
	Title    string    `json:"title"`
	Artist   string    `json:"artist"`
	Version  string    `json:"version"`
	PP       float64   `json:"pp"`
	Accuracy float64   `json:"accuracy"`
	Rank     string    `json:"rank"`
	Mods     []string  `json:"mods"`
	EndedAt  time.Time `json:"endedAt"`
}

// Player is the normalized osu! payload.
type Player struct {
	Username    string  `json:"username"`
	Avatar      string  `json:"avatar,omitempty"`
	CountryCode string  `json:"countryCode,omitempty"`
	GlobalRank  int     `json:"globalRank"`
	CountryRank int     `json:"countryRank"`
	PP          float64 `json:"pp"`
	Accuracy    float64 `json:"accuracy"`
	PlayCount   int     `json:"playCount"`
	Level       float64 `json:"level"`
	RecentScore *Score  `json:"recentScore"`
	TopScore    *Score  `json:"topScore"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type userResponse struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	AvatarURL   string `json:"avatar_url"`
	CountryCode string `json:"country_code"`
	Statistics  struct {
		GlobalRank  int     `json:"global_rank"`
		CountryRank int     `json:"country_rank"`
		PP          float64 `json:"pp"`
		HitAccuracy float64 `json:"hit_accuracy"`
		PlayCount   int     `json:"play_count"`
		Level       struct {
			Current  int `json:"current"`
			Progress int `json:"progress"`
		} `json:"level"`
	} `json:"statistics"`
}

type scoreResponse struct {
	PP       float64   `json:"pp"`
	Accuracy float64   `json:"accuracy"`
	Rank     string    `json:"rank"`
	Mods     []string  `json:"mods"`
	EndedAt  time.Time `json:"ended_at"`
	Beatmap  struct {
		Version string `json:"version"`
	} `json:"beatmap"`
	Beatmapset struct {
		Title  string `json:"title"`
		Artist string `json:"artist"`
	} `json:"beatmapset"`
}

// token returns a cached access token, minting a fresh one when the cached
// token is absent or within the expiry margin.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.tokenExpiry.Add(-tokenExpiryMargin)) {
		return c.accessToken, nil
	}

	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"client_credentials"},
		"scope":         {"public"},
	}
	headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}

	var raw tokenResponse
	if err := c.doer.PostForm(ctx, "osu", c.tokenURL, strings.NewReader(form.Encode()), headers, &raw); err != nil {
		return "", err
	}
	if raw.AccessToken == "" {
		return "", platform.NewError(platform.CodeUpstream, 502, "osu token grant returned no access token")
	}

	c.accessToken = raw.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(raw.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

func normalizeScore(raw *scoreResponse) *Score {
	if raw == nil {
		return nil
	}
	mods := raw.Mods
	if mods == nil {
		mods = []string{}
	}
	return &Score{
		Title:    raw.Beatmapset.Title,
		Artist:   raw.Beatmapset.Artist,
		Version:  raw.Beatmap.Version,
		PP:       raw.PP,
		Accuracy: raw.Accuracy,
		Rank:     raw.Rank,
		Mods:     mods,
		EndedAt:  raw.EndedAt,
	}
}

// Fetch retrieves the user's profile, most recent play, and best play. The
// score sub-fetches degrade to null on failure; a rate limit aborts.
func (c *Client) Fetch(ctx context.Context, username string) (*Player, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return nil, platform.ConfigError("osu client credentials are not configured")
	}
	if username == "" {
		return nil, platform.ConfigError("osu username is not configured")
	}

	accessToken, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{"Authorization": "Bearer " + accessToken}

	var user userResponse
	userURL := fmt.Sprintf("%s/users/%s/osu?key=username", c.baseURL, url.PathEscape(username))
	if err := c.doer.GetJSON(ctx, "osu", userURL, headers, &user); err != nil {
		return nil, err
	}

	var recent, best []scoreResponse
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		reqURL := fmt.Sprintf("%s/users/%d/scores/recent?limit=1&include_fails=1", c.baseURL, user.ID)
		err := c.doer.GetJSON(groupCtx, "osu", reqURL, headers, &recent)
		if platform.IsRateLimited(err) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		reqURL := fmt.Sprintf("%s/users/%d/scores/best?limit=1", c.baseURL, user.ID)
		err := c.doer.GetJSON(groupCtx, "osu", reqURL, headers, &best)
		if platform.IsRateLimited(err) {
			return err
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	player := &Player{
		Username:    user.Username,
		Avatar:      user.AvatarURL,
		CountryCode: user.CountryCode,
		GlobalRank:  user.Statistics.GlobalRank,
		CountryRank: user.Statistics.CountryRank,
		PP:          user.Statistics.PP,
		Accuracy:    user.Statistics.HitAccuracy,
		PlayCount:   user.Statistics.PlayCount,
		Level:       float64(user.Statistics.Level.Current) + float64(user.Statistics.Level.Progress)/100,
	}
	if len(recent) > 0 {
		player.RecentScore = normalizeScore(&recent[0])
	}
	if len(best) > 0 {
		player.TopScore = normalizeScore(&best[0])
	}
	return player, nil
}
