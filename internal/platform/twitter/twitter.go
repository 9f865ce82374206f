// Package twitter fetches a user's profile and latest posts through the
// Twitter API v2 with app-only bearer auth.
package twitter

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/imlucaa/dashboard-api/internal/platform"
)

const defaultBaseURL = "https://api.twitter.com/2"

// tweetLimit bounds how many recent posts the dashboard shows. The v2
// timeline endpoint rejects max_results below 5.
const tweetLimit = 5

// Client fetches Twitter data.
type Client struct {
	doer        *platform.Doer
	bearerToken string
	baseURL     string
}

// NewClient creates a Twitter client. The bearer token may be empty; Fetch
// then raises CONFIG_ERROR.
func NewClient(doer *platform.Doer, bearerToken string) *Client {
	return &Client{doer: doer, bearerToken: bearerToken, baseURL: defaultBaseURL}
}

// SetBaseURL overrides the upstream base URL (for testing).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// Tweet is one post.
type Tweet struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     int       `json:"likes"`
	Retweets  int       `json:"retweets"`
	Replies   int       `json:"replies"`
}

// Profile is the normalized Twitter payload.
type Profile struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Name      string  `json:"name"`
	Avatar    string  `json:"avatar,omitempty"`
	Followers int     `json:"followers"`
	Following int     `json:"following"`
	Tweets    []Tweet `json:"tweets"`
}

type userResponse struct {
	Data struct {
		ID              string `json:"id"`
		Username        string `json:"username"`
		Name            string `json:"name"`
		ProfileImageURL string `json:"profile_image_url"`
		PublicMetrics   struct {
			FollowersCount int `json:"followers_count"`
			FollowingCount int `json:"following_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Errors []struct {
		Title string `json:"title"`
	} `json:"errors"`
}

type timelineResponse struct {
	Data []struct {
		ID            string    `json:"id"`
		Text          string    `json:"text"`
		CreatedAt     time.Time `json:"created_at"`
		PublicMetrics struct {
			LikeCount    int `json:"like_count"`
			RetweetCount int `json:"retweet_count"`
			ReplyCount   int `json:"reply_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

// Fetch retrieves the user's profile and recent posts. A failed timeline
// call degrades to an empty tweet list; a rate limit propagates.
func (c *Client) Fetch(ctx context.Context, username string) (*Profile, error) {
	if c.bearerToken == "" {
		return nil, platform.ConfigError("twitter bearer token is not configured")
	}
	username = strings.TrimPrefix(username, "@")
	if username == "" {
		return nil, platform.ConfigError("twitter username is not configured")
	}

	headers := map[string]string{"Authorization": "Bearer " + c.bearerToken}

	var user userResponse
	userURL := fmt.Sprintf("%s/users/by/username/%s?user.fields=profile_image_url,public_metrics",
		c.baseURL, url.PathEscape(username))
	if err := c.doer.GetJSON(ctx, "twitter", userURL, headers, &user); err != nil {
		return nil, err
	}
	if user.Data.ID == "" {
		// v2 reports unknown usernames inside a 200 body.
		return nil, platform.NewError(platform.CodeNotFound, 404, "twitter user not found")
	}

	profile := &Profile{
		ID:        user.Data.ID,
		Username:  user.Data.Username,
		Name:      user.Data.Name,
		Avatar:    strings.Replace(user.Data.ProfileImageURL, "_normal", "_400x400", 1),
		Followers: user.Data.PublicMetrics.FollowersCount,
		Following: user.Data.PublicMetrics.FollowingCount,
		Tweets:    []Tweet{},
	}

	var timeline timelineResponse
	timelineURL := fmt.Sprintf("%s/users/%s/tweets?max_results=%d&exclude=replies,retweets&tweet.fields=created_at,public_metrics",
		c.baseURL, user.Data.ID, tweetLimit)
	if err := c.doer.GetJSON(ctx, "twitter", timelineURL, headers, &timeline); err != nil {
		if platform.IsRateLimited(err) {
			return nil, err
		}
		return profile, nil
	}

	for _, upstream := range timeline.Data {
		profile.Tweets = append(profile.Tweets, Tweet{
			ID:        upstream.ID,
			Text:      upstream.Text,
			CreatedAt: upstream.CreatedAt,
			Likes:     upstream.PublicMetrics.LikeCount,
			Retweets:  upstream.PublicMetrics.RetweetCount,
			Replies:   upstream.PublicMetrics.ReplyCount,
		})
	}
	return profile, nil
}
