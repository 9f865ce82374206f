// Package kovaaks fetches Voltaic benchmark progress from the KovaaK's
// webapp backend and derives VT-Energy ratings per tier. Human-entered
// usernames resolve to webapp player IDs through an ordered fallback chain;
// the four benchmark tiers are fetched concurrently.
package kovaaks

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/imlucaa/dashboard-api/internal/platform"
	"github.com/imlucaa/dashboard-api/internal/vtrank"
)

const defaultBaseURL = "https://kovaaks.com/webapp-backend"

// benchmarkIDs maps each Voltaic tier to its webapp benchmark ID.
var benchmarkIDs = map[vtrank.Difficulty]int{
	vtrank.Novice:       1694,
	vtrank.Intermediate: 1695,
	vtrank.Advanced:     1696,
	vtrank.Elite:        1697,
}

// Client fetches KovaaK's benchmark data.
type Client struct {
	doer    *platform.Doer
	baseURL string
}

// NewClient creates a KovaaK's client. The webapp backend needs no API key.
func NewClient(doer *platform.Doer) *Client {
	return &Client{doer: doer, baseURL: defaultBaseURL}
}

// SetBaseURL overrides the upstream base URL (for testing).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// TierResult is one tier's derived rating plus its display form.
type TierResult struct {
	*vtrank.Result
	EnergyDisplay string `json:"energyDisplay"`
}

// Benchmarks is the normalized KovaaK's payload. A nil tier entry means that
// tier's fetch failed or the player has no progress there.
type Benchmarks struct {
	Username string                            `json:"username"`
	PlayerID int64                             `json:"playerId"`
	Tiers    map[vtrank.Difficulty]*TierResult `json:"tiers"`
	Best     *TierResult                       `json:"best"`
}

type profileResponse struct {
	PlayerID int64  `json:"playerId"`
	Username string `json:"username"`
}

type searchResponse struct {
	Data []struct {
		PlayerID int64  `json:"playerId"`
		Username string `json:"username"`
	} `json:"data"`
}

type progressResponse struct {
	Categories []struct {
		CategoryName  string `json:"category_name"`
		Subcategories []struct {
			SubcategoryName string `json:"subcategory_name"`
			Scenarios       []struct {
				ScenarioName string    `json:"scenario_name"`
				Score        int       `json:"score"`
				RankMaxes    []float64 `json:"rank_maxes"`
			} `json:"scenarios"`
		} `json:"subcategories"`
	} `json:"categories"`
}

// resolveByProfile hits the exact profile endpoint.
func (c *Client) resolveByProfile(ctx context.Context, username string) (int64, error) {
	var raw profileResponse
	reqURL := fmt.Sprintf("%s/user/profile/by-username?username=%s", c.baseURL, url.QueryEscape(username))
	if err := c.doer.GetJSON(ctx, "kovaaks", reqURL, nil, &raw); err != nil {
		return 0, err
	}
	if raw.PlayerID == 0 {
		return 0, platform.NewError(platform.CodeNotFound, 404, "kovaaks profile lookup returned no player id")
	}
	return raw.PlayerID, nil
}

// resolveBySearch runs a fuzzy username search, preferring an exact
// case-insensitive match over the first result.
func (c *Client) resolveBySearch(ctx context.Context, username string) (int64, error) {
	var raw searchResponse
	reqURL := fmt.Sprintf("%s/user/search?username=%s", c.baseURL, url.QueryEscape(username))
	if err := c.doer.GetJSON(ctx, "kovaaks", reqURL, nil, &raw); err != nil {
		return 0, err
	}
	if len(raw.Data) == 0 {
		return 0, platform.NewError(platform.CodeNotFound, 404, "kovaaks search returned no players")
	}
	for _, entry := range raw.Data {
		if strings.EqualFold(entry.Username, username) {
			return entry.PlayerID, nil
		}
	}
	return raw.Data[0].PlayerID, nil
}

// resolveNumeric accepts input that already looks like a raw player ID.
func resolveNumeric(_ context.Context, username string) (int64, error) {
	var id int64
	for _, r := range username {
		if r < '0' || r > '9' {
			return 0, platform.NewError(platform.CodeNotFound, 404, "kovaaks username is not a raw player id")
		}
		id = id*10 + int64(r-'0')
	}
	if id == 0 {
		return 0, platform.NewError(platform.CodeNotFound, 404, "kovaaks username is not a raw player id")
	}
	return id, nil
}

// resolveID walks the resolver chain in fixed order and returns the first
// success. A rate limit at any stage aborts the chain.
func (c *Client) resolveID(ctx context.Context, username string) (int64, error) {
	resolvers := []func(context.Context, string) (int64, error){
		c.resolveByProfile,
		c.resolveBySearch,
		resolveNumeric,
	}

	var lastErr error
	for _, resolve := range resolvers {
		id, err := resolve(ctx, username)
		if err == nil {
			return id, nil
		}
		if platform.IsRateLimited(err) {
			return 0, err
		}
		lastErr = err
	}
	return 0, platform.NewError(platform.CodeNotFound, 404,
		fmt.Sprintf("kovaaks player %q could not be resolved: %v", username, lastErr))
}

// fetchTier fetches one benchmark tier and converts it to raw progress.
func (c *Client) fetchTier(ctx context.Context, playerID int64, difficulty vtrank.Difficulty) (*vtrank.Progress, error) {
	var raw progressResponse
	reqURL := fmt.Sprintf("%s/benchmarks/player-progress-rank-benchmark?benchmarkId=%d&playerId=%d",
		c.baseURL, benchmarkIDs[difficulty], playerID)
	if err := c.doer.GetJSON(ctx, "kovaaks", reqURL, nil, &raw); err != nil {
		return nil, err
	}

	progress := &vtrank.Progress{Difficulty: difficulty}
	for _, category := range raw.Categories {
		converted := vtrank.Category{Name: category.CategoryName}
		for _, subcategory := range category.Subcategories {
			sub := vtrank.Subcategory{Name: subcategory.SubcategoryName}
			for _, scenario := range subcategory.Scenarios {
				sub.Scenarios = append(sub.Scenarios, vtrank.Scenario{
					Name:      scenario.ScenarioName,
					RawScore:  scenario.Score,
					RankMaxes: scenario.RankMaxes,
				})
			}
			converted.Subcategories = append(converted.Subcategories, sub)
		}
		progress.Categories = append(progress.Categories, converted)
	}
	return progress, nil
}

func toTierResult(result *vtrank.Result) *TierResult {
	if result == nil {
		return nil
	}
	return &TierResult{
		Result:        result,
		EnergyDisplay: vtrank.FormatScore(result.HarmonicMean),
	}
}

// Fetch resolves the player and derives a VT-Energy result per tier. A
// failed tier degrades to null; a rate limit on any tier aborts the whole
// aggregate.
func (c *Client) Fetch(ctx context.Context, username string) (*Benchmarks, error) {
	if username == "" {
		return nil, platform.ConfigError("kovaaks username is not configured")
	}

	playerID, err := c.resolveID(ctx, username)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	results := make(map[vtrank.Difficulty]*vtrank.Result, len(vtrank.Difficulties))

	group, groupCtx := errgroup.WithContext(ctx)
	for _, difficulty := range vtrank.Difficulties {
		difficulty := difficulty
		group.Go(func() error {
			progress, err := c.fetchTier(groupCtx, playerID, difficulty)
			if err != nil {
				if platform.IsRateLimited(err) {
					return err
				}
				mu.Lock()
				results[difficulty] = nil
				mu.Unlock()
				return nil
			}
			mu.Lock()
			results[difficulty] = vtrank.Compute(*progress)
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	payload := &Benchmarks{
		Username: username,
		PlayerID: playerID,
		Tiers:    make(map[vtrank.Difficulty]*TierResult, len(results)),
		Best:     toTierResult(vtrank.BestTier(results)),
	}
	for difficulty, result := range results {
		payload.Tiers[difficulty] = toTierResult(result)
	}
	return payload, nil
}
