package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"blockbot/internal/domain"
)

const DefaultBaseURL = "https://api.twitter.com/1.1"

// statusEnhanceYourCalm is the legacy search rate limit status.
const statusEnhanceYourCalm = 420

// Error codes carried in v1.1 error payloads.
const (
	codePageNotExist      = 34
	codeUserNotFound      = 50
	codeRateLimitExceeded = 88
)

// APIError is a final v1.1 API error, one that neither waiting nor
// retrying will fix.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("twitter status %d", e.StatusCode)
	}
	return fmt.Sprintf("twitter status %d: %s (code %d)", e.StatusCode, e.Message, e.Code)
}

// Config holds Twitter API client configuration.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RateRPS           float64
	RateBurst         int
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
}

// Client talks to the Twitter REST API v1.1 with OAuth 1.0a user context.
// It makes a single attempt per call and classifies failures; retry policy
// belongs to the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	signer     *oauth1Signer
	logger     *slog.Logger
}

// New creates a new API client.
func New(cfg Config, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rps := cfg.RateRPS
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		signer:  newOAuth1Signer(cfg.ConsumerKey, cfg.ConsumerSecret, cfg.AccessToken, cfg.AccessTokenSecret),
		logger:  logger.With("component", "twitter"),
	}
}

// VerifyCredentials resolves the authenticated account.
func (c *Client) VerifyCredentials(ctx context.Context) (domain.Account, error) {
	var u userJSON
	if err := c.call(ctx, http.MethodGet, "/account/verify_credentials.json", map[string]string{"skip_status": "true"}, &u); err != nil {
		return domain.Account{}, err
	}
	return toAccount(u), nil
}

// LookupUsers resolves up to 100 screen names in one request.
func (c *Client) LookupUsers(ctx context.Context, screenNames []string) ([]domain.Account, error) {
	if len(screenNames) == 0 {
		return nil, nil
	}
	if len(screenNames) > 100 {
		screenNames = screenNames[:100]
	}

	params := map[string]string{"screen_name": strings.Join(screenNames, ",")}
	var users []userJSON
	if err := c.call(ctx, http.MethodGet, "/users/lookup.json", params, &users); err != nil {
		return nil, err
	}

	out := make([]domain.Account, 0, len(users))
	for _, u := range users {
		out = append(out, toAccount(u))
	}
	return out, nil
}

// FollowersPage fetches one page of the target's followers. An empty
// cursor starts enumeration from the beginning; the page reports
// exhaustion when the API hands back the terminal cursor.
func (c *Client) FollowersPage(ctx context.Context, screenName, cursor string) (*domain.CandidatePage, error) {
	if cursor == "" {
		cursor = "-1"
	}
	params := map[string]string{
		"screen_name":           screenName,
		"cursor":                cursor,
		"count":                 "200",
		"skip_status":           "true",
		"include_user_entities": "false",
	}

	var page followersPageJSON
	if err := c.call(ctx, http.MethodGet, "/followers/list.json", params, &page); err != nil {
		return nil, err
	}

	out := &domain.CandidatePage{
		Candidates: make([]domain.Candidate, 0, len(page.Users)),
		NextCursor: page.NextCursorStr,
		Exhausted:  page.NextCursorStr == "0" || page.NextCursorStr == "",
	}
	for _, u := range page.Users {
		out.Candidates = append(out.Candidates, domain.Candidate{Account: toAccount(u)})
	}
	return out, nil
}

// MediaRepliesPage fetches one page of media-bearing replies to the
// target. Pagination walks backwards through tweet IDs: the next cursor
// is one below the oldest ID on the page.
func (c *Client) MediaRepliesPage(ctx context.Context, screenName, maxID string) (*domain.CandidatePage, error) {
	params := map[string]string{
		"q":                fmt.Sprintf("to:%s filter:media", screenName),
		"count":            "100",
		"result_type":      "recent",
		"include_entities": "true",
		"tweet_mode":       "extended",
	}
	if maxID != "" {
		params["max_id"] = maxID
	}

	var page searchPageJSON
	if err := c.call(ctx, http.MethodGet, "/search/tweets.json", params, &page); err != nil {
		return nil, err
	}

	out := &domain.CandidatePage{
		Candidates: make([]domain.Candidate, 0, len(page.Statuses)),
		Exhausted:  len(page.Statuses) == 0,
	}
	var minID int64
	for _, t := range page.Statuses {
		out.Candidates = append(out.Candidates, domain.Candidate{
			Account: toAccount(t.User),
			Reply: &domain.ReplyRecord{
				TweetID:           t.IDStr,
				InReplyToStatusID: t.InReplyToStatusIDStr,
				MediaKind:         t.mediaKind(),
			},
		})
		if id, err := strconv.ParseInt(t.IDStr, 10, 64); err == nil && (minID == 0 || id < minID) {
			minID = id
		}
	}
	if minID > 0 {
		out.NextCursor = strconv.FormatInt(minID-1, 10)
	}
	return out, nil
}

// Block blocks the account on behalf of the authenticated user. Blocking
// an account that no longer exists counts as success, so reruns over
// stale pages stay idempotent.
func (c *Client) Block(ctx context.Context, accountID string) error {
	params := map[string]string{"user_id": accountID, "skip_status": "true"}
	err := c.call(ctx, http.MethodPost, "/blocks/create.json", params, nil)

	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.Code == codeUserNotFound || apiErr.Code == codePageNotExist) {
		c.logger.Debug("block target gone", "account_id", accountID, "code", apiErr.Code)
		return nil
	}
	return err
}

func (c *Client) call(ctx context.Context, method, path string, params map[string]string, out any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + encodeQuery(params)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	c.signer.sign(req, params)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.TransientError{Err: fmt.Errorf("execute request: %w", err)}
	}
	defer resp.Body.Close()

	if err := classify(resp); err != nil {
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// classify maps an error response onto the retry taxonomy: rate limits
// are waitable, server trouble is transient, everything else is final.
func classify(resp *http.Response) error {
	switch {
	case resp.StatusCode < http.StatusBadRequest:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == statusEnhanceYourCalm:
		return &domain.RateLimitError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode >= http.StatusInternalServerError:
		return &domain.TransientError{Err: fmt.Errorf("twitter status %d", resp.StatusCode)}
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload apiErrorsJSON
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && len(payload.Errors) > 0 {
		apiErr.Code = payload.Errors[0].Code
		apiErr.Message = payload.Errors[0].Message
	}
	if apiErr.Code == codeRateLimitExceeded {
		return &domain.RateLimitError{RetryAfter: retryAfter(resp)}
	}
	return apiErr
}

// retryAfter extracts the suggested wait, preferring Retry-After over the
// rate limit reset timestamp. Zero means the caller picks its own pause.
func retryAfter(resp *http.Response) time.Duration {
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if reset := resp.Header.Get("x-rate-limit-reset"); reset != "" {
		if ts, err := strconv.ParseInt(reset, 10, 64); err == nil {
			if d := time.Until(time.Unix(ts, 0)); d > 0 {
				return d
			}
		}
	}
	return 0
}
