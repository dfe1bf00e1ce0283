package twitter

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockbot/internal/domain"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(Config{
		BaseURL:           baseURL,
		Timeout:           5 * time.Second,
		RateRPS:           1000,
		RateBurst:         1000,
		ConsumerKey:       "ck",
		ConsumerSecret:    "cs",
		AccessToken:       "at",
		AccessTokenSecret: "as",
	}, logger)
}

func TestFollowersPage_ParsesUsersAndCursor(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/followers/list.json", r.URL.Path)
		assert.Equal(t, "acme", r.URL.Query().Get("screen_name"))
		assert.Equal(t, "-1", r.URL.Query().Get("cursor"))
		assert.Contains(t, r.Header.Get("Authorization"), `oauth_signature="`)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"users": [
				{"id_str": "101", "screen_name": "bob", "followers_count": 12,
				 "created_at": "Sat Apr 14 00:48:14 +0000 2012"},
				{"id_str": "102", "screen_name": "alice", "verified": true}
			],
			"next_cursor_str": "1510"
		}`))
	}))
	defer ts.Close()

	page, err := newTestClient(t, ts.URL).FollowersPage(context.Background(), "acme", "")
	require.NoError(t, err)

	require.Len(t, page.Candidates, 2)
	assert.Equal(t, "101", page.Candidates[0].Account.ID)
	assert.Equal(t, "bob", page.Candidates[0].Account.ScreenName)
	assert.Equal(t, 12, page.Candidates[0].Account.FollowersCount)
	assert.Equal(t, 2012, page.Candidates[0].Account.CreatedAt.Year())
	assert.Nil(t, page.Candidates[0].Reply)
	assert.True(t, page.Candidates[1].Account.Verified)
	assert.Equal(t, "1510", page.NextCursor)
	assert.False(t, page.Exhausted)
}

func TestFollowersPage_TerminalCursor(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1510", r.URL.Query().Get("cursor"))
		_, _ = w.Write([]byte(`{"users": [{"id_str": "103", "screen_name": "carol"}], "next_cursor_str": "0"}`))
	}))
	defer ts.Close()

	page, err := newTestClient(t, ts.URL).FollowersPage(context.Background(), "acme", "1510")
	require.NoError(t, err)

	require.Len(t, page.Candidates, 1)
	assert.True(t, page.Exhausted)
}

func TestMediaRepliesPage_CandidatesAndPagination(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/tweets.json", r.URL.Path)
		assert.Equal(t, "to:acme filter:media", r.URL.Query().Get("q"))
		assert.Empty(t, r.URL.Query().Get("max_id"))

		_, _ = w.Write([]byte(`{
			"statuses": [
				{"id_str": "9200", "in_reply_to_status_id_str": "9000",
				 "user": {"id_str": "201", "screen_name": "dave"},
				 "extended_entities": {"media": [{"type": "photo"}]}},
				{"id_str": "9150", "in_reply_to_status_id_str": "9001",
				 "user": {"id_str": "202", "screen_name": "erin"},
				 "extended_entities": {"media": [{"type": "photo"}, {"type": "video"}]}},
				{"id_str": "9100",
				 "user": {"id_str": "203", "screen_name": "frank"}}
			]
		}`))
	}))
	defer ts.Close()

	page, err := newTestClient(t, ts.URL).MediaRepliesPage(context.Background(), "acme", "")
	require.NoError(t, err)

	require.Len(t, page.Candidates, 3)

	dave := page.Candidates[0]
	require.NotNil(t, dave.Reply)
	assert.Equal(t, "9200", dave.Reply.TweetID)
	assert.Equal(t, "9000", dave.Reply.InReplyToStatusID)
	assert.Equal(t, domain.MediaPhoto, dave.Reply.MediaKind)

	// Video outranks the photo attached to the same tweet.
	assert.Equal(t, domain.MediaVideo, page.Candidates[1].Reply.MediaKind)

	// No extended entities at all.
	assert.Equal(t, domain.MediaNone, page.Candidates[2].Reply.MediaKind)

	assert.Equal(t, "9099", page.NextCursor)
	assert.False(t, page.Exhausted)
}

func TestMediaRepliesPage_EmptyPageExhausts(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "9099", r.URL.Query().Get("max_id"))
		_, _ = w.Write([]byte(`{"statuses": []}`))
	}))
	defer ts.Close()

	page, err := newTestClient(t, ts.URL).MediaRepliesPage(context.Background(), "acme", "9099")
	require.NoError(t, err)

	assert.Empty(t, page.Candidates)
	assert.True(t, page.Exhausted)
}

func TestBlock_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/blocks/create.json", r.URL.Path)
		assert.Equal(t, "101", r.URL.Query().Get("user_id"))
		_, _ = w.Write([]byte(`{"id_str": "101", "screen_name": "bob", "blocking": true}`))
	}))
	defer ts.Close()

	require.NoError(t, newTestClient(t, ts.URL).Block(context.Background(), "101"))
}

func TestBlock_DeactivatedAccountCountsAsBlocked(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors": [{"code": 50, "message": "User not found."}]}`))
	}))
	defer ts.Close()

	require.NoError(t, newTestClient(t, ts.URL).Block(context.Background(), "666"))
}

func TestBlock_OtherAPIErrorSurfaces(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors": [{"code": 32, "message": "Could not authenticate you."}]}`))
	}))
	defer ts.Close()

	err := newTestClient(t, ts.URL).Block(context.Background(), "101")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 32, apiErr.Code)
	assert.False(t, domain.IsRateLimited(err))
	assert.False(t, domain.IsTransient(err))
}

func TestRateLimit_StatusWithRetryAfter(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts.URL).FollowersPage(context.Background(), "acme", "")
	require.Error(t, err)
	require.True(t, domain.IsRateLimited(err))

	var rl *domain.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 120*time.Second, rl.RetryAfter)
}

func TestRateLimit_ErrorCode88(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors": [{"code": 88, "message": "Rate limit exceeded"}]}`))
	}))
	defer ts.Close()

	err := newTestClient(t, ts.URL).Block(context.Background(), "101")
	require.True(t, domain.IsRateLimited(err))
}

func TestServerErrorIsTransient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts.URL).FollowersPage(context.Background(), "acme", "")
	require.True(t, domain.IsTransient(err))
}

func TestTransportErrorIsTransient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	_, err := newTestClient(t, ts.URL).FollowersPage(context.Background(), "acme", "")
	require.True(t, domain.IsTransient(err))
}

func TestVerifyCredentials(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/account/verify_credentials.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"id_str": "1", "screen_name": "owner"}`))
	}))
	defer ts.Close()

	acct, err := newTestClient(t, ts.URL).VerifyCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "owner", acct.ScreenName)
}

func TestLookupUsers(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/lookup.json", r.URL.Path)
		assert.Equal(t, "acme,beta", r.URL.Query().Get("screen_name"))
		_, _ = w.Write([]byte(`[{"id_str": "1", "screen_name": "acme"}, {"id_str": "2", "screen_name": "beta"}]`))
	}))
	defer ts.Close()

	accounts, err := newTestClient(t, ts.URL).LookupUsers(context.Background(), []string{"acme", "beta"})
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "beta", accounts[1].ScreenName)
}

func TestOAuth1Signature_Deterministic(t *testing.T) {
	signer := newOAuth1Signer("ck", "cs", "at", "as")
	signer.nowFn = func() time.Time { return time.Unix(1500000000, 0) }
	signer.nonceFn = func() string { return "fixednonce" }

	req1, err := http.NewRequest(http.MethodGet, "https://api.twitter.com/1.1/followers/list.json?screen_name=acme", nil)
	require.NoError(t, err)
	req2, err := http.NewRequest(http.MethodGet, "https://api.twitter.com/1.1/followers/list.json?screen_name=acme", nil)
	require.NoError(t, err)

	params := map[string]string{"screen_name": "acme"}
	signer.sign(req1, params)
	signer.sign(req2, params)

	auth := req1.Header.Get("Authorization")
	assert.Equal(t, auth, req2.Header.Get("Authorization"))
	assert.Contains(t, auth, `oauth_consumer_key="ck"`)
	assert.Contains(t, auth, `oauth_timestamp="1500000000"`)
	assert.Contains(t, auth, `oauth_nonce="fixednonce"`)
	assert.Contains(t, auth, `oauth_signature="`)
}

func TestFollowersSource_Identity(t *testing.T) {
	src := NewFollowersSource(nil, "acme")
	assert.Equal(t, domain.ModeFollowers, src.Mode())
	assert.Equal(t, "acme", src.Target())

	replies := NewMediaRepliesSource(nil, "acme")
	assert.Equal(t, domain.ModeMediaReplies, replies.Mode())
}

func TestSourcesDelegateToClient(t *testing.T) {
	var paths []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{"users": [], "next_cursor_str": "0", "statuses": []}`))
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)

	_, err := NewFollowersSource(client, "acme").FetchPage(context.Background(), "")
	require.NoError(t, err)
	_, err = NewMediaRepliesSource(client, "acme").FetchPage(context.Background(), "")
	require.NoError(t, err)

	require.Equal(t, []string{"/followers/list.json", "/search/tweets.json"}, paths)
}

func TestRetryAfter_FallsBackToResetHeader(t *testing.T) {
	reset := time.Now().Add(90 * time.Second).Unix()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-rate-limit-reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts.URL).FollowersPage(context.Background(), "acme", "")

	var rl *domain.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Greater(t, rl.RetryAfter, 80*time.Second)
	assert.LessOrEqual(t, rl.RetryAfter, 90*time.Second)
}
