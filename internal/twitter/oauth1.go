package twitter

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// oauth1Signer signs v1.1 requests with OAuth 1.0a user context
// (HMAC-SHA1). The block endpoint rejects app-only auth, so every call
// carries the full four-credential signature.
type oauth1Signer struct {
	consumerKey    string
	consumerSecret string
	accessToken    string
	accessSecret   string
	nowFn          func() time.Time
	nonceFn        func() string
}

func newOAuth1Signer(ck, cs, at, as string) *oauth1Signer {
	return &oauth1Signer{
		consumerKey:    ck,
		consumerSecret: cs,
		accessToken:    at,
		accessSecret:   as,
		nowFn:          time.Now,
		nonceFn:        func() string { return strconv.FormatInt(rand.Int63(), 36) },
	}
}

// sign adds the Authorization header. params must hold every query
// parameter of the request, since they are part of the signature base.
func (s *oauth1Signer) sign(req *http.Request, params map[string]string) {
	oauth := map[string]string{
		"oauth_consumer_key":     s.consumerKey,
		"oauth_nonce":            s.nonceFn(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(s.nowFn().Unix(), 10),
		"oauth_token":            s.accessToken,
		"oauth_version":          "1.0",
	}

	all := make(map[string]string, len(oauth)+len(params))
	for k, v := range oauth {
		all[k] = v
	}
	for k, v := range params {
		all[k] = v
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	paramParts := make([]string, 0, len(keys))
	for _, k := range keys {
		paramParts = append(paramParts, rfc3986(k)+"="+rfc3986(all[k]))
	}
	paramStr := strings.Join(paramParts, "&")

	baseURL := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path
	base := req.Method + "&" + rfc3986(baseURL) + "&" + rfc3986(paramStr)

	signingKey := rfc3986(s.consumerSecret) + "&" + rfc3986(s.accessSecret)
	mac := hmac.New(sha1.New, []byte(signingKey))
	_, _ = mac.Write([]byte(base))
	oauth["oauth_signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	hdrKeys := make([]string, 0, len(oauth))
	for k := range oauth {
		hdrKeys = append(hdrKeys, k)
	}
	sort.Strings(hdrKeys)

	authParts := make([]string, 0, len(hdrKeys))
	for _, k := range hdrKeys {
		authParts = append(authParts, fmt.Sprintf("%s=%q", rfc3986(k), rfc3986(oauth[k])))
	}
	req.Header.Set("Authorization", "OAuth "+strings.Join(authParts, ", "))
}

// rfc3986 percent-encodes for OAuth signature bases, where QueryEscape's
// "+" and unescaped "*" are not acceptable.
func rfc3986(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(url.QueryEscape(s), "+", "%20"), "*", "%2A")
}

func encodeQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, rfc3986(k)+"="+rfc3986(params[k]))
	}
	return strings.Join(parts, "&")
}
