package domain

import "time"

// MediaKind is the dominant media type attached to a reply. The zero value
// means the candidate carried no native media.
type MediaKind string

const (
	MediaNone        MediaKind = ""
	MediaPhoto       MediaKind = "photo"
	MediaAnimatedGIF MediaKind = "animated_gif"
	MediaVideo       MediaKind = "video"
)

// Account is a page snapshot of a remote account. Relationship flags are
// relative to the operating user and come inline with the page.
type Account struct {
	ID                string
	ScreenName        string
	Name              string
	Verified          bool
	Protected         bool
	Following         bool
	FollowedBy        bool
	FollowRequestSent bool
	Blocking          bool
	FollowersCount    int
	FriendsCount      int
	StatusesCount     int
	FavouritesCount   int
	ListedCount       int
	CreatedAt         time.Time
	Description       string
	Location          string
	URL               string
}

// ReplyRecord ties a replying account to the post it replied to and the
// media attached to the reply.
type ReplyRecord struct {
	TweetID           string
	InReplyToStatusID string
	MediaKind         MediaKind
}

// Candidate is one account fetched for evaluation. Reply is set only in
// media-reply mode.
type Candidate struct {
	Account Account
	Reply   *ReplyRecord
}

// CandidatePage is one batch of candidates with the cursor for the next batch.
type CandidatePage struct {
	Candidates []Candidate
	NextCursor string
	Exhausted  bool
}
