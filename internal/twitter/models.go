package twitter

import (
	"time"

	"blockbot/internal/domain"
)

// userJSON mirrors the v1.1 user object, trimmed to the fields the
// whitelist and archive care about.
type userJSON struct {
	IDStr             string `json:"id_str"`
	ScreenName        string `json:"screen_name"`
	Name              string `json:"name"`
	Verified          bool   `json:"verified"`
	Protected         bool   `json:"protected"`
	Following         bool   `json:"following"`
	FollowedBy        bool   `json:"followed_by"`
	FollowRequestSent bool   `json:"follow_request_sent"`
	Blocking          bool   `json:"blocking"`
	FollowersCount    int    `json:"followers_count"`
	FriendsCount      int    `json:"friends_count"`
	StatusesCount     int    `json:"statuses_count"`
	FavouritesCount   int    `json:"favourites_count"`
	ListedCount       int    `json:"listed_count"`
	CreatedAt         string `json:"created_at"`
	Description       string `json:"description"`
	Location          string `json:"location"`
	URL               string `json:"url"`
}

type followersPageJSON struct {
	Users         []userJSON `json:"users"`
	NextCursorStr string     `json:"next_cursor_str"`
}

type tweetJSON struct {
	IDStr                string        `json:"id_str"`
	InReplyToStatusIDStr string        `json:"in_reply_to_status_id_str"`
	User                 userJSON      `json:"user"`
	ExtendedEntities     *entitiesJSON `json:"extended_entities"`
}

type entitiesJSON struct {
	Media []mediaJSON `json:"media"`
}

type mediaJSON struct {
	Type string `json:"type"`
}

type searchPageJSON struct {
	Statuses []tweetJSON `json:"statuses"`
}

type apiErrorsJSON struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func toAccount(u userJSON) domain.Account {
	// created_at arrives Ruby-style: Sat Apr 14 00:48:14 +0000 2012
	createdAt, _ := time.Parse(time.RubyDate, u.CreatedAt)

	return domain.Account{
		ID:                u.IDStr,
		ScreenName:        u.ScreenName,
		Name:              u.Name,
		Verified:          u.Verified,
		Protected:         u.Protected,
		Following:         u.Following,
		FollowedBy:        u.FollowedBy,
		FollowRequestSent: u.FollowRequestSent,
		Blocking:          u.Blocking,
		FollowersCount:    u.FollowersCount,
		FriendsCount:      u.FriendsCount,
		StatusesCount:     u.StatusesCount,
		FavouritesCount:   u.FavouritesCount,
		ListedCount:       u.ListedCount,
		CreatedAt:         createdAt,
		Description:       u.Description,
		Location:          u.Location,
		URL:               u.URL,
	}
}

// dominantMediaKind reduces a tweet's attached media to a single kind.
// Video outranks animated gif, animated gif outranks photo.
func dominantMediaKind(media []mediaJSON) domain.MediaKind {
	kind := domain.MediaNone
	for _, m := range media {
		switch m.Type {
		case "video":
			return domain.MediaVideo
		case "animated_gif":
			kind = domain.MediaAnimatedGIF
		case "photo":
			if kind == domain.MediaNone {
				kind = domain.MediaPhoto
			}
		}
	}
	return kind
}

func (t tweetJSON) mediaKind() domain.MediaKind {
	if t.ExtendedEntities == nil {
		return domain.MediaNone
	}
	return dominantMediaKind(t.ExtendedEntities.Media)
}
