package whitelist

import (
	"fmt"
	"regexp"
	"strings"

	"blockbot/internal/domain"
)

// Rules is an explicit allow-list of screen names plus named suppression
// toggles. Toggles are evaluated independently and combine by OR: any single
// hit suppresses the block.
type Rules struct {
	Names             []string
	Verified          bool
	Following         bool
	FollowRequestSent bool
	Friendship        bool

	// Media toggles apply only to candidates carrying a reply.
	Photo         bool
	AnimatedImage bool
	Video         bool
}

// DefaultRules returns the documented option defaults with the given
// allow-list names.
func DefaultRules(names ...string) Rules {
	return Rules{
		Names:             names,
		Verified:          true,
		Following:         true,
		FollowRequestSent: true,
		Friendship:        true,
		Photo:             true,
	}
}

var screenNameRe = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)

// Validate rejects malformed allow-list entries. Runs at startup, before any
// remote call or lock acquisition.
func (r Rules) Validate() error {
	for _, name := range r.Names {
		if !screenNameRe.MatchString(name) {
			return fmt.Errorf("invalid screen name %q in whitelist", name)
		}
	}
	return nil
}

// ShouldBlock decides whether a candidate gets blocked. Pure predicate: no
// I/O, no side effects.
func ShouldBlock(c domain.Candidate, r Rules) bool {
	for _, name := range r.Names {
		if strings.EqualFold(name, c.Account.ScreenName) {
			return false
		}
	}
	if r.Verified && c.Account.Verified {
		return false
	}
	if r.Following && c.Account.Following {
		return false
	}
	if r.FollowRequestSent && c.Account.FollowRequestSent {
		return false
	}
	if r.Friendship && c.Account.FollowedBy {
		return false
	}
	if c.Reply != nil {
		return shouldBlockMedia(c.Reply.MediaKind, r)
	}
	return true
}

// shouldBlockMedia checks the reply's specific attached media kind, not the
// account's history.
func shouldBlockMedia(kind domain.MediaKind, r Rules) bool {
	switch kind {
	case domain.MediaPhoto:
		return !r.Photo
	case domain.MediaAnimatedGIF:
		return !r.AnimatedImage
	case domain.MediaVideo:
		return !r.Video
	default:
		// A reply without native media never triggers a block.
		return false
	}
}
