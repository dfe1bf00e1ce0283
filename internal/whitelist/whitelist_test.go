package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockbot/internal/domain"
)

func TestShouldBlock_Followers(t *testing.T) {
	rules := DefaultRules("acme")

	tests := []struct {
		name    string
		account domain.Account
		want    bool
	}{
		{
			name:    "plain follower is blocked",
			account: domain.Account{ID: "1", ScreenName: "bob"},
			want:    true,
		},
		{
			name:    "allow-listed name is kept",
			account: domain.Account{ID: "2", ScreenName: "acme"},
			want:    false,
		},
		{
			name:    "allow-list match is case-insensitive",
			account: domain.Account{ID: "3", ScreenName: "AcMe"},
			want:    false,
		},
		{
			name:    "verified account is kept",
			account: domain.Account{ID: "4", ScreenName: "alice", Verified: true},
			want:    false,
		},
		{
			name:    "account we follow is kept",
			account: domain.Account{ID: "5", ScreenName: "carol", Following: true},
			want:    false,
		},
		{
			name:    "pending follow request is kept",
			account: domain.Account{ID: "6", ScreenName: "dan", FollowRequestSent: true},
			want:    false,
		},
		{
			name:    "account following us is kept",
			account: domain.Account{ID: "7", ScreenName: "eve", FollowedBy: true},
			want:    false,
		},
		{
			name:    "one matching toggle suppresses regardless of the rest",
			account: domain.Account{ID: "8", ScreenName: "frank", Verified: true, Following: false},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldBlock(domain.Candidate{Account: tt.account}, rules)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShouldBlock_MediaReplies(t *testing.T) {
	rules := DefaultRules()
	rules.Video = false
	rules.AnimatedImage = false

	tests := []struct {
		name string
		kind domain.MediaKind
		want bool
	}{
		{name: "photo reply suppressed by default", kind: domain.MediaPhoto, want: false},
		{name: "video reply blocked by default", kind: domain.MediaVideo, want: true},
		{name: "animated gif reply blocked by default", kind: domain.MediaAnimatedGIF, want: true},
		{name: "reply without media never blocks", kind: domain.MediaNone, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand := domain.Candidate{
				Account: domain.Account{ID: "9", ScreenName: "dave"},
				Reply:   &domain.ReplyRecord{TweetID: "100", MediaKind: tt.kind},
			}
			assert.Equal(t, tt.want, ShouldBlock(cand, rules))
		})
	}
}

func TestShouldBlock_MediaTogglesInverted(t *testing.T) {
	rules := DefaultRules()
	rules.Photo = false
	rules.Video = true

	photo := domain.Candidate{
		Account: domain.Account{ID: "10", ScreenName: "dave"},
		Reply:   &domain.ReplyRecord{TweetID: "101", MediaKind: domain.MediaPhoto},
	}
	video := domain.Candidate{
		Account: domain.Account{ID: "11", ScreenName: "erin"},
		Reply:   &domain.ReplyRecord{TweetID: "102", MediaKind: domain.MediaVideo},
	}

	assert.True(t, ShouldBlock(photo, rules))
	assert.False(t, ShouldBlock(video, rules))
}

func TestShouldBlock_AccountTogglesApplyToReplies(t *testing.T) {
	rules := DefaultRules()

	cand := domain.Candidate{
		Account: domain.Account{ID: "12", ScreenName: "alice", Verified: true},
		Reply:   &domain.ReplyRecord{TweetID: "103", MediaKind: domain.MediaVideo},
	}

	// Verified wins even though the video toggle would allow the block.
	rules.Video = false
	assert.False(t, ShouldBlock(cand, rules))
}

func TestRules_Validate(t *testing.T) {
	require.NoError(t, DefaultRules("acme", "Some_User99").Validate())

	err := DefaultRules("not a name!").Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a name!")

	assert.Error(t, DefaultRules("waytoolongforascreenname").Validate())
	assert.Error(t, DefaultRules("").Validate())
}
