package twitter

import (
	"context"

	"blockbot/internal/domain"
)

// FollowersSource enumerates the followers of one target account.
type FollowersSource struct {
	client *Client
	target string
}

func NewFollowersSource(client *Client, target string) *FollowersSource {
	return &FollowersSource{client: client, target: target}
}

func (s *FollowersSource) Mode() string   { return domain.ModeFollowers }
func (s *FollowersSource) Target() string { return s.target }

func (s *FollowersSource) FetchPage(ctx context.Context, cursor string) (*domain.CandidatePage, error) {
	return s.client.FollowersPage(ctx, s.target, cursor)
}

// MediaRepliesSource enumerates accounts posting media replies to one
// target account.
type MediaRepliesSource struct {
	client *Client
	target string
}

func NewMediaRepliesSource(client *Client, target string) *MediaRepliesSource {
	return &MediaRepliesSource{client: client, target: target}
}

func (s *MediaRepliesSource) Mode() string   { return domain.ModeMediaReplies }
func (s *MediaRepliesSource) Target() string { return s.target }

func (s *MediaRepliesSource) FetchPage(ctx context.Context, cursor string) (*domain.CandidatePage, error) {
	return s.client.MediaRepliesPage(ctx, s.target, cursor)
}
