package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveRunID_NormalizesTarget(t *testing.T) {
	assert.Equal(t, "followers:acme", DeriveRunID(ModeFollowers, "acme"))
	assert.Equal(t, "followers:acme", DeriveRunID(ModeFollowers, "Acme"))
	assert.Equal(t, "media-replies:acme", DeriveRunID(ModeMediaReplies, "ACME"))
}

func TestNewRunState(t *testing.T) {
	state := NewRunState("followers:acme")

	assert.Equal(t, "followers:acme", state.RunID)
	assert.Empty(t, state.Cursor)
	assert.False(t, state.Completed)
	assert.NotNil(t, state.Processed)
}
