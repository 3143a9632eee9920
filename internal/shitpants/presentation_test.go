package shitpants_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"shitpants-server/internal/shitpants"
)

func TestSummarize(t *testing.T) {
	assert := assert.New(t)

	game := shitpants.NewGame("friday night", "hunter2", 4, "alice")
	game = shitpants.AddPlayer(game, "bob")
	game.Id = "ABCD"

	summary := shitpants.Summarize(game)

	assert.Equal("ABCD", summary.Id)
	assert.Equal("friday night", summary.Name)
	assert.Equal(2, summary.PlayerCount)
	assert.Equal(4, summary.MaxPlayers)
	assert.True(summary.HasPassword)
	assert.False(summary.Started)
}

func TestSummarizeOpenLobby(t *testing.T) {
	assert := assert.New(t)

	game := shitpants.NewGame("open", "", 2, "alice")
	summary := shitpants.Summarize(game)

	assert.False(summary.HasPassword, "empty password means no gate")
}
