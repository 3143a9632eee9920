package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"shitpants-server/internal/shitpants"
)

func setupHistoryRecorder(t *testing.T) *HistoryRecorder {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("shitpants_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Skipf("could not start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	recorder, err := NewHistoryRecorder(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(recorder.Close)

	return recorder
}

func finishedGame(id, winner string) shitpants.Game {
	return shitpants.Game{
		Id:       id,
		Name:     "test table",
		Players:  []shitpants.Player{{Id: "alice"}, {Id: "bob"}},
		WinnerId: winner,
	}
}

func TestHistoryRecorder_RecordAndQuery(t *testing.T) {
	assert := assert.New(t)
	recorder := setupHistoryRecorder(t)
	ctx := context.Background()

	assert.NoError(recorder.RecordResult(ctx, finishedGame("ABCD", "alice")))
	assert.NoError(recorder.RecordResult(ctx, finishedGame("WXYZ", "bob")))

	results, err := recorder.RecentResults(ctx, 10)
	assert.NoError(err)
	assert.Len(results, 2)

	// Newest first
	assert.Equal("WXYZ", results[0].GameId)
	assert.Equal("bob", results[0].Winner)
	assert.Equal([]string{"alice", "bob"}, results[0].Players)
	assert.False(results[0].FinishedAt.IsZero())
}

func TestHistoryRecorder_RecentResultsLimit(t *testing.T) {
	assert := assert.New(t)
	recorder := setupHistoryRecorder(t)
	ctx := context.Background()

	for _, id := range []string{"AAAA", "BBBB", "CCCC"} {
		assert.NoError(recorder.RecordResult(ctx, finishedGame(id, "alice")))
	}

	results, err := recorder.RecentResults(ctx, 2)
	assert.NoError(err)
	assert.Len(results, 2)
}

func TestHistoryRecorder_RejectsUnfinishedGame(t *testing.T) {
	recorder := &HistoryRecorder{}

	err := recorder.RecordResult(context.Background(), shitpants.Game{Id: "ABCD"})
	assert.ErrorContains(t, err, "HISTORY_NOT_FINISHED")
}

func TestHistoryRecorder_Ping(t *testing.T) {
	recorder := setupHistoryRecorder(t)
	assert.NoError(t, recorder.Ping(context.Background()))
}
