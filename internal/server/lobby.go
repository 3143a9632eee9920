package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"shitpants-server/internal/shitpants"
)

const countdownDelay = 3 * time.Second

var (
	ErrGameNotFound       = errors.New("GAME_NOT_FOUND: no such game")
	ErrWrongPassword      = errors.New("WRONG_PASSWORD: lobby password does not match")
	ErrLobbyFull          = errors.New("LOBBY_FULL: lobby has no free seats")
	ErrGameAlreadyStarted = errors.New("GAME_ALREADY_STARTED: cannot do that once the game runs")
)

// errQuorumLost marks a countdown whose fire-time re-check failed.
var errQuorumLost = errors.New("quorum lost during countdown")

// Broadcaster is the lobby's view of the transport: it only knows how to
// fan events out to a game's participants.
type Broadcaster interface {
	BroadcastLobbyUpdate(g shitpants.Game)
	BroadcastSystemMessage(gameId, message string)
	BroadcastGameStarting(g shitpants.Game)
}

// LobbyCoordinator sequences join/leave/ready events and owns the delayed
// lobby-to-game transition. The countdown never trusts the state it was
// scheduled with: when the timer fires it re-reads the registry, so players
// un-readying or leaving during the delay cancel the start.
type LobbyCoordinator struct {
	registry    *Registry
	broadcaster Broadcaster
	delay       time.Duration
	log         *logrus.Logger
}

func NewLobbyCoordinator(registry *Registry, broadcaster Broadcaster, log *logrus.Logger) *LobbyCoordinator {
	return &LobbyCoordinator{
		registry:    registry,
		broadcaster: broadcaster,
		delay:       countdownDelay,
		log:         log,
	}
}

// CreateLobby stores a new game with the creator as its only player.
func (lc *LobbyCoordinator) CreateLobby(name, password string, maxPlayers int, creator string) shitpants.Game {
	game := lc.registry.Create(shitpants.NewGame(name, password, maxPlayers, creator))

	lc.log.WithFields(logrus.Fields{
		"game":    game.Id,
		"creator": creator,
	}).Info("Lobby created")

	return game
}

func (lc *LobbyCoordinator) Join(lobbyId, userName, password string) (shitpants.Game, error) {
	updated, err := lc.registry.Mutate(lobbyId, func(game shitpants.Game) (shitpants.Game, error) {
		if game.Started() {
			return shitpants.Game{}, ErrGameAlreadyStarted
		}
		if game.Password != "" && game.Password != password {
			return shitpants.Game{}, ErrWrongPassword
		}
		if game.MaxPlayers > 0 && len(game.Players) >= game.MaxPlayers && !playerInGame(game, userName) {
			return shitpants.Game{}, ErrLobbyFull
		}
		return shitpants.AddPlayer(game, userName), nil
	})
	if err != nil {
		return shitpants.Game{}, err
	}

	lc.broadcaster.BroadcastLobbyUpdate(updated)
	lc.broadcaster.BroadcastSystemMessage(lobbyId, fmt.Sprintf("%s joined the lobby.", userName))

	return updated, nil
}

// Leave removes the player; the last player out destroys the lobby entry
// entirely.
func (lc *LobbyCoordinator) Leave(lobbyId, userName string) error {
	updated, err := lc.registry.Mutate(lobbyId, func(game shitpants.Game) (shitpants.Game, error) {
		return shitpants.RemovePlayer(game, userName), nil
	})
	if err != nil {
		return err
	}

	if len(updated.Players) == 0 && lc.registry.RemoveIfEmpty(lobbyId) {
		lc.log.WithField("game", lobbyId).Info("Lobby destroyed, last player left")
		return nil
	}

	lc.broadcaster.BroadcastSystemMessage(lobbyId, fmt.Sprintf("%s left the lobby.", userName))
	lc.broadcaster.BroadcastLobbyUpdate(updated)
	return nil
}

// SetReady flips a player's ready flag. When the update completes a quorum
// (two or more players, all ready) it announces the start and schedules the
// re-validated countdown.
func (lc *LobbyCoordinator) SetReady(lobbyId, userName string, isReady bool) error {
	updated, err := lc.registry.Mutate(lobbyId, func(game shitpants.Game) (shitpants.Game, error) {
		if game.Started() {
			return shitpants.Game{}, ErrGameAlreadyStarted
		}
		return shitpants.SetReadyStatus(game, userName, isReady), nil
	})
	if err != nil {
		return err
	}

	if updated.QuorumReady() {
		lc.broadcaster.BroadcastLobbyUpdate(updated)
		lc.broadcaster.BroadcastSystemMessage(lobbyId, "All players are ready! Game is starting in 3 seconds...")

		// Soft cancellation: the timer always fires, the fire-time re-check
		// decides whether anything happens.
		time.AfterFunc(lc.delay, func() {
			lc.completeCountdown(lobbyId)
		})
		return nil
	}

	lc.broadcaster.BroadcastLobbyUpdate(updated)
	status := "not ready"
	if isReady {
		status = "ready"
	}
	lc.broadcaster.BroadcastSystemMessage(lobbyId, fmt.Sprintf("%s is now %s.", userName, status))
	return nil
}

// completeCountdown runs when the start delay elapses. It re-reads the
// registry rather than using any state captured at schedule time; that is
// what makes un-ready or leave during the delay actually cancel the start.
func (lc *LobbyCoordinator) completeCountdown(lobbyId string) {
	updated, err := lc.registry.Mutate(lobbyId, func(game shitpants.Game) (shitpants.Game, error) {
		if game.Started() {
			// A second countdown already landed; nothing to do.
			return shitpants.Game{}, ErrGameAlreadyStarted
		}
		if !game.QuorumReady() {
			return shitpants.Game{}, errQuorumLost
		}
		return shitpants.InitializeGame(game)
	})
	switch {
	case errors.Is(err, ErrGameNotFound), errors.Is(err, ErrGameAlreadyStarted):
		// Lobby emptied out, or another countdown got there first.
		return
	case errors.Is(err, errQuorumLost):
		lc.broadcaster.BroadcastSystemMessage(lobbyId, "Not all players are ready. Game start cancelled.")
		return
	case err != nil:
		lc.log.WithError(err).WithField("game", lobbyId).Error("Failed to initialize game")
		lc.broadcaster.BroadcastSystemMessage(lobbyId, "Game could not be started.")
		return
	}

	lc.log.WithFields(logrus.Fields{
		"game":        lobbyId,
		"firstPlayer": updated.CurrentPlayerId,
	}).Info("Game started")

	lc.broadcaster.BroadcastGameStarting(updated)
}

func playerInGame(g shitpants.Game, playerId string) bool {
	for _, p := range g.Players {
		if p.Id == playerId {
			return true
		}
	}
	return false
}
