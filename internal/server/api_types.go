package server

import "shitpants-server/internal/shitpants"

// ============================================================================
// ERROR RESPONSES
// ============================================================================
type ErrorMessage struct {
	Message string `json:"message"`
}

// ============================================================================
// CREATE GAME (createGame)
// ============================================================================
type CreateGameRequest struct {
	Name       string `json:"name"`
	Password   string `json:"password"`
	MaxPlayers int    `json:"maxPlayers"`
	UserName   string `json:"userName"`
}

// ============================================================================
// JOIN / LEAVE LOBBY (joinLobby, leaveLobby)
// ============================================================================
type JoinLobbyRequest struct {
	LobbyId  string `json:"lobbyId"`
	UserName string `json:"userName"`
	Password string `json:"password"`
}

type LeaveLobbyRequest struct {
	LobbyId  string `json:"lobbyId"`
	UserName string `json:"userName"`
}

// ============================================================================
// READY STATUS (player:readyStatus)
// ============================================================================
type ReadyStatusRequest struct {
	LobbyId  string `json:"lobbyId"`
	UserName string `json:"userName"`
	IsReady  bool   `json:"isReady"`
}

// ============================================================================
// MOVES (game:playCard, game:pickUpPlayDeck, game:pullFromDeck)
// ============================================================================
type PlayCardRequest struct {
	GameId   string           `json:"gameId"`
	PlayerId string           `json:"playerId"`
	Cards    []shitpants.Card `json:"cards"`
}

type MoveRequest struct {
	GameId   string `json:"gameId"`
	PlayerId string `json:"playerId"`
}

// ============================================================================
// CHAT (chat:message)
// ============================================================================
type ChatMessage struct {
	LobbyId  string `json:"lobbyId,omitempty"`
	UserName string `json:"userName"`
	Message  string `json:"message"`
}

// ============================================================================
// GAME END (game:ended broadcast)
// ============================================================================
type GameEndedNotification struct {
	State    shitpants.Game `json:"state"`
	WinnerId string         `json:"winnerId"`
}
