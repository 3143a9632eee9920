package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"shitpants-server/internal/shitpants"
)

const inactivityTimeout = 5 * time.Minute

func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler)

	mux.HandleFunc("GET /games", s.listGamesHandler)
	mux.HandleFunc("POST /games", s.createGameHandler)
	mux.HandleFunc("GET /games/{id}", s.getGameHandler)
	mux.HandleFunc("GET /results", s.recentResultsHandler)

	mux.HandleFunc("/websocket", s.websocketHandler)

	// Wrap the mux with CORS middleware
	return s.corsMiddleware(mux)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*") // Replace "*" with specific origins if needed
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "up"}
	if s.history != nil {
		if err := s.history.Ping(r.Context()); err != nil {
			status["history"] = "down"
		} else {
			status["history"] = "up"
		}
	}
	s.writeJSON(w, http.StatusOK, status)
}

// listGamesHandler serves the lobby browser: every game, passwords redacted
// to a has-password flag.
func (s *Server) listGamesHandler(w http.ResponseWriter, r *http.Request) {
	games := s.registry.List()
	summaries := make([]shitpants.Summary, 0, len(games))
	for _, g := range games {
		summaries = append(summaries, shitpants.Summarize(g))
	}
	s.writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) getGameHandler(w http.ResponseWriter, r *http.Request) {
	id := NormalizeGameID(r.PathValue("id"))
	if err := ValidateGameID(id); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	game, ok := s.registry.Get(id)
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, ErrGameNotFound.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, shitpants.Summarize(game))
}

// createGameHandler is the REST twin of the createGame socket event, for
// clients that set up the lobby before opening their socket.
func (s *Server) createGameHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := ValidateUsername(req.UserName); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	game := s.lobby.CreateLobby(req.Name, req.Password, req.MaxPlayers, req.UserName)
	s.writeJSON(w, http.StatusCreated, game)
}

// recentResultsHandler serves the finished-match history. Without a
// database the list is just empty, not an error.
func (s *Server) recentResultsHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeJSON(w, http.StatusOK, []MatchResult{})
		return
	}

	results, err := s.history.RecentResults(r.Context(), 20)
	if err != nil {
		s.log.WithError(err).Warn("Failed to load match history")
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to load match history")
		return
	}
	if results == nil {
		results = []MatchResult{}
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		s.log.WithError(err).Warn("Failed to write response")
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorMessage{Message: message})
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // TODO: make environment-specific
	})
	if err != nil {
		http.Error(w, "Failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()

	connectionID := uuid.New().String()
	s.log.WithField("connection", connectionID).Info("New connection")
	s.connectionManager.AddConnection(connectionID, socket)
	defer func() {
		binding, bound := s.connectionManager.BindingFor(connectionID)

		s.connectionManager.RemoveConnection(connectionID)
		s.rateLimiter.RemoveConnection(connectionID)
		s.connectionHealth.RemoveConnection(connectionID)
		s.log.WithField("connection", connectionID).Info("Connection closed")

		// A bound connection that drops takes its player out of the lobby,
		// same as an explicit leaveLobby.
		if bound {
			if err := s.lobby.Leave(binding.GameId, binding.PlayerId); err != nil && err != ErrGameNotFound {
				s.log.WithError(err).WithFields(logrus.Fields{
					"game":   binding.GameId,
					"player": binding.PlayerId,
				}).Warn("Failed to remove disconnected player")
			}
		}
	}()

	for {
		msgType, data, err := socket.Read(ctx)

		if err != nil {
			s.log.WithField("connection", connectionID).WithError(err).Debug("Connection read error")
			return
		}

		if msgType != websocket.MessageText {
			s.log.WithField("connection", connectionID).Debug("Non-text input")
			continue
		}

		if !s.rateLimiter.Allow(connectionID) {
			s.sendError(socket, ctx, "RATE_LIMITED: Too many messages, slow down")
			continue
		}
		s.connectionHealth.UpdateActivity(connectionID)

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.WithField("connection", connectionID).WithError(err).Debug("Invalid JSON")
			s.sendError(socket, ctx, "Invalid JSON")
			continue
		}

		if err := ValidateMessageType(msg.Type); err != nil {
			s.sendError(socket, ctx, err.Error())
			continue
		}

		s.log.WithFields(logrus.Fields{
			"connection": connectionID,
			"type":       msg.Type,
		}).Debug("Message received")

		switch msg.Type {
		case "ping":
			s.handlePing(socket, ctx, connectionID, msg.Payload)

		case "createGame":
			s.handleCreateGame(socket, ctx, connectionID, msg.Payload)

		case "joinLobby":
			s.handleJoinLobby(socket, ctx, connectionID, msg.Payload)

		case "leaveLobby":
			s.handleLeaveLobby(socket, ctx, connectionID, msg.Payload)

		case "player:readyStatus":
			s.handleReadyStatus(socket, ctx, connectionID, msg.Payload)

		case "game:playCard":
			s.handlePlayCard(socket, ctx, connectionID, msg.Payload)

		case "game:pickUpPlayDeck":
			s.handlePickUpPlayDeck(socket, ctx, connectionID, msg.Payload)

		case "game:pullFromDeck":
			s.handlePullFromDeck(socket, ctx, connectionID, msg.Payload)

		case "chat:message":
			s.handleChatMessage(socket, ctx, connectionID, msg.Payload)
		}
	}
}

func (s *Server) handlePing(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	response := ServerMessage{
		Type:    "pong",
		Payload: struct{}{},
	}

	if err := s.sendMessage(socket, ctx, response); err != nil {
		s.log.WithField("connection", connectionID).WithError(err).Warn("Failed to send pong")
	}
}

func (s *Server) handleCreateGame(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req CreateGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid createGame payload")
		return
	}
	if err := ValidateUsername(req.UserName); err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	game := s.lobby.CreateLobby(req.Name, req.Password, req.MaxPlayers, req.UserName)

	s.connectionManager.Bind(connectionID, game.Id, req.UserName)

	response := ServerMessage{
		Type:    "lobby:updated",
		Payload: game,
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		s.log.WithError(err).Warn("Failed to send lobby:updated to creator")
	}
}

func (s *Server) handleJoinLobby(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req JoinLobbyRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid joinLobby payload")
		return
	}
	if err := ValidateUsername(req.UserName); err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	lobbyId := NormalizeGameID(req.LobbyId)
	if err := ValidateGameID(lobbyId); err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	// Bind before joining so the join broadcast reaches the joiner too.
	s.connectionManager.Bind(connectionID, lobbyId, req.UserName)

	if _, err := s.lobby.Join(lobbyId, req.UserName, req.Password); err != nil {
		s.connectionManager.Unbind(connectionID)
		s.sendError(socket, ctx, err.Error())
		return
	}
}

func (s *Server) handleLeaveLobby(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req LeaveLobbyRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid leaveLobby payload")
		return
	}

	lobbyId := NormalizeGameID(req.LobbyId)
	userName := req.UserName
	if binding, ok := s.connectionManager.BindingFor(connectionID); ok {
		if lobbyId == "" {
			lobbyId = binding.GameId
		}
		if userName == "" {
			userName = binding.PlayerId
		}
	}
	if lobbyId == "" && userName != "" {
		// Unbound connection naming only the player: look the game up.
		if game, ok := s.registry.FindByPlayer(userName); ok {
			lobbyId = game.Id
		}
	}

	s.connectionManager.Unbind(connectionID)

	if err := s.lobby.Leave(lobbyId, userName); err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}
}

func (s *Server) handleReadyStatus(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req ReadyStatusRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid player:readyStatus payload")
		return
	}

	if err := s.lobby.SetReady(NormalizeGameID(req.LobbyId), req.UserName, req.IsReady); err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}
}

func (s *Server) handlePlayCard(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req PlayCardRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid game:playCard payload")
		return
	}

	s.applyMove(socket, ctx, req.GameId, func(g shitpants.Game) (shitpants.Game, error) {
		return shitpants.PlayCards(g, req.PlayerId, req.Cards)
	})
}

func (s *Server) handlePickUpPlayDeck(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req MoveRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid game:pickUpPlayDeck payload")
		return
	}

	s.applyMove(socket, ctx, req.GameId, func(g shitpants.Game) (shitpants.Game, error) {
		return shitpants.PickUpPlayDeck(g, req.PlayerId)
	})
}

func (s *Server) handlePullFromDeck(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req MoveRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid game:pullFromDeck payload")
		return
	}

	s.applyMove(socket, ctx, req.GameId, func(g shitpants.Game) (shitpants.Game, error) {
		return shitpants.PullFromDeck(g, req.PlayerId)
	})
}

// applyMove runs a game operation against the stored state. Rule rejections
// go back to the acting connection only; the table sees nothing until a move
// actually lands. A finished move broadcasts game:ended, logs the result,
// and resets the table for the next round.
func (s *Server) applyMove(socket *websocket.Conn, ctx context.Context, gameId string, op func(shitpants.Game) (shitpants.Game, error)) {
	gameId = NormalizeGameID(gameId)

	updated, err := s.registry.Mutate(gameId, op)
	if errors.Is(err, ErrGameNotFound) {
		// Moves against vanished games drop silently; the client's next
		// lobby fetch sorts it out.
		s.log.WithField("game", gameId).Debug("Move against unknown game")
		return
	}
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}
	s.broadcastToGame(gameId, "game:updated", updated)

	if updated.Finished() {
		s.broadcastToGame(gameId, "game:ended", GameEndedNotification{
			State:    updated,
			WinnerId: updated.WinnerId,
		})
		s.log.WithFields(logrus.Fields{
			"game":   gameId,
			"winner": updated.WinnerId,
		}).Info("Game finished")

		if s.history != nil {
			go func(g shitpants.Game) {
				recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.history.RecordResult(recordCtx, g); err != nil {
					s.log.WithError(err).WithField("game", g.Id).Warn("Failed to record match result")
				}
			}(updated)
		}

		// Back to the lobby for another round.
		next := s.registry.Update(gameId, shitpants.ResetForNextRound(updated))
		s.BroadcastLobbyUpdate(next)
	}
}

func (s *Server) handleChatMessage(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req ChatMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid chat:message payload")
		return
	}

	lobbyId := NormalizeGameID(req.LobbyId)
	if lobbyId == "" {
		binding, ok := s.connectionManager.BindingFor(connectionID)
		if !ok {
			s.sendError(socket, ctx, "NOT_IN_GAME: No lobby to chat in")
			return
		}
		lobbyId = binding.GameId
	}

	s.broadcastToGame(lobbyId, "chat:message", ChatMessage{
		UserName: req.UserName,
		Message:  req.Message,
	})
}

func (s *Server) sendMessage(socket *websocket.Conn, ctx context.Context, msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("Marshal error: %w", err)
	}

	return socket.Write(ctx, websocket.MessageText, data)
}

func (s *Server) sendError(socket *websocket.Conn, ctx context.Context, msg string) {
	response := ServerMessage{
		Type: "game:error",
		Payload: ErrorMessage{
			Message: msg,
		},
	}

	if err := s.sendMessage(socket, ctx, response); err != nil {
		s.log.WithError(err).Warn("Failed to send error message")
	}
}

func (s *Server) broadcastToGame(gameId string, messageType string, payload interface{}) {
	msg := ServerMessage{
		Type:    messageType,
		Payload: payload,
	}

	// Use background context for broadcasts
	for _, conn := range s.connectionManager.ConnectionsForGame(gameId) {
		if err := s.sendMessage(conn, context.Background(), msg); err != nil {
			s.log.WithField("game", gameId).WithError(err).Debug("Broadcast send failed")
		}
	}
}

// BroadcastLobbyUpdate pushes the full lobby state to everyone at the table.
func (s *Server) BroadcastLobbyUpdate(g shitpants.Game) {
	s.broadcastToGame(g.Id, "lobby:updated", g)
}

// BroadcastSystemMessage delivers server-originated chatter, attributed to
// the System user.
func (s *Server) BroadcastSystemMessage(gameId, message string) {
	s.broadcastToGame(gameId, "chat:message", ChatMessage{
		UserName: "System",
		Message:  message,
	})
}

// BroadcastGameStarting announces the countdown's completion with the dealt
// state: hands, pull deck, and the opening player.
func (s *Server) BroadcastGameStarting(g shitpants.Game) {
	s.broadcastToGame(g.Id, "game:starting", g)
}
