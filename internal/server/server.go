package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/coder/websocket"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

const defaultPort = 3001

type Server struct {
	port              int
	registry          *Registry
	connectionManager *ConnectionManager
	lobby             *LobbyCoordinator
	history           *HistoryRecorder
	rateLimiter       *RateLimiter
	connectionHealth  *ConnectionHealth
	log               *logrus.Logger
}

func NewServer() (*Server, *http.Server) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil || port == 0 {
		port = defaultPort
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	s := &Server{
		port:              port,
		registry:          NewRegistry(),
		connectionManager: NewConnectionManager(),
		rateLimiter:       NewRateLimiter(20, time.Second),
		connectionHealth:  NewConnectionHealth(),
		log:               log,
	}
	s.lobby = NewLobbyCoordinator(s.registry, s, log)

	// Match history is optional: without DATABASE_URL the server runs
	// purely in memory.
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		history, err := NewHistoryRecorder(ctx, databaseURL)
		if err != nil {
			log.WithError(err).Warn("Match history disabled, could not reach database")
		} else {
			s.history = history
			log.Info("Match history recorder connected")
		}
	}

	go s.cleanupTask()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, httpServer
}

// cleanupTask periodically drops stale rate limit data and closes sockets
// that have gone quiet past the inactivity timeout.
func (s *Server) cleanupTask() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.rateLimiter.Cleanup()

		for _, connID := range s.connectionHealth.GetInactiveConnections(inactivityTimeout) {
			if conn := s.connectionManager.GetConnection(connID); conn != nil {
				s.log.WithField("connection", connID).Info("Closing inactive connection")
				conn.Close(websocket.StatusNormalClosure, "Inactive")
			}
			s.connectionManager.RemoveConnection(connID)
			s.connectionHealth.RemoveConnection(connID)
			s.rateLimiter.RemoveConnection(connID)
		}
	}
}

// Shutdown notifies every connected client and releases the history
// recorder before the HTTP server drains.
func (s *Server) Shutdown(ctx context.Context) error {
	notice := ServerMessage{
		Type: "chat:message",
		Payload: ChatMessage{
			UserName: "System",
			Message:  "Server is shutting down.",
		},
	}

	for _, conn := range s.connectionManager.AllConnections() {
		if err := s.sendMessage(conn, ctx, notice); err != nil {
			s.log.WithError(err).Debug("Failed to send shutdown notice")
		}
		conn.Close(websocket.StatusGoingAway, "Server shutting down")
	}

	if s.history != nil {
		s.history.Close()
	}

	s.log.Info("Server shutdown complete")
	return nil
}
