package server

import (
	"sync"

	"github.com/coder/websocket"
)

// PlayerBinding ties a connection to the player it speaks for. Player ids
// are display names, unique within a game.
type PlayerBinding struct {
	GameId   string
	PlayerId string
}

// ConnectionManager tracks live sockets and which player each one is bound
// to. A connection starts unbound and gains a binding on create/join.
type ConnectionManager struct {
	connections map[string]*websocket.Conn // connectionID → socket
	bindings    map[string]PlayerBinding   // connectionID → player
	mu          sync.RWMutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
		bindings:    make(map[string]PlayerBinding),
	}
}

func (cm *ConnectionManager) AddConnection(id string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[id] = conn
}

func (cm *ConnectionManager) RemoveConnection(id string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.connections, id)
	delete(cm.bindings, id)
}

// Bind associates a connection with a player in a game, replacing any
// previous binding for that connection.
func (cm *ConnectionManager) Bind(connectionID, gameId, playerId string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.bindings[connectionID] = PlayerBinding{GameId: gameId, PlayerId: playerId}
}

func (cm *ConnectionManager) Unbind(connectionID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.bindings, connectionID)
}

func (cm *ConnectionManager) BindingFor(connectionID string) (PlayerBinding, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	b, ok := cm.bindings[connectionID]
	return b, ok
}

func (cm *ConnectionManager) GetConnection(connectionID string) *websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.connections[connectionID]
}

// ConnectionsForGame returns the sockets of every player bound to the game.
func (cm *ConnectionManager) ConnectionsForGame(gameId string) []*websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	var conns []*websocket.Conn
	for connID, binding := range cm.bindings {
		if binding.GameId != gameId {
			continue
		}
		if conn, ok := cm.connections[connID]; ok {
			conns = append(conns, conn)
		}
	}
	return conns
}

// AllConnections snapshots every live socket, bound or not. Used for
// shutdown notices.
func (cm *ConnectionManager) AllConnections() []*websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	conns := make([]*websocket.Conn, 0, len(cm.connections))
	for _, conn := range cm.connections {
		conns = append(conns, conn)
	}
	return conns
}
