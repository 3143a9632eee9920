package server

import (
	"errors"
	"math/rand"
	"strings"
	"sync"

	"shitpants-server/internal/shitpants"
)

// Registry is the process-wide store of games, keyed by game id. It hands
// out clones on every read and write so the engine's copy-on-write contract
// holds across the store boundary: nobody ever shares slices with the
// stored state.
type Registry struct {
	games     map[string]shitpants.Game
	usedCodes map[string]bool
	mu        sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		games:     make(map[string]shitpants.Game),
		usedCodes: make(map[string]bool),
	}
}

// Create stores the game under a freshly generated id and returns the game
// with that id set.
func (r *Registry) Create(g shitpants.Game) shitpants.Game {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.generateIDLocked()
	r.usedCodes[id] = true

	stored := g.Clone()
	stored.Id = id
	r.games[id] = stored

	return stored.Clone()
}

func (r *Registry) Get(id string) (shitpants.Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.games[id]
	if !ok {
		return shitpants.Game{}, false
	}
	return g.Clone(), true
}

func (r *Registry) Update(id string, g shitpants.Game) shitpants.Game {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := g.Clone()
	stored.Id = id
	r.games[id] = stored

	return stored.Clone()
}

// Mutate applies fn to the stored game while holding the write lock, so
// concurrent read-modify-write cycles cannot lose updates. fn gets a clone
// and its result is cloned back in; an error from fn leaves the stored
// state untouched.
func (r *Registry) Mutate(id string, fn func(shitpants.Game) (shitpants.Game, error)) (shitpants.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[id]
	if !ok {
		return shitpants.Game{}, ErrGameNotFound
	}

	updated, err := fn(g.Clone())
	if err != nil {
		return shitpants.Game{}, err
	}

	stored := updated.Clone()
	stored.Id = id
	r.games[id] = stored

	return stored.Clone(), nil
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.games, id)
	delete(r.usedCodes, id)
}

// RemoveIfEmpty deletes the game only if it still has no players, re-read
// under the lock so a join racing the last leave is not clobbered.
func (r *Registry) RemoveIfEmpty(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[id]
	if !ok || len(g.Players) > 0 {
		return false
	}
	delete(r.games, id)
	delete(r.usedCodes, id)
	return true
}

// FindByPlayer locates the game a player currently sits in. Player ids are
// unique per game, not globally, so this returns the first match; it backs
// the leave path when the client only names the player.
func (r *Registry) FindByPlayer(playerId string) (shitpants.Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, g := range r.games {
		for _, p := range g.Players {
			if p.Id == playerId {
				return g.Clone(), true
			}
		}
	}
	return shitpants.Game{}, false
}

func (r *Registry) List() []shitpants.Game {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]shitpants.Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g.Clone())
	}
	return games
}

// generateIDLocked returns a 4-letter code not currently in use. Caller
// holds the write lock.
func (r *Registry) generateIDLocked() string {
	for {
		code := make([]byte, 4)
		for i := range code {
			code[i] = 'A' + byte(rand.Intn(26))
		}
		id := string(code)
		if !r.usedCodes[id] {
			return id
		}
	}
}

func ValidateGameID(id string) error {
	if len(id) != 4 {
		return errors.New("GAME_ID_INVALID: game id must be exactly 4 characters")
	}
	for _, ch := range strings.ToUpper(id) {
		if ch < 'A' || ch > 'Z' {
			return errors.New("GAME_ID_INVALID: game id must contain only letters A-Z")
		}
	}
	return nil
}

func NormalizeGameID(id string) string {
	return strings.ToUpper(id)
}
