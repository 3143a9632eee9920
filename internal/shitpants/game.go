package shitpants

import (
	"errors"
	"math/rand"
)

const handSize = 5

// Game is the aggregate root for one lobby/game. Every operation in this
// package is copy-on-write: it deep-clones the game before touching it and
// returns the clone, so a caller's reference is never mutated.
type Game struct {
	Id              string   `json:"id"`
	Name            string   `json:"name"`
	Password        string   `json:"password"`
	MaxPlayers      int      `json:"maxPlayers"`
	Players         []Player `json:"players"`
	PullDeck        []Card   `json:"pullDeck"`
	PlayDeck        []Card   `json:"playDeck"`
	CurrentPlayerId string   `json:"currentPlayerId"`
	WinnerId        string   `json:"winnerId,omitempty"`
}

// Player id doubles as the display name.
type Player struct {
	Id      string `json:"id"`
	Hand    []Card `json:"hand"`
	IsReady bool   `json:"isReady"`
}

func NewGame(name, password string, maxPlayers int, creator string) Game {
	return Game{
		Name:       name,
		Password:   password,
		MaxPlayers: maxPlayers,
		Players:    []Player{{Id: creator, Hand: []Card{}}},
		PullDeck:   NewDeck(),
		PlayDeck:   []Card{},
	}
}

// Started reports whether the game has left the lobby phase.
func (g Game) Started() bool {
	return g.CurrentPlayerId != ""
}

func (g Game) Finished() bool {
	return g.WinnerId != ""
}

func (g Game) findPlayer(id string) int {
	for i, p := range g.Players {
		if p.Id == id {
			return i
		}
	}
	return -1
}

// Clone deep-copies the game, including every hand and both decks.
func (g Game) Clone() Game {
	out := g

	out.Players = make([]Player, len(g.Players))
	for i, p := range g.Players {
		hand := make([]Card, len(p.Hand))
		copy(hand, p.Hand)
		out.Players[i] = Player{Id: p.Id, Hand: hand, IsReady: p.IsReady}
	}

	out.PullDeck = make([]Card, len(g.PullDeck))
	copy(out.PullDeck, g.PullDeck)

	out.PlayDeck = make([]Card, len(g.PlayDeck))
	copy(out.PlayDeck, g.PlayDeck)

	return out
}

// AddPlayer appends a new player. Joining twice under the same name is a
// no-op, not an error.
func AddPlayer(g Game, playerId string) Game {
	if g.findPlayer(playerId) >= 0 {
		return g.Clone()
	}
	out := g.Clone()
	out.Players = append(out.Players, Player{Id: playerId, Hand: []Card{}})
	return out
}

func RemovePlayer(g Game, playerId string) Game {
	out := g.Clone()
	i := out.findPlayer(playerId)
	if i < 0 {
		return out
	}
	out.Players = append(out.Players[:i], out.Players[i+1:]...)
	return out
}

func SetReadyStatus(g Game, playerId string, isReady bool) Game {
	out := g.Clone()
	if i := out.findPlayer(playerId); i >= 0 {
		out.Players[i].IsReady = isReady
	}
	return out
}

// QuorumReady reports whether the lobby may start: at least two players and
// every one of them ready.
func (g Game) QuorumReady() bool {
	if len(g.Players) < 2 {
		return false
	}
	for _, p := range g.Players {
		if !p.IsReady {
			return false
		}
	}
	return true
}

// ShuffleDeck returns a game whose pull deck is a uniform permutation of the
// input's. Players and the play deck are untouched.
func ShuffleDeck(g Game) Game {
	out := g.Clone()
	rand.Shuffle(len(out.PullDeck), func(i, j int) {
		out.PullDeck[i], out.PullDeck[j] = out.PullDeck[j], out.PullDeck[i]
	})
	return out
}

// DealHands gives each player five cards popped from the end of the pull
// deck, one full hand at a time in player order. The deck randomization all
// comes from the shuffle, so the sequential deal order is deliberate.
func DealHands(g Game) (Game, error) {
	if len(g.Players)*handSize > len(g.PullDeck) {
		return Game{}, errors.New("INSUFFICIENT_CARDS: pull deck cannot cover a full deal")
	}

	out := g.Clone()
	for i := range out.Players {
		for range handSize {
			top := len(out.PullDeck) - 1
			out.Players[i].Hand = append(out.Players[i].Hand, out.PullDeck[top])
			out.PullDeck = out.PullDeck[:top]
		}
	}
	return out, nil
}

// FindFirstTurnPlayer returns the id of the player holding the globally
// lowest card. Ties go to the earliest player, then the earliest card in
// that player's hand.
func FindFirstTurnPlayer(g Game) string {
	best := ""
	var bestRank Rank
	for _, p := range g.Players {
		for _, card := range p.Hand {
			if best == "" || card.Rank < bestRank {
				best = p.Id
				bestRank = card.Rank
			}
		}
	}
	return best
}

// InitializeGame is the single transition from lobby to active game:
// shuffle, deal, then hand the first turn to the lowest-card holder.
func InitializeGame(g Game) (Game, error) {
	out := ShuffleDeck(g)
	out, err := DealHands(out)
	if err != nil {
		return Game{}, err
	}
	out.CurrentPlayerId = FindFirstTurnPlayer(out)
	return out, nil
}

// ResetForNextRound recreates the lobby after a finished round: fresh deck,
// empty hands, everyone un-readied, no turn holder.
func ResetForNextRound(g Game) Game {
	out := g.Clone()
	for i := range out.Players {
		out.Players[i].Hand = []Card{}
		out.Players[i].IsReady = false
	}
	out.PullDeck = NewDeck()
	out.PlayDeck = []Card{}
	out.CurrentPlayerId = ""
	out.WinnerId = ""
	return out
}
