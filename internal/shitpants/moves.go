package shitpants

import "errors"

// A rejected move is an expected outcome, not an internal failure. The
// engine reports it through these values and guarantees the input game is
// untouched.
var (
	ErrGameOver      = errors.New("GAME_OVER: round already has a winner")
	ErrNotYourTurn   = errors.New("NOT_YOUR_TURN: wait for your turn")
	ErrNoCards       = errors.New("NO_CARDS: no cards given")
	ErrMixedRanks    = errors.New("MIXED_RANKS: all played cards must share one rank")
	ErrInvalidFollow = errors.New("INVALID_FOLLOW: card cannot be placed on the play deck")
	ErrCardNotInHand = errors.New("CARD_NOT_IN_HAND: you can only play cards you hold")
	ErrEmptyPullDeck = errors.New("EMPTY_PULL_DECK: the pull deck is empty")
	ErrHandFull      = errors.New("HAND_FULL: cannot pull with six or more cards in hand")
)

// The manual pull caps one card above the dealt hand size.
const pullHandLimit = handSize + 1

// PlayCards validates and applies one play: the cards move from the
// player's hand to the top of the play deck, the hand is replenished to
// five, then win, collapse and turn advancement are resolved in that order.
func PlayCards(g Game, playerId string, cards []Card) (Game, error) {
	if g.Finished() {
		return Game{}, ErrGameOver
	}
	if playerId != g.CurrentPlayerId {
		return Game{}, ErrNotYourTurn
	}
	if len(cards) == 0 {
		return Game{}, ErrNoCards
	}

	lead := cards[0]
	for _, c := range cards[1:] {
		if c.Rank != lead.Rank {
			return Game{}, ErrMixedRanks
		}
	}

	if len(g.PlayDeck) > 0 && !IsCollapsingRank(lead.Rank) {
		top := g.PlayDeck[len(g.PlayDeck)-1]
		if !IsFollowValid(top.Rank, lead.Rank) {
			return Game{}, ErrInvalidFollow
		}
	}

	out := g.Clone()
	idx := out.findPlayer(playerId)
	if idx < 0 {
		return Game{}, ErrCardNotInHand
	}

	hand, ok := removeCards(out.Players[idx].Hand, cards)
	if !ok {
		return Game{}, ErrCardNotInHand
	}
	out.Players[idx].Hand = hand
	out.PlayDeck = append(out.PlayDeck, cards...)

	drawACardIfNeeded(&out.Players[idx], &out.PullDeck)

	if len(out.Players[idx].Hand) == 0 {
		out.WinnerId = playerId
		return out, nil
	}

	if IsCollapsingRank(lead.Rank) || topFourShareRank(out.PlayDeck) {
		// Collapse: clear the pile, the same player goes again.
		out.PlayDeck = []Card{}
		return out, nil
	}

	advanceTurn(&out)
	return out, nil
}

// PickUpPlayDeck moves the whole play deck into the player's hand, behind
// the cards already held, and passes the turn. No replenishment happens on
// a pickup.
func PickUpPlayDeck(g Game, playerId string) (Game, error) {
	if g.Finished() {
		return Game{}, ErrGameOver
	}
	if playerId != g.CurrentPlayerId {
		return Game{}, ErrNotYourTurn
	}

	out := g.Clone()
	idx := out.findPlayer(playerId)
	if idx < 0 {
		return Game{}, ErrNotYourTurn
	}

	out.Players[idx].Hand = append(out.Players[idx].Hand, out.PlayDeck...)
	out.PlayDeck = []Card{}

	advanceTurn(&out)
	return out, nil
}

// PullFromDeck is the manual top-up: one card off the pull deck, capped at
// six cards in hand, without giving up the turn.
func PullFromDeck(g Game, playerId string) (Game, error) {
	if g.Finished() {
		return Game{}, ErrGameOver
	}
	if playerId != g.CurrentPlayerId {
		return Game{}, ErrNotYourTurn
	}
	if len(g.PullDeck) == 0 {
		return Game{}, ErrEmptyPullDeck
	}

	out := g.Clone()
	idx := out.findPlayer(playerId)
	if idx < 0 {
		return Game{}, ErrNotYourTurn
	}
	if len(out.Players[idx].Hand) >= pullHandLimit {
		return Game{}, ErrHandFull
	}

	top := len(out.PullDeck) - 1
	out.Players[idx].Hand = append(out.Players[idx].Hand, out.PullDeck[top])
	out.PullDeck = out.PullDeck[:top]
	return out, nil
}

// drawACardIfNeeded tops the hand up toward five from the end of the pull
// deck. A hand already at or above five is left alone.
func drawACardIfNeeded(p *Player, pullDeck *[]Card) {
	for len(*pullDeck) > 0 && len(p.Hand) < handSize {
		top := len(*pullDeck) - 1
		p.Hand = append(p.Hand, (*pullDeck)[top])
		*pullDeck = (*pullDeck)[:top]
	}
}

// removeCards takes each requested card out of the hand, matching rank and
// suit exactly. Reports false if any card is missing.
func removeCards(hand []Card, cards []Card) ([]Card, bool) {
	out := make([]Card, len(hand))
	copy(out, hand)

	for _, want := range cards {
		found := -1
		for i, held := range out {
			if held == want {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, false
		}
		out = append(out[:found], out[found+1:]...)
	}
	return out, true
}

func topFourShareRank(playDeck []Card) bool {
	if len(playDeck) < 4 {
		return false
	}
	top := playDeck[len(playDeck)-1]
	for _, c := range playDeck[len(playDeck)-4 : len(playDeck)-1] {
		if c.Rank != top.Rank {
			return false
		}
	}
	return true
}

// advanceTurn rotates to the next player in join order, wrapping around.
// The rotation order is fixed at deal time.
func advanceTurn(g *Game) {
	idx := g.findPlayer(g.CurrentPlayerId)
	if idx < 0 || len(g.Players) == 0 {
		return
	}
	g.CurrentPlayerId = g.Players[(idx+1)%len(g.Players)].Id
}
