package shitpants

import (
	"encoding/json"
	"fmt"
)

type Suit int

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

var suitCode = map[Suit]string{
	Clubs:    "C",
	Diamonds: "D",
	Hearts:   "H",
	Spades:   "S",
}

var suitString = map[Suit]string{
	Clubs:    "Clubs",
	Diamonds: "Diamonds",
	Hearts:   "Hearts",
	Spades:   "Spades",
}

func (s Suit) String() string {
	return suitString[s]
}

// Rank order is the game order, not the usual one: two beats everything,
// ace is second highest, three is the floor.
type Rank int

const (
	Three Rank = iota
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
	Two
)

var rankCode = map[Rank]string{
	Three: "3",
	Four:  "4",
	Five:  "5",
	Six:   "6",
	Seven: "7",
	Eight: "8",
	Nine:  "9",
	Ten:   "10",
	Jack:  "J",
	Queen: "Q",
	King:  "K",
	Ace:   "A",
	Two:   "2",
}

var rankString = map[Rank]string{
	Three: "Three",
	Four:  "Four",
	Five:  "Five",
	Six:   "Six",
	Seven: "Seven",
	Eight: "Eight",
	Nine:  "Nine",
	Ten:   "Ten",
	Jack:  "Jack",
	Queen: "Queen",
	King:  "King",
	Ace:   "Ace",
	Two:   "Two",
}

func (r Rank) String() string {
	return rankString[r]
}

var allRanks = []Rank{Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace, Two}

var allSuits = []Suit{Clubs, Diamonds, Hearts, Spades}

// collapsingRanks clear the play deck outright when led, regardless of what
// is on top. They never appear in the follow table; the collapse override in
// PlayCards is the only way they land on a non-empty pile.
var collapsingRanks = map[Rank]bool{
	Ace: true,
	Two: true,
}

// followTable lists, for each rank on top of the play deck, the ranks that
// may legally be placed on it: everything of equal or higher order, minus
// the collapsing ranks.
var followTable = buildFollowTable()

func buildFollowTable() map[Rank]map[Rank]bool {
	table := make(map[Rank]map[Rank]bool, len(allRanks))
	for _, top := range allRanks {
		follows := make(map[Rank]bool)
		for _, candidate := range allRanks {
			if collapsingRanks[candidate] {
				continue
			}
			if candidate >= top {
				follows[candidate] = true
			}
		}
		table[top] = follows
	}
	return table
}

func IsFollowValid(top, candidate Rank) bool {
	return followTable[top][candidate]
}

func IsCollapsingRank(r Rank) bool {
	return collapsingRanks[r]
}

// Card is a structured rank/suit pair. The wire format is the concatenated
// code string ("10C", "AS"); keeping the pair structured internally avoids
// the variable-length rank parsing hazard ("10" is two characters).
type Card struct {
	Rank Rank
	Suit Suit
}

// Code returns the wire encoding, rank code followed by suit code.
func (c Card) Code() string {
	return rankCode[c.Rank] + suitCode[c.Suit]
}

func (c Card) String() string {
	return fmt.Sprintf("%s of %s", c.Rank.String(), c.Suit.String())
}

// ParseCard decodes a wire string. The suit is always the final character;
// whatever precedes it is the rank, so "10C" parses cleanly.
func ParseCard(code string) (Card, error) {
	if len(code) < 2 {
		return Card{}, fmt.Errorf("INVALID_CARD: %q is too short", code)
	}

	suitPart := code[len(code)-1:]
	rankPart := code[:len(code)-1]

	var card Card
	found := false
	for suit, sc := range suitCode {
		if sc == suitPart {
			card.Suit = suit
			found = true
			break
		}
	}
	if !found {
		return Card{}, fmt.Errorf("INVALID_CARD: unknown suit in %q", code)
	}

	found = false
	for rank, rc := range rankCode {
		if rc == rankPart {
			card.Rank = rank
			found = true
			break
		}
	}
	if !found {
		return Card{}, fmt.Errorf("INVALID_CARD: unknown rank in %q", code)
	}

	return card, nil
}

func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Code())
}

func (c *Card) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	card, err := ParseCard(code)
	if err != nil {
		return err
	}
	*c = card
	return nil
}

// NewDeck returns a single ordered 52-card deck.
func NewDeck() []Card {
	deck := make([]Card, 0, 52)
	for _, suit := range allSuits {
		for _, rank := range allRanks {
			deck = append(deck, Card{Rank: rank, Suit: suit})
		}
	}
	return deck
}
