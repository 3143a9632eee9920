package shitpants_test

import (
	"reflect"
	"sort"
	"testing"

	"shitpants-server/internal/shitpants"
)

func mustCard(t *testing.T, code string) shitpants.Card {
	t.Helper()
	card, err := shitpants.ParseCard(code)
	if err != nil {
		t.Fatalf("bad card %q: %v", code, err)
	}
	return card
}

func cardsFromCodes(t *testing.T, codes ...string) []shitpants.Card {
	t.Helper()
	cards := make([]shitpants.Card, 0, len(codes))
	for _, code := range codes {
		cards = append(cards, mustCard(t, code))
	}
	return cards
}

// cardCensus counts every card in the game, wherever it lives. Used to
// assert that no operation creates or destroys a card.
func cardCensus(g shitpants.Game) map[shitpants.Card]int {
	census := make(map[shitpants.Card]int)
	for _, p := range g.Players {
		for _, c := range p.Hand {
			census[c]++
		}
	}
	for _, c := range g.PullDeck {
		census[c]++
	}
	for _, c := range g.PlayDeck {
		census[c]++
	}
	return census
}

func TestNewGame(t *testing.T) {
	game := shitpants.NewGame("friday night", "hunter2", 4, "alice")

	if game.Name != "friday night" || game.Password != "hunter2" || game.MaxPlayers != 4 {
		t.Errorf("lobby metadata not carried: %+v", game)
	}
	if len(game.Players) != 1 || game.Players[0].Id != "alice" {
		t.Fatalf("creator should be the only player, got %+v", game.Players)
	}
	if len(game.PullDeck) != 52 {
		t.Errorf("pull deck has %d cards, 52 expected", len(game.PullDeck))
	}
	if game.Started() {
		t.Error("fresh lobby should not be started")
	}
}

func TestAddPlayer(t *testing.T) {
	game := shitpants.NewGame("g", "", 4, "alice")

	updated := shitpants.AddPlayer(game, "bob")
	if len(updated.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(updated.Players))
	}
	if len(game.Players) != 1 {
		t.Error("AddPlayer mutated its input")
	}

	// Joining twice under the same name is a no-op.
	again := shitpants.AddPlayer(updated, "bob")
	if len(again.Players) != 2 {
		t.Errorf("duplicate join changed the roster: %d players", len(again.Players))
	}
}

func TestRemovePlayer(t *testing.T) {
	game := shitpants.AddPlayer(shitpants.NewGame("g", "", 4, "alice"), "bob")

	updated := shitpants.RemovePlayer(game, "alice")
	if len(updated.Players) != 1 || updated.Players[0].Id != "bob" {
		t.Errorf("unexpected roster after removal: %+v", updated.Players)
	}

	unknown := shitpants.RemovePlayer(game, "carol")
	if len(unknown.Players) != 2 {
		t.Error("removing an unknown player should be a no-op")
	}
}

func TestSetReadyStatus(t *testing.T) {
	game := shitpants.AddPlayer(shitpants.NewGame("g", "", 4, "alice"), "bob")

	updated := shitpants.SetReadyStatus(game, "bob", true)
	if !updated.Players[1].IsReady {
		t.Error("bob should be ready")
	}
	if updated.Players[0].IsReady {
		t.Error("alice should not be ready")
	}
	if game.Players[1].IsReady {
		t.Error("SetReadyStatus mutated its input")
	}
}

func TestQuorumReady(t *testing.T) {
	game := shitpants.NewGame("g", "", 4, "alice")
	game = shitpants.SetReadyStatus(game, "alice", true)
	if game.QuorumReady() {
		t.Error("a single ready player is not a quorum")
	}

	game = shitpants.AddPlayer(game, "bob")
	if game.QuorumReady() {
		t.Error("quorum requires every player ready")
	}

	game = shitpants.SetReadyStatus(game, "bob", true)
	if !game.QuorumReady() {
		t.Error("two ready players should be a quorum")
	}
}

func TestShuffleDeckIsPermutation(t *testing.T) {
	game := shitpants.NewGame("g", "", 4, "alice")
	before := append([]shitpants.Card(nil), game.PullDeck...)

	shuffled := shitpants.ShuffleDeck(game)

	if !reflect.DeepEqual(game.PullDeck, before) {
		t.Fatal("ShuffleDeck mutated its input")
	}
	if len(shuffled.PullDeck) != len(before) {
		t.Fatalf("shuffle changed the deck size: %d", len(shuffled.PullDeck))
	}

	sortCards := func(cards []shitpants.Card) []string {
		codes := make([]string, len(cards))
		for i, c := range cards {
			codes[i] = c.Code()
		}
		sort.Strings(codes)
		return codes
	}
	if !reflect.DeepEqual(sortCards(shuffled.PullDeck), sortCards(before)) {
		t.Error("shuffled deck is not a permutation of the input")
	}
}

func TestShuffleDeckLooksUniform(t *testing.T) {
	// Coarse statistical check: over many shuffles of a five-card deck,
	// every card should land on top a roughly even share of the time.
	game := shitpants.Game{PullDeck: cardsFromCodes(t, "3C", "4C", "5C", "6C", "7C")}

	const trials = 2000
	topCounts := make(map[shitpants.Card]int)
	for range trials {
		shuffled := shitpants.ShuffleDeck(game)
		topCounts[shuffled.PullDeck[len(shuffled.PullDeck)-1]]++
	}

	// Expected 400 each; the bounds are ~8 standard deviations out.
	for _, card := range game.PullDeck {
		count := topCounts[card]
		if count < 250 || count > 550 {
			t.Errorf("card %v on top %d/%d times, suspiciously far from uniform", card, count, trials)
		}
	}
}

func TestDealHands(t *testing.T) {
	tests := []struct {
		name    string
		players []string
	}{
		{"two players", []string{"alice", "bob"}},
		{"three players", []string{"alice", "bob", "carol"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			game := shitpants.NewGame("g", "", 4, tt.players[0])
			for _, p := range tt.players[1:] {
				game = shitpants.AddPlayer(game, p)
			}

			dealt, err := shitpants.DealHands(game)
			if err != nil {
				t.Fatalf("DealHands: %v", err)
			}

			for _, p := range dealt.Players {
				if len(p.Hand) != 5 {
					t.Errorf("player %s has %d cards, 5 expected", p.Id, len(p.Hand))
				}
			}
			if want := 52 - 5*len(tt.players); len(dealt.PullDeck) != want {
				t.Errorf("pull deck has %d cards, %d expected", len(dealt.PullDeck), want)
			}
			if !reflect.DeepEqual(cardCensus(game), cardCensus(dealt)) {
				t.Error("dealing created or destroyed cards")
			}
		})
	}
}

func TestDealHandsSequentialOrder(t *testing.T) {
	// The whole first hand comes off the deck before the second player sees
	// a card.
	game := shitpants.Game{
		Players:  []shitpants.Player{{Id: "p1"}, {Id: "p2"}},
		PullDeck: cardsFromCodes(t, "3C", "4C", "5C", "6C", "7C", "8C", "9C", "10C", "JC", "QC"),
	}

	dealt, err := shitpants.DealHands(game)
	if err != nil {
		t.Fatalf("DealHands: %v", err)
	}

	wantFirst := cardsFromCodes(t, "QC", "JC", "10C", "9C", "8C")
	wantSecond := cardsFromCodes(t, "7C", "6C", "5C", "4C", "3C")
	if !reflect.DeepEqual(dealt.Players[0].Hand, wantFirst) {
		t.Errorf("first hand = %v, want %v", dealt.Players[0].Hand, wantFirst)
	}
	if !reflect.DeepEqual(dealt.Players[1].Hand, wantSecond) {
		t.Errorf("second hand = %v, want %v", dealt.Players[1].Hand, wantSecond)
	}
}

func TestDealHandsInsufficientDeck(t *testing.T) {
	game := shitpants.Game{
		Players:  []shitpants.Player{{Id: "p1"}, {Id: "p2"}},
		PullDeck: cardsFromCodes(t, "3C", "4C", "5C"),
	}

	if _, err := shitpants.DealHands(game); err == nil {
		t.Fatal("dealing from a short deck should be rejected")
	}
	if len(game.PullDeck) != 3 {
		t.Error("rejected deal mutated the input")
	}
}

func TestFindFirstTurnPlayer(t *testing.T) {
	tests := []struct {
		name  string
		hands map[string][]string
		order []string
		want  string
	}{
		{
			name:  "lowest card wins",
			hands: map[string][]string{"p1": {"KC", "8D"}, "p2": {"4H", "QD"}},
			order: []string{"p1", "p2"},
			want:  "p2",
		},
		{
			name:  "two is high not low",
			hands: map[string][]string{"p1": {"2C", "2D"}, "p2": {"AD", "KH"}},
			order: []string{"p1", "p2"},
			want:  "p2",
		},
		{
			name:  "tie goes to earliest player",
			hands: map[string][]string{"p1": {"9C", "5D"}, "p2": {"5H", "JS"}},
			order: []string{"p1", "p2"},
			want:  "p1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var game shitpants.Game
			for _, id := range tt.order {
				game.Players = append(game.Players, shitpants.Player{
					Id:   id,
					Hand: cardsFromCodes(t, tt.hands[id]...),
				})
			}

			if got := shitpants.FindFirstTurnPlayer(game); got != tt.want {
				t.Errorf("FindFirstTurnPlayer = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInitializeGame(t *testing.T) {
	game := shitpants.AddPlayer(shitpants.NewGame("g", "", 4, "alice"), "bob")

	started, err := shitpants.InitializeGame(game)
	if err != nil {
		t.Fatalf("InitializeGame: %v", err)
	}

	for _, p := range started.Players {
		if len(p.Hand) != 5 {
			t.Errorf("player %s has %d cards after deal, 5 expected", p.Id, len(p.Hand))
		}
	}
	if len(started.PullDeck) != 42 {
		t.Errorf("pull deck has %d cards, 42 expected", len(started.PullDeck))
	}

	// The first turn belongs to whoever holds the globally lowest card.
	var lowest shitpants.Rank = shitpants.Two
	holder := ""
	for _, p := range started.Players {
		for _, c := range p.Hand {
			if holder == "" || c.Rank < lowest {
				lowest = c.Rank
				holder = p.Id
			}
		}
	}
	if started.CurrentPlayerId != holder {
		t.Errorf("first turn given to %q, lowest card held by %q", started.CurrentPlayerId, holder)
	}

	if game.Started() {
		t.Error("InitializeGame mutated its input")
	}
	if !reflect.DeepEqual(cardCensus(game), cardCensus(started)) {
		t.Error("initialization created or destroyed cards")
	}
}

func TestResetForNextRound(t *testing.T) {
	game := shitpants.AddPlayer(shitpants.NewGame("g", "pw", 4, "alice"), "bob")
	game = shitpants.SetReadyStatus(game, "alice", true)
	game = shitpants.SetReadyStatus(game, "bob", true)

	started, err := shitpants.InitializeGame(game)
	if err != nil {
		t.Fatalf("InitializeGame: %v", err)
	}
	started.WinnerId = "alice"

	fresh := shitpants.ResetForNextRound(started)

	if fresh.Started() || fresh.Finished() {
		t.Error("reset game should be back in the lobby phase")
	}
	if len(fresh.PullDeck) != 52 || len(fresh.PlayDeck) != 0 {
		t.Errorf("decks not reset: pull=%d play=%d", len(fresh.PullDeck), len(fresh.PlayDeck))
	}
	for _, p := range fresh.Players {
		if len(p.Hand) != 0 || p.IsReady {
			t.Errorf("player %s not reset: %+v", p.Id, p)
		}
	}
	if fresh.Name != "g" || fresh.Password != "pw" {
		t.Error("lobby metadata should survive the reset")
	}
}
