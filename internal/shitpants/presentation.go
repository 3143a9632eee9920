package shitpants

// Summary is the lobby-browser view of a game: enough to decide whether to
// join, without leaking the password or anyone's hand.
type Summary struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	HasPassword bool   `json:"hasPassword"`
	Started     bool   `json:"started"`
}

func Summarize(g Game) Summary {
	return Summary{
		Id:          g.Id,
		Name:        g.Name,
		PlayerCount: len(g.Players),
		MaxPlayers:  g.MaxPlayers,
		HasPassword: g.Password != "",
		Started:     g.Started(),
	}
}
