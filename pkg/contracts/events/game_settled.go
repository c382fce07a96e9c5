package events

import "time"

// Evento emitido pelo settlement-worker após liquidar um jogo.
type GameSettled struct {
	GameID        int64     `json:"gameId"`
	MatchID       int64     `json:"matchId"`
	GameType      string    `json:"gameType"` // "WIN_PREDICT" | "TOSS_PREDICT"
	TeamWon       string    `json:"teamWon"`
	BookingsWon   int       `json:"bookingsWon"`
	BookingsLost  int       `json:"bookingsLost"`
	CreditedCents int64     `json:"creditedCents"`
	Ts            time.Time `json:"ts"`
}
