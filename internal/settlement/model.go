package settlement

import "time"

// Status de partida. TOSS_DONE só acontece via jogo TOSS_PREDICT;
// COMPLETED só via jogo WIN_PREDICT. Nunca regride.
type MatchStatus string

const (
	MatchUpcoming  MatchStatus = "UPCOMING"
	MatchTossDone  MatchStatus = "TOSS_DONE"
	MatchLive      MatchStatus = "LIVE"
	MatchCompleted MatchStatus = "COMPLETED"
)

type MatchType string

const (
	MatchCricket  MatchType = "CRICKET"
	MatchFootball MatchType = "FOOTBALL"
)

// Tipo do jogo: aposta no vencedor da partida ou no vencedor do toss.
type GameType string

const (
	GameWinPredict  GameType = "WIN_PREDICT"
	GameTossPredict GameType = "TOSS_PREDICT"
)

// Status do jogo. WIN_PREDICT avança UPCOMING→LIVE→COMPLETED;
// TOSS_PREDICT pula direto UPCOMING→COMPLETED.
type GameStatus string

const (
	GameUpcoming  GameStatus = "UPCOMING"
	GameLive      GameStatus = "LIVE"
	GameCompleted GameStatus = "COMPLETED"
)

// Desfecho de uma aposta. Tri-estado: PENDING é o sentinela de "ainda não
// processada"; uma vez WON ou LOST o campo nunca mais muda.
type BookingOutcome string

const (
	OutcomePending BookingOutcome = "PENDING"
	OutcomeWon     BookingOutcome = "WON"
	OutcomeLost    BookingOutcome = "LOST"
)

// Match é a partida importada do provedor. Criada pelo importador (fora deste
// serviço); aqui só o status muda.
type Match struct {
	ID         int64
	SearchID   string // id de busca no provedor de placar
	Name       string
	Status     MatchStatus
	StartAt    time.Time
	EndAt      time.Time
	Venue      string
	Type       MatchType
	FirstTeam  string
	SecondTeam string
}

// Game é um mercado de aposta sobre uma partida. Os agregados de dinheiro são
// mantidos pelos serviços de booking, não por este worker.
type Game struct {
	ID                   int64
	Type                 GameType
	Status               GameStatus
	TeamWon              string // vazio até o jogo ser decidido
	FirstTeamMultiplier  float64
	SecondTeamMultiplier float64
	MatchID              int64
	CollectedCents       int64
	DistributedCents     int64
	SavedCents           int64
	SettledAt            *time.Time // nil = liquidação ainda não concluída
}

// GameWithMatch é a visão que o poller busca a cada tick.
type GameWithMatch struct {
	Game  Game
	Match Match
}

// Booking é a aposta de um jogador em um jogo. Valores em centavos.
type Booking struct {
	ID                int64
	PlayerID          int64
	WalletID          int64
	GameID            int64
	BidCents          int64
	BidTeam           string
	BidMultiplier     float64
	PotentialWinCents int64 // quanto credita na carteira se a aposta vencer
	Outcome           BookingOutcome
	PaymentID         int64
	PlacedAt          time.Time
}
