package settlement

import "context"

// Store é a fronteira de persistência consumida pelo worker. O banco é dono do
// estado durável; o worker só carrega visões transitórias por tick.
type Store interface {
	// FetchOpenGames devolve os jogos liquidáveis: status UPCOMING ou LIVE,
	// mais os COMPLETED cuja liquidação ainda não foi concluída (settled_at
	// nulo) — é isso que permite retomar uma liquidação interrompida por
	// crash sem nunca perder um jogo de vista.
	FetchOpenGames(ctx context.Context) ([]GameWithMatch, error)

	FetchBookingsForGame(ctx context.Context, gameID int64) ([]Booking, error)

	SaveMatch(ctx context.Context, m *Match) error
	SaveGame(ctx context.Context, g *Game) error
	SaveBooking(ctx context.Context, b *Booking) error

	// CreditWallet incrementa o saldo da carteira de forma atômica no banco
	// (nunca read-modify-write em valor cacheado) e é idempotente por
	// (carteira, externalRef): repetir a chamada com o mesmo ref não credita
	// de novo.
	CreditWallet(ctx context.Context, walletID int64, amountCents int64, externalRef string) error

	// MarkGameSettled registra que a liquidação do jogo foi concluída.
	MarkGameSettled(ctx context.Context, gameID int64) error
}
