package settlement

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Engine liquida um jogo decidido: percorre as apostas, credita carteiras das
// vencedoras e marca as demais como perdidas, exatamente uma vez por aposta.
type Engine struct {
	Store Store
	Log   *zap.Logger
}

func NewEngine(store Store, log *zap.Logger) *Engine {
	return &Engine{Store: store, Log: log}
}

// Settlement resume uma passada de liquidação sobre um jogo.
type Settlement struct {
	Won           int
	Lost          int
	Skipped       int // apostas que já estavam em desfecho terminal
	CreditedCents int64
}

// Settle processa todas as apostas do jogo. Apostas já terminais são puladas,
// o que torna a chamada idempotente: rodar duas vezes produz os mesmos saldos
// e desfechos que rodar uma. Falha em qualquer aposta aborta a passada com
// erro — o jogo segue não-liquidado e o próximo tick retoma de onde parou.
func (e *Engine) Settle(ctx context.Context, g Game) (Settlement, error) {
	var s Settlement

	if g.Status != GameCompleted || g.TeamWon == "" {
		return s, fmt.Errorf("game %d not settleable: status=%s teamWon=%q", g.ID, g.Status, g.TeamWon)
	}

	bookings, err := e.Store.FetchBookingsForGame(ctx, g.ID)
	if err != nil {
		return s, fmt.Errorf("fetch bookings for game %d: %w", g.ID, err)
	}

	for i := range bookings {
		b := bookings[i]

		// aposta já processada: pulo normal, não é erro
		if b.Outcome != OutcomePending {
			s.Skipped++
			continue
		}

		if strings.EqualFold(b.BidTeam, g.TeamWon) {
			// Credita antes de gravar o desfecho; o ref por aposta torna o
			// crédito idempotente, então um crash entre as duas escritas não
			// paga em dobro na retomada.
			ref := fmt.Sprintf("settle:booking:%d", b.ID)
			if err := e.Store.CreditWallet(ctx, b.WalletID, b.PotentialWinCents, ref); err != nil {
				return s, fmt.Errorf("credit wallet %d for booking %d: %w", b.WalletID, b.ID, err)
			}

			b.Outcome = OutcomeWon
			if err := e.Store.SaveBooking(ctx, &b); err != nil {
				return s, fmt.Errorf("save booking %d: %w", b.ID, err)
			}

			s.Won++
			s.CreditedCents += b.PotentialWinCents
			e.Log.Info("booking won",
				zap.Int64("bookingId", b.ID),
				zap.Int64("gameId", g.ID),
				zap.Int64("creditedCents", b.PotentialWinCents),
			)
			continue
		}

		b.Outcome = OutcomeLost
		if err := e.Store.SaveBooking(ctx, &b); err != nil {
			return s, fmt.Errorf("save booking %d: %w", b.ID, err)
		}
		s.Lost++
	}

	return s, nil
}
