package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/radieske/cricbet-platform/internal/settlement"
)

// Postgres implementa settlement.Store sobre o banco relacional da plataforma.
// Partidas, jogos, apostas e carteiras são criados pelos serviços de
// importação/booking; este repositório só lê e atualiza.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var ErrNotFound = errors.New("not found")

// FetchOpenGames busca os jogos que o poller precisa olhar: abertos
// (UPCOMING/LIVE) e os COMPLETED cuja liquidação não foi concluída.
func (p *Postgres) FetchOpenGames(ctx context.Context) ([]settlement.GameWithMatch, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT g.id, g.game_type, g.status, COALESCE(g.team_won,''),
		       g.first_team_multiplier, g.second_team_multiplier, g.match_id,
		       g.collected_cents, g.distributed_cents, g.saved_cents, g.settled_at,
		       m.id, m.search_id, m.name, m.status, m.start_at,
		       COALESCE(m.end_at, 'epoch'::timestamptz), m.venue, m.match_type,
		       m.first_team, m.second_team
		FROM games g
		JOIN matches m ON m.id = g.match_id
		WHERE g.status IN ('UPCOMING','LIVE')
		   OR (g.status = 'COMPLETED' AND g.settled_at IS NULL)
		ORDER BY g.id`)
	if err != nil {
		return nil, fmt.Errorf("query open games: %w", err)
	}
	defer rows.Close()

	var out []settlement.GameWithMatch
	for rows.Next() {
		var gm settlement.GameWithMatch
		var settledAt sql.NullTime
		if err := rows.Scan(
			&gm.Game.ID, &gm.Game.Type, &gm.Game.Status, &gm.Game.TeamWon,
			&gm.Game.FirstTeamMultiplier, &gm.Game.SecondTeamMultiplier, &gm.Game.MatchID,
			&gm.Game.CollectedCents, &gm.Game.DistributedCents, &gm.Game.SavedCents, &settledAt,
			&gm.Match.ID, &gm.Match.SearchID, &gm.Match.Name, &gm.Match.Status, &gm.Match.StartAt,
			&gm.Match.EndAt, &gm.Match.Venue, &gm.Match.Type,
			&gm.Match.FirstTeam, &gm.Match.SecondTeam,
		); err != nil {
			return nil, fmt.Errorf("scan open game: %w", err)
		}
		if settledAt.Valid {
			t := settledAt.Time
			gm.Game.SettledAt = &t
		}
		out = append(out, gm)
	}
	return out, rows.Err()
}

// FetchBookingsForGame devolve todas as apostas do jogo, pendentes ou não;
// o desfecho NULL do banco vira o sentinela PENDING.
func (p *Postgres) FetchBookingsForGame(ctx context.Context, gameID int64) ([]settlement.Booking, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT b.id, b.player_id, b.wallet_id, b.game_id, b.bid_cents, b.bid_team,
		       b.bid_multiplier, b.potential_win_cents, b.outcome, b.payment_id, b.placed_at
		FROM bookings b
		WHERE b.game_id = $1
		ORDER BY b.id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query bookings for game %d: %w", gameID, err)
	}
	defer rows.Close()

	var out []settlement.Booking
	for rows.Next() {
		var b settlement.Booking
		var outcome sql.NullString
		if err := rows.Scan(
			&b.ID, &b.PlayerID, &b.WalletID, &b.GameID, &b.BidCents, &b.BidTeam,
			&b.BidMultiplier, &b.PotentialWinCents, &outcome, &b.PaymentID, &b.PlacedAt,
		); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		b.Outcome = settlement.OutcomePending
		if outcome.Valid && outcome.String != "" {
			b.Outcome = settlement.BookingOutcome(outcome.String)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SaveMatch atualiza o status da partida
func (p *Postgres) SaveMatch(ctx context.Context, m *settlement.Match) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE matches SET status=$1, updated_at=NOW() WHERE id=$2`,
		m.Status, m.ID)
	if err != nil {
		return fmt.Errorf("update match %d: %w", m.ID, err)
	}
	return requireRow(res)
}

// SaveGame atualiza status e vencedor do jogo
func (p *Postgres) SaveGame(ctx context.Context, g *settlement.Game) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE games SET status=$1, team_won=NULLIF($2,''), updated_at=NOW() WHERE id=$3`,
		g.Status, g.TeamWon, g.ID)
	if err != nil {
		return fmt.Errorf("update game %d: %w", g.ID, err)
	}
	return requireRow(res)
}

// SaveBooking grava o desfecho da aposta
func (p *Postgres) SaveBooking(ctx context.Context, b *settlement.Booking) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE bookings SET outcome=$1, updated_at=NOW() WHERE id=$2`,
		string(b.Outcome), b.ID)
	if err != nil {
		return fmt.Errorf("update booking %d: %w", b.ID, err)
	}
	return requireRow(res)
}

// CreditWallet incrementa o saldo da carteira e registra a operação no ledger.
// Lock pessimista na linha da carteira serializa créditos concorrentes; a
// checagem de external_ref torna a operação idempotente — repetir o mesmo ref
// (ex.: retomada pós-crash) não credita de novo.
func (p *Postgres) CreditWallet(ctx context.Context, walletID int64, amountCents int64, externalRef string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	if err = tx.QueryRowContext(ctx, `SELECT id FROM wallets WHERE id=$1 FOR UPDATE`, walletID).Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("wallet %d: %w", walletID, ErrNotFound)
		}
		return err
	}

	// Idempotência: crédito já registrado pra esse ref
	var exists string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM wallet_ledger WHERE wallet_id=$1 AND external_ref=$2`,
		walletID, externalRef).Scan(&exists)
	if err == nil {
		return nil
	} else if err != sql.ErrNoRows {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance_cents = balance_cents + $1, version = version + 1 WHERE id=$2`,
		amountCents, walletID); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_ledger(id, wallet_id, operation_type, amount_cents, external_ref, description)
		 VALUES($1,$2,'CREDIT',$3,$4,$5)`,
		uuid.NewString(), walletID, amountCents, externalRef, "settlement:"+externalRef); err != nil {
		return err
	}

	return tx.Commit()
}

// MarkGameSettled estampa a conclusão da liquidação; idempotente
func (p *Postgres) MarkGameSettled(ctx context.Context, gameID int64) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE games SET settled_at=NOW() WHERE id=$1 AND settled_at IS NULL`,
		gameID)
	if err != nil {
		return fmt.Errorf("mark game %d settled: %w", gameID, err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
