package settlement

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func settledGameFixture(store *fakeStore) Game {
	g := Game{
		ID:      10,
		Type:    GameWinPredict,
		Status:  GameCompleted,
		TeamWon: "INDIA",
		MatchID: 1,
	}
	store.addGame(GameWithMatch{Game: g, Match: Match{ID: 1, FirstTeam: "INDIA", SecondTeam: "AUSTRALIA"}})
	store.wallets[100] = 0
	store.wallets[200] = 0
	store.bookings[g.ID] = []Booking{
		{ID: 1, PlayerID: 1, WalletID: 100, GameID: g.ID, BidTeam: "INDIA", BidCents: 1000, PotentialWinCents: 1800, Outcome: OutcomePending},
		{ID: 2, PlayerID: 2, WalletID: 200, GameID: g.ID, BidTeam: "AUSTRALIA", BidCents: 500, PotentialWinCents: 900, Outcome: OutcomePending},
		{ID: 3, PlayerID: 1, WalletID: 100, GameID: g.ID, BidTeam: "india", BidCents: 200, PotentialWinCents: 360, Outcome: OutcomePending},
	}
	return g
}

func TestSettleSplitsWinnersAndLosers(t *testing.T) {
	store := newFakeStore()
	g := settledGameFixture(store)
	engine := NewEngine(store, zap.NewNop())

	s, err := engine.Settle(context.Background(), g)
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if s.Won != 2 || s.Lost != 1 || s.Skipped != 0 {
		t.Errorf("Expected won=2 lost=1 skipped=0, got won=%d lost=%d skipped=%d", s.Won, s.Lost, s.Skipped)
	}
	if s.CreditedCents != 1800+360 {
		t.Errorf("Expected 2160 credited, got %d", s.CreditedCents)
	}

	// mesmo jogador com duas apostas vencedoras: carteira soma as duas
	if bal := store.balance(100); bal != 2160 {
		t.Errorf("Expected wallet 100 balance 2160, got %d", bal)
	}
	if bal := store.balance(200); bal != 0 {
		t.Errorf("Expected wallet 200 untouched, got %d", bal)
	}

	if out := store.booking(g.ID, 1).Outcome; out != OutcomeWon {
		t.Errorf("Expected booking 1 WON, got %s", out)
	}
	if out := store.booking(g.ID, 2).Outcome; out != OutcomeLost {
		t.Errorf("Expected booking 2 LOST, got %s", out)
	}
	if out := store.booking(g.ID, 3).Outcome; out != OutcomeWon {
		t.Errorf("Expected booking 3 WON (case-insensitive bid team), got %s", out)
	}
}

func TestSettleTwiceIsIdempotent(t *testing.T) {
	store := newFakeStore()
	g := settledGameFixture(store)
	engine := NewEngine(store, zap.NewNop())

	if _, err := engine.Settle(context.Background(), g); err != nil {
		t.Fatalf("first Settle failed: %v", err)
	}
	balAfterFirst := store.balance(100)
	creditsAfterFirst := store.creditCalls

	s, err := engine.Settle(context.Background(), g)
	if err != nil {
		t.Fatalf("second Settle failed: %v", err)
	}
	if s.Won != 0 || s.Lost != 0 || s.Skipped != 3 {
		t.Errorf("Expected second pass all skipped, got won=%d lost=%d skipped=%d", s.Won, s.Lost, s.Skipped)
	}
	if store.creditCalls != creditsAfterFirst {
		t.Errorf("Expected zero credits on second pass, got %d extra", store.creditCalls-creditsAfterFirst)
	}
	if bal := store.balance(100); bal != balAfterFirst {
		t.Errorf("Expected balance unchanged at %d, got %d", balAfterFirst, bal)
	}
}

func TestSettleSkipsAlreadyTerminalBookings(t *testing.T) {
	store := newFakeStore()
	g := settledGameFixture(store)
	// aposta 1 já processada por uma passada anterior
	store.bookings[g.ID][0].Outcome = OutcomeWon
	engine := NewEngine(store, zap.NewNop())

	s, err := engine.Settle(context.Background(), g)
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if s.Skipped != 1 || s.Won != 1 || s.Lost != 1 {
		t.Errorf("Expected skipped=1 won=1 lost=1, got skipped=%d won=%d lost=%d", s.Skipped, s.Won, s.Lost)
	}
	// a aposta pulada não gera novo crédito
	if bal := store.balance(100); bal != 360 {
		t.Errorf("Expected only booking 3 credited (360), got %d", bal)
	}
}

func TestSettleCreditFailureAborts(t *testing.T) {
	store := newFakeStore()
	g := settledGameFixture(store)
	store.creditErr = errors.New("pg down")
	engine := NewEngine(store, zap.NewNop())

	_, err := engine.Settle(context.Background(), g)
	if err == nil {
		t.Fatal("Expected error when credit fails")
	}
	// nada ficou meio-gravado: a aposta vencedora segue pendente
	if out := store.booking(g.ID, 1).Outcome; out != OutcomePending {
		t.Errorf("Expected booking 1 still PENDING, got %s", out)
	}
}

func TestSettleResumesAfterCrashBetweenCreditAndSave(t *testing.T) {
	store := newFakeStore()
	g := settledGameFixture(store)
	engine := NewEngine(store, zap.NewNop())

	// primeira passada morre entre o crédito e a gravação do desfecho
	store.saveBookingErr = errors.New("crash")
	if _, err := engine.Settle(context.Background(), g); err == nil {
		t.Fatal("Expected error from injected crash")
	}
	if bal := store.balance(100); bal != 1800 {
		t.Fatalf("Expected first credit applied (1800), got %d", bal)
	}

	// retomada: o ref no ledger impede crédito em dobro
	store.saveBookingErr = nil
	if _, err := engine.Settle(context.Background(), g); err != nil {
		t.Fatalf("resumed Settle failed: %v", err)
	}
	if bal := store.balance(100); bal != 1800+360 {
		t.Errorf("Expected 2160 after resume (no double credit), got %d", bal)
	}
	if out := store.booking(g.ID, 1).Outcome; out != OutcomeWon {
		t.Errorf("Expected booking 1 WON after resume, got %s", out)
	}
}

func TestSettleRejectsUndecidedGame(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, zap.NewNop())

	_, err := engine.Settle(context.Background(), Game{ID: 7, Status: GameLive})
	if err == nil {
		t.Error("Expected error settling a LIVE game")
	}
	_, err = engine.Settle(context.Background(), Game{ID: 8, Status: GameCompleted, TeamWon: ""})
	if err == nil {
		t.Error("Expected error settling a game without team_won")
	}
}
