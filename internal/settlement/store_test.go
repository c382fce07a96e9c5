package settlement

import (
	"context"
	"sync"
	"time"

	"github.com/radieske/cricbet-platform/internal/scorefeed"
)

// fakeStore é uma implementação em memória de Store pros testes do engine e
// do poller. Erros injetáveis simulam falhas de persistência por estágio.
type fakeStore struct {
	mu       sync.Mutex
	games    map[int64]*GameWithMatch
	bookings map[int64][]Booking // por gameId
	wallets  map[int64]int64     // walletId -> saldo em centavos
	ledger   map[string]bool     // external_ref já creditado

	creditCalls int

	fetchErr       error
	creditErr      error
	saveGameErr    error
	saveMatchErr   error
	saveBookingErr error
	markSettledErr error

	fetchStarted chan struct{} // fechado na primeira busca (teste de sobreposição)
	fetchRelease chan struct{} // quando não-nil, a busca bloqueia até fechar
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		games:    make(map[int64]*GameWithMatch),
		bookings: make(map[int64][]Booking),
		wallets:  make(map[int64]int64),
		ledger:   make(map[string]bool),
	}
}

func (f *fakeStore) addGame(gm GameWithMatch) {
	f.games[gm.Game.ID] = &gm
}

func (f *fakeStore) FetchOpenGames(ctx context.Context) ([]GameWithMatch, error) {
	f.mu.Lock()
	started := f.fetchStarted
	release := f.fetchRelease
	f.fetchStarted = nil
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	var out []GameWithMatch
	for _, gm := range f.games {
		open := gm.Game.Status == GameUpcoming || gm.Game.Status == GameLive
		unsettled := gm.Game.Status == GameCompleted && gm.Game.SettledAt == nil
		if open || unsettled {
			out = append(out, *gm)
		}
	}
	return out, nil
}

func (f *fakeStore) FetchBookingsForGame(ctx context.Context, gameID int64) ([]Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Booking(nil), f.bookings[gameID]...), nil
}

func (f *fakeStore) SaveMatch(ctx context.Context, m *Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveMatchErr != nil {
		return f.saveMatchErr
	}
	for _, gm := range f.games {
		if gm.Match.ID == m.ID {
			gm.Match = *m
		}
	}
	return nil
}

func (f *fakeStore) SaveGame(ctx context.Context, g *Game) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveGameErr != nil {
		return f.saveGameErr
	}
	if gm, ok := f.games[g.ID]; ok {
		settledAt := gm.Game.SettledAt
		gm.Game = *g
		gm.Game.SettledAt = settledAt
	}
	return nil
}

func (f *fakeStore) SaveBooking(ctx context.Context, b *Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveBookingErr != nil {
		return f.saveBookingErr
	}
	list := f.bookings[b.GameID]
	for i := range list {
		if list[i].ID == b.ID {
			list[i] = *b
		}
	}
	return nil
}

func (f *fakeStore) CreditWallet(ctx context.Context, walletID int64, amountCents int64, externalRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.creditErr != nil {
		return f.creditErr
	}
	f.creditCalls++
	if f.ledger[externalRef] {
		return nil // idempotente por ref, como o repositório real
	}
	f.ledger[externalRef] = true
	f.wallets[walletID] += amountCents
	return nil
}

func (f *fakeStore) MarkGameSettled(ctx context.Context, gameID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markSettledErr != nil {
		return f.markSettledErr
	}
	if gm, ok := f.games[gameID]; ok && gm.Game.SettledAt == nil {
		now := time.Now()
		gm.Game.SettledAt = &now
	}
	return nil
}

func (f *fakeStore) game(id int64) GameWithMatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.games[id]
}

func (f *fakeStore) booking(gameID, bookingID int64) Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings[gameID] {
		if b.ID == bookingID {
			return b
		}
	}
	return Booking{}
}

func (f *fakeStore) balance(walletID int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wallets[walletID]
}

// fakeSource devolve leituras roteirizadas por id de busca, consumidas em
// ordem; esgotado o roteiro, devolve leitura vazia.
type fakeSource struct {
	mu       sync.Mutex
	readings map[string][]scorefeed.Reading
	calls    int
}

func newFakeSource() *fakeSource {
	return &fakeSource{readings: make(map[string][]scorefeed.Reading)}
}

func (f *fakeSource) push(searchID string, r scorefeed.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readings[searchID] = append(f.readings[searchID], r)
}

func (f *fakeSource) Query(ctx context.Context, searchID string) scorefeed.Reading {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	queue := f.readings[searchID]
	if len(queue) == 0 {
		return scorefeed.Reading{}
	}
	r := queue[0]
	f.readings[searchID] = queue[1:]
	return r
}
