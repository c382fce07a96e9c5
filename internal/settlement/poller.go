package settlement

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/cricbet-platform/internal/scorefeed"
	"github.com/radieske/cricbet-platform/pkg/contracts/events"
)

// Resultado do processamento de um jogo dentro de um tick.
type gameResult int

const (
	resultUnchanged gameResult = iota
	resultAdvanced
	resultSettled
	resultFailed // falha transitória; o jogo volta no próximo tick
)

// Hooks liga o poller às métricas e ao publisher sem acoplá-lo a eles.
// Todo campo é opcional.
type Hooks struct {
	OnTick        func()
	OnTickSkipped func()              // tick descartado por sobreposição
	OnGame        func()              // jogo processado (qualquer resultado)
	OnTransition  func(to string)     // transição de status persistida
	OnSettled     func(events.GameSettled)
	OnError       func(stage string)  // erro por estágio
}

// Poller é o agendador do worker: a cada intervalo fixo busca os jogos
// abertos, avança cada um pela máquina de estados e dispara a liquidação das
// transições finais dentro do mesmo tick. No máximo um tick executa por vez;
// disparos sobrepostos são descartados, não enfileirados.
type Poller struct {
	Store    Store
	Source   scorefeed.Source
	Engine   *Engine
	Interval time.Duration
	// TickBudget limita a duração de um tick. Roda num contexto próprio,
	// desacoplado do contexto de Run: no shutdown o tick em andamento termina
	// de persistir o que já decidiu em vez de abandonar uma aposta no meio.
	TickBudget time.Duration
	Log        *zap.Logger
	Hooks      Hooks

	running atomic.Bool
}

func NewPoller(store Store, source scorefeed.Source, engine *Engine, interval time.Duration, log *zap.Logger) *Poller {
	return &Poller{
		Store:      store,
		Source:     source,
		Engine:     engine,
		Interval:   interval,
		TickBudget: 6 * interval,
		Log:        log,
	}
}

// Run executa um tick imediato e depois um por intervalo, até o contexto ser
// cancelado. Retorna só depois do tick corrente terminar.
func (p *Poller) Run(ctx context.Context) {
	p.Log.Info("poller started", zap.Duration("interval", p.Interval))

	p.Tick()

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.Tick()
		case <-ctx.Done():
			p.Log.Info("poller stopped")
			return
		}
	}
}

// Tick executa uma passada completa. Se outra passada ainda estiver em
// andamento, esta é descartada.
func (p *Poller) Tick() {
	if !p.running.CompareAndSwap(false, true) {
		p.Log.Warn("tick skipped: previous tick still running")
		if p.Hooks.OnTickSkipped != nil {
			p.Hooks.OnTickSkipped()
		}
		return
	}
	defer p.running.Store(false)

	if p.Hooks.OnTick != nil {
		p.Hooks.OnTick()
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.TickBudget)
	defer cancel()

	games, err := p.Store.FetchOpenGames(ctx)
	if err != nil {
		p.Log.Error("fetch open games failed", zap.Error(err))
		if p.Hooks.OnError != nil {
			p.Hooks.OnError("fetch")
		}
		return
	}

	var advanced, settled, failed int
	for _, gm := range games {
		res := p.processGame(ctx, gm)
		if p.Hooks.OnGame != nil {
			p.Hooks.OnGame()
		}
		switch res {
		case resultAdvanced:
			advanced++
		case resultSettled:
			settled++
		case resultFailed:
			failed++
		}
	}

	if advanced+settled+failed > 0 {
		p.Log.Info("tick done",
			zap.Int("games", len(games)),
			zap.Int("advanced", advanced),
			zap.Int("settled", settled),
			zap.Int("failed", failed),
		)
	}
}

// processGame leva um jogo pelo fluxo leitura→transição→persistência→
// liquidação. Falha de um jogo nunca derruba o tick: vira resultFailed e o
// jogo é retomado no próximo.
func (p *Poller) processGame(ctx context.Context, gm GameWithMatch) gameResult {
	g, m := gm.Game, gm.Match

	// Jogo já COMPLETED mas sem liquidação concluída: sobra de um crash ou de
	// uma falha de liquidação em tick anterior. Vai direto pro engine.
	if g.Status == GameCompleted {
		return p.settleGame(ctx, g, m)
	}

	r := p.Source.Query(ctx, m.SearchID)
	if r.Empty() {
		// provedor sem novidade (ou fora do ar); já logado pela fonte
		return resultUnchanged
	}

	newM, newG, tr := Advance(m, g, r)
	switch tr {
	case TransitionNone:
		return resultUnchanged

	case TransitionRejected:
		// inconsistência de dados: vencedor reportado não é nenhum dos dois
		// times; não chuta, espera o provedor se corrigir
		p.Log.Warn("reported winner not among match teams",
			zap.Int64("gameId", g.ID),
			zap.String("firstTeam", m.FirstTeam),
			zap.String("secondTeam", m.SecondTeam),
			zap.String("tossWinner", r.TossWinner),
			zap.String("matchWinner", r.MatchWinner),
		)
		if p.Hooks.OnError != nil {
			p.Hooks.OnError("invalid_winner")
		}
		return resultUnchanged

	case TransitionLive:
		if !p.persistTransition(ctx, newM, newG, m) {
			return resultFailed
		}
		p.Log.Info("game live", zap.Int64("gameId", g.ID), zap.Int64("matchId", m.ID))
		if p.Hooks.OnTransition != nil {
			p.Hooks.OnTransition(string(GameLive))
		}
		return resultAdvanced

	case TransitionFinal:
		// O status COMPLETED é persistido antes da liquidação; se ela falhar,
		// o jogo continua sendo buscado (settled_at nulo) e o próximo tick
		// termina o serviço.
		if !p.persistTransition(ctx, newM, newG, m) {
			return resultFailed
		}
		p.Log.Info("game decided",
			zap.Int64("gameId", g.ID),
			zap.String("gameType", string(g.Type)),
			zap.String("teamWon", newG.TeamWon),
		)
		if p.Hooks.OnTransition != nil {
			p.Hooks.OnTransition(string(GameCompleted))
		}
		return p.settleGame(ctx, newG, newM)
	}

	return resultUnchanged
}

// persistTransition grava jogo e, quando mudou, partida. Retorna false em
// falha de persistência (tick aborta só este jogo).
func (p *Poller) persistTransition(ctx context.Context, newM Match, newG Game, oldM Match) bool {
	if err := p.Store.SaveGame(ctx, &newG); err != nil {
		p.Log.Error("save game failed", zap.Int64("gameId", newG.ID), zap.Error(err))
		if p.Hooks.OnError != nil {
			p.Hooks.OnError("save_game")
		}
		return false
	}
	if newM != oldM {
		if err := p.Store.SaveMatch(ctx, &newM); err != nil {
			p.Log.Error("save match failed", zap.Int64("matchId", newM.ID), zap.Error(err))
			if p.Hooks.OnError != nil {
				p.Hooks.OnError("save_match")
			}
			return false
		}
	}
	return true
}

// settleGame roda o engine e marca a liquidação concluída.
func (p *Poller) settleGame(ctx context.Context, g Game, m Match) gameResult {
	s, err := p.Engine.Settle(ctx, g)
	if err != nil {
		p.Log.Error("settlement failed", zap.Int64("gameId", g.ID), zap.Error(err))
		if p.Hooks.OnError != nil {
			p.Hooks.OnError("settle")
		}
		return resultFailed
	}

	if err := p.Store.MarkGameSettled(ctx, g.ID); err != nil {
		p.Log.Error("mark settled failed", zap.Int64("gameId", g.ID), zap.Error(err))
		if p.Hooks.OnError != nil {
			p.Hooks.OnError("mark_settled")
		}
		return resultFailed
	}

	p.Log.Info("game settled",
		zap.Int64("gameId", g.ID),
		zap.String("teamWon", g.TeamWon),
		zap.Int("won", s.Won),
		zap.Int("lost", s.Lost),
		zap.Int("skipped", s.Skipped),
		zap.Int64("creditedCents", s.CreditedCents),
	)

	if p.Hooks.OnSettled != nil {
		p.Hooks.OnSettled(events.GameSettled{
			GameID:        g.ID,
			MatchID:       m.ID,
			GameType:      string(g.Type),
			TeamWon:       g.TeamWon,
			BookingsWon:   s.Won,
			BookingsLost:  s.Lost,
			CreditedCents: s.CreditedCents,
			Ts:            time.Now(),
		})
	}

	return resultSettled
}
