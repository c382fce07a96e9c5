package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/cricbet-platform/internal/scorefeed"
	"github.com/radieske/cricbet-platform/internal/settlement"
	"github.com/radieske/cricbet-platform/internal/settlement/repo"
	sharedcache "github.com/radieske/cricbet-platform/internal/shared/cache"
	"github.com/radieske/cricbet-platform/internal/shared/config"
	"github.com/radieske/cricbet-platform/internal/shared/db"
	"github.com/radieske/cricbet-platform/internal/shared/kafka"
	"github.com/radieske/cricbet-platform/internal/shared/logger"
	"github.com/radieske/cricbet-platform/internal/shared/metrics"
	"github.com/radieske/cricbet-platform/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Inicializa dependências: Postgres e Redis
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Producer Kafka para eventos game_settled
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicGameSettled)
	defer settledWriter.Close()

	// Fonte de placar: cliente HTTP com timeout limitado + cache curto no
	// Redis (vários jogos da mesma partida custam uma chamada por janela)
	client := scorefeed.NewClient(cfg.ScoreAPIBaseURL, cfg.ScoreTimeout, log)
	source := scorefeed.NewCachedSource(client, redisClient, cfg.ReadingCacheTTL, log)

	store := repo.NewPostgres(pg)
	engine := settlement.NewEngine(store, log)
	poller := settlement.NewPoller(store, source, engine, cfg.PollInterval, log)

	// Métricas Prometheus do laço de liquidação
	ticks := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_ticks_total", Help: "ticks executados"})
	ticksSkipped := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_ticks_skipped_total", Help: "ticks descartados por sobreposição"})
	gamesSeen := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_games_processed_total", Help: "jogos processados"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_transitions_total", Help: "transições de status por destino"}, []string{"to"})
	settledGames := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_games_settled_total", Help: "jogos liquidados"})
	bookingsOut := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_bookings_total", Help: "apostas liquidadas por desfecho"}, []string{"outcome"})
	creditedCents := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_credited_cents_total", Help: "centavos creditados em carteiras"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(ticks, ticksSkipped, gamesSeen, transitions, settledGames, bookingsOut, creditedCents, errorsBy)

	poller.Hooks = settlement.Hooks{
		OnTick:        func() { ticks.Inc() },
		OnTickSkipped: func() { ticksSkipped.Inc() },
		OnGame:        func() { gamesSeen.Inc() },
		OnTransition:  func(to string) { transitions.WithLabelValues(to).Inc() },
		OnError:       func(stage string) { errorsBy.WithLabelValues(stage).Inc() },

		// Após a liquidação, publica o evento no Kafka. Falha de publicação é
		// só warn: a liquidação já está durável no banco.
		OnSettled: func(ev events.GameSettled) {
			settledGames.Inc()
			bookingsOut.WithLabelValues("won").Add(float64(ev.BookingsWon))
			bookingsOut.WithLabelValues("lost").Add(float64(ev.BookingsLost))
			creditedCents.Add(float64(ev.CreditedCents))

			b, _ := json.Marshal(ev)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := kafka.WriteJSON(ctx, settledWriter, strconv.FormatInt(ev.GameID, 10), b); err != nil {
				log.Warn("game_settled publish failed", zap.Int64("gameId", ev.GameID), zap.Error(err))
			}
		},
	}

	// Servidor HTTP para métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	})

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM); o tick em andamento
	// termina de persistir antes do Run retornar
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("settlement-worker started",
		zap.Duration("pollInterval", cfg.PollInterval),
		zap.String("scoreApi", cfg.ScoreAPIBaseURL),
	)

	poller.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	log.Info("settlement-worker stopped")
}
