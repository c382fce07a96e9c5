package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/cricbet-platform/internal/shared/config"
	"github.com/radieske/cricbet-platform/internal/shared/logger"
	"github.com/radieske/cricbet-platform/internal/shared/metrics"
)

var (
	// Métricas Prometheus do simulador
	commentaryHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulator_commentary_requests_total",
		Help: "consultas de commentary atendidas",
	})
	scriptUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulator_script_updates_total",
		Help: "atualizações de roteiro recebidas",
	})
)

// matchScript é o estado roteirizado de uma partida simulada.
type matchScript struct {
	State          string `json:"state"`
	TossWinnerName string `json:"tossWinnerName"`
	WinningTeam    string `json:"winningTeam"`
}

// commentary espelha o formato do provedor real, pro worker não distinguir
// simulador de upstream.
type commentary struct {
	MatchHeader struct {
		State       string `json:"state"`
		TossResults struct {
			TossWinnerName string `json:"tossWinnerName"`
		} `json:"tossResults"`
		Result struct {
			WinningTeam string `json:"winningTeam"`
		} `json:"result"`
	} `json:"matchHeader"`
}

// scriptStore guarda os roteiros por id de busca da partida.
type scriptStore struct {
	mu      sync.RWMutex
	scripts map[string]matchScript
	log     *zap.Logger
}

func newScriptStore(log *zap.Logger) *scriptStore {
	return &scriptStore{
		// Partida de exemplo já carregada pra facilitar o ambiente local
		scripts: map[string]matchScript{
			"12345": {State: "Preview"},
		},
		log: log,
	}
}

// commentaryHandler responde no formato do provedor real
func (s *scriptStore) commentaryHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.RLock()
	script, ok := s.scripts[id]
	s.mu.RUnlock()

	if !ok {
		http.Error(w, "match not found", http.StatusNotFound)
		return
	}

	commentaryHits.Inc()

	var out commentary
	out.MatchHeader.State = script.State
	out.MatchHeader.TossResults.TossWinnerName = script.TossWinnerName
	out.MatchHeader.Result.WinningTeam = script.WinningTeam

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// scriptHandler grava/avança o roteiro de uma partida
func (s *scriptStore) scriptHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	defer r.Body.Close()

	var script matchScript
	if err := json.NewDecoder(r.Body).Decode(&script); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.scripts[id] = script
	s.mu.Unlock()

	scriptUpdates.Inc()
	s.log.Info("match script updated",
		zap.String("matchSearchId", id),
		zap.String("state", script.State),
		zap.String("tossWinner", script.TossWinnerName),
		zap.String("winningTeam", script.WinningTeam),
	)

	w.WriteHeader(http.StatusNoContent)
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(commentaryHits, scriptUpdates)

	store := newScriptStore(log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /cricket-match/commentary/{id}", store.commentaryHandler)
	mux.HandleFunc("POST /simulator/match/{id}", store.scriptHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: mux,
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return nil
	})

	go func() {
		log.Info("score-simulator listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	log.Info("score-simulator stopped")
}
