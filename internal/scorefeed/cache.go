package scorefeed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedSource decora um Source com cache curto no Redis, chaveado pelo id de
// busca da partida. Vários jogos da mesma partida (WIN_PREDICT + TOSS_PREDICT)
// custam uma única chamada ao provedor por janela de TTL. Falha de cache cai
// direto no Source interno.
type CachedSource struct {
	Inner  Source
	Client *redis.Client
	TTL    time.Duration
	Log    *zap.Logger
}

func NewCachedSource(inner Source, c *redis.Client, ttl time.Duration, log *zap.Logger) *CachedSource {
	return &CachedSource{Inner: inner, Client: c, TTL: ttl, Log: log}
}

// key gera a chave Redis da leitura corrente de uma partida
func key(matchSearchID string) string { return "scorefeed:reading:" + matchSearchID }

// Query devolve a leitura cacheada quando existir; caso contrário consulta o
// Source interno e armazena o resultado (inclusive leituras vazias, pra
// limitar chamadas ao provedor quando ele está fora)
func (s *CachedSource) Query(ctx context.Context, matchSearchID string) Reading {
	if b, err := s.Client.Get(ctx, key(matchSearchID)).Bytes(); err == nil {
		var r Reading
		if jerr := json.Unmarshal(b, &r); jerr == nil {
			return r
		}
	} else if err != redis.Nil {
		s.Log.Warn("reading cache get failed", zap.String("matchSearchId", matchSearchID), zap.Error(err))
	}

	r := s.Inner.Query(ctx, matchSearchID)

	if b, err := json.Marshal(r); err == nil {
		if err := s.Client.Set(ctx, key(matchSearchID), b, s.TTL).Err(); err != nil {
			s.Log.Warn("reading cache set failed", zap.String("matchSearchId", matchSearchID), zap.Error(err))
		}
	}

	return r
}
