package scorefeed

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// commentaryResponse espelha o subconjunto relevante do JSON do provedor.
// Campos ausentes ficam com zero value e viram "sem informação".
type commentaryResponse struct {
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

// Client consulta o endpoint de commentary do provedor de placar.
// Toda falha (rede, status não-200, JSON inválido) degrada para Reading vazia;
// o timeout limita quanto uma partida lenta pode atrasar o tick.
type Client struct {
	base string
	http *http.Client
	log  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		base: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// Query busca o estado atual de uma partida pelo id de busca do provedor
func (c *Client) Query(ctx context.Context, matchSearchID string) Reading {
	url := c.base + "/cricket-match/commentary/" + matchSearchID

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.log.Warn("score request build failed", zap.String("matchSearchId", matchSearchID), zap.Error(err))
		return Reading{}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("score request failed", zap.String("matchSearchId", matchSearchID), zap.Error(err))
		return Reading{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("score provider non-200", zap.String("matchSearchId", matchSearchID), zap.Int("status", resp.StatusCode))
		return Reading{}
	}

	var body commentaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.log.Warn("score provider invalid json", zap.String("matchSearchId", matchSearchID), zap.Error(err))
		return Reading{}
	}

	return Reading{
		State:       body.MatchHeader.State,
		TossWinner:  body.MatchHeader.TossResults.TossWinnerName,
		MatchWinner: body.MatchHeader.Result.WinningTeam,
	}
}
