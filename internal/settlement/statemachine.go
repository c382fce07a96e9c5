package settlement

import (
	"strings"

	"github.com/radieske/cricbet-platform/internal/scorefeed"
)

// Transition é o resultado de um passo da máquina de estados de jogo.
type Transition int

const (
	// TransitionNone: leitura não trouxe nada aproveitável; estado inalterado
	TransitionNone Transition = iota
	// TransitionLive: partida entrou em andamento; jogo WIN_PREDICT foi a LIVE
	TransitionLive
	// TransitionFinal: jogo decidido; liquidação deve rodar neste mesmo tick
	TransitionFinal
	// TransitionRejected: provedor reportou um vencedor que não é nenhum dos
	// dois times da partida; estado inalterado, decisão adiada pro próximo tick
	TransitionRejected
)

// Advance é a função pura de transição: dado o estado atual de partida e jogo
// mais uma leitura do provedor, devolve o próximo estado. Nunca regride status
// e nunca chuta vencedor: nome que não bate com os dois times vira
// TransitionRejected.
func Advance(m Match, g Game, r scorefeed.Reading) (Match, Game, Transition) {
	switch g.Type {
	case GameTossPredict:
		return advanceToss(m, g, r)
	default:
		return advanceWin(m, g, r)
	}
}

// advanceWin trata jogos WIN_PREDICT: UPCOMING→LIVE quando a partida entra em
// andamento, LIVE→COMPLETED quando o provedor publica o vencedor.
func advanceWin(m Match, g Game, r scorefeed.Reading) (Match, Game, Transition) {
	tr := TransitionNone

	if strings.ToLower(r.State) == "in progress" {
		if m.Status != MatchLive {
			m.Status = MatchLive
		}
		if g.Status != GameLive {
			g.Status = GameLive
			tr = TransitionLive
		}
	}

	if g.Status != GameLive || r.MatchWinner == "" {
		return m, g, tr
	}

	winner, ok := canonicalTeam(m, r.MatchWinner)
	if !ok {
		if tr == TransitionNone {
			tr = TransitionRejected
		}
		return m, g, tr
	}

	g.Status = GameCompleted
	g.TeamWon = winner
	m.Status = MatchCompleted
	return m, g, TransitionFinal
}

// advanceToss trata jogos TOSS_PREDICT: independe da partida estar LIVE; o
// toss decidido encerra o jogo e leva a partida a TOSS_DONE (não COMPLETED).
func advanceToss(m Match, g Game, r scorefeed.Reading) (Match, Game, Transition) {
	if r.TossWinner == "" {
		return m, g, TransitionNone
	}

	winner, ok := canonicalTeam(m, r.TossWinner)
	if !ok {
		return m, g, TransitionRejected
	}

	g.Status = GameCompleted
	g.TeamWon = winner
	m.Status = MatchTossDone
	return m, g, TransitionFinal
}

// canonicalTeam compara o nome reportado com os dois times da partida
// (case-insensitive) e devolve a grafia armazenada. Qualquer outra string,
// inclusive vazia, é "ainda não decidido".
func canonicalTeam(m Match, reported string) (string, bool) {
	w := strings.ToUpper(strings.TrimSpace(reported))
	if w == "" {
		return "", false
	}
	if w == strings.ToUpper(m.FirstTeam) {
		return m.FirstTeam, true
	}
	if w == strings.ToUpper(m.SecondTeam) {
		return m.SecondTeam, true
	}
	return "", false
}
