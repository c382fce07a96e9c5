package scorefeed

import "context"

// Reading é o resultado normalizado de uma consulta ao provedor de placar.
// Todos os campos são melhor-esforço: string vazia significa "sem informação
// nova, tente no próximo tick". Uma leitura nunca carrega erro.
type Reading struct {
	State       string `json:"state"`       // estado grosseiro da partida, ex: "In Progress"
	TossWinner  string `json:"tossWinner"`  // nome do time que venceu o toss
	MatchWinner string `json:"matchWinner"` // nome do time que venceu a partida
}

// Empty informa se a leitura não trouxe nenhum dado aproveitável
func (r Reading) Empty() bool {
	return r.State == "" && r.TossWinner == "" && r.MatchWinner == ""
}

// Source consulta o provedor de placar ao vivo para uma partida.
// Implementações nunca retornam erro: falha de rede, resposta não-200 ou JSON
// malformado viram uma Reading vazia.
type Source interface {
	Query(ctx context.Context, matchSearchID string) Reading
}
