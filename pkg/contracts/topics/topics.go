package topics

const (
	// Liquidação
	GameSettled = "game_settled"
)
