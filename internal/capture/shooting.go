package capture

import "github.com/radieske/prop-miss-tracker/internal/betting"

// pct devolve 100*made/attempted, ou 0 sem tentativas
func pct(made, attempted int) float64 {
	if attempted <= 0 {
		return 0
	}
	return 100 * float64(made) / float64(attempted)
}

// shootingPct é a média ponderada por tentativas de arremessos de quadra e
// lances livres. As bolas de três já estão contidas em FGM/FGA.
func shootingPct(fgm, fga, ftm, fta int) float64 {
	return pct(fgm+ftm, fga+fta)
}

// missedBy normaliza a distância até a linha: positivo em um miss "limpo",
// negativo quando o valor real satisfaria a linha
func missedBy(ou betting.OverUnder, line, actual float64) float64 {
	if ou == betting.Under {
		return actual - line
	}
	return line - actual
}
