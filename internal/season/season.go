package season

import (
	"fmt"
	"strings"
	"time"

	"github.com/radieske/prop-miss-tracker/internal/betting"
)

// A temporada vai de outubro a junho: out-dez pertencem à temporada que começa
// no próprio ano, jan-set à que começou no ano anterior.
const startMonth = time.October

// Resolve devolve o rótulo da temporada ("2024-25") para a data do jogo
func Resolve(date time.Time) string {
	start := date.Year()
	if date.Month() < startMonth {
		start--
	}
	return Label(start)
}

// Label monta o rótulo a partir do ano de início
func Label(startYear int) string {
	return fmt.Sprintf("%d-%02d", startYear, (startYear+1)%100)
}

// ParseDate valida datas YYYY-MM-DD recebidas na borda da API
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(betting.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &betting.InvalidDateError{Value: s, Err: err}
	}
	return d, nil
}
