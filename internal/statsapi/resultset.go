package statsapi

import (
	"fmt"
	"strconv"
	"strings"
)

// response segue o envelope do stats.nba.com: cada endpoint devolve uma ou
// mais tabelas com cabeçalhos e linhas posicionais
type response struct {
	ResultSets []resultSet `json:"resultSets"`
}

type resultSet struct {
	Name    string          `json:"name"`
	Headers []string        `json:"headers"`
	RowSet  [][]interface{} `json:"rowSet"`
}

// table indexa as colunas de um resultSet pelo nome
type table struct {
	cols map[string]int
	rows [][]interface{}
}

// set devolve a tabela com o nome pedido (ou a primeira, se name == "")
func (r *response) set(name string) (*table, error) {
	for _, rs := range r.ResultSets {
		if name != "" && !strings.EqualFold(rs.Name, name) {
			continue
		}
		t := &table{cols: make(map[string]int, len(rs.Headers)), rows: rs.RowSet}
		for i, h := range rs.Headers {
			t.cols[strings.ToUpper(h)] = i
		}
		return t, nil
	}
	return nil, fmt.Errorf("result set %q missing: %w", name, ErrRejected)
}

func (t *table) has(col string) bool {
	_, ok := t.cols[col]
	return ok
}

func (t *table) value(row []interface{}, col string) interface{} {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return nil
	}
	return row[i]
}

// floatCol trata null e números vindos como string ("34:12" não é número, vira 0)
func (t *table) floatCol(row []interface{}, col string) (float64, bool) {
	switch v := t.value(row, col).(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

func (t *table) intCol(row []interface{}, col string) int {
	f, _ := t.floatCol(row, col)
	return int(f)
}

func (t *table) strCol(row []interface{}, col string) string {
	switch v := t.value(row, col).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
