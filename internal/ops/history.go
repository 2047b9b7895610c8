package ops

import (
	"github.com/jmoiron/sqlx"

	"github.com/hpungsan/thermap/internal/calc"
	"github.com/hpungsan/thermap/internal/db"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Database string // optional filter by database short name
	Limit    int    // default: 20, max: 100
	Offset   int    // default: 0
}

// HistoryItem is a calculation summary.
type HistoryItem struct {
	ID           string       `json:"id"`
	DatabaseName string       `json:"database_name"`
	Composition  string       `json:"composition"`
	Rounded      calc.Rounded `json:"rounded"`
	CreatedAt    int64        `json:"created_at"`
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Items      []HistoryItem `json:"items"`
	Pagination Pagination    `json:"pagination"`
	Sort       string        `json:"sort"`
}

// History lists recorded calculations, newest first.
func History(database *sqlx.DB, input HistoryInput) (*HistoryOutput, error) {
	limit, offset := clampPage(input.Limit, input.Offset)

	rows, total, err := db.List(database, db.ListFilters{DatabaseName: input.Database}, limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]HistoryItem, len(rows))
	for i := range rows {
		items[i] = HistoryItem{
			ID:           rows[i].ID,
			DatabaseName: rows[i].DatabaseName,
			Composition:  rows[i].Composition,
			Rounded:      resultOf(&rows[i]).Rounded(),
			CreatedAt:    rows[i].CreatedAt,
		}
	}

	return &HistoryOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}

// resultOf rebuilds the calculator result stored in a history row.
func resultOf(c *db.Calculation) *calc.Result {
	r := &calc.Result{
		DeltaG:  c.DeltaG,
		DeltaH:  c.DeltaH,
		DeltaS:  c.DeltaS,
		Entropy: c.Entropy,
	}
	if c.PKsp != nil {
		r.HasKsp = true
		r.PKsp = *c.PKsp
	}
	return r
}
