package ops

import (
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/hpungsan/thermap/internal/calc"
	"github.com/hpungsan/thermap/internal/config"
	"github.com/hpungsan/thermap/internal/db"
	"github.com/hpungsan/thermap/internal/errors"
	"github.com/hpungsan/thermap/internal/report"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID string
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	ID            string             `json:"id"`
	DatabaseIndex int                `json:"database_index"`
	DatabaseName  string             `json:"database_name"`
	Composition   string             `json:"composition"`
	Coefficients  map[string]float64 `json:"coefficients"`
	Result        *calc.Result       `json:"result"`
	Rounded       calc.Rounded       `json:"rounded"`
	CreatedAt     int64              `json:"created_at"`
	Report        *report.Report     `json:"-"`
}

// Fetch retrieves one recorded calculation.
func Fetch(database *sqlx.DB, cfg *config.Config, input FetchInput) (*FetchOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	c, err := db.GetByID(database, id)
	if err != nil {
		return nil, err
	}
	coefs, err := c.Coefficients()
	if err != nil {
		return nil, err
	}

	result := resultOf(c)
	return &FetchOutput{
		ID:            c.ID,
		DatabaseIndex: c.DatabaseIndex,
		DatabaseName:  c.DatabaseName,
		Composition:   c.Composition,
		Coefficients:  coefs,
		Result:        result,
		Rounded:       result.Rounded(),
		CreatedAt:     c.CreatedAt,
		Report: &report.Report{
			Database:    c.DatabaseName,
			Composition: c.Composition,
			Result:      result,
			KspEligible: cfg.KspAllowed(c.DatabaseName),
		},
	}, nil
}
