package ops

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/thermap/internal/calc"
	"github.com/hpungsan/thermap/internal/db"
	"github.com/hpungsan/thermap/internal/errors"
	"github.com/hpungsan/thermap/internal/report"
)

// ComputeInput contains parameters for the Compute operation.
type ComputeInput struct {
	Database int // 1-based index, required

	// Coefficients by species name.
	Coefficients map[string]float64

	// Entries are coefficients as typed by a user; blank or non-numeric
	// text counts as 0. Applied before Coefficients.
	Entries map[string]string

	NoSave bool
}

// ComputeOutput contains the result of the Compute operation.
type ComputeOutput struct {
	ID          string         `json:"id,omitempty"` // empty when not saved
	Database    DatabaseItem   `json:"database"`
	Composition string         `json:"composition"`
	Result      *calc.Result   `json:"result"`
	Rounded     calc.Rounded   `json:"rounded"`
	Notes       []string       `json:"notes,omitempty"`
	Report      *report.Report `json:"-"`
}

// Compute estimates the formation properties of a composition and records
// it in the calculation history.
func Compute(ctx context.Context, database *sqlx.DB, src *Sources, input ComputeInput) (*ComputeOutput, error) {
	if input.Database <= 0 {
		return nil, errors.NewInvalidRequest("database index is required")
	}
	if len(input.Coefficients) == 0 && len(input.Entries) == 0 {
		return nil, errors.NewInvalidRequest("at least one coefficient is required")
	}

	sess, err := src.Open(input.Database)
	if err != nil {
		return nil, err
	}
	if len(input.Entries) > 0 {
		if err := sess.SetCoefficients(input.Entries); err != nil {
			return nil, err
		}
	}
	for name, v := range input.Coefficients {
		if err := sess.SetCoefficient(name, v); err != nil {
			return nil, err
		}
	}

	result, err := sess.Compute()
	if err != nil {
		return nil, err
	}

	desc, _ := sess.Database()
	coefs := nonZero(sess.Coefficients())
	item := databaseItem(src.Config, desc)
	rep := &report.Report{
		Database:    desc.Name,
		Title:       desc.Title,
		Composition: CompositionLabel(sess.Species(), coefs),
		Result:      result,
		KspEligible: item.KspEnabled,
	}
	out := &ComputeOutput{
		Database:    item,
		Composition: rep.Composition,
		Result:      result,
		Rounded:     result.Rounded(),
		Notes:       rep.Notes(),
		Report:      rep,
	}

	if input.NoSave || database == nil {
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	calcRow := &db.Calculation{
		ID:            ulid.Make().String(),
		DatabaseIndex: desc.Index,
		DatabaseName:  desc.Name,
		Composition:   rep.Composition,
		DeltaG:        result.DeltaG,
		DeltaH:        result.DeltaH,
		DeltaS:        result.DeltaS,
		Entropy:       result.Entropy,
		CreatedAt:     time.Now().Unix(),
	}
	if result.HasKsp {
		p := result.PKsp
		calcRow.PKsp = &p
	}
	if err := calcRow.SetCoefficients(coefs); err != nil {
		return nil, err
	}
	if err := db.Insert(database, calcRow); err != nil {
		return nil, err
	}
	slog.Debug("calculation saved", "id", calcRow.ID, "db", desc.Name)

	out.ID = calcRow.ID
	return out, nil
}
