package db

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/hpungsan/thermap/internal/errors"
)

// Calculation is one recorded composition and its estimated properties.
// Energies are stored at full precision in J/mol.
type Calculation struct {
	ID               string   `db:"id" json:"id"`
	DatabaseIndex    int      `db:"database_index" json:"database_index"`
	DatabaseName     string   `db:"database_name" json:"database_name"`
	Composition      string   `db:"composition" json:"composition"`
	CoefficientsJSON string   `db:"coefficients_json" json:"-"`
	DeltaG           float64  `db:"delta_g" json:"delta_g"`
	DeltaH           float64  `db:"delta_h" json:"delta_h"`
	DeltaS           float64  `db:"delta_s" json:"delta_s"`
	Entropy          float64  `db:"entropy" json:"entropy"`
	PKsp             *float64 `db:"pksp" json:"pksp,omitempty"`
	CreatedAt        int64    `db:"created_at" json:"created_at"`
}

// Coefficients decodes the stored coefficient map.
func (c *Calculation) Coefficients() (map[string]float64, error) {
	out := make(map[string]float64)
	if c.CoefficientsJSON == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(c.CoefficientsJSON), &out); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// SetCoefficients encodes coefficients into CoefficientsJSON.
func (c *Calculation) SetCoefficients(coefs map[string]float64) error {
	data, err := json.Marshal(coefs)
	if err != nil {
		return errors.NewInternal(err)
	}
	c.CoefficientsJSON = string(data)
	return nil
}

const calculationColumns = `id, database_index, database_name, composition, coefficients_json,
	delta_g, delta_h, delta_s, entropy, pksp, created_at`

// ErrUniqueConstraint is returned when an insert reuses an existing id.
var ErrUniqueConstraint = &errors.ThermapError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// Insert stores a new calculation.
func Insert(db *sqlx.DB, c *Calculation) error {
	query := `INSERT INTO calculations (` + calculationColumns + `)
		VALUES (:id, :database_index, :database_name, :composition, :coefficients_json,
			:delta_g, :delta_h, :delta_s, :entropy, :pksp, :created_at)`

	if _, err := db.NamedExec(query, c); err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetByID retrieves a calculation by its ULID.
func GetByID(db *sqlx.DB, id string) (*Calculation, error) {
	var c Calculation
	err := db.Get(&c, `SELECT `+calculationColumns+` FROM calculations WHERE id = ?`, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("calculation", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &c, nil
}

// ListFilters narrows a history listing.
type ListFilters struct {
	DatabaseName string // exact short name; empty means all
}

func (f ListFilters) where() (string, []any) {
	if f.DatabaseName == "" {
		return "", nil
	}
	return " WHERE database_name = ?", []any{f.DatabaseName}
}

// List returns calculations newest first, with the total matching count.
func List(db *sqlx.DB, filters ListFilters, limit, offset int) ([]Calculation, int, error) {
	where, args := filters.where()

	var total int
	if err := db.Get(&total, `SELECT COUNT(*) FROM calculations`+where, args...); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `SELECT ` + calculationColumns + ` FROM calculations` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	var out []Calculation
	if err := db.Select(&out, query, append(args, limit, offset)...); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	if out == nil {
		out = []Calculation{}
	}
	return out, total, nil
}

// Delete removes a calculation by id.
func Delete(db *sqlx.DB, id string) error {
	res, err := db.Exec(`DELETE FROM calculations WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound("calculation", id)
	}
	return nil
}
