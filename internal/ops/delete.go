package ops

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/hpungsan/thermap/internal/db"
	"github.com/hpungsan/thermap/internal/errors"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	ID string
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// Delete removes a calculation from the history.
func Delete(ctx context.Context, database *sqlx.DB, input DeleteInput) (*DeleteOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := db.Delete(database, id); err != nil {
		return nil, err
	}
	return &DeleteOutput{Deleted: true, ID: id}, nil
}
