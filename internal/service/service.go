package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/jmoiron/sqlx"
	"github.com/peerview/interview-service/pkg/logger/sl"
)

// Transactor starts database transactions for the service layer.
type Transactor interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// BaseService carries the transaction helper shared by all services.
type BaseService struct {
	db  Transactor
	log *slog.Logger
}

func NewBaseService(db Transactor, log *slog.Logger) BaseService {
	return BaseService{
		db:  db,
		log: log,
	}
}

// transaction runs fn inside a transaction, committing on success and rolling
// back on any error. Operations that would leave the data model half-written
// must do all their mutations through one call of this helper.
func (s *BaseService) transaction(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Error("failed to rollback transaction", sl.Err(err))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return nil
}

// roundTo2 rounds half-up to two decimals, the scale used for all marks.
func roundTo2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
