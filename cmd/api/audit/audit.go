package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const insert = "INSERT INTO audit_records(id, user_id, kind, from_account, to_account, amount, success, reason, message, created_at) " +
	"VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id;"

const selectRecent = "SELECT id, user_id, kind, from_account, to_account, amount, success, reason, message, created_at " +
	"FROM audit_records WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2;"

// Record is one submission outcome, accepted or not.
type Record struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"userId"`
	Kind        string    `db:"kind" json:"kind"`
	FromAccount string    `db:"from_account" json:"fromAccount,omitempty"`
	ToAccount   string    `db:"to_account" json:"toAccount,omitempty"`
	Amount      string    `db:"amount" json:"amount"`
	Success     bool      `db:"success" json:"success"`
	Reason      string    `db:"reason" json:"reason,omitempty"`
	Message     string    `db:"message" json:"message,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

func SaveRecord(ctx context.Context, db *sqlx.DB, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelDefault})
	if err != nil {
		return errors.Wrap(err, "begin audit tx")
	}

	stmt, err := tx.PreparexContext(ctx, insert)
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "prepare audit insert")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, rec.ID, rec.UserID, rec.Kind, nullable(rec.FromAccount), nullable(rec.ToAccount),
		rec.Amount, rec.Success, nullable(rec.Reason), nullable(rec.Message), rec.CreatedAt)

	if err = row.Scan(&rec.ID); err != nil {
		_ = tx.Rollback()
		log.Warnf("audit record creation was rolled back, error: %v", err)
		return errors.Wrap(err, "insert audit record")
	}

	if err = tx.Commit(); err != nil {
		log.Errorf("failed to commit audit record creation, error: %v", err)
		return errors.Wrap(err, "commit audit record")
	}

	log.Infof("saved audit record %s for %s of user %d", rec.ID, rec.Kind, rec.UserID)
	return nil
}

type row struct {
	ID          uuid.UUID      `db:"id"`
	UserID      int64          `db:"user_id"`
	Kind        string         `db:"kind"`
	FromAccount sql.NullString `db:"from_account"`
	ToAccount   sql.NullString `db:"to_account"`
	Amount      string         `db:"amount"`
	Success     bool           `db:"success"`
	Reason      sql.NullString `db:"reason"`
	Message     sql.NullString `db:"message"`
	CreatedAt   time.Time      `db:"created_at"`
}

// Recent returns the newest records of a user.
func Recent(ctx context.Context, db *sqlx.DB, userID int64, limit int) ([]Record, error) {
	var rows []row
	if err := db.SelectContext(ctx, &rows, selectRecent, userID, limit); err != nil {
		return nil, errors.Wrap(err, "select audit records")
	}

	records := make([]Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, Record{
			ID:          r.ID,
			UserID:      r.UserID,
			Kind:        r.Kind,
			FromAccount: r.FromAccount.String,
			ToAccount:   r.ToAccount.String,
			Amount:      r.Amount,
			Success:     r.Success,
			Reason:      r.Reason.String,
			Message:     r.Message.String,
			CreatedAt:   r.CreatedAt,
		})
	}
	return records, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
