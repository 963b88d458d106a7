package repository

import (
	"context"
	"database/sql"
	"time"
)

// AccountRepo handles external source handles.
type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) Upsert(ctx context.Context, a Account) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO accounts(id, provider, display_name, status, last_synced_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 provider=excluded.provider,
	 display_name=excluded.display_name,
	 status=excluded.status;
	`, a.ID, string(a.Provider), a.DisplayName, a.Status, a.LastSyncedAt)
	return err
}

func (r *AccountRepo) Get(ctx context.Context, id string) (*Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, provider, display_name, status, last_synced_at FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// List returns accounts ordered by display name. With activeOnly set,
// inactive accounts are excluded; they stay individually syncable through Get.
func (r *AccountRepo) List(ctx context.Context, activeOnly bool) ([]Account, error) {
	query := `SELECT id, provider, display_name, status, last_synced_at FROM accounts`
	if activeOnly {
		query += ` WHERE status = 'active'`
	}
	query += ` ORDER BY display_name, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AccountRepo) SetStatus(ctx context.Context, id, status string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *AccountRepo) MarkSynced(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE accounts SET last_synced_at = ? WHERE id = ?`, at, id)
	return err
}

func scanAccount(row scanner) (Account, error) {
	var a Account
	var prov string
	var synced sql.NullTime
	if err := row.Scan(&a.ID, &prov, &a.DisplayName, &a.Status, &synced); err != nil {
		return Account{}, err
	}
	a.Provider = Provider(prov)
	if synced.Valid {
		a.LastSyncedAt = &synced.Time
	}
	return a, nil
}
