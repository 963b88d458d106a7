package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// HintRepo stores categorization hints.
type HintRepo struct{ db *sql.DB }

func NewHintRepo(db *sql.DB) *HintRepo { return &HintRepo{db: db} }

const hintColumns = `id, name, expression, prefill_name, prefill_category_id, display_order, active, created_at, updated_at`

func (r *HintRepo) Insert(ctx context.Context, h Hint) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO hints(id, name, expression, prefill_name, prefill_category_id, display_order, active, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, h.ID, h.Name, h.Expression, h.PrefillName, h.PrefillCategoryID, h.DisplayOrder, h.Active)
	return err
}

func (r *HintRepo) Update(ctx context.Context, h Hint) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	UPDATE hints SET name = ?, expression = ?, prefill_name = ?, prefill_category_id = ?,
	 display_order = ?, active = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`,
		h.Name, h.Expression, h.PrefillName, h.PrefillCategoryID, h.DisplayOrder, h.Active, h.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *HintRepo) Delete(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM hints WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *HintRepo) Get(ctx context.Context, id string) (*Hint, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+hintColumns+` FROM hints WHERE id = ?`, id)
	h, err := scanHint(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &h, nil
}

// List returns hints in evaluation order: ascending display_order, id as a
// deterministic tiebreak for inactive rows that may share an order value.
func (r *HintRepo) List(ctx context.Context, activeOnly bool) ([]Hint, error) {
	query := `SELECT ` + hintColumns + ` FROM hints`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY display_order, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Hint
	for rows.Next() {
		h, err := scanHint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// NextDisplayOrder returns one past the highest order currently in use.
func (r *HintRepo) NextDisplayOrder(ctx context.Context) (int, error) {
	var next int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(display_order), -1) + 1 FROM hints`).Scan(&next)
	return next, err
}

// Reorder rewrites display_order for exactly the given ids to 0..n-1.
// The write is transactional: any unknown id aborts with no partial reindex.
// Orders are first parked on negative values so the partial unique index on
// active rows never sees a transient collision among the listed set.
func (r *HintRepo) Reorder(ctx context.Context, ids []string) (unknown []string, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		res, execErr := tx.ExecContext(ctx, `UPDATE hints SET display_order = -display_order - 1000000 WHERE id = ?`, id)
		if execErr != nil {
			return nil, execErr
		}
		n, raErr := res.RowsAffected()
		if raErr != nil {
			return nil, raErr
		}
		if n == 0 {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return unknown, nil
	}
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE hints SET display_order = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, i, id); err != nil {
			return nil, fmt.Errorf("reorder %s: %w", id, err)
		}
	}
	return nil, tx.Commit()
}

func scanHint(row scanner) (Hint, error) {
	var h Hint
	var category sql.NullString
	if err := row.Scan(&h.ID, &h.Name, &h.Expression, &h.PrefillName, &category,
		&h.DisplayOrder, &h.Active, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return Hint{}, err
	}
	if category.Valid {
		h.PrefillCategoryID = &category.String
	}
	return h, nil
}
