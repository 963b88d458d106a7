package repository

import (
	"context"
	"database/sql"
)

// EventRepo handles event rows. Item attachment lives on LineItemRepo so the
// event_id foreign key is written in the same transaction as the event row.
type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) InsertTx(ctx context.Context, tx *sql.Tx, ev Event) error {
	_, err := tx.ExecContext(ctx, `
	INSERT INTO events(id, name, category_id, event_date, is_duplicate, created_at)
	VALUES(?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, ev.ID, ev.Name, ev.CategoryID, ev.DateUnix, ev.IsDuplicate)
	return err
}

func (r *EventRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *EventRepo) Get(ctx context.Context, id string) (*Event, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, category_id, event_date, is_duplicate, created_at FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	ids, err := r.itemIDs(ctx, ev.ID)
	if err != nil {
		return nil, err
	}
	ev.LineItemIDs = ids
	return &ev, nil
}

func (r *EventRepo) List(ctx context.Context) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, category_id, event_date, is_duplicate, created_at FROM events ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		ids, err := r.itemIDs(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].LineItemIDs = ids
	}
	return out, nil
}

func (r *EventRepo) itemIDs(ctx context.Context, eventID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM line_items WHERE event_id = ? ORDER BY item_date DESC, id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanEvent(row scanner) (Event, error) {
	var ev Event
	var category sql.NullString
	var date sql.NullInt64
	if err := row.Scan(&ev.ID, &ev.Name, &category, &date, &ev.IsDuplicate, &ev.CreatedAt); err != nil {
		return Event{}, err
	}
	if category.Valid {
		ev.CategoryID = &category.String
	}
	if date.Valid {
		ev.DateUnix = &date.Int64
	}
	return ev, nil
}
