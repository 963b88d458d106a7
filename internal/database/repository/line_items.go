package repository

import (
	"context"
	"database/sql"
	"strings"
)

// LineItemFilters defines list filters.
type LineItemFilters struct {
	ReviewableOnly bool
	PaymentMethod  string
	Provider       Provider
}

// LineItemRepo handles line items.
type LineItemRepo struct {
	db *sql.DB
}

func NewLineItemRepo(db *sql.DB) *LineItemRepo { return &LineItemRepo{db: db} }

// querier is satisfied by both *sql.DB and *sql.Tx so multi-row operations can
// run inside a caller's transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const lineItemColumns = `id, provider, external_ref, item_date, amount, description, counterparty, payment_method, reviewed, selected, event_id, created_at, updated_at`

func (r *LineItemRepo) Insert(ctx context.Context, q querier, li LineItem) error {
	if q == nil {
		q = r.db
	}
	var prov interface{}
	if li.Provider != "" {
		prov = string(li.Provider)
	}
	_, err := q.ExecContext(ctx, `
	INSERT INTO line_items(
	 id, provider, external_ref, item_date, amount, description, counterparty, payment_method,
	 reviewed, selected, event_id, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`,
		li.ID, prov, li.ExternalRef, li.DateUnix, li.AmountCents, li.Description,
		li.Counterparty, li.PaymentMethod, li.Reviewed, li.Selected, li.EventID)
	return err
}

// UpdateSyncedFields refreshes the mutable provider-sourced fields while
// preserving id, reviewed, selected and event membership.
func (r *LineItemRepo) UpdateSyncedFields(ctx context.Context, q querier, id string, li LineItem) error {
	if q == nil {
		q = r.db
	}
	_, err := q.ExecContext(ctx, `
	UPDATE line_items SET item_date = ?, amount = ?, description = ?, counterparty = ?,
	 payment_method = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`,
		li.DateUnix, li.AmountCents, li.Description, li.Counterparty, li.PaymentMethod, id)
	return err
}

// FindBySource looks up the dedup key (provider, external_ref).
// Returns nil when absent.
func (r *LineItemRepo) FindBySource(ctx context.Context, q querier, provider Provider, externalRef string) (*LineItem, error) {
	if q == nil {
		q = r.db
	}
	row := q.QueryRowContext(ctx,
		`SELECT `+lineItemColumns+` FROM line_items WHERE provider = ? AND external_ref = ?`,
		string(provider), externalRef)
	li, err := scanLineItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &li, nil
}

func (r *LineItemRepo) Get(ctx context.Context, id string) (*LineItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+lineItemColumns+` FROM line_items WHERE id = ?`, id)
	li, err := scanLineItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &li, nil
}

// GetMany returns the items for the given ids, in date-descending order.
// Missing ids are simply absent from the result.
func (r *LineItemRepo) GetMany(ctx context.Context, ids []string) ([]LineItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders, args := idClause(ids)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+lineItemColumns+` FROM line_items WHERE id IN (`+placeholders+`) ORDER BY item_date DESC, id`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLineItems(rows)
}

func (r *LineItemRepo) List(ctx context.Context, f LineItemFilters) ([]LineItem, error) {
	var where []string
	var args []interface{}

	if f.ReviewableOnly {
		where = append(where, "event_id IS NULL AND reviewed = 0")
	}
	if f.PaymentMethod != "" {
		where = append(where, "payment_method = ?")
		args = append(args, f.PaymentMethod)
	}
	if f.Provider != "" {
		where = append(where, "provider = ?")
		args = append(args, string(f.Provider))
	}

	query := `SELECT ` + lineItemColumns + ` FROM line_items`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY item_date DESC, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLineItems(rows)
}

func (r *LineItemRepo) SetSelected(ctx context.Context, q querier, id string, selected bool) error {
	if q == nil {
		q = r.db
	}
	_, err := q.ExecContext(ctx,
		`UPDATE line_items SET selected = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		selected, id)
	return err
}

// AttachToEvent classifies the requested ids and, only when every one of them
// exists and is unattached, folds them into the event. It performs no writes
// otherwise; callers translate the classification into domain errors.
func (r *LineItemRepo) AttachToEvent(ctx context.Context, tx *sql.Tx, eventID string, ids []string) (missing, conflicted []string, err error) {
	placeholders, args := idClause(ids)
	rows, err := tx.QueryContext(ctx,
		`SELECT id, event_id FROM line_items WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, nil, err
	}
	found := make(map[string]*string, len(ids))
	for rows.Next() {
		var id string
		var evID sql.NullString
		if err := rows.Scan(&id, &evID); err != nil {
			rows.Close()
			return nil, nil, err
		}
		if evID.Valid {
			v := evID.String
			found[id] = &v
		} else {
			found[id] = nil
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	for _, id := range ids {
		existing, ok := found[id]
		switch {
		case !ok:
			missing = append(missing, id)
		case existing != nil:
			conflicted = append(conflicted, id)
		}
	}
	if len(missing) > 0 || len(conflicted) > 0 {
		return missing, conflicted, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE line_items SET event_id = ?, reviewed = 1, selected = 0, updated_at = CURRENT_TIMESTAMP
		 WHERE id IN (`+placeholders+`)`,
		append([]interface{}{eventID}, args...)...)
	return nil, nil, err
}

// DetachFromEvent returns an event's items to the reviewable set and reports
// which ids were restored.
func (r *LineItemRepo) DetachFromEvent(ctx context.Context, tx *sql.Tx, eventID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM line_items WHERE event_id = ?`, eventID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE line_items SET event_id = NULL, reviewed = 0, selected = 0, updated_at = CURRENT_TIMESTAMP
		 WHERE event_id = ?`, eventID)
	return ids, err
}

func (r *LineItemRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM line_items WHERE id = ?`, id)
	return err
}

// ProviderBalance is the summed cents per provider for aggregate snapshots.
type ProviderBalance struct {
	Provider   Provider
	TotalCents int64
}

// BalancesByProvider sums amounts per provider. Items folded into an event
// flagged as duplicate are excluded to avoid double counting.
func (r *LineItemRepo) BalancesByProvider(ctx context.Context) ([]ProviderBalance, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT li.provider, SUM(li.amount)
	FROM line_items li
	LEFT JOIN events e ON e.id = li.event_id
	WHERE li.provider IS NOT NULL AND (e.id IS NULL OR e.is_duplicate = 0)
	GROUP BY li.provider
	ORDER BY li.provider`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProviderBalance
	for rows.Next() {
		var pb ProviderBalance
		var prov string
		if err := rows.Scan(&prov, &pb.TotalCents); err != nil {
			return nil, err
		}
		pb.Provider = Provider(prov)
		out = append(out, pb)
	}
	return out, rows.Err()
}

// MonthTotal is the summed cents for one calendar month (UTC).
type MonthTotal struct {
	Month      string // "2006-01"
	TotalCents int64
}

func (r *LineItemRepo) MonthlyTotals(ctx context.Context) ([]MonthTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT strftime('%Y-%m', li.item_date, 'unixepoch') AS month, SUM(li.amount)
	FROM line_items li
	LEFT JOIN events e ON e.id = li.event_id
	WHERE e.id IS NULL OR e.is_duplicate = 0
	GROUP BY month
	ORDER BY month DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MonthTotal
	for rows.Next() {
		var mt MonthTotal
		if err := rows.Scan(&mt.Month, &mt.TotalCents); err != nil {
			return nil, err
		}
		out = append(out, mt)
	}
	return out, rows.Err()
}

func idClause(ids []string) (string, []interface{}) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return placeholders, args
}

func collectLineItems(rows *sql.Rows) ([]LineItem, error) {
	var out []LineItem
	for rows.Next() {
		li, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, li)
	}
	return out, rows.Err()
}

// scanLineItem handles nullable fields for both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanLineItem(row scanner) (LineItem, error) {
	var li LineItem
	var prov, external, event sql.NullString
	if err := row.Scan(&li.ID, &prov, &external, &li.DateUnix, &li.AmountCents,
		&li.Description, &li.Counterparty, &li.PaymentMethod, &li.Reviewed, &li.Selected,
		&event, &li.CreatedAt, &li.UpdatedAt); err != nil {
		return LineItem{}, err
	}
	if prov.Valid {
		li.Provider = Provider(prov.String)
	}
	if external.Valid {
		li.ExternalRef = &external.String
	}
	if event.Valid {
		li.EventID = &event.String
	}
	return li, nil
}
