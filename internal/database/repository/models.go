package repository

import "time"

// Provider identifies an external line-item source.
type Provider string

const (
	ProviderCardAggregator Provider = "cardagg"
	ProviderPeerPayment    Provider = "peerpay"
	ProviderExpenseSplit   Provider = "expensesplit"
)

// KnownProvider reports whether p is one of the supported sources.
func KnownProvider(p Provider) bool {
	switch p {
	case ProviderCardAggregator, ProviderPeerPayment, ProviderExpenseSplit:
		return true
	}
	return false
}

// Account represents an external source handle.
type Account struct {
	ID           string
	Provider     Provider
	DisplayName  string
	Status       string // active | inactive
	LastSyncedAt *time.Time
}

// Category represents a category row.
type Category struct {
	ID        string
	ParentID  *string
	Name      string
	SortOrder int
}

// LineItem represents a single normalized transaction. Manual (cash) entries
// have an empty Provider and nil ExternalRef; everything else carries the
// provider-native id used as the dedup key.
type LineItem struct {
	ID            string
	Provider      Provider
	ExternalRef   *string
	DateUnix      int64
	AmountCents   int64
	Description   string
	Counterparty  string
	PaymentMethod string
	Reviewed      bool
	Selected      bool
	EventID       *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Manual reports whether the item was entered by hand rather than synced.
func (li LineItem) Manual() bool { return li.ExternalRef == nil }

// Hint is a stored categorization rule. DisplayOrder defines evaluation
// precedence among active hints; lower runs first.
type Hint struct {
	ID                string
	Name              string
	Expression        string
	PrefillName       string
	PrefillCategoryID *string
	DisplayOrder      int
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Event groups one or more line items under a name and category.
type Event struct {
	ID          string
	Name        string
	CategoryID  *string
	DateUnix    *int64
	IsDuplicate bool
	CreatedAt   time.Time
	LineItemIDs []string
}
