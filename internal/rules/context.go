package rules

import (
	"strings"

	"github.com/finfold/finfold/internal/database/repository"
)

// Context is the evaluation context for one candidate item set.
type Context struct {
	AmountCents int64
	Description string
	Count       int
	Items       []map[string]interface{}
}

// NewContext builds the context from the selected items. Identical inputs
// always produce identical contexts, so re-evaluation is idempotent.
func NewContext(items []repository.LineItem) Context {
	var sum int64
	descs := make([]string, 0, len(items))
	views := make([]map[string]interface{}, 0, len(items))
	for _, li := range items {
		sum += li.AmountCents
		descs = append(descs, li.Description)
		views = append(views, map[string]interface{}{
			"amount":         li.AmountCents,
			"description":    li.Description,
			"counterparty":   li.Counterparty,
			"payment_method": li.PaymentMethod,
			"date":           li.DateUnix,
		})
	}
	return Context{
		AmountCents: sum,
		Description: strings.Join(descs, "\n"),
		Count:       len(items),
		Items:       views,
	}
}

func (c Context) activation() map[string]interface{} {
	return map[string]interface{}{
		"amount":      c.AmountCents,
		"description": c.Description,
		"count":       c.Count,
		"items":       c.Items,
	}
}
