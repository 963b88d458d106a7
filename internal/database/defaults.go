package database

import (
	"context"
	"database/sql"
	"strings"

	"github.com/finfold/finfold/internal/database/repository"
)

// SeedDefaults ensures baseline categories exist for new databases.
// It is idempotent and safe to run on every startup. Category ids are slugs
// so hint prefills can reference them readably ("dining", "rent").
func SeedDefaults(ctx context.Context, db *sql.DB) error {
	catRepo := repository.NewCategoryRepo(db)
	existing, err := catRepo.List(ctx)
	if err == nil && len(existing) > 0 {
		return nil
	}
	defaults := []string{
		"Income",
		"Groceries",
		"Dining",
		"Rent",
		"Transport",
		"Shopping",
		"Utilities",
		"Subscriptions",
		"Travel",
		"Health",
		"Entertainment",
	}
	for idx, name := range defaults {
		cat := repository.Category{ID: slug(name), Name: name, SortOrder: idx}
		if err := catRepo.Upsert(ctx, cat); err != nil {
			return err
		}
	}
	return nil
}

func slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
