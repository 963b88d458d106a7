// Package hints stores the ordered rule list and matches it against
// candidate line-item selections.
package hints

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/finfold/finfold/internal/database/repository"
	"github.com/finfold/finfold/internal/rules"
)

var (
	// ErrValidation marks a malformed hint: bad expression or missing field.
	// Surfaced to the caller for correction, never retried.
	ErrValidation = errors.New("hint validation failed")
	// ErrDuplicateOrder marks a display_order collision among active hints.
	ErrDuplicateOrder = errors.New("display order already in use")
	// ErrUnknownID marks a reorder request naming an absent hint.
	ErrUnknownID = errors.New("unknown hint id")
	// ErrNotFound marks an operation on an absent hint.
	ErrNotFound = errors.New("hint not found")
)

// Store is the ordered collection of hints.
type Store struct {
	repo *repository.HintRepo
	env  *rules.Env
}

func NewStore(repo *repository.HintRepo, env *rules.Env) *Store {
	return &Store{repo: repo, env: env}
}

// CreateParams carries the caller-supplied fields for a new hint.
// A nil DisplayOrder appends after the current highest order.
type CreateParams struct {
	Name              string
	Expression        string
	PrefillName       string
	PrefillCategoryID *string
	DisplayOrder      *int
	Active            bool
}

func (s *Store) Create(ctx context.Context, p CreateParams) (*repository.Hint, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if strings.TrimSpace(p.PrefillName) == "" {
		return nil, fmt.Errorf("%w: prefill name required", ErrValidation)
	}
	if err := s.env.Validate(p.Expression); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	order := 0
	if p.DisplayOrder != nil {
		order = *p.DisplayOrder
	} else {
		next, err := s.repo.NextDisplayOrder(ctx)
		if err != nil {
			return nil, err
		}
		order = next
	}

	h := repository.Hint{
		ID:                uuid.NewString(),
		Name:              p.Name,
		Expression:        p.Expression,
		PrefillName:       p.PrefillName,
		PrefillCategoryID: p.PrefillCategoryID,
		DisplayOrder:      order,
		Active:            p.Active,
	}
	if err := s.repo.Insert(ctx, h); err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateOrder, order)
		}
		return nil, err
	}
	return s.repo.Get(ctx, h.ID)
}

// UpdateParams carries a partial hint update; nil fields are left unchanged.
type UpdateParams struct {
	Name              *string
	Expression        *string
	PrefillName       *string
	PrefillCategoryID *string
	ClearCategory     bool
	DisplayOrder      *int
	Active            *bool
}

func (s *Store) Update(ctx context.Context, id string, p UpdateParams) (*repository.Hint, error) {
	h, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, ErrNotFound
	}
	if p.Name != nil {
		h.Name = *p.Name
	}
	if p.Expression != nil {
		if err := s.env.Validate(*p.Expression); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		h.Expression = *p.Expression
	}
	if p.PrefillName != nil {
		h.PrefillName = *p.PrefillName
	}
	if p.PrefillCategoryID != nil {
		h.PrefillCategoryID = p.PrefillCategoryID
	}
	if p.ClearCategory {
		h.PrefillCategoryID = nil
	}
	if p.DisplayOrder != nil {
		h.DisplayOrder = *p.DisplayOrder
	}
	if p.Active != nil {
		h.Active = *p.Active
	}
	if _, err := s.repo.Update(ctx, *h); err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateOrder, h.DisplayOrder)
		}
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*repository.Hint, error) {
	h, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, ErrNotFound
	}
	return h, nil
}

// List returns hints in ascending display order.
func (s *Store) List(ctx context.Context, activeOnly bool) ([]repository.Hint, error) {
	return s.repo.List(ctx, activeOnly)
}

// Reorder rewrites display_order for exactly the given ids to 0..n-1,
// leaving hints not in the list untouched. A failed reorder leaves the prior
// ordering intact.
func (s *Store) Reorder(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no hint ids", ErrValidation)
	}
	unknown, err := s.repo.Reorder(ctx, ids)
	if err != nil {
		return err
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownID, strings.Join(unknown, ", "))
	}
	return nil
}

// Validate compiles an expression without persisting anything.
func (s *Store) Validate(expression string) error {
	if err := s.env.Validate(expression); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
