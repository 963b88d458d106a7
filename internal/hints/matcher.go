package hints

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/finfold/finfold/internal/database/repository"
	"github.com/finfold/finfold/internal/rules"
)

// ErrEmptySelection marks a precondition violation: the matcher must never be
// invoked with zero items.
var ErrEmptySelection = errors.New("no line items selected")

// Suggestion is the first matching hint's prefill.
type Suggestion struct {
	Name            string
	CategoryID      *string
	MatchedHintID   string
	MatchedHintName string
}

// Matcher walks active hints in display order and returns the first match.
// Compiled programs are cached per hint and invalidated when the stored
// expression text changes, so matching is stateless beyond the store's
// current contents.
type Matcher struct {
	store *Store
	env   *rules.Env

	mu    sync.Mutex
	cache map[string]*rules.Program
}

func NewMatcher(store *Store, env *rules.Env) *Matcher {
	return &Matcher{store: store, env: env, cache: make(map[string]*rules.Program)}
}

// Suggest evaluates the active hints against items. No hint matching is not
// an error: the result is (nil, nil). A hint whose expression fails to
// compile or evaluate is skipped so one malformed rule never blocks the
// well-formed rules after it.
func (m *Matcher) Suggest(ctx context.Context, items []repository.LineItem) (*Suggestion, error) {
	if len(items) == 0 {
		return nil, ErrEmptySelection
	}
	active, err := m.store.List(ctx, true)
	if err != nil {
		return nil, err
	}
	evalCtx := rules.NewContext(items)

	for _, h := range active {
		prg, err := m.program(h)
		if err != nil {
			log.Printf("hint %s (%s): skipping, compile failed: %v", h.ID, h.Name, err)
			continue
		}
		matched, err := prg.Eval(evalCtx)
		if err != nil {
			log.Printf("hint %s (%s): skipping, evaluation failed: %v", h.ID, h.Name, err)
			continue
		}
		if matched {
			return &Suggestion{
				Name:            h.PrefillName,
				CategoryID:      h.PrefillCategoryID,
				MatchedHintID:   h.ID,
				MatchedHintName: h.Name,
			}, nil
		}
	}
	return nil, nil
}

func (m *Matcher) program(h repository.Hint) (*rules.Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prg, ok := m.cache[h.ID]; ok && prg.Source() == h.Expression {
		return prg, nil
	}
	prg, err := m.env.Compile(h.Expression)
	if err != nil {
		delete(m.cache, h.ID)
		return nil, err
	}
	m.cache[h.ID] = prg
	return prg, nil
}
