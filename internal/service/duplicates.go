package service

import (
	"context"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/finfold/finfold/internal/database/repository"
)

const (
	duplicateMaxDaysApart  = 3
	duplicateMinSimilarity = 0.6
)

// SuspectPair is a pair of reviewable items that look like the same
// real-world transaction reported by two different sources. Advisory only:
// clients may use it to pre-tick the duplicate flag on an event, but ledger
// membership is never touched here.
type SuspectPair struct {
	A          repository.LineItem `json:"a"`
	B          repository.LineItem `json:"b"`
	Similarity float64             `json:"similarity"`
}

// DuplicateAdvisor scans the reviewable set for cross-provider duplicates.
type DuplicateAdvisor struct {
	items *repository.LineItemRepo
}

func NewDuplicateAdvisor(items *repository.LineItemRepo) *DuplicateAdvisor {
	return &DuplicateAdvisor{items: items}
}

// Suspects returns likely duplicate pairs: different providers, equal
// amounts, dates within a few days, and similar descriptions.
func (d *DuplicateAdvisor) Suspects(ctx context.Context) ([]SuspectPair, error) {
	items, err := d.items.List(ctx, repository.LineItemFilters{ReviewableOnly: true})
	if err != nil {
		return nil, err
	}

	var out []SuspectPair
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			a, b := items[i], items[j]
			if !suspectCandidate(a, b) {
				continue
			}
			sim := similarity(a.Description, b.Description)
			if sim >= duplicateMinSimilarity {
				out = append(out, SuspectPair{A: a, B: b, Similarity: sim})
			}
		}
	}
	return out, nil
}

func suspectCandidate(a, b repository.LineItem) bool {
	if a.Provider == b.Provider {
		return false
	}
	if a.AmountCents != b.AmountCents {
		return false
	}
	return daysApart(a.DateUnix, b.DateUnix) <= duplicateMaxDaysApart
}

func daysApart(a, b int64) int64 {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d / 86400
}

func similarity(a, b string) float64 {
	a, b = strings.ToUpper(a), strings.ToUpper(b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}
