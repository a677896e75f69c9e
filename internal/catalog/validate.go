package catalog

import (
	"fmt"
	"strings"
)

// ValidationError lists every structural problem that prevents a catalog
// from being built.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog validation failed:\n  %s", strings.Join(e.Problems, "\n  "))
}

// validateRecords checks the invariants New relies on: non-empty unique ids
// and aliases that resolve to exactly one task.
func validateRecords(records []TaskRecord) error {
	var errs []string

	idSet := make(map[string]bool, len(records))
	for i, r := range records {
		if strings.TrimSpace(r.ID) == "" {
			errs = append(errs, fmt.Sprintf("task at position %d has an empty id", i))
			continue
		}
		if idSet[r.ID] {
			errs = append(errs, fmt.Sprintf("duplicate task ID: %q", r.ID))
		}
		idSet[r.ID] = true
	}

	aliasOwner := make(map[string]string)
	for _, r := range records {
		for _, a := range r.AliasIDs {
			if a == "" || a == r.ID {
				continue
			}
			if idSet[a] {
				errs = append(errs, fmt.Sprintf("alias %q of task %q collides with a primary task ID", a, r.ID))
				continue
			}
			if owner, ok := aliasOwner[a]; ok && owner != r.ID {
				errs = append(errs, fmt.Sprintf("alias %q claimed by both %q and %q", a, owner, r.ID))
				continue
			}
			aliasOwner[a] = r.ID
		}
	}

	for _, r := range records {
		seen := make(map[int]bool, len(r.Objectives))
		for _, o := range r.Objectives {
			if o.Index < 0 {
				errs = append(errs, fmt.Sprintf("task %q objective index must be >= 0, got %d", r.ID, o.Index))
			}
			if seen[o.Index] {
				errs = append(errs, fmt.Sprintf("task %q has duplicate objective index %d", r.ID, o.Index))
			}
			seen[o.Index] = true
		}
		if r.RequiredLevel < 0 {
			errs = append(errs, fmt.Sprintf("task %q: RequiredLevel must be >= 0, got %d", r.ID, r.RequiredLevel))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Problems: errs}
	}
	return nil
}
