package ledger

import (
	"fmt"
	"time"
)

// PruneByAge removes uploads older than maxAgeDays.
// If dryRun is true, nothing is deleted; the function only returns the
// rows that would be removed. Returns the pruned rows, oldest first.
func (s *Store) PruneByAge(maxAgeDays int, dryRun bool) ([]Upload, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays)

	all, err := s.List(0)
	if err != nil {
		return nil, err
	}

	var pruned []Upload
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].CreatedAt.Before(cutoff) {
			pruned = append(pruned, all[i])
		}
	}

	if dryRun {
		return pruned, nil
	}
	if err := s.remove(pruned); err != nil {
		return nil, err
	}
	return pruned, nil
}

// PruneKeepRecent removes all uploads except the most recent keep rows.
// If dryRun is true, nothing is deleted. Returns the pruned rows, oldest
// first.
func (s *Store) PruneKeepRecent(keep int, dryRun bool) ([]Upload, error) {
	if keep < 0 {
		keep = 0
	}

	all, err := s.List(0)
	if err != nil {
		return nil, err
	}
	if len(all) <= keep {
		return nil, nil
	}

	var pruned []Upload
	for i := len(all) - 1; i >= keep; i-- {
		pruned = append(pruned, all[i])
	}

	if dryRun {
		return pruned, nil
	}
	if err := s.remove(pruned); err != nil {
		return nil, err
	}
	return pruned, nil
}

func (s *Store) remove(uploads []Upload) error {
	if len(uploads) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for _, u := range uploads {
		if _, err := tx.Exec(`DELETE FROM uploads WHERE id = ?`, u.ID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("removing %s: %w", u.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
