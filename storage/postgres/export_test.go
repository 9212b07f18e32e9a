package postgres

import "context"

// Reset empties both tables so each contract subtest starts clean.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `TRUNCATE sessions, tokens`)
	return err
}
