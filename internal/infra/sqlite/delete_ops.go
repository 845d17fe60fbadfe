package sqlite

import (
	"context"
	"fmt"
)

// DeleteAllWith removes every batch. Records go with them through the
// cascading foreign key.
func DeleteAllWith(ctx context.Context, q querier) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM uploads`); err != nil {
		return fmt.Errorf("DeleteAll: deleting uploads: %w", err)
	}
	return nil
}
