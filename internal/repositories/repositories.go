package repositories

import (
	"database/sql"
	"fmt"
	"regexp"
)

var sequenceTable = regexp.MustCompile(`^[a-z_]+$`)

// nextSequence bumps the "<table>_sequence" counter inside tx and returns the new value.
//
// Running it in the caller's transaction means a failed insert does not burn a number.
func nextSequence(tx *sql.Tx, table string) (int, error) {
	if !sequenceTable.MatchString(table) {
		return 0, fmt.Errorf("invalid sequence table %q", table)
	}

	var sequence int
	err := tx.QueryRow(fmt.Sprintf(
		"UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table,
	)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}
	return sequence, nil
}
