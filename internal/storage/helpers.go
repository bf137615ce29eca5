package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	// Rollback after a successful Commit reports sql.ErrTxDone, which is expected
	if rErr := rb.Rollback(); rErr != nil && !errors.Is(rErr, sql.ErrTxDone) && *err == nil {
		*err = rErr
	}
}

// toConfigData stores strings and bytes verbatim and anything else as JSON
func toConfigData(config any) (sql.NullString, error) {
	switch c := config.(type) {
	case nil:
		return sql.NullString{}, nil
	case string:
		return sql.NullString{String: c, Valid: true}, nil
	case []byte:
		return sql.NullString{String: string(c), Valid: true}, nil
	default:
		p, err := json.Marshal(c)
		if err != nil {
			return sql.NullString{}, fmt.Errorf("marshaling config: %w", err)
		}
		return sql.NullString{String: string(p), Valid: true}, nil
	}
}

func fromConfigData(config sql.NullString) *string {
	if !config.Valid {
		return nil
	}
	return &config.String
}
