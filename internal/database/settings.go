package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const getSetting = `
SELECT key, value, updated_at FROM settings WHERE key = $1
`

func (q *Queries) GetSetting(ctx context.Context, key string) (Setting, error) {
	var s Setting
	err := q.db.QueryRow(ctx, getSetting, key).Scan(&s.Key, &s.Value, &s.UpdatedAt)
	return s, err
}

const upsertSetting = `
INSERT INTO settings (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
RETURNING key, value, updated_at
`

type UpsertSettingParams struct {
	Key   string
	Value string
}

func (q *Queries) UpsertSetting(ctx context.Context, arg UpsertSettingParams) (Setting, error) {
	var s Setting
	err := q.db.QueryRow(ctx, upsertSetting, arg.Key, arg.Value).Scan(&s.Key, &s.Value, &s.UpdatedAt)
	return s, err
}

// GetQueuePaymentsSetting reads the queue_payments flag. A missing row
// means immediate posting.
func (q *Queries) GetQueuePaymentsSetting(ctx context.Context) (bool, error) {
	s, err := q.GetSetting(ctx, "queue_payments")
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return s.Value == "1" || s.Value == "true" || s.Value == "yes", nil
}
