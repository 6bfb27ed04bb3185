package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listContacts = `
SELECT c.id, c.name, c.account_class, c.currency,
       COALESCE(SUM(i.net_due), 0) AS total_due, c.created_at
FROM contacts c
LEFT JOIN invoices i ON i.contact_id = c.id AND i.net_due <> 0
WHERE ($1::int IS NULL OR c.account_class = $1)
GROUP BY c.id
ORDER BY c.name
LIMIT $2 OFFSET $3
`

type ListContactsParams struct {
	AccountClass pgtype.Int4
	Limit        int32
	Offset       int32
}

// ListContacts returns contacts with their outstanding totals.
func (q *Queries) ListContacts(ctx context.Context, arg ListContactsParams) ([]Contact, error) {
	rows, err := q.db.Query(ctx, listContacts, arg.AccountClass, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.AccountClass, &c.Currency, &c.TotalDue, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const getContact = `
SELECT c.id, c.name, c.account_class, c.currency,
       COALESCE(SUM(i.net_due), 0) AS total_due, c.created_at
FROM contacts c
LEFT JOIN invoices i ON i.contact_id = c.id AND i.net_due <> 0
WHERE c.id = $1
GROUP BY c.id
`

func (q *Queries) GetContact(ctx context.Context, id int64) (Contact, error) {
	var c Contact
	err := q.db.QueryRow(ctx, getContact, id).Scan(
		&c.ID, &c.Name, &c.AccountClass, &c.Currency, &c.TotalDue, &c.CreatedAt,
	)
	return c, err
}
