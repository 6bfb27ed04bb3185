package database

import (
	"context"

	"github.com/google/uuid"
)

const getUserByEmail = `
SELECT id, email, full_name, hashed_password, role, created_at
FROM users WHERE email = $1
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, getUserByEmail, email).Scan(
		&u.ID, &u.Email, &u.FullName, &u.HashedPassword, &u.Role, &u.CreatedAt,
	)
	return u, err
}

const getUserByID = `
SELECT id, email, full_name, hashed_password, role, created_at
FROM users WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, getUserByID, id).Scan(
		&u.ID, &u.Email, &u.FullName, &u.HashedPassword, &u.Role, &u.CreatedAt,
	)
	return u, err
}

const createUser = `
INSERT INTO users (email, full_name, hashed_password, role)
VALUES ($1, $2, $3, $4)
RETURNING id, email, full_name, hashed_password, role, created_at
`

type CreateUserParams struct {
	Email          string
	FullName       string
	HashedPassword string
	Role           string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, createUser, arg.Email, arg.FullName, arg.HashedPassword, arg.Role).Scan(
		&u.ID, &u.Email, &u.FullName, &u.HashedPassword, &u.Role, &u.CreatedAt,
	)
	return u, err
}

const listUsers = `
SELECT id, email, full_name, hashed_password, role, created_at
FROM users ORDER BY created_at
`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.HashedPassword, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}
