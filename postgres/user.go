package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"selwood.net/tasklock"
)

type dbUser struct {
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	PublicKey string    `db:"public_key"`
	UpdatedAt time.Time `db:"updated_at"`

	conn *conn
	ctx  context.Context
}

func (u *dbUser) GetName() string {
	return u.Name
}

func (u *dbUser) GetEmail() string {
	return u.Email
}

func (u *dbUser) GetPublicKey() string {
	return u.PublicKey
}

func (u *dbUser) Update(up tasklock.UserUpdate) error {
	clauses := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	// resolutions run only once the statement has succeeded, so the
	// in-memory record never drifts from the row.
	resolutions := make([]func(), 0, 2)

	if up.Email != nil {
		e := *up.Email
		clauses = append(clauses, `email = ?`)
		args = append(args, e)
		resolutions = append(resolutions, func() {
			u.Email = e
		})
	}

	if up.PublicKey != nil {
		k := *up.PublicKey
		clauses = append(clauses, `public_key = ?`)
		args = append(args, k)
		resolutions = append(resolutions, func() {
			u.PublicKey = k
		})
	}

	if len(clauses) == 0 {
		return nil
	}

	args = append(args, u.Name)
	query := fmt.Sprintf(`UPDATE users SET %s, updated_at = NOW() WHERE name = ?`, strings.Join(clauses, ", "))
	rebound := sqlx.Rebind(sqlx.DOLLAR, query)

	if _, err := u.conn.db.ExecContext(u.ctx, rebound, args...); err != nil {
		return wrapError(err)
	}

	for _, f := range resolutions {
		f()
	}
	return nil
}

func (u *dbUser) Erase() error {
	if _, err := u.conn.db.ExecContext(u.ctx, `DELETE FROM users WHERE name = $1`, u.Name); err != nil {
		return wrapError(err)
	}
	return nil
}
