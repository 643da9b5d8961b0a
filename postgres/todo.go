package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"selwood.net/tasklock"
)

type dbTodo struct {
	ID        string    `db:"id"`
	Author    string    `db:"author"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	Done      bool      `db:"done"`
	UpdatedAt time.Time `db:"updated_at"`

	conn *conn
	ctx  context.Context
}

func (t *dbTodo) GetID() tasklock.TodoID {
	return tasklock.TodoID(t.ID)
}

func (t *dbTodo) GetAuthor() string {
	return t.Author
}

func (t *dbTodo) GetTitle() string {
	return t.Title
}

func (t *dbTodo) GetBody() string {
	return t.Body
}

func (t *dbTodo) IsDone() bool {
	return t.Done
}

func (t *dbTodo) Update(u tasklock.TodoUpdate) error {
	clauses := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	resolutions := make([]func(), 0, 3)

	if u.Title != nil {
		v := *u.Title
		clauses = append(clauses, `title = ?`)
		args = append(args, v)
		resolutions = append(resolutions, func() {
			t.Title = v
		})
	}

	if u.Body != nil {
		v := *u.Body
		clauses = append(clauses, `body = ?`)
		args = append(args, v)
		resolutions = append(resolutions, func() {
			t.Body = v
		})
	}

	if u.Done != nil {
		v := *u.Done
		clauses = append(clauses, `done = ?`)
		args = append(args, v)
		resolutions = append(resolutions, func() {
			t.Done = v
		})
	}

	if len(clauses) == 0 {
		return nil
	}

	args = append(args, t.ID)
	query := fmt.Sprintf(`UPDATE todos SET %s, updated_at = NOW() WHERE id = ?`, strings.Join(clauses, ", "))
	rebound := sqlx.Rebind(sqlx.DOLLAR, query)

	if _, err := t.conn.db.ExecContext(t.ctx, rebound, args...); err != nil {
		return wrapError(err)
	}

	for _, f := range resolutions {
		f()
	}
	return nil
}

func (t *dbTodo) Erase() error {
	if _, err := t.conn.db.ExecContext(t.ctx, `DELETE FROM todos WHERE id = $1`, t.ID); err != nil {
		return wrapError(err)
	}
	return nil
}
