package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"selwood.net/tasklock"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type conn struct {
	db  *sqlx.DB
	log logrus.FieldLogger
}

var _ tasklock.UserService = &conn{}
var _ tasklock.TodoService = &conn{}
var _ tasklock.ProjectService = &conn{}

// Option configures a connection before the schema migration runs.
type Option func(*conn)

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *conn) {
		c.log = log
	}
}

func isForeignKeyError(err error) bool {
	pqe, ok := err.(*pq.Error)
	return ok && pqe.Code == pq.ErrorCode("23503")
}

// wrapError folds driver errors into the service error space. Absence maps
// to ErrNotFound; anything else is a store failure, never an authorization
// verdict.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return tasklock.ErrNotFound
	}
	return fmt.Errorf("%w: %v", tasklock.ErrStoreUnavailable, err)
}

func Open(connection string, options ...Option) (*conn, error) {
	if connection == "" {
		return nil, errors.New("postgres: no connection string provided")
	}

	c := &conn{
		log: logrus.StandardLogger(),
	}
	for _, o := range options {
		o(c)
	}

	db, err := sqlx.Open("postgres", connection)
	if err != nil {
		return nil, err
	}
	c.db = db

	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return c, nil
}

func (c *conn) Close() error {
	return c.db.Close()
}

// User

func (c *conn) getUserWithQuery(ctx context.Context, query string, args ...interface{}) (tasklock.User, error) {
	u := dbUser{
		conn: c,
		ctx:  ctx,
	}

	if err := c.db.GetContext(ctx, &u, `SELECT name, email, public_key, updated_at FROM users WHERE `+query+` LIMIT 1`, args...); err != nil {
		return nil, wrapError(err)
	}

	return &u, nil
}

func (c *conn) GetUserNamed(ctx context.Context, name string) (tasklock.User, error) {
	return c.getUserWithQuery(ctx, "name = $1", name)
}

func (c *conn) CreateUser(ctx context.Context, name string, u tasklock.UserUpdate) (tasklock.User, error) {
	du := &dbUser{
		Name: name,
		conn: c,
		ctx:  ctx,
	}
	if u.Email != nil {
		du.Email = *u.Email
	}
	if u.PublicKey != nil {
		du.PublicKey = *u.PublicKey
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO users(name, email, public_key, updated_at)
		VALUES($1, $2, $3, NOW())
		ON CONFLICT(name)
		DO
			UPDATE SET email = EXCLUDED.email,
			           public_key = EXCLUDED.public_key,
			           updated_at = NOW()
		`, name, du.Email, du.PublicKey)
	if err != nil {
		return nil, wrapError(err)
	}

	return du, nil
}

func (c *conn) UserExists(ctx context.Context, name string) (bool, error) {
	var n int
	if err := c.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE name = $1`, name); err != nil {
		return false, wrapError(err)
	}
	return n > 0, nil
}

// PublicKeyOf serves challenge generation; a user without a stored key is
// indistinguishable from an unknown one.
func (c *conn) PublicKeyOf(ctx context.Context, name string) (string, error) {
	var key string
	err := c.db.GetContext(ctx, &key, `SELECT public_key FROM users WHERE name = $1 LIMIT 1`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", tasklock.ErrUnknownPrincipal
		}
		return "", wrapError(err)
	}
	if key == "" {
		return "", tasklock.ErrUnknownPrincipal
	}
	return key, nil
}

// Todo

func (c *conn) GetTodo(ctx context.Context, id tasklock.TodoID) (tasklock.Todo, error) {
	t := dbTodo{
		conn: c,
		ctx:  ctx,
	}

	if err := c.db.GetContext(ctx, &t, `SELECT id, author, title, body, done, updated_at FROM todos WHERE id = $1 LIMIT 1`, string(id)); err != nil {
		return nil, wrapError(err)
	}

	return &t, nil
}

func (c *conn) CreateTodo(ctx context.Context, id tasklock.TodoID, author string, u tasklock.TodoUpdate) (tasklock.Todo, error) {
	t := &dbTodo{
		ID:     string(id),
		Author: author,
		conn:   c,
		ctx:    ctx,
	}
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Body != nil {
		t.Body = *u.Body
	}
	if u.Done != nil {
		t.Done = *u.Done
	}

	// Replacement keeps the original author; only the payload fields follow
	// the incoming representation.
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO todos(id, author, title, body, done, updated_at)
		VALUES($1, $2, $3, $4, $5, NOW())
		ON CONFLICT(id)
		DO
			UPDATE SET title = EXCLUDED.title,
			           body = EXCLUDED.body,
			           done = EXCLUDED.done,
			           updated_at = NOW()
		`, t.ID, t.Author, t.Title, t.Body, t.Done)
	if err != nil {
		if isForeignKeyError(err) {
			return nil, tasklock.ErrUnknownLinkedUser
		}
		return nil, wrapError(err)
	}

	return t, nil
}

// Project

func (c *conn) GetProject(ctx context.Context, name string) (tasklock.Project, error) {
	p := dbProject{
		conn: c,
		ctx:  ctx,
	}

	if err := c.db.GetContext(ctx, &p, `SELECT name, author, description, updated_at FROM projects WHERE name = $1 LIMIT 1`, name); err != nil {
		return nil, wrapError(err)
	}

	if err := p.loadRoles(); err != nil {
		return nil, err
	}

	return &p, nil
}

func (c *conn) CreateProject(ctx context.Context, name, author string, u tasklock.ProjectUpdate) (tasklock.Project, error) {
	p := &dbProject{
		Name:   name,
		Author: author,
		conn:   c,
		ctx:    ctx,
	}
	if u.Description != nil {
		p.Description = *u.Description
	}

	// Role assignments survive a full replacement; they change only through
	// ApplyRoleDelta.
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO projects(name, author, description, updated_at)
		VALUES($1, $2, $3, NOW())
		ON CONFLICT(name)
		DO
			UPDATE SET description = EXCLUDED.description,
			           updated_at = NOW()
		`, name, author, p.Description)
	if err != nil {
		if isForeignKeyError(err) {
			return nil, tasklock.ErrUnknownLinkedUser
		}
		return nil, wrapError(err)
	}

	if err := p.loadRoles(); err != nil {
		return nil, err
	}

	return p, nil
}

func (c *conn) ApplyRoleDelta(ctx context.Context, name string, delta tasklock.RoleDelta) error {
	var res sql.Result
	var err error

	switch {
	case delta.From == tasklock.RoleStateNone:
		res, err = c.db.ExecContext(ctx, `
			INSERT INTO project_roles(project_name, principal, state)
			VALUES($1, $2, $3)
			ON CONFLICT(project_name, principal) DO NOTHING
			`, name, delta.Principal, int(delta.To))
		if err != nil && isForeignKeyError(err) {
			return tasklock.ErrUnknownLinkedUser
		}
	case delta.To == tasklock.RoleStateNone:
		res, err = c.db.ExecContext(ctx,
			`DELETE FROM project_roles WHERE project_name = $1 AND principal = $2 AND state = $3`,
			name, delta.Principal, int(delta.From))
	default:
		res, err = c.db.ExecContext(ctx,
			`UPDATE project_roles SET state = $4 WHERE project_name = $1 AND principal = $2 AND state = $3`,
			name, delta.Principal, int(delta.From), int(delta.To))
	}
	if err != nil {
		return wrapError(err)
	}

	// A zero row count means the principal's standing changed underneath
	// us; the caller must re-read and re-authorize.
	n, err := res.RowsAffected()
	if err != nil {
		return wrapError(err)
	}
	if n == 0 {
		return tasklock.ErrConflict
	}
	return nil
}
