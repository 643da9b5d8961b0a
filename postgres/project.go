package postgres

import (
	"context"
	"time"

	"selwood.net/tasklock"
)

type dbProject struct {
	Name        string    `db:"name"`
	Author      string    `db:"author"`
	Description string    `db:"description"`
	UpdatedAt   time.Time `db:"updated_at"`

	roles tasklock.RoleLists

	conn *conn
	ctx  context.Context
}

type dbProjectRole struct {
	Principal string `db:"principal"`
	State     int    `db:"state"`
}

// loadRoles populates the role lists from project_roles. The author comes
// from the projects row itself.
func (p *dbProject) loadRoles() error {
	var rows []dbProjectRole
	if err := p.conn.db.SelectContext(p.ctx, &rows,
		`SELECT principal, state FROM project_roles WHERE project_name = $1 ORDER BY principal`, p.Name); err != nil {
		return wrapError(err)
	}

	rl := tasklock.RoleLists{Author: p.Author}
	for _, r := range rows {
		switch tasklock.RoleState(r.State) {
		case tasklock.RoleStateInvited:
			rl.Invitations = append(rl.Invitations, r.Principal)
		case tasklock.RoleStateContributor:
			rl.Contributors = append(rl.Contributors, r.Principal)
		}
	}
	p.roles = rl
	return nil
}

func (p *dbProject) GetName() string {
	return p.Name
}

func (p *dbProject) GetAuthor() string {
	return p.Author
}

func (p *dbProject) GetDescription() string {
	return p.Description
}

func (p *dbProject) GetRoleLists() tasklock.RoleLists {
	return p.roles
}

func (p *dbProject) Update(u tasklock.ProjectUpdate) error {
	if u.Description == nil {
		return nil
	}

	d := *u.Description
	if _, err := p.conn.db.ExecContext(p.ctx,
		`UPDATE projects SET description = $1, updated_at = NOW() WHERE name = $2`, d, p.Name); err != nil {
		return wrapError(err)
	}
	p.Description = d
	return nil
}

func (p *dbProject) Erase() error {
	if _, err := p.conn.db.ExecContext(p.ctx, `DELETE FROM projects WHERE name = $1`, p.Name); err != nil {
		return wrapError(err)
	}
	return nil
}
