package tasklock

import "context"

type Project interface {
	GetName() string

	// GetAuthor returns the owning principal, set at creation and immutable
	// thereafter.
	GetAuthor() string

	GetDescription() string

	// GetRoleLists returns the project's stored role assignments as they
	// were when the project was loaded.
	GetRoleLists() RoleLists

	Update(ProjectUpdate) error
	Erase() error
}

// ProjectUpdate carries the mutable fields of a project; nil fields are
// untouched. Role lists are not among them: they change only through
// ApplyRoleDelta.
type ProjectUpdate struct {
	Description *string
}

type ProjectService interface {
	GetProject(context.Context, string) (Project, error)
	CreateProject(context.Context, string, string, ProjectUpdate) (Project, error)

	// ApplyRoleDelta applies a single invitation-workflow transition,
	// conditionally on the principal still being in delta.From. A lost
	// condition returns ErrConflict.
	ApplyRoleDelta(ctx context.Context, name string, delta RoleDelta) error
}
