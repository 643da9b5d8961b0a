package tasklock

import "context"

type TodoID string

func (id TodoID) String() string {
	return string(id)
}

type Todo interface {
	GetID() TodoID

	// GetAuthor returns the owning principal, set at creation and immutable
	// thereafter.
	GetAuthor() string

	GetTitle() string
	GetBody() string
	IsDone() bool

	Update(TodoUpdate) error
	Erase() error
}

// TodoUpdate carries the mutable fields of a todo; nil fields are untouched.
type TodoUpdate struct {
	Title *string
	Body  *string
	Done  *bool
}

type TodoService interface {
	GetTodo(context.Context, TodoID) (Todo, error)
	CreateTodo(context.Context, TodoID, string, TodoUpdate) (Todo, error)
}
