package authz

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"selwood.net/tasklock"
)

type fakeDirectory struct {
	users map[string]bool
	err   error
}

func (d *fakeDirectory) UserExists(_ context.Context, name string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.users[name], nil
}

type stubValidator struct {
	truths map[string]string
	calls  int
}

func (v *stubValidator) Validate(principal, solution string) bool {
	v.calls++
	truth, ok := v.truths[principal]
	return ok && truth == solution
}

func newTestGuard(names ...string) (*Guard, *stubValidator) {
	users := make(map[string]bool)
	truths := make(map[string]string)
	for _, n := range names {
		users[n] = true
		truths[n] = "truth-" + n
	}
	v := &stubValidator{truths: truths}
	return NewGuard(NewEngine(&fakeDirectory{users: users}), v), v
}

func solved(name string) string {
	return "truth-" + name
}

func TestDualRoleClaimRejectedFirst(t *testing.T) {
	g, v := newTestGuard("alice", "bob")

	d := g.Authorize(context.Background(), tasklock.AuthRequest{
		Resource:    tasklock.ResourceProject,
		Method:      http.MethodPost,
		Author:      "alice",
		Contributor: "bob",
		Solution:    solved("alice"),
	}, tasklock.RoleLists{Author: "alice"})

	if d.Permit || d.Err != tasklock.ErrDualRoleClaim {
		t.Fatalf("expected ErrDualRoleClaim, got %+v", d)
	}
	if v.calls != 0 {
		t.Fatal("solution validated before the dual-role check")
	}
}

func TestImmutableRoleFields(t *testing.T) {
	g, _ := newTestGuard("alice")

	for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodDelete} {
		d := g.Authorize(context.Background(), tasklock.AuthRequest{
			Resource:         tasklock.ResourceProject,
			Method:           method,
			Exists:           true,
			Author:           "alice",
			Solution:         solved("alice"),
			WritesRoleFields: true,
		}, tasklock.RoleLists{Author: "alice"})
		if d.Permit || d.Err != tasklock.ErrImmutableRoleFields {
			t.Fatalf("%s: expected ErrImmutableRoleFields, got %+v", method, d)
		}
	}
}

func TestUserMutation(t *testing.T) {
	g, _ := newTestGuard("alice")
	roles := tasklock.RoleLists{Author: "alice"}

	t.Run("ValidSolution", func(t *testing.T) {
		d := g.Authorize(context.Background(), tasklock.AuthRequest{
			Resource: tasklock.ResourceUser,
			Method:   http.MethodPatch,
			Exists:   true,
			Solution: solved("alice"),
		}, roles)
		if !d.Permit {
			t.Fatalf("expected permit, got %+v", d)
		}
	})

	t.Run("WrongSolution", func(t *testing.T) {
		d := g.Authorize(context.Background(), tasklock.AuthRequest{
			Resource: tasklock.ResourceUser,
			Method:   http.MethodDelete,
			Exists:   true,
			Solution: "wrong",
		}, roles)
		if d.Permit || d.Err != tasklock.ErrUnauthorized {
			t.Fatalf("expected ErrUnauthorized, got %+v", d)
		}
	})

	t.Run("MismatchedAuthorClaim", func(t *testing.T) {
		d := g.Authorize(context.Background(), tasklock.AuthRequest{
			Resource: tasklock.ResourceUser,
			Method:   http.MethodPatch,
			Exists:   true,
			Author:   "mallory",
			Solution: solved("alice"),
		}, roles)
		if d.Permit || d.Err != tasklock.ErrUnauthorized {
			t.Fatalf("expected ErrUnauthorized, got %+v", d)
		}
	})
}

func TestTodoRules(t *testing.T) {
	g, _ := newTestGuard("alice", "bob")

	t.Run("CreateAsAuthor", func(t *testing.T) {
		d := g.Authorize(context.Background(), tasklock.AuthRequest{
			Resource: tasklock.ResourceTodo,
			Method:   http.MethodPut,
			Author:   "alice",
			Solution: solved("alice"),
		}, tasklock.RoleLists{})
		if !d.Permit {
			t.Fatalf("expected permit, got %+v", d)
		}
	})

	t.Run("CreateAsContributor", func(t *testing.T) {
		d := g.Authorize(context.Background(), tasklock.AuthRequest{
			Resource:    tasklock.ResourceTodo,
			Method:      http.MethodPut,
			Contributor: "bob",
			Solution:    solved("bob"),
		}, tasklock.RoleLists{})
		if !d.Permit {
			t.Fatalf("expected permit, got %+v", d)
		}
	})

	t.Run("ReplaceByOther", func(t *testing.T) {
		d := g.Authorize(context.Background(), tasklock.AuthRequest{
			Resource: tasklock.ResourceTodo,
			Method:   http.MethodPut,
			Exists:   true,
			Author:   "bob",
			Solution: solved("bob"),
		}, tasklock.RoleLists{Author: "alice"})
		if d.Permit || d.Err != tasklock.ErrUnauthorized {
			t.Fatalf("expected ErrUnauthorized, got %+v", d)
		}
	})

	t.Run("PatchByAuthor", func(t *testing.T) {
		d := g.Authorize(context.Background(), tasklock.AuthRequest{
			Resource: tasklock.ResourceTodo,
			Method:   http.MethodPatch,
			Exists:   true,
			Author:   "alice",
			Solution: solved("alice"),
		}, tasklock.RoleLists{Author: "alice"})
		if !d.Permit {
			t.Fatalf("expected permit, got %+v", d)
		}
	})

	t.Run("NoClaim", func(t *testing.T) {
		d := g.Authorize(context.Background(), tasklock.AuthRequest{
			Resource: tasklock.ResourceTodo,
			Method:   http.MethodDelete,
			Exists:   true,
			Solution: solved("alice"),
		}, tasklock.RoleLists{Author: "alice"})
		if d.Permit || d.Err != tasklock.ErrUnauthorized {
			t.Fatalf("expected ErrUnauthorized, got %+v", d)
		}
	})
}

func TestProjectAuthorOnlyWrites(t *testing.T) {
	g, _ := newTestGuard("alice", "bob")
	roles := tasklock.RoleLists{Author: "alice", Contributors: []string{"bob"}}

	t.Run("ContributorPatchReadsAsMissingAuthor", func(t *testing.T) {
		d := g.Authorize(context.Background(), tasklock.AuthRequest{
			Resource:    tasklock.ResourceProject,
			Method:      http.MethodPatch,
			Exists:      true,
			Contributor: "bob",
			Solution:    solved("bob"),
		}, roles)
		if d.Permit || d.Err != tasklock.ErrAuthorRequired {
			t.Fatalf("expected ErrAuthorRequired, got %+v", d)
		}
	})

	t.Run("NoClaim", func(t *testing.T) {
		d := g.Authorize(context.Background(), tasklock.AuthRequest{
			Resource: tasklock.ResourceProject,
			Method:   http.MethodPut,
			Exists:   true,
			Solution: solved("alice"),
		}, roles)
		if d.Permit || d.Err != tasklock.ErrAuthorRequired {
			t.Fatalf("expected ErrAuthorRequired, got %+v", d)
		}
	})

	t.Run("ContributorDelete", func(t *testing.T) {
		d := g.Authorize(context.Background(), tasklock.AuthRequest{
			Resource:    tasklock.ResourceProject,
			Method:      http.MethodDelete,
			Exists:      true,
			Contributor: "bob",
			Solution:    solved("bob"),
		}, roles)
		if d.Permit || d.Err != tasklock.ErrUnauthorized {
			t.Fatalf("expected ErrUnauthorized, got %+v", d)
		}
	})

	t.Run("AuthorPatch", func(t *testing.T) {
		d := g.Authorize(context.Background(), tasklock.AuthRequest{
			Resource: tasklock.ResourceProject,
			Method:   http.MethodPatch,
			Exists:   true,
			Author:   "alice",
			Solution: solved("alice"),
		}, roles)
		if !d.Permit {
			t.Fatalf("expected permit, got %+v", d)
		}
	})
}

func TestStoreFailureIsNotUnauthorized(t *testing.T) {
	v := &stubValidator{truths: map[string]string{"alice": "truth-alice"}}
	g := NewGuard(NewEngine(&fakeDirectory{err: errors.New("connection refused")}), v)

	d := g.Authorize(context.Background(), tasklock.AuthRequest{
		Resource: tasklock.ResourceUser,
		Method:   http.MethodPatch,
		Exists:   true,
		Solution: solved("alice"),
	}, tasklock.RoleLists{Author: "alice"})

	if d.Permit {
		t.Fatal("expected denial")
	}
	if !errors.Is(d.Err, tasklock.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", d.Err)
	}
	if errors.Is(d.Err, tasklock.ErrUnauthorized) {
		t.Fatal("store failure must not read as an authentication failure")
	}
	if IsRoleError(d.Err) {
		t.Fatal("store failure must not classify as a role verdict")
	}
}

func TestUnknownClaimedPrincipal(t *testing.T) {
	g, _ := newTestGuard("alice")

	d := g.Authorize(context.Background(), tasklock.AuthRequest{
		Resource: tasklock.ResourceTodo,
		Method:   http.MethodPut,
		Author:   "ghost",
		Solution: "anything",
	}, tasklock.RoleLists{})

	if d.Permit || d.Err != tasklock.ErrUnknownLinkedUser {
		t.Fatalf("expected ErrUnknownLinkedUser, got %+v", d)
	}
}
