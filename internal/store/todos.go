package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
)

// TodoRepo is the repository for the todos store.
type TodoRepo struct {
	gw    *Gateway
	store objectStore[Todo]
}

func NewTodoRepo(g *Gateway) *TodoRepo {
	return &TodoRepo{
		gw:    g,
		store: objectStore[Todo]{gw: g, name: StoreTodos, orderBy: orderByIndex("createdAt")},
	}
}

func (r *TodoRepo) Create(ctx context.Context, t Todo) (Outcome, error) {
	const op = "create todo"
	if err := t.Validate(); err != nil {
		return "", newError(KindValidation, op, err)
	}
	if err := r.store.add(ctx, op, t.ID, t); err != nil {
		return "", err
	}
	return OutcomeTodoAdded, nil
}

// List returns every todo, incomplete first, then by priority, then oldest
// first.
func (r *TodoRepo) List(ctx context.Context) ([]Todo, error) {
	todos, err := r.store.getAll(ctx, "list todos")
	if err != nil {
		return todos, err
	}
	SortTodos(todos)
	return todos, nil
}

func (r *TodoRepo) Get(ctx context.Context, id string) (Todo, error) {
	return r.store.get(ctx, "get todo", id)
}

// Update replaces the stored todo with t, creating it when absent.
func (r *TodoRepo) Update(ctx context.Context, t Todo) (Outcome, error) {
	const op = "update todo"
	if err := t.Validate(); err != nil {
		return "", newError(KindValidation, op, err)
	}
	if err := r.store.put(ctx, op, t.ID, t); err != nil {
		return "", err
	}
	return OutcomeTodoUpdated, nil
}

func (r *TodoRepo) Delete(ctx context.Context, id string) (Outcome, error) {
	if err := r.store.remove(ctx, "delete todo", id); err != nil {
		return "", err
	}
	return OutcomeTodoDeleted, nil
}

func (r *TodoRepo) DeleteAll(ctx context.Context) (Outcome, error) {
	if err := r.store.clear(ctx, "delete all todos"); err != nil {
		return "", err
	}
	return OutcomeTodosCleared, nil
}

// ToggleComplete flips the completion flag of one todo. Completing stamps
// completedAt with the current time; reopening clears it. The read and the
// write share one transaction.
func (r *TodoRepo) ToggleComplete(ctx context.Context, id string) (Todo, Outcome, error) {
	const op = "toggle todo"
	var out Todo
	err := r.gw.withTx(ctx, op, func(tx *sqlx.Tx) error {
		t, ok, err := r.store.getTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return newError(KindNotFound, op, fmt.Errorf("todo %q", id))
		}
		t.IsCompleted = !t.IsCompleted
		if t.IsCompleted {
			ts := ISOTimestamp(r.gw.now())
			t.CompletedAt = &ts
		} else {
			t.CompletedAt = nil
		}
		out = t
		return r.store.putTx(ctx, tx, t.ID, t)
	})
	if err != nil {
		return Todo{}, "", err
	}
	if out.IsCompleted {
		return out, OutcomeTodoCompleted, nil
	}
	return out, OutcomeTodoUncompleted, nil
}

// SortTodos orders todos the way List returns them. The sort is stable, so
// ties keep their incoming order.
func SortTodos(todos []Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		a, b := todos[i], todos[j]
		if a.IsCompleted != b.IsCompleted {
			return !a.IsCompleted
		}
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra < rb
		}
		return createdBefore(a.CreatedAt, b.CreatedAt)
	})
}

func createdBefore(a, b string) bool {
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	if errA == nil && errB == nil {
		return ta.Before(tb)
	}
	return a < b
}
