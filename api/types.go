package api

import (
	"context"

	"board-sync/board"
	"board-sync/domain"
)

// Board abstracts the sync engine for handlers.
type Board interface {
	Columns() board.Columns
	View(f board.Filters) board.Columns
	Snapshot() []domain.Task
	GetByIdentity(id string) (domain.Task, bool)
	Drop(ctx context.Context, d board.Drop)
	Refresh(ctx context.Context) error
	Create(ctx context.Context, listID string, payload domain.Task) (domain.Task, error)
	Update(ctx context.Context, taskID string, payload domain.Task) (domain.Task, error)
	Delete(ctx context.Context, taskID string) error
}

// Authenticator is implemented by types able to extract user IDs from
// Authorization headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}
