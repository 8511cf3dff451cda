// exposes a Store interface that is passed to the mosque directory and the
// visit recorder
package db

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/minaret-app/minaret/internal/model"
)

type Store interface {
	// mosque functions
	ListVerifiedMosques(ctx context.Context) ([]model.Mosque, error)
	GetMosqueByID(ctx context.Context, id string) (*model.Mosque, error)

	// visit functions
	OpenVisit(ctx context.Context, userID, mosqueID string, enteredAt time.Time) (string, error)
	CloseVisit(ctx context.Context, userID, mosqueID string, exitedAt time.Time, durationMinutes int) error
	ListVisits(ctx context.Context, userID string, limit int) ([]model.Visit, error)
}

type pgStore struct {
	db *sqlx.DB
}

// compile-time check that pgStore implements Store
var _ Store = (*pgStore)(nil)

func NewStore() Store {
	return &pgStore{db: DB}
}

// NewStoreWith builds a Store over an explicit connection, for tests.
func NewStoreWith(conn *sqlx.DB) Store {
	return &pgStore{db: conn}
}
