package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/minaret-app/minaret/internal/model"
)

func (s *pgStore) ListVerifiedMosques(ctx context.Context) ([]model.Mosque, error) {
	var mosques []model.Mosque
	err := s.db.SelectContext(ctx, &mosques, `
		SELECT id, name, latitude, longitude, geofence_radius_m, verified, created_at
		FROM mosques
		WHERE verified = TRUE
		ORDER BY created_at, id
		`)
	return mosques, err
}

func (s *pgStore) GetMosqueByID(ctx context.Context, id string) (*model.Mosque, error) {
	var m model.Mosque
	err := s.db.GetContext(ctx, &m, `
		SELECT id, name, latitude, longitude, geofence_radius_m, verified, created_at
		FROM mosques
		WHERE id = $1
		`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
