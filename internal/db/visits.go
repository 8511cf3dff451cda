package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/minaret-app/minaret/internal/model"
)

// OpenVisit records an entry. Any visit still open for the same user and
// mosque is left alone; the engine guarantees strict Enter/Exit alternation,
// so an open one here means a crashed session and will be closed by the next
// exit.
func (s *pgStore) OpenVisit(ctx context.Context, userID, mosqueID string, enteredAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visits (id, user_id, mosque_id, entered_at)
		VALUES ($1, $2, $3, $4)
		`, id, userID, mosqueID, enteredAt)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Str("mosque", mosqueID).Msg("failed to open visit")
		return "", err
	}
	return id, nil
}

// CloseVisit stamps the most recent open visit for the pair with the exit
// time and duration.
func (s *pgStore) CloseVisit(ctx context.Context, userID, mosqueID string, exitedAt time.Time, durationMinutes int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE visits
		SET exited_at = $3,
		duration_minutes = $4
		WHERE id = (
			SELECT id FROM visits
			WHERE user_id = $1 AND mosque_id = $2 AND exited_at IS NULL
			ORDER BY entered_at DESC
			LIMIT 1
		)
		`, userID, mosqueID, exitedAt, durationMinutes)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Str("mosque", mosqueID).Msg("failed to close visit")
	}
	return err
}

func (s *pgStore) ListVisits(ctx context.Context, userID string, limit int) ([]model.Visit, error) {
	var visits []model.Visit
	err := s.db.SelectContext(ctx, &visits, `
		SELECT id, user_id, mosque_id, entered_at, exited_at, duration_minutes
		FROM visits
		WHERE user_id = $1
		ORDER BY entered_at DESC
		LIMIT $2
		`, userID, limit)
	return visits, err
}
