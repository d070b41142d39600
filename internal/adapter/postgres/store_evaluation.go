package postgres

import (
	"context"
	"fmt"

	"github.com/caadev/tutortrainer/internal/domain/evaluation"
)

func (s *Store) CreateEvaluation(ctx context.Context, e *evaluation.Evaluation) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO evaluations (id, user_id, conversation_name, quality, confidence, text, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.UserID, e.Name, e.Quality, e.Confidence, e.Text, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("create evaluation: %w", err)
	}
	return nil
}

func (s *Store) ListEvaluations(ctx context.Context, userID int, name string) ([]evaluation.Evaluation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, conversation_name, quality, confidence, text, created_at
		 FROM evaluations WHERE user_id = $1 AND conversation_name = $2 ORDER BY created_at`,
		userID, name)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()

	var result []evaluation.Evaluation
	for rows.Next() {
		var e evaluation.Evaluation
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &e.Quality, &e.Confidence, &e.Text, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
