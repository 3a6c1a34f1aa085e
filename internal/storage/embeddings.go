package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// GetDiseaseEmbedding returns the stored vector for a disease, or nil if none exists.
func (s *SQLiteStore) GetDiseaseEmbedding(diseaseID int, model string) (*DiseaseEmbedding, error) {
	var e DiseaseEmbedding
	err := s.db.QueryRow(
		`SELECT disease_id, model, content_hash, embedding, updated_at
		 FROM disease_embeddings WHERE disease_id = ? AND model = ?`,
		diseaseID, model,
	).Scan(&e.DiseaseID, &e.Model, &e.ContentHash, &e.Embedding, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding for disease %d: %w", diseaseID, err)
	}
	return &e, nil
}

// UpsertDiseaseEmbedding stores or replaces a disease vector.
func (s *SQLiteStore) UpsertDiseaseEmbedding(e *DiseaseEmbedding) error {
	_, err := s.db.Exec(
		`INSERT INTO disease_embeddings (disease_id, model, content_hash, embedding, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(disease_id, model) DO UPDATE SET
		   content_hash = excluded.content_hash,
		   embedding = excluded.embedding,
		   updated_at = excluded.updated_at`,
		e.DiseaseID, e.Model, e.ContentHash, e.Embedding,
	)
	if err != nil {
		return fmt.Errorf("upsert embedding for disease %d: %w", e.DiseaseID, err)
	}
	return nil
}

// ListDiseaseEmbeddings returns every stored vector for a model.
func (s *SQLiteStore) ListDiseaseEmbeddings(model string) ([]DiseaseEmbedding, error) {
	rows, err := s.db.Query(
		`SELECT disease_id, model, content_hash, embedding, updated_at
		 FROM disease_embeddings WHERE model = ? ORDER BY disease_id`,
		model,
	)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	defer rows.Close()

	var out []DiseaseEmbedding
	for rows.Next() {
		var e DiseaseEmbedding
		if err := rows.Scan(&e.DiseaseID, &e.Model, &e.ContentHash, &e.Embedding, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
