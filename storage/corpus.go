package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"pharmassist-backend/models"
)

// ReadCorpus loads a JSON array of regulation documents stored under key.
// Documents without a title or content are rejected, and a missing category
// defaults to General.
func ReadCorpus(ctx context.Context, s Storage, key string) ([]models.RegulationDocument, error) {
	rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var docs []models.RegulationDocument
	if err := json.NewDecoder(rc).Decode(&docs); err != nil {
		return nil, fmt.Errorf("failed to decode corpus %s: %w", key, err)
	}

	for i := range docs {
		docs[i].Title = strings.TrimSpace(docs[i].Title)
		if docs[i].Title == "" || strings.TrimSpace(docs[i].Content) == "" {
			return nil, fmt.Errorf("corpus %s: document %d needs a title and content", key, i)
		}
		if docs[i].Category == "" {
			docs[i].Category = models.CategoryGeneral
		}
		if !docs[i].Category.Valid() {
			return nil, fmt.Errorf("corpus %s: document %q has unknown category %q", key, docs[i].Title, docs[i].Category)
		}
		docs[i].Score = 0
	}
	return docs, nil
}

// WriteCorpus stores docs under key as an indented JSON array
func WriteCorpus(ctx context.Context, s Storage, key string, docs []models.RegulationDocument) error {
	if docs == nil {
		docs = []models.RegulationDocument{}
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode corpus: %w", err)
	}
	return s.Put(ctx, key, bytes.NewReader(data))
}
