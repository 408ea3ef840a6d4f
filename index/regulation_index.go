// Package index holds an in-memory full-text index over the regulation
// corpus, used when no database is configured.
package index

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/lang/en"
	"github.com/google/uuid"

	"pharmassist-backend/models"
	"pharmassist-backend/storage"
)

const titleBoost = 2.0

// RegulationIndex ranks regulation documents with bleve. Ties in score are
// broken by insertion order.
type RegulationIndex struct {
	mu      sync.RWMutex
	index   bleve.Index
	docs    map[string]models.RegulationDocument
	byTitle map[string]string
	seq     int
}

type indexedDoc struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NewRegulationIndex creates an empty in-memory index
func NewRegulationIndex() (*RegulationIndex, error) {
	mapping := bleve.NewIndexMapping()
	mapping.DefaultAnalyzer = en.AnalyzerName

	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create regulation index: %w", err)
	}
	return &RegulationIndex{
		index:   idx,
		docs:    make(map[string]models.RegulationDocument),
		byTitle: make(map[string]string),
	}, nil
}

// LoadFromStorage builds an index from the corpus stored under key
func LoadFromStorage(ctx context.Context, s storage.Storage, key string) (*RegulationIndex, error) {
	docs, err := storage.ReadCorpus(ctx, s, key)
	if err != nil {
		return nil, err
	}
	idx, err := NewRegulationIndex()
	if err != nil {
		return nil, err
	}
	if err := idx.Add(docs...); err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}

// Add indexes docs. A document whose title is already indexed replaces the
// previous one and keeps its position in insertion order. Nothing is
// recorded unless the whole batch is indexed.
func (r *RegulationIndex) Add(docs ...models.RegulationDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seq := r.seq
	newTitles := make(map[string]string)
	staged := make(map[string]models.RegulationDocument, len(docs))

	batch := r.index.NewBatch()
	for _, doc := range docs {
		key := strings.ToLower(strings.TrimSpace(doc.Title))
		id, ok := r.byTitle[key]
		if !ok {
			id, ok = newTitles[key]
		}
		if !ok {
			seq++
			// Zero padding makes _id order equal insertion order
			id = fmt.Sprintf("%010d", seq)
			newTitles[key] = id
		}
		if doc.ID == uuid.Nil {
			doc.ID = uuid.New()
		}
		doc.Score = 0
		staged[id] = doc

		if err := batch.Index(id, indexedDoc{Title: doc.Title, Content: doc.Content}); err != nil {
			return fmt.Errorf("failed to index %q: %w", doc.Title, err)
		}
	}
	if err := r.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index batch: %w", err)
	}

	for key, id := range newTitles {
		r.byTitle[key] = id
	}
	for id, doc := range staged {
		r.docs[id] = doc
	}
	r.seq = seq
	return nil
}

// Search returns up to limit documents matching any term of query, by
// descending score. No match yields an empty slice.
func (r *RegulationIndex) Search(ctx context.Context, query string, limit int) ([]models.RegulationDocument, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil, nil
	}

	title := bleve.NewMatchQuery(query)
	title.SetField("title")
	title.SetBoost(titleBoost)
	content := bleve.NewMatchQuery(query)
	content.SetField("content")

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(title, content), limit, 0, false)
	req.SortBy([]string{"-_score", "_id"})

	r.mu.RLock()
	defer r.mu.RUnlock()

	res, err := r.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("regulation search failed: %w", err)
	}

	docs := make([]models.RegulationDocument, 0, len(res.Hits))
	for _, hit := range res.Hits {
		doc, ok := r.docs[hit.ID]
		if !ok {
			continue
		}
		doc.Score = hit.Score
		docs = append(docs, doc)
	}
	return docs, nil
}

// All returns every indexed document in insertion order
func (r *RegulationIndex) All() []models.RegulationDocument {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.RegulationDocument, 0, len(r.docs))
	for i := 1; i <= r.seq; i++ {
		if doc, ok := r.docs[fmt.Sprintf("%010d", i)]; ok {
			out = append(out, doc)
		}
	}
	return out
}

// Close releases the index
func (r *RegulationIndex) Close() error {
	return r.index.Close()
}
