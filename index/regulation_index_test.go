package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmassist-backend/models"
	"pharmassist-backend/storage"
)

func corpus() []models.RegulationDocument {
	return []models.RegulationDocument{
		{Title: "Schedule H Rules", Content: "Drugs in Schedule H are sold by retail only on the prescription of a Registered Medical Practitioner.", Category: models.CategoryScheduling},
		{Title: "Cold Storage", Content: "Vaccines and insulin must be stored between 2 and 8 degrees.", Category: models.CategoryStorage},
		{Title: "Prescription Register", Content: "Pharmacists keep a register of Schedule H1 sales for three years.", Category: models.CategoryRecords},
	}
}

func newIndex(t *testing.T) *RegulationIndex {
	t.Helper()
	idx, err := NewRegulationIndex()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	require.NoError(t, idx.Add(corpus()...))
	return idx
}

func TestSearch_RanksTitleMatchesFirst(t *testing.T) {
	idx := newIndex(t)

	docs, err := idx.Search(context.Background(), "What is Schedule H?", 3)
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.Equal(t, "Schedule H Rules", docs[0].Title)
	assert.Greater(t, docs[0].Score, 0.0)
	for i := 1; i < len(docs); i++ {
		assert.GreaterOrEqual(t, docs[i-1].Score, docs[i].Score)
	}
}

func TestSearch_AnyTermMatches(t *testing.T) {
	idx := newIndex(t)

	docs, err := idx.Search(context.Background(), "insulin refrigeration", 3)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Cold Storage", docs[0].Title)
}

func TestSearch_NoMatchIsEmpty(t *testing.T) {
	idx := newIndex(t)

	docs, err := idx.Search(context.Background(), "ayurveda licensing", 3)
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = idx.Search(context.Background(), "   ", 3)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSearch_Limit(t *testing.T) {
	idx := newIndex(t)

	docs, err := idx.Search(context.Background(), "schedule prescription register vaccines", 2)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	idx, err := NewRegulationIndex()
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Add(
		models.RegulationDocument{Title: "Notice A", Content: "narcotic"},
		models.RegulationDocument{Title: "Notice B", Content: "narcotic"},
		models.RegulationDocument{Title: "Notice C", Content: "narcotic"},
	))

	docs, err := idx.Search(context.Background(), "narcotic", 3)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"Notice A", "Notice B", "Notice C"}, []string{docs[0].Title, docs[1].Title, docs[2].Title})
}

func TestAdd_ReplacesByTitle(t *testing.T) {
	idx := newIndex(t)

	require.NoError(t, idx.Add(models.RegulationDocument{Title: "cold storage", Content: "Updated: store vaccines in a cold chain."}))

	all := idx.All()
	require.Len(t, all, 3)
	assert.Equal(t, "Updated: store vaccines in a cold chain.", all[1].Content)

	docs, err := idx.Search(context.Background(), "insulin", 3)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestAdd_FailedBatchRecordsNothing(t *testing.T) {
	idx, err := NewRegulationIndex()
	require.NoError(t, err)
	require.NoError(t, idx.Add(corpus()...))
	require.NoError(t, idx.Close())

	err = idx.Add(
		models.RegulationDocument{Title: "Schedule X", Content: "Narcotic and psychotropic substances."},
		models.RegulationDocument{Title: "Cold Storage", Content: "Replaced content."},
	)
	require.Error(t, err)

	all := idx.All()
	require.Len(t, all, 3)
	assert.Equal(t, "Vaccines and insulin must be stored between 2 and 8 degrees.", all[1].Content)
	for _, doc := range all {
		assert.NotEqual(t, "Schedule X", doc.Title)
	}
}

func TestAdd_DuplicateTitleInOneBatch(t *testing.T) {
	idx := newIndex(t)

	require.NoError(t, idx.Add(
		models.RegulationDocument{Title: "Schedule X", Content: "First."},
		models.RegulationDocument{Title: "SCHEDULE X", Content: "Second."},
	))

	all := idx.All()
	require.Len(t, all, 4)
	assert.Equal(t, "Second.", all[3].Content)
}

func TestLoadFromStorage(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, storage.WriteCorpus(ctx, s, "regulations.json", corpus()))

	idx, err := LoadFromStorage(ctx, s, "regulations.json")
	require.NoError(t, err)
	defer idx.Close()

	assert.Len(t, idx.All(), 3)
	docs, err := idx.Search(ctx, "Schedule H", 3)
	require.NoError(t, err)
	assert.Equal(t, "Schedule H Rules", docs[0].Title)
}
