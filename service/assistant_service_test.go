package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmassist-backend/llm"
	"pharmassist-backend/metrics"
	"pharmassist-backend/models"
	"pharmassist-backend/websearch"
)

type fakeRegulations struct {
	docs   []models.RegulationDocument
	err    error
	calls  int
	limits []int
}

func (f *fakeRegulations) Search(_ context.Context, _ string, limit int) ([]models.RegulationDocument, error) {
	f.calls++
	f.limits = append(f.limits, limit)
	return f.docs, f.err
}

type fakeWeb struct {
	result websearch.Result
	calls  int
}

func (f *fakeWeb) SearchAndScrape(context.Context, string) websearch.Result {
	f.calls++
	return f.result
}

func (f *fakeWeb) Tool() llm.Tool {
	return llm.Tool{Name: websearch.ToolName}
}

type fakeFallback struct {
	name  string
	text  string
	calls int
}

func (f *fakeFallback) Name() string { return f.name }

func (f *fakeFallback) Lookup(context.Context, string) (models.ContextBlock, bool) {
	f.calls++
	if f.text == "" {
		return models.ContextBlock{}, false
	}
	return models.ContextBlock{SourceLabel: f.name, Text: f.text}, true
}

type fakeMedications struct {
	meds  []models.MedicationSummary
	err   error
	calls int
}

func (f *fakeMedications) ActiveByUser(context.Context, uuid.UUID) ([]models.MedicationSummary, error) {
	f.calls++
	return f.meds, f.err
}

type fakeAI struct {
	answer    string
	err       error
	prompts   []string
	toolCalls int
	tools     []llm.Tool
}

func (f *fakeAI) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func (f *fakeAI) CompleteWithTools(_ context.Context, prompt string, tools ...llm.Tool) (string, error) {
	f.toolCalls++
	f.prompts = append(f.prompts, prompt)
	f.tools = tools
	return f.answer, f.err
}

type fixture struct {
	regs  *fakeRegulations
	web   *fakeWeb
	cdsco *fakeFallback
	ipa   *fakeFallback
	meds  *fakeMedications
	ai    *fakeAI
	m     *metrics.Metrics
	svc   *AssistantService
}

func newFixture() *fixture {
	f := &fixture{
		regs:  &fakeRegulations{},
		web:   &fakeWeb{result: websearch.Result{Kind: websearch.KindNoPages}},
		cdsco: &fakeFallback{name: models.SourceCDSCO},
		ipa:   &fakeFallback{name: models.SourceIPA},
		meds:  &fakeMedications{},
		ai:    &fakeAI{answer: "answer"},
		m:     metrics.New(),
	}
	f.svc = NewAssistantService(
		AssistantWithRegulationSearcher(f.regs),
		AssistantWithWebSearcher(f.web),
		AssistantWithFallbacks(f.cdsco, f.ipa),
		AssistantWithMedicationLookup(f.meds),
		AssistantWithCompleter(f.ai),
		AssistantWithMetrics(f.m),
	)
	return f
}

func premiumCaller() *models.CallerContext {
	return &models.CallerContext{UserID: uuid.New(), IsPremium: true}
}

func TestAnswer_LocalHitSkipsWebSearch(t *testing.T) {
	f := newFixture()
	f.regs.docs = []models.RegulationDocument{{Title: "Schedule H Rules", Content: "Prescription only."}}

	res, err := f.svc.Answer(context.Background(), AnswerRequest{Question: "What is Schedule H?"})
	require.NoError(t, err)

	assert.Equal(t, "answer", res.Answer)
	assert.Equal(t, "local", res.Stage)
	assert.Equal(t, 1, f.regs.calls)
	assert.Equal(t, 0, f.web.calls)
	assert.Equal(t, 0, f.cdsco.calls)
	assert.Equal(t, 0, f.ipa.calls)
	assert.NotContains(t, scrapeMetrics(t, f.m), `stage="web_search"`)
}

func TestAnswer_ScheduleHRoundTrip(t *testing.T) {
	f := newFixture()
	f.regs.docs = []models.RegulationDocument{{Title: "Schedule H Rules", Content: "Drugs sold on prescription of a Registered Medical Practitioner."}}

	res, err := f.svc.Answer(context.Background(), AnswerRequest{Question: "What is Schedule H?"})
	require.NoError(t, err)

	require.Len(t, f.ai.prompts, 1)
	prompt := f.ai.prompts[0]
	assert.Contains(t, prompt, "Schedule H Rules")
	assert.Contains(t, prompt, "Title: Schedule H Rules\nContent: Drugs sold on prescription")
	assert.Contains(t, prompt, `"What is Schedule H?"`)
	assert.NotContains(t, prompt, noContextNotice)
	assert.Equal(t, []string{models.SourceLocal}, res.Sources)
}

func TestAnswer_LocalLimits(t *testing.T) {
	f := newFixture()
	for i := 0; i < 8; i++ {
		f.regs.docs = append(f.regs.docs, models.RegulationDocument{Title: "Doc", Content: "c"})
	}

	res, err := f.svc.Answer(context.Background(), AnswerRequest{Question: "q"})
	require.NoError(t, err)
	assert.Len(t, res.Blocks, 3)

	res, err = f.svc.Answer(context.Background(), AnswerRequest{Question: "q", Variant: VariantDashboard})
	require.NoError(t, err)
	assert.Len(t, res.Blocks, 5)
	assert.Equal(t, []int{3, 5}, f.regs.limits)
}

func TestAnswer_LocalContentIsCapped(t *testing.T) {
	f := newFixture()
	f.regs.docs = []models.RegulationDocument{{Title: "Long", Content: strings.Repeat("a", 5000)}}

	res, err := f.svc.Answer(context.Background(), AnswerRequest{Question: "q"})
	require.NoError(t, err)
	require.Len(t, res.Blocks, 1)
	assert.Equal(t, "Title: Long\nContent: "+strings.Repeat("a", maxLocalContent), res.Blocks[0].Text)
}

func TestAnswer_WebSearchFound(t *testing.T) {
	f := newFixture()
	f.web.result = websearch.Result{Kind: websearch.KindFound, Blocks: []models.ContextBlock{
		{SourceLabel: "https://cdsco.gov.in/a", Text: "page a"},
		{SourceLabel: "https://mohfw.gov.in/b", Text: "page b"},
	}}

	res, err := f.svc.Answer(context.Background(), AnswerRequest{Question: "q"})
	require.NoError(t, err)

	assert.Equal(t, "web_search", res.Stage)
	assert.Equal(t, 0, f.cdsco.calls)
	assert.Equal(t, 0, f.ipa.calls)
	assert.Contains(t, f.ai.prompts[0], "--- Source: https://cdsco.gov.in/a ---\npage a\n\n--- Source: https://mohfw.gov.in/b ---\npage b")
}

func TestAnswer_NoPagesRunsBothFallbacks(t *testing.T) {
	f := newFixture()
	f.cdsco.text = "cdsco mentions"
	f.ipa.text = "ipa guidelines"

	res, err := f.svc.Answer(context.Background(), AnswerRequest{Question: "Paracetamol"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.web.calls)
	assert.Equal(t, 1, f.cdsco.calls)
	assert.Equal(t, 1, f.ipa.calls)
	assert.Equal(t, "fallback", res.Stage)

	want := []models.ContextBlock{
		{SourceLabel: models.SourceCDSCO, Text: "cdsco mentions", Order: 0},
		{SourceLabel: models.SourceIPA, Text: "ipa guidelines", Order: 1},
	}
	if diff := cmp.Diff(want, res.Blocks); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestAnswer_EmptyAndFailedSearchAlsoFallBack(t *testing.T) {
	for _, kind := range []websearch.Kind{websearch.KindEmpty, websearch.KindFailed} {
		t.Run(kind.String(), func(t *testing.T) {
			f := newFixture()
			f.web.result = websearch.Result{Kind: kind}
			f.ipa.text = "ipa guidelines"

			res, err := f.svc.Answer(context.Background(), AnswerRequest{Question: "q"})
			require.NoError(t, err)
			assert.Equal(t, 1, f.cdsco.calls)
			assert.Equal(t, 1, f.ipa.calls)
			assert.Equal(t, []string{models.SourceIPA}, res.Sources)
		})
	}
}

func TestAnswer_NoContextAnywhere(t *testing.T) {
	f := newFixture()
	f.regs.err = errors.New("db down")

	res, err := f.svc.Answer(context.Background(), AnswerRequest{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "none", res.Stage)
	assert.Empty(t, res.Blocks)
	assert.Contains(t, f.ai.prompts[0], noContextNotice)
}

func TestAnswer_PremiumPersonalization(t *testing.T) {
	f := newFixture()
	f.regs.docs = []models.RegulationDocument{{Title: "Schedule H Rules", Content: "Prescription only."}}
	f.meds.meds = []models.MedicationSummary{{Name: "Metformin", Dosage: "500mg"}, {Name: "Amlodipine"}}

	res, err := f.svc.Answer(context.Background(), AnswerRequest{Question: "q", Caller: premiumCaller()})
	require.NoError(t, err)

	assert.Equal(t, 1, f.meds.calls)
	require.Len(t, res.Blocks, 2)
	assert.Equal(t, models.SourceLocal, res.Blocks[0].SourceLabel, "local context precedes the medication list")
	assert.Equal(t, models.SourceMedications, res.Blocks[1].SourceLabel)
	assert.Equal(t, "- Metformin (500mg)\n- Amlodipine (N/A)", res.Blocks[1].Text)
	assert.Equal(t, []string{models.SourceLocal}, res.Sources)

	prompt := f.ai.prompts[0]
	assert.Contains(t, prompt, "A premium user is asking a question.")
	assert.Contains(t, prompt, "**User's Current Medications:**\n---\n- Metformin (500mg)\n- Amlodipine (N/A)\n---")
}

func TestAnswer_PremiumWithoutMedications(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Answer(context.Background(), AnswerRequest{Question: "q", Caller: premiumCaller()})
	require.NoError(t, err)

	block, ok := findBlock(res.Blocks, models.SourceMedications)
	require.True(t, ok)
	assert.Equal(t, "No medications listed.", block.Text)
	assert.Contains(t, f.ai.prompts[0], "No medications listed.")
}

func TestAnswer_MedicationLookupFailure(t *testing.T) {
	f := newFixture()
	f.meds.err = errors.New("timeout")

	res, err := f.svc.Answer(context.Background(), AnswerRequest{Question: "q", Caller: premiumCaller()})
	require.NoError(t, err)

	block, ok := findBlock(res.Blocks, models.SourceMedications)
	require.True(t, ok)
	assert.Equal(t, "Medication list unavailable.", block.Text)
}

func TestAnswer_NonPremiumNeverLooksUpMedications(t *testing.T) {
	for name, caller := range map[string]*models.CallerContext{
		"anonymous": nil,
		"free":      {UserID: uuid.New()},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			f.meds.meds = []models.MedicationSummary{{Name: "Metformin"}}

			res, err := f.svc.Answer(context.Background(), AnswerRequest{Question: "q", Caller: caller})
			require.NoError(t, err)

			assert.Equal(t, 0, f.meds.calls)
			_, ok := findBlock(res.Blocks, models.SourceMedications)
			assert.False(t, ok)
			assert.NotContains(t, f.ai.prompts[0], "Current Medications")
		})
	}
}

func TestAnswer_EmptyQuestionTouchesNothing(t *testing.T) {
	for _, q := range []string{"", "   \n\t"} {
		f := newFixture()

		_, err := f.svc.Answer(context.Background(), AnswerRequest{Question: q, Caller: premiumCaller()})
		assert.ErrorIs(t, err, ErrInputInvalid)
		assert.Zero(t, f.regs.calls+f.web.calls+f.cdsco.calls+f.ipa.calls+f.meds.calls)
		assert.Empty(t, f.ai.prompts)
	}
}

func TestAnswer_AIFailureSurfaces(t *testing.T) {
	f := newFixture()
	f.ai.err = llm.ErrUnavailable

	res, err := f.svc.Answer(context.Background(), AnswerRequest{Question: "q"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestAnswer_StageMetrics(t *testing.T) {
	f := newFixture()
	f.cdsco.text = "x"

	_, err := f.svc.Answer(context.Background(), AnswerRequest{Question: "q"})
	require.NoError(t, err)

	body := scrapeMetrics(t, f.m)
	for _, st := range []string{"local_lookup", "web_search", "fallback", "personalize"} {
		assert.Contains(t, body, `pharmassist_pipeline_stage_total{stage="`+st+`"} 1`)
	}
	assert.Contains(t, body, `pharmassist_pipeline_context_source_total{source="fallback"} 1`)
}

func TestAnswerWithTools(t *testing.T) {
	f := newFixture()
	f.meds.meds = []models.MedicationSummary{{Name: "Warfarin", Dosage: "5mg"}}

	res, err := f.svc.AnswerWithTools(context.Background(), AnswerRequest{Question: "Is aspirin Schedule H?", Caller: premiumCaller()})
	require.NoError(t, err)
	assert.Equal(t, "answer", res.Answer)
	assert.Equal(t, 1, f.ai.toolCalls)
	require.Len(t, f.ai.tools, 1)
	assert.Equal(t, websearch.ToolName, f.ai.tools[0].Name)
	assert.Contains(t, f.ai.prompts[0], "- Warfarin (5mg)")
	assert.Zero(t, f.regs.calls+f.web.calls, "the model drives searching itself")

	f.ai.err = llm.ErrToolLoopExceeded
	_, err = f.svc.AnswerWithTools(context.Background(), AnswerRequest{Question: "q"})
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)

	_, err = f.svc.AnswerWithTools(context.Background(), AnswerRequest{Question: " "})
	assert.ErrorIs(t, err, ErrInputInvalid)
}

func TestCheckInteractions(t *testing.T) {
	f := newFixture()

	answer, err := f.svc.CheckInteractions(context.Background(), "warfarin, aspirin, grapefruit")
	require.NoError(t, err)
	assert.Equal(t, "answer", answer)
	assert.Contains(t, f.ai.prompts[0], "---\nwarfarin, aspirin, grapefruit\n---")
	assert.Contains(t, f.ai.prompts[0], "does not constitute medical advice")

	_, err = f.svc.CheckInteractions(context.Background(), "")
	assert.ErrorIs(t, err, ErrInputInvalid)

	f.ai.err = errors.New("boom")
	_, err = f.svc.CheckInteractions(context.Background(), "aspirin")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestAssembly_OrderIsStamped(t *testing.T) {
	var a Assembly
	a.Append(models.SourceLocal, "one")
	a.Append("https://x.gov.in", "two")
	a.Append(models.SourceMedications, "meds")

	blocks := a.Blocks()
	for i, b := range blocks {
		assert.Equal(t, i, b.Order)
	}

	blocks[0].Text = "mutated"
	assert.Equal(t, "one", a.Blocks()[0].Text, "callers get a copy")
	assert.Equal(t, "one\n\n--- Source: https://x.gov.in ---\ntwo", a.ContextText())
}

func findBlock(blocks []models.ContextBlock, label string) (models.ContextBlock, bool) {
	for _, b := range blocks {
		if b.SourceLabel == label {
			return b, true
		}
	}
	return models.ContextBlock{}, false
}

func scrapeMetrics(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
