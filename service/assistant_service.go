package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pharmassist-backend/llm"
	"pharmassist-backend/logging"
	"pharmassist-backend/metrics"
	"pharmassist-backend/models"
	"pharmassist-backend/scraper"
	"pharmassist-backend/websearch"
)

var (
	ErrInputInvalid        = errors.New("question is required")
	ErrUpstreamUnavailable = errors.New("could not get a response from the AI service")
)

const (
	standardLocalLimit  = 3
	dashboardLocalLimit = 5
	maxLocalContent     = 3000
)

// RegulationSearcher is a ranked full-text query over the regulation corpus
type RegulationSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.RegulationDocument, error)
}

// WebSearcher searches trusted government sites and scrapes the results
type WebSearcher interface {
	SearchAndScrape(ctx context.Context, query string) websearch.Result
	Tool() llm.Tool
}

// FallbackSource is a site-specific scraper consulted when web search finds nothing
type FallbackSource interface {
	Name() string
	Lookup(ctx context.Context, question string) (models.ContextBlock, bool)
}

// MedicationLookup returns a user's active medications
type MedicationLookup interface {
	ActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.MedicationSummary, error)
}

// Completer sends prompts to the generative model
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithTools(ctx context.Context, prompt string, tools ...llm.Tool) (string, error)
}

// Variant selects the endpoint flavour of an answer
type Variant int

const (
	VariantStandard Variant = iota
	VariantDashboard
)

func (v Variant) localLimit() int {
	if v == VariantDashboard {
		return dashboardLocalLimit
	}
	return standardLocalLimit
}

// AssistantService answers pharmacy questions from assembled context
type AssistantService struct {
	regulations RegulationSearcher
	web         WebSearcher
	fallbacks   []FallbackSource
	medications MedicationLookup
	ai          Completer
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// AssistantServiceOption is a functional option for AssistantService
type AssistantServiceOption func(*AssistantService)

// AssistantWithRegulationSearcher sets the local context search
func AssistantWithRegulationSearcher(r RegulationSearcher) AssistantServiceOption {
	return func(s *AssistantService) {
		s.regulations = r
	}
}

// AssistantWithWebSearcher sets the web search adapter
func AssistantWithWebSearcher(w WebSearcher) AssistantServiceOption {
	return func(s *AssistantService) {
		s.web = w
	}
}

// AssistantWithFallbacks sets the fallback scrapers, consulted in the given order
func AssistantWithFallbacks(sources ...FallbackSource) AssistantServiceOption {
	return func(s *AssistantService) {
		s.fallbacks = sources
	}
}

// AssistantWithMedicationLookup sets the medication list lookup
func AssistantWithMedicationLookup(m MedicationLookup) AssistantServiceOption {
	return func(s *AssistantService) {
		s.medications = m
	}
}

// AssistantWithCompleter sets the AI completion client
func AssistantWithCompleter(c Completer) AssistantServiceOption {
	return func(s *AssistantService) {
		s.ai = c
	}
}

// AssistantWithLogger sets the logger
func AssistantWithLogger(logger *zap.Logger) AssistantServiceOption {
	return func(s *AssistantService) {
		s.logger = logger
	}
}

// AssistantWithMetrics sets the metrics recorder
func AssistantWithMetrics(m *metrics.Metrics) AssistantServiceOption {
	return func(s *AssistantService) {
		s.metrics = m
	}
}

// NewAssistantService creates a new assistant service
func NewAssistantService(opts ...AssistantServiceOption) *AssistantService {
	s := &AssistantService{}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger)
	return s
}

// AnswerRequest represents a question put to the assistant
type AnswerRequest struct {
	Question string
	Caller   *models.CallerContext // Optional; personalization needs IsPremium
	Variant  Variant
}

// AnswerResult represents the assistant's answer
type AnswerResult struct {
	Answer  string
	Sources []string
	Stage   string // Stage that supplied the context, "none" when nothing was found
	Blocks  []models.ContextBlock
}

type stage int

const (
	stageLocalLookup stage = iota
	stageWebSearch
	stageFallback
	stagePersonalize
	stageDone
)

func (s stage) String() string {
	switch s {
	case stageLocalLookup:
		return "local_lookup"
	case stageWebSearch:
		return "web_search"
	case stageFallback:
		return "fallback"
	case stagePersonalize:
		return "personalize"
	default:
		return "done"
	}
}

// pipelineRun is the state owned by one Answer call
type pipelineRun struct {
	question string
	caller   *models.CallerContext
	limit    int
	assembly Assembly
	source   string
}

func (r *pipelineRun) premium() bool {
	return r.caller != nil && r.caller.IsPremium
}

// Answer assembles context for the question and asks the AI. Context comes
// from the first source that yields anything, in order: local regulations,
// government web search, then every fallback scraper. Premium callers also
// get their medication list. Only an AI failure is returned as an error.
func (s *AssistantService) Answer(ctx context.Context, req AnswerRequest) (*AnswerResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrInputInvalid
	}
	if s.ai == nil {
		return nil, fmt.Errorf("%w: completion client not set", ErrUpstreamUnavailable)
	}

	run := &pipelineRun{
		question: question,
		caller:   req.Caller,
		limit:    req.Variant.localLimit(),
		source:   "none",
	}
	s.assemble(ctx, run)
	s.metrics.ContextSource(run.source)

	contextText := run.assembly.ContextText()
	var prompt string
	if run.premium() {
		meds, _ := run.assembly.Find(models.SourceMedications)
		prompt = enhancedPrompt(question, contextText, meds.Text)
	} else {
		prompt = standardPrompt(question, contextText)
	}

	answer, err := s.ai.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	return &AnswerResult{
		Answer:  answer,
		Sources: run.assembly.Sources(),
		Stage:   run.source,
		Blocks:  run.assembly.Blocks(),
	}, nil
}

// assemble runs the context stages until stageDone
func (s *AssistantService) assemble(ctx context.Context, run *pipelineRun) {
	st := stageLocalLookup
	for st != stageDone {
		s.metrics.StageEntered(st.String())
		s.logger.Debug("pipeline stage", zap.Stringer("stage", st), zap.String("question", run.question))

		switch st {
		case stageLocalLookup:
			st = stageWebSearch
			if s.localLookup(ctx, run) {
				run.source = "local"
				st = stagePersonalize
			}
		case stageWebSearch:
			st = stageFallback
			if s.webSearch(ctx, run) {
				run.source = "web_search"
				st = stagePersonalize
			}
		case stageFallback:
			if s.fallback(ctx, run) {
				run.source = "fallback"
			}
			st = stagePersonalize
		case stagePersonalize:
			if run.premium() {
				run.assembly.Append(models.SourceMedications, s.medicationBlock(ctx, run.caller))
			}
			st = stageDone
		}
	}
}

func (s *AssistantService) localLookup(ctx context.Context, run *pipelineRun) bool {
	if s.regulations == nil {
		return false
	}

	docs, err := s.regulations.Search(ctx, run.question, run.limit)
	if err != nil {
		s.logger.Warn("local regulation search failed", zap.Error(err))
		return false
	}
	if len(docs) > run.limit {
		docs = docs[:run.limit]
	}
	for _, doc := range docs {
		content := scraper.Truncate(doc.Content, maxLocalContent)
		run.assembly.Append(models.SourceLocal, fmt.Sprintf("Title: %s\nContent: %s", doc.Title, content))
	}
	return len(docs) > 0
}

func (s *AssistantService) webSearch(ctx context.Context, run *pipelineRun) bool {
	if s.web == nil {
		return false
	}

	result := s.web.SearchAndScrape(ctx, run.question)
	if result.Kind != websearch.KindFound {
		s.logger.Debug("web search yielded no context", zap.Stringer("kind", result.Kind))
		return false
	}
	for _, b := range result.Blocks {
		run.assembly.Append(b.SourceLabel, b.Text)
	}
	return len(result.Blocks) > 0
}

// fallback consults every fallback source; each may contribute one block
func (s *AssistantService) fallback(ctx context.Context, run *pipelineRun) bool {
	found := false
	for _, src := range s.fallbacks {
		block, ok := src.Lookup(ctx, run.question)
		if !ok || strings.TrimSpace(block.Text) == "" {
			s.logger.Debug("fallback source yielded nothing", zap.String("source", src.Name()))
			continue
		}
		run.assembly.Append(src.Name(), block.Text)
		found = true
	}
	return found
}

// AnswerWithTools lets the model search government sites itself through a
// bounded tool-calling loop instead of the fixed pipeline
func (s *AssistantService) AnswerWithTools(ctx context.Context, req AnswerRequest) (*AnswerResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrInputInvalid
	}
	if s.ai == nil {
		return nil, fmt.Errorf("%w: completion client not set", ErrUpstreamUnavailable)
	}

	var medications string
	if req.Caller != nil && req.Caller.IsPremium {
		medications = s.medicationBlock(ctx, req.Caller)
	}

	var tools []llm.Tool
	if s.web != nil {
		tools = append(tools, s.web.Tool())
	}

	answer, err := s.ai.CompleteWithTools(ctx, researchPrompt(question, medications), tools...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return &AnswerResult{Answer: answer, Stage: "tools"}, nil
}

// CheckInteractions asks the AI to analyse interactions between a free-text
// list of drugs, foods and conditions
func (s *AssistantService) CheckInteractions(ctx context.Context, items string) (string, error) {
	items = strings.TrimSpace(items)
	if items == "" {
		return "", ErrInputInvalid
	}
	if s.ai == nil {
		return "", fmt.Errorf("%w: completion client not set", ErrUpstreamUnavailable)
	}

	answer, err := s.ai.Complete(ctx, interactionPrompt(items))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return answer, nil
}
