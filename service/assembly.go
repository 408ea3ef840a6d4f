package service

import (
	"strings"

	"pharmassist-backend/models"
)

// Assembly is the ordered, append-only list of context blocks built during
// one pipeline run
type Assembly struct {
	blocks []models.ContextBlock
}

// Append adds a block and stamps its order
func (a *Assembly) Append(label, text string) {
	a.blocks = append(a.blocks, models.ContextBlock{
		SourceLabel: label,
		Text:        text,
		Order:       len(a.blocks),
	})
}

// Blocks returns a copy of the assembled blocks
func (a *Assembly) Blocks() []models.ContextBlock {
	out := make([]models.ContextBlock, len(a.blocks))
	copy(out, a.blocks)
	return out
}

// Len returns the number of blocks
func (a *Assembly) Len() int {
	return len(a.blocks)
}

// Find returns the first block with label
func (a *Assembly) Find(label string) (models.ContextBlock, bool) {
	for _, b := range a.blocks {
		if b.SourceLabel == label {
			return b, true
		}
	}
	return models.ContextBlock{}, false
}

// ContextText renders every block except the medication list. Web pages are
// prefixed with their source URL.
func (a *Assembly) ContextText() string {
	var parts []string
	for _, b := range a.blocks {
		switch b.SourceLabel {
		case models.SourceMedications:
			continue
		case models.SourceLocal, models.SourceCDSCO, models.SourceIPA:
			parts = append(parts, b.Text)
		default:
			parts = append(parts, "--- Source: "+b.SourceLabel+" ---\n"+b.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Sources returns the labels of the context blocks, medication list excluded
func (a *Assembly) Sources() []string {
	var out []string
	for _, b := range a.blocks {
		if b.SourceLabel != models.SourceMedications {
			out = append(out, b.SourceLabel)
		}
	}
	return out
}
