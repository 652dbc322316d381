package pipeline

import (
	"github.com/vyrodovalexey/avaxform/internal/validation"
)

// Result is the outcome of a transformation run.
type Result struct {
	TargetFormat string             `json:"target_format"`
	Output       interface{}        `json:"output"`
	OutputText   string             `json:"output_text"`
	Validation   *validation.Report `json:"validation"`
	Meta         Meta               `json:"meta"`
}

// Meta summarizes what a run did.
type Meta struct {
	SourceFormat      string `json:"sourceFormat"`
	TargetFormat      string `json:"targetFormat"`
	FiltersApplied    int    `json:"filtersApplied"`
	UsedTemplate      bool   `json:"usedTemplate"`
	UsedMapping       bool   `json:"usedMapping"`
	ValidationApplied bool   `json:"validationApplied"`
	ValidationPassed  bool   `json:"validationPassed"`
}
