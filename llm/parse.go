package llm

import (
	"clementus360/task-insights/config"
	"clementus360/task-insights/types"

	"github.com/sirupsen/logrus"
)

// Tier records how a reply was turned into a result, most reliable first.
type Tier string

const (
	TierParsed    Tier = "parsed"    // valid after fence/trailing-comma cleanup
	TierRepaired  Tier = "repaired"  // needed extraction or truncation repair
	TierExtracted Tier = "extracted" // no JSON survived; heuristic text extraction
	TierFallback  Tier = "fallback"  // the generator call itself failed
)

// ResponseParser runs the repair cascade, the heuristic extractor and the validator.
type ResponseParser struct {
	Repairer     *Repairer
	Extractor    *Extractor
	Placeholders Placeholders
}

func NewResponseParser(extraction ExtractionConfig) *ResponseParser {
	return &ResponseParser{
		Repairer:     NewRepairer(),
		Extractor:    NewExtractor(extraction),
		Placeholders: DefaultPlaceholders,
	}
}

// Parse never fails.
func (p *ResponseParser) Parse(raw string) (types.AnalysisResult, Tier) {
	repaired := p.Repairer.Repair(raw)
	if repaired.OK {
		tier := TierRepaired
		if repaired.Step == 1 {
			tier = TierParsed
		}
		if repaired.Step > 1 {
			config.Logger.WithFields(logrus.Fields{
				"step": repaired.StepName,
			}).Debug("Analysis reply needed repair")
		}
		return ValidateAndComplete(candidateObject(repaired.Value), p.Placeholders), tier
	}

	config.Logger.WithField("length", len(raw)).Warn("Analysis reply is not JSON, falling back to text extraction")
	result := ValidateAndComplete(map[string]any{}, p.Placeholders)
	result.IntelligentActions = p.Extractor.Extract(raw)
	return result, TierExtracted
}

// A bare array is read as the action list.
func candidateObject(v any) map[string]any {
	switch val := v.(type) {
	case map[string]any:
		return val
	case []any:
		return map[string]any{"intelligentActions": val}
	}
	return map[string]any{}
}
