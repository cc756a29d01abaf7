package sensitivity

import (
	"context"
	"hash/fnv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"clipstream/internal/catalog"
)

// Analysis is the outcome of screening one item.
type Analysis struct {
	Classification catalog.Sensitivity
	Confidence     float64
}

// flaggedTerms are matched against normalized title and description text.
// This is a stand-in for a real moderation model; only the interface and
// timing contract matter to the pipeline.
var flaggedTerms = []string{
	"explicit",
	"gore",
	"graphic",
	"nsfw",
	"uncensored",
	"violence",
	"violent",
}

// Analyzer classifies content with a deterministic keyword heuristic.
type Analyzer struct {
	folder cases.Caser
}

// New constructs an Analyzer.
func New() *Analyzer {
	return &Analyzer{folder: cases.Fold()}
}

// Analyze screens an item using its textual metadata. The same inputs
// always produce the same classification and confidence.
func (a *Analyzer) Analyze(ctx context.Context, path, title, description string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}

	text := a.normalize(title + " " + description)
	classification := catalog.SensitivitySafe
	for _, term := range flaggedTerms {
		if strings.Contains(text, term) {
			classification = catalog.SensitivityFlagged
			break
		}
	}

	return Analysis{
		Classification: classification,
		Confidence:     confidence(path, title, description),
	}, nil
}

func (a *Analyzer) normalize(text string) string {
	return a.folder.String(norm.NFC.String(text))
}

// confidence derives a stable value in [0.80, 1.00) from the inputs.
func confidence(parts ...string) float64 {
	h := fnv.New32a()
	for _, part := range parts {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	return 0.80 + float64(h.Sum32()%2000)/10000
}
