// Package compliance annotates analysis results before they reach users:
// every result carries a disclaimer, and recommendations that suggest
// legal action are flagged for human review.
package compliance

import (
	"regexp"
	"strings"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/service"
)

var _ service.PostProcessor = (*Checker)(nil)

// DefaultDisclaimer is attached to every result unless overridden.
const DefaultDisclaimer = "本报告为信息性建议，不构成法律意见；如需法律意见，请咨询持牌律师。" +
	" This report is informational and is not legal advice; consult a licensed attorney for legal advice."

// LegalKeywordsEN are matched as whole words, case-insensitively.
var LegalKeywordsEN = []string{"lawsuit", "sue", "litigation", "arbitration", "legal proceedings"}

// LegalKeywordsZH are matched as substrings.
var LegalKeywordsZH = []string{"起诉", "诉讼", "仲裁", "法律程序", "诉讼方案"}

// Checker is the post-processing hook applied to every final result.
type Checker struct {
	english    *regexp.Regexp
	disclaimer string
	chinese    []string
}

// Option configures a Checker.
type Option func(*Checker)

// WithDisclaimer replaces the default disclaimer text.
func WithDisclaimer(text string) Option {
	return func(c *Checker) {
		c.disclaimer = text
	}
}

// NewChecker builds a checker over the default keyword lists.
func NewChecker(opts ...Option) *Checker {
	quoted := make([]string, len(LegalKeywordsEN))
	for i, kw := range LegalKeywordsEN {
		quoted[i] = regexp.QuoteMeta(kw)
	}

	c := &Checker{
		english:    regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`),
		chinese:    LegalKeywordsZH,
		disclaimer: DefaultDisclaimer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Apply returns a copy of result with the disclaimer set and
// NeedsLegalReview reflecting the recommendations. Only those two fields
// change.
func (c *Checker) Apply(result model.AnalysisResult) model.AnalysisResult {
	out := result.Clone()
	out.Disclaimer = c.disclaimer
	out.NeedsLegalReview = c.NeedsLegalReview(out.Recommendations)
	return out
}

// NeedsLegalReview reports whether any recommendation mentions legal action.
func (c *Checker) NeedsLegalReview(recommendations []string) bool {
	for _, rec := range recommendations {
		if c.english.MatchString(rec) {
			return true
		}
		for _, kw := range c.chinese {
			if strings.Contains(rec, kw) {
				return true
			}
		}
	}
	return false
}
