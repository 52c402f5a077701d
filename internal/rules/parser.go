// Package rules implements the dynamic rule engine: operator-authored
// natural-language prompts parsed into trigger/action rules that are
// matched against customer messages before normal routing.
package rules

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lookfor-ai/maestro/internal/domain"
)

// ErrNoKeywords is returned when a prompt yields no trigger keywords.
// Such rules are rejected outright: storing them would either match
// every message or none.
var ErrNoKeywords = errors.New("no trigger keywords could be extracted from prompt")

// Parser turns an operator prompt into a rule. The heuristic is
// replaceable: anything implementing Parser can back the store.
type Parser interface {
	Parse(prompt string) (*domain.DynamicRule, error)
}

// clausePatterns are tried in order; the first match captures the
// trigger clause.
var clausePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)if\s+(?:a\s+|the\s+)?customers?\s+(?:wants?|asks?|requests?)\s+(?:to\s+)?([^,.;]+)`),
	regexp.MustCompile(`(?i)when\s+(?:a\s+|the\s+)?customers?\s+([^,.;]+)`),
	regexp.MustCompile(`(?i)for\s+([^,.;]+?)\s+requests?`),
}

var redirectTargetPattern = regexp.MustCompile(`(?i)(?:redirect|route)\s+(?:\w+\s+)*?to\s+(?:the\s+)?([a-z]+)`)

var markTagPattern = regexp.MustCompile(`(?i)mark\s+as\s+'([^']+)'`)

// clauseStopWords are stripped from a captured trigger clause.
var clauseStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "to": {}, "for": {}, "of": {}, "and": {},
	"their": {}, "his": {}, "her": {}, "my": {}, "your": {}, "our": {},
	"is": {}, "are": {}, "was": {}, "be": {}, "has": {}, "have": {},
	"about": {}, "with": {}, "this": {}, "that": {}, "them": {}, "it": {},
	"any": {}, "all": {}, "some": {}, "get": {}, "gets": {},
}

// fallbackStopWords is the broader list used when no clause pattern
// matches and the whole prompt is tokenized. It additionally strips
// conditionals and action vocabulary so only subject words survive.
var fallbackStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "to": {}, "for": {}, "of": {}, "and": {},
	"their": {}, "his": {}, "her": {}, "my": {}, "your": {}, "our": {},
	"is": {}, "are": {}, "was": {}, "be": {}, "has": {}, "have": {},
	"about": {}, "with": {}, "this": {}, "that": {}, "them": {}, "it": {},
	"any": {}, "all": {}, "some": {}, "get": {}, "gets": {},
	"if": {}, "when": {}, "then": {}, "should": {}, "must": {}, "would": {},
	"could": {}, "please": {}, "always": {}, "never": {}, "over": {},
	"under": {}, "more": {}, "less": {}, "than": {},
	"customer": {}, "customers": {}, "wants": {}, "want": {}, "asks": {},
	"ask": {}, "requests": {}, "request": {}, "requesting": {},
	"block": {}, "blocks": {}, "escalate": {}, "escalated": {}, "redirect": {},
	"route": {}, "mark": {}, "not": {}, "don't": {}, "dont": {}, "do": {},
	"human": {}, "agent": {}, "team": {}, "immediately": {},
}

// HeuristicParser is the default best-effort prompt parser.
type HeuristicParser struct{}

// NewHeuristicParser returns the default parser.
func NewHeuristicParser() *HeuristicParser { return &HeuristicParser{} }

// Parse extracts trigger keywords and an action from a prompt. It
// returns ErrNoKeywords when even the fallback tokenizer finds nothing.
func (p *HeuristicParser) Parse(prompt string) (*domain.DynamicRule, error) {
	keywords := extractKeywords(prompt)
	if len(keywords) == 0 {
		return nil, ErrNoKeywords
	}

	return &domain.DynamicRule{
		ID:        uuid.New().String(),
		Prompt:    prompt,
		Keywords:  keywords,
		Action:    classifyAction(prompt),
		CreatedAt: time.Now(),
		Active:    true,
	}, nil
}

func extractKeywords(prompt string) []string {
	for _, pat := range clausePatterns {
		m := pat.FindStringSubmatch(prompt)
		if m == nil {
			continue
		}
		if kws := tokenize(m[1], clauseStopWords, 2, 0); len(kws) > 0 {
			return kws
		}
	}
	// Whole-prompt fallback: longer tokens only, at most three.
	return tokenize(prompt, fallbackStopWords, 3, 3)
}

// tokenize lowercases, splits on non-letter boundaries, strips stop
// words and tokens at or below minLen. max of 0 means unlimited.
func tokenize(s string, stop map[string]struct{}, minLen, max int) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && r != '\''
	})

	var out []string
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if len(f) <= minLen {
			continue
		}
		if _, skip := stop[f]; skip {
			continue
		}
		out = append(out, f)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// classifyAction scans the lowercased prompt for action vocabulary.
// Block phrasing overrides an escalate classification when both are
// present: "do not escalate" must not produce an ESCALATE rule.
func classifyAction(prompt string) domain.RuleAction {
	lower := strings.ToLower(prompt)

	action := domain.RuleAction{Type: domain.ActionModifyResponse}
	if m := markTagPattern.FindStringSubmatch(prompt); m != nil {
		action.Tag = strings.ToUpper(m[1])
	}

	if strings.Contains(lower, "escalate") || strings.Contains(lower, "needs_attention") {
		action.Type = domain.ActionEscalate
		action.Reason = prompt
	}
	if strings.Contains(lower, "do not") || strings.Contains(lower, "don't") || strings.Contains(lower, "block") {
		action.Type = domain.ActionBlock
		action.Reason = prompt
	}
	if strings.Contains(lower, "redirect") || strings.Contains(lower, "route to") {
		action.Type = domain.ActionRedirect
		action.Reason = prompt
		if m := redirectTargetPattern.FindStringSubmatch(lower); m != nil {
			action.Target = domain.HandlerID(m[1])
		}
	}
	return action
}
