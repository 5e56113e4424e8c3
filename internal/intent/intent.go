// Package intent implements the lightweight text-matching heuristics the chat
// widget uses to short-circuit common questions without a model call. No NLU:
// fixed keyword classes and alias lookups only.
package intent

import (
	"regexp"
	"strings"

	"github.com/serenity-spa/spachat/internal/model"
)

type Intent string

const (
	IntentGreeting Intent = "greeting"
	IntentPrice    Intent = "price"
	IntentHours    Intent = "hours"
	IntentLocation Intent = "location"
	IntentPolicy   Intent = "policy"
	IntentBook     Intent = "book"
	IntentNone     Intent = "none"
)

// Rule pairs a compiled keyword class with the intent it signals. Rules are
// evaluated in order; the first hit wins.
type Rule struct {
	Tag     Intent
	Pattern *regexp.Regexp
}

// DefaultRules is the standard classification table. Word-boundary matched,
// case-insensitive. Order matters: "schedule" belongs to hours before book.
func DefaultRules() []Rule {
	return []Rule{
		{IntentGreeting, regexp.MustCompile(`(?i)\b(hi|hello|hey|hiya|howdy|good\s*(morning|afternoon|evening))\b`)},
		{IntentPrice, regexp.MustCompile(`(?i)\b(price|prices|pricing|cost|rate|how\s*much|fee|fees|service|services|menu|catalog|list|options)\b`)},
		{IntentHours, regexp.MustCompile(`(?i)\b(hours?|open|opening|close|closing|time|schedule)\b`)},
		{IntentLocation, regexp.MustCompile(`(?i)\b(where|address|located|location|directions|map)\b`)},
		{IntentPolicy, regexp.MustCompile(`(?i)\b(cancel|cancellation|policy|policies|reschedule|late|deposit)\b`)},
		{IntentBook, regexp.MustCompile(`(?i)\b(book|booking|appointment|reserve)\b`)},
	}
}

type Matcher struct {
	rules []Rule
}

func NewMatcher(rules []Rule) *Matcher {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Matcher{rules: rules}
}

func (m *Matcher) Detect(text string) Intent {
	for _, rule := range m.rules {
		if rule.Pattern.MatchString(text) {
			return rule.Tag
		}
	}
	return IntentNone
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]`)
var spaces = regexp.MustCompile(`\s+`)

// normalize lowercases and squeezes everything except letters and digits to
// single spaces, so "hot-stone" and "Hot Stone!" compare equal.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, " ")
	s = spaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// hits reports whether term occurs in text: whole-word for single words,
// substring for multi-word phrases.
func hits(text, term string) bool {
	t := normalize(text)
	q := normalize(term)
	if q == "" {
		return false
	}
	if strings.Contains(q, " ") {
		return strings.Contains(t, q)
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(q) + `\b`)
	return re.MatchString(t)
}

// FindService resolves a service mentioned in free text. Order of attempts:
// alias table, then substring containment on id/name, then token-overlap
// scoring with ties broken by catalog order. Returns nil when nothing scores.
func FindService(text string, services []model.Service) *model.Service {
	t := normalize(text)
	if t == "" || len(services) == 0 {
		return nil
	}

	for i := range services {
		for _, alias := range services[i].Aliases {
			if hits(t, alias) {
				return &services[i]
			}
		}
	}

	for i := range services {
		id := normalize(services[i].ID)
		name := normalize(services[i].Name)
		if (id != "" && strings.Contains(t, id)) || (name != "" && strings.Contains(t, name)) {
			return &services[i]
		}
	}

	best := -1
	bestScore := 0
	for i := range services {
		score := 0
		for _, tok := range strings.Fields(normalize(services[i].Name)) {
			if strings.Contains(t, tok) {
				score++
			}
		}
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 {
		return nil
	}
	return &services[best]
}
