package translate

import (
	"regexp"
	"strings"
)

// scrubRule rewrites one kind of English leakage in a Turkish summary.
type scrubRule struct {
	name    string
	pattern *regexp.Regexp
	replace string
}

// englishStarters are the sentence openers treated as English. An initial
// like the "U." in "U.S." does not end the sentence, nor does "3.5".
const (
	englishStarters = `(?:The|This|It|According to|In|On|At|For|With|From|By|As|However|Additionally|Furthermore|Meanwhile|Moreover)`
	sentenceBody    = `(?:\b[A-Z]\.|\.\d|[^.])*`
)

// leakageRules run in order. The list is a denylist of English sentence
// openers, not a language detector: English text that opens with anything
// else is left in place.
var leakageRules = []scrubRule{
	{
		// An English sentence opening the summary, when more text follows it.
		name:    "leading-english-sentence",
		pattern: regexp.MustCompile(`^` + englishStarters + `[\s,]` + sentenceBody + `\.\s+`),
		replace: "",
	},
	{
		// A sentence after a period that opens with an English starter, up to
		// and including its own period.
		name:    "english-sentence",
		pattern: regexp.MustCompile(`\.\s*` + englishStarters + `[\s,]` + sentenceBody + `\.?`),
		replace: ".",
	},
	{
		name:    "english-fragment",
		pattern: regexp.MustCompile(`([.!?])\s+(?i:is|are|was|were|has|have|had|will|would|could|should|can|may|might|the|a|an|this|that|these|those)\s[^.!?]*$`),
		replace: "$1",
	},
	{
		name:    "trailing-word",
		pattern: regexp.MustCompile(`([.!?])\s+[A-Z][A-Za-z]*\s*$`),
		replace: "$1",
	},
	{
		name:    "repeated-periods",
		pattern: regexp.MustCompile(`\.(?:\s*\.)+`),
		replace: ".",
	},
}

const maxScrubPasses = 20

// ScrubEnglish removes English sentences and fragments a model leaked into a
// Turkish summary. Rules are applied until the text stops changing.
func ScrubEnglish(summary string) string {
	text := strings.TrimSpace(summary)
	for pass := 0; pass < maxScrubPasses; pass++ {
		before := text
		for _, rule := range leakageRules {
			text = rule.pattern.ReplaceAllString(text, rule.replace)
		}
		text = strings.TrimSpace(text)
		if text == before {
			break
		}
	}
	return text
}
