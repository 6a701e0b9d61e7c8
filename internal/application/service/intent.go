package service

import (
	"regexp"
	"strings"

	"socflow/internal/domain/entity"
)

const DefaultIntentConfidence = 0.8

type compiledMatcher struct {
	groups [][]*regexp.Regexp
}

func (m compiledMatcher) match(utterance string) bool {
	for _, group := range m.groups {
		hit := false
		for _, re := range group {
			if re.MatchString(utterance) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

type intentRule struct {
	taskType entity.TaskType
	matchers []compiledMatcher
}

// IntentClassifier maps utterances to task types using the phrase matchers
// declared in the catalog. It holds no mutable state.
type IntentClassifier struct {
	rules      []intentRule
	confidence float64
}

func NewIntentClassifier(catalog *TaskCatalog) *IntentClassifier {
	ic := &IntentClassifier{confidence: DefaultIntentConfidence}

	for _, def := range catalog.Definitions() {
		rule := intentRule{taskType: def.Type}
		for _, m := range def.Matchers {
			cm := compiledMatcher{}
			for _, group := range m.Groups {
				res := make([]*regexp.Regexp, 0, len(group))
				for _, term := range group {
					res = append(res, termPattern(term))
				}
				cm.groups = append(cm.groups, res)
			}
			rule.matchers = append(rule.matchers, cm)
		}
		ic.rules = append(ic.rules, rule)
	}

	return ic
}

// termPattern matches a term case-insensitively at the start of a word, so
// "report" also matches "reports".
func termPattern(term string) *regexp.Regexp {
	term = strings.TrimSpace(term)
	words := strings.Fields(term)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b` + strings.Join(words, `\s+`))
}

func (ic *IntentClassifier) Classify(utterance string) entity.IntentMatch {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return entity.IntentMatch{}
	}

	for _, rule := range ic.rules {
		for _, m := range rule.matchers {
			if m.match(utterance) {
				return entity.IntentMatch{
					Matched:    true,
					TaskType:   rule.taskType,
					Confidence: ic.confidence,
				}
			}
		}
	}

	return entity.IntentMatch{}
}
