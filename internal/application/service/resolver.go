package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"socflow/internal/application/port/output"
	"socflow/internal/domain/entity"
)

const (
	ReasonEmptyAnswer     = "empty answer"
	ReasonNotAllowed      = "value not in allowed set"
	ReasonNotIdentifiable = "could not identify selection"
)

// identifierPattern matches record identifiers such as INC-2024-0042 or CASE_17.
var identifierPattern = regexp.MustCompile(`\b[A-Z]+[-_][0-9]+(?:-[0-9]+)*\b`)

// LookupContext carries what the resolver needs for selection-from-lookup
// slots: the caller's organization and the candidate list last shown for the
// slot.
type LookupContext struct {
	Org        entity.OrgContext
	Candidates []entity.LookupCandidate
}

type SlotResolver struct {
	lookup  output.LookupProvider
	metrics output.MetricsPort
	logger  output.LoggerPort
}

func NewSlotResolver(lookup output.LookupProvider, metrics output.MetricsPort, logger output.LoggerPort) *SlotResolver {
	return &SlotResolver{
		lookup:  lookup,
		metrics: metrics,
		logger:  logger,
	}
}

func (r *SlotResolver) Resolve(ctx context.Context, spec entity.SlotSpec, raw string, lc LookupContext) entity.ResolvedAnswer {
	var ans entity.ResolvedAnswer

	switch answer := spec.Answer.(type) {
	case entity.FreeTextAnswer:
		ans = r.resolveFreeText(spec, raw)
	case entity.ChoiceAnswer:
		ans = r.resolveChoice(spec, answer.Options, raw)
	case entity.LookupAnswer:
		ans = r.resolveLookup(ctx, spec, raw, lc)
	default:
		ans = entity.Unresolved(fmt.Sprintf("slot %s has no supported answer shape", spec.Name))
	}

	r.metrics.SlotResolved(spec.Shape(), ans.OK)
	return ans
}

func (r *SlotResolver) resolveFreeText(spec entity.SlotSpec, raw string) entity.ResolvedAnswer {
	text := strings.TrimSpace(raw)
	if text == "" {
		if spec.Required {
			return entity.Unresolved(ReasonEmptyAnswer)
		}
		return entity.Resolved(entity.TextValue(spec.Default))
	}
	return entity.Resolved(entity.TextValue(text))
}

func (r *SlotResolver) resolveChoice(spec entity.SlotSpec, options []string, raw string) entity.ResolvedAnswer {
	answer := strings.ToLower(strings.TrimSpace(raw))
	if answer == "" {
		if !spec.Required && spec.HasDefault() {
			return entity.Resolved(entity.TextValue(spec.Default))
		}
		return entity.Unresolved(ReasonEmptyAnswer)
	}

	for _, c := range options {
		if strings.ToLower(c) == answer {
			return entity.Resolved(entity.TextValue(c))
		}
	}

	for _, c := range options {
		if strings.Contains(strings.ToLower(c), answer) {
			return entity.Resolved(entity.TextValue(c))
		}
	}

	// "executive summary please" names the choice inside a longer reply.
	for _, c := range options {
		if containsWord(answer, strings.ToLower(c)) {
			return entity.Resolved(entity.TextValue(c))
		}
	}

	return entity.Unresolved(fmt.Sprintf("%s (valid choices: %s)", ReasonNotAllowed, strings.Join(options, ", ")))
}

func containsWord(text, word string) bool {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(word) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

func (r *SlotResolver) resolveLookup(ctx context.Context, spec entity.SlotSpec, raw string, lc LookupContext) entity.ResolvedAnswer {
	answer := strings.TrimSpace(raw)
	if answer == "" {
		return entity.Unresolved(ReasonEmptyAnswer)
	}

	if n, err := strconv.Atoi(answer); err == nil && n > 0 {
		if n <= len(lc.Candidates) {
			return entity.Resolved(entity.CandidateValue(lc.Candidates[n-1]))
		}
		if len(lc.Candidates) > 0 {
			return entity.Unresolved(fmt.Sprintf("%s (choose a number between 1 and %d)", ReasonNotIdentifiable, len(lc.Candidates)))
		}
	}

	token := ExtractIdentifier(answer)
	if token == "" {
		return entity.Unresolved(ReasonNotIdentifiable)
	}

	for _, c := range lc.Candidates {
		if strings.EqualFold(c.ID, token) {
			return entity.Resolved(entity.CandidateValue(c))
		}
	}

	if r.lookup == nil {
		return entity.Unresolved(ReasonNotIdentifiable)
	}

	cand, found, err := r.lookup.ResolveByID(ctx, lc.Org, token)
	r.metrics.LookupCalled("resolve", err, boolToInt(found))
	if err != nil {
		r.logger.Warn("Direct lookup failed", "slot", spec.Name, "token", token, "error", err)
		return entity.Unresolved(ReasonNotIdentifiable)
	}
	if !found {
		return entity.Unresolved(fmt.Sprintf("%s (%s was not found)", ReasonNotIdentifiable, token))
	}

	return entity.Resolved(entity.CandidateValue(cand))
}

// ExtractIdentifier returns the first identifier-shaped token in s, upper-cased,
// or "" if there is none.
func ExtractIdentifier(s string) string {
	return identifierPattern.FindString(strings.ToUpper(s))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
