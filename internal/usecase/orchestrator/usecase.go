package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"socflow/internal/application/port/input"
	"socflow/internal/application/port/output"
	"socflow/internal/application/service"
	"socflow/internal/domain/entity"
	"socflow/internal/infrastructure/prompts"
)

const (
	defaultLookupLimit     = 5
	defaultIntentThreshold = 0.7
)

var _ input.WorkflowEngine = (*UseCase)(nil)

type Config struct {
	// LookupLimit caps the candidates fetched for a lookup slot.
	LookupLimit int
	// MaxSlotAttempts cancels the workflow after that many failed answers
	// for one slot. Zero means unlimited.
	MaxSlotAttempts int
	// IntentThreshold is the minimum confidence that starts a workflow.
	IntentThreshold float64
}

func DefaultConfig() Config {
	return Config{
		LookupLimit:     defaultLookupLimit,
		IntentThreshold: defaultIntentThreshold,
	}
}

// IntentFallback is consulted by HandleMessage when no phrase matcher fires.
type IntentFallback interface {
	Classify(ctx context.Context, utterance string) (entity.IntentMatch, error)
}

type UseCase struct {
	catalog    *service.TaskCatalog
	classifier *service.IntentClassifier
	resolver   *service.SlotResolver
	store      output.WorkflowStore
	lookup     output.LookupProvider
	formatter  *prompts.Formatter
	metrics    output.MetricsPort
	logger     output.LoggerPort
	fallback   IntentFallback
	cfg        Config
}

func New(
	catalog *service.TaskCatalog,
	store output.WorkflowStore,
	lookup output.LookupProvider,
	formatter *prompts.Formatter,
	metrics output.MetricsPort,
	logger output.LoggerPort,
	cfg Config,
) *UseCase {
	if cfg.LookupLimit <= 0 {
		cfg.LookupLimit = defaultLookupLimit
	}
	if cfg.IntentThreshold <= 0 {
		cfg.IntentThreshold = defaultIntentThreshold
	}

	return &UseCase{
		catalog:    catalog,
		classifier: service.NewIntentClassifier(catalog),
		resolver:   service.NewSlotResolver(lookup, metrics, logger),
		store:      store,
		lookup:     lookup,
		formatter:  formatter,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

func (uc *UseCase) WithIntentFallback(f IntentFallback) *UseCase {
	uc.fallback = f
	return uc
}

func (uc *UseCase) DetectIntent(_ context.Context, utterance string) entity.IntentMatch {
	return uc.classifier.Classify(utterance)
}

func (uc *UseCase) GetWorkflow(ctx context.Context, conversationID string) (*entity.WorkflowInstance, bool, error) {
	inst, found, err := uc.store.Get(ctx, conversationID)
	if err != nil {
		return nil, false, fmt.Errorf("get workflow: %w", err)
	}
	return inst, found, nil
}

// ClearWorkflow drops the conversation's workflow whatever its state. Clearing
// a conversation without one is not an error.
func (uc *UseCase) ClearWorkflow(ctx context.Context, conversationID string) error {
	inst, found, err := uc.store.Get(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("clear workflow: %w", err)
	}
	if !found {
		return nil
	}

	if err := uc.store.Remove(ctx, conversationID); err != nil {
		return fmt.Errorf("clear workflow: %w", err)
	}

	uc.metrics.WorkflowFinished(inst.TaskType, entity.StateCancelled)
	uc.logger.Info("Workflow cleared",
		"conversationId", conversationID,
		"workflowId", inst.ID,
		"state", inst.State)
	return nil
}

func (uc *UseCase) CompleteWorkflow(ctx context.Context, conversationID string) error {
	inst, found, err := uc.store.Get(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("complete workflow: %w", err)
	}
	if !found {
		return fmt.Errorf("complete workflow: %w", entity.ErrNoActiveWorkflow)
	}

	if err := inst.Transition(entity.StateCompleted); err != nil {
		return fmt.Errorf("complete workflow: %w", err)
	}
	if err := uc.store.Remove(ctx, conversationID); err != nil {
		return fmt.Errorf("complete workflow: %w", err)
	}

	uc.metrics.WorkflowFinished(inst.TaskType, entity.StateCompleted)
	uc.logger.Info("Workflow completed",
		"conversationId", conversationID,
		"workflowId", inst.ID,
		"taskType", inst.TaskType,
		"duration", time.Since(inst.StartedAt).String())
	return nil
}

func (uc *UseCase) StartWorkflow(ctx context.Context, conversationID string, taskType entity.TaskType, initial map[string]string, org entity.OrgContext) (*entity.TurnResult, error) {
	began := time.Now()
	res, err := uc.start(ctx, conversationID, taskType, initial, org)
	uc.observe(began, res)
	return res, err
}

func (uc *UseCase) SubmitAnswer(ctx context.Context, conversationID, rawAnswer string, org entity.OrgContext) (*entity.TurnResult, error) {
	began := time.Now()
	res, err := uc.submit(ctx, conversationID, rawAnswer, org)
	uc.observe(began, res)
	return res, err
}

// HandleMessage is the per-turn entry point: an active workflow receives the
// utterance as an answer, otherwise the utterance may start a new workflow.
func (uc *UseCase) HandleMessage(ctx context.Context, conversationID, utterance string, org entity.OrgContext) (*entity.TurnResult, error) {
	began := time.Now()
	res, err := uc.handle(ctx, conversationID, utterance, org)
	uc.observe(began, res)
	return res, err
}

func (uc *UseCase) handle(ctx context.Context, conversationID, utterance string, org entity.OrgContext) (*entity.TurnResult, error) {
	_, found, err := uc.store.Get(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("handle message: %w", err)
	}
	if found {
		return uc.submit(ctx, conversationID, utterance, org)
	}

	match := uc.classifier.Classify(utterance)
	if !match.Matched && uc.fallback != nil {
		fb, err := uc.fallback.Classify(ctx, utterance)
		if err != nil {
			uc.logger.Warn("Intent fallback failed", "conversationId", conversationID, "error", err)
		} else {
			match = fb
		}
	}

	if !match.Matched || match.Confidence < uc.cfg.IntentThreshold {
		return &entity.TurnResult{Kind: entity.TurnPassthrough, Text: utterance}, nil
	}

	uc.logger.Debug("Intent detected",
		"conversationId", conversationID,
		"taskType", match.TaskType,
		"confidence", match.Confidence)

	return uc.start(ctx, conversationID, match.TaskType, nil, org)
}

func (uc *UseCase) start(ctx context.Context, conversationID string, taskType entity.TaskType, initial map[string]string, org entity.OrgContext) (*entity.TurnResult, error) {
	def, ok := uc.catalog.Definition(taskType)
	if !ok {
		return nil, fmt.Errorf("start workflow %q: %w", taskType, entity.ErrUnknownTaskType)
	}

	if _, found, err := uc.store.Get(ctx, conversationID); err != nil {
		return nil, fmt.Errorf("start workflow: %w", err)
	} else if found {
		return nil, fmt.Errorf("start workflow: %w", entity.ErrWorkflowActive)
	}

	values := uc.resolveInitial(ctx, def, initial, org)

	inst, err := uc.store.Create(ctx, conversationID, taskType, values)
	if err != nil {
		if errors.Is(err, entity.ErrWorkflowExists) {
			return nil, fmt.Errorf("start workflow: %w", entity.ErrWorkflowActive)
		}
		return nil, fmt.Errorf("start workflow: %w", err)
	}

	uc.metrics.WorkflowStarted(taskType)
	uc.logger.Info("Workflow started",
		"conversationId", conversationID,
		"workflowId", inst.ID,
		"taskType", taskType,
		"prefilled", len(values))

	if err := inst.Transition(entity.StateGathering); err != nil {
		return nil, fmt.Errorf("start workflow: %w", err)
	}

	return uc.advance(ctx, def, inst, org)
}

// resolveInitial runs caller-supplied values through the resolver so they are
// held to the same rules as typed answers. Values that do not resolve are
// dropped and asked for later.
func (uc *UseCase) resolveInitial(ctx context.Context, def entity.TaskDefinition, initial map[string]string, org entity.OrgContext) map[string]entity.SlotValue {
	values := make(map[string]entity.SlotValue, len(initial))
	if len(initial) == 0 {
		return values
	}

	for _, spec := range def.Slots {
		raw, ok := initial[spec.Name]
		if !ok {
			continue
		}
		ans := uc.resolver.Resolve(ctx, spec, raw, service.LookupContext{Org: org})
		if !ans.OK {
			uc.logger.Debug("Ignoring initial value", "slot", spec.Name, "reason", ans.Reason)
			continue
		}
		values[spec.Name] = ans.Value
	}

	for name := range initial {
		if _, ok := def.Slot(name); !ok {
			uc.logger.Debug("Ignoring initial value for undeclared slot", "taskType", def.Type, "slot", name)
		}
	}

	return values
}

func (uc *UseCase) submit(ctx context.Context, conversationID, rawAnswer string, org entity.OrgContext) (*entity.TurnResult, error) {
	inst, found, err := uc.store.Get(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("submit answer: %w", err)
	}
	if !found {
		return &entity.TurnResult{Kind: entity.TurnNoActiveWorkflow}, nil
	}

	def, ok := uc.catalog.Definition(inst.TaskType)
	if !ok {
		return nil, fmt.Errorf("submit answer for %q: %w", inst.TaskType, entity.ErrUnknownTaskType)
	}

	switch inst.State {
	case entity.StateInitiated:
		if err := inst.Transition(entity.StateGathering); err != nil {
			return nil, fmt.Errorf("submit answer: %w", err)
		}
		return uc.advance(ctx, def, inst, org)
	case entity.StateGathering:
		return uc.gather(ctx, def, inst, rawAnswer, org)
	case entity.StateConfirming:
		return uc.confirm(ctx, def, inst, rawAnswer)
	case entity.StateExecuting:
		return &entity.TurnResult{
			Kind:     entity.TurnExecuting,
			Text:     fmt.Sprintf("The %s is already running. I'll let you know when it finishes.", strings.ToLower(def.Title)),
			Workflow: inst,
		}, nil
	default:
		// Terminal instances are never stored; drop a stray one.
		if err := uc.store.Remove(ctx, conversationID); err != nil {
			return nil, fmt.Errorf("submit answer: %w", err)
		}
		return &entity.TurnResult{Kind: entity.TurnNoActiveWorkflow}, nil
	}
}

func (uc *UseCase) gather(ctx context.Context, def entity.TaskDefinition, inst *entity.WorkflowInstance, rawAnswer string, org entity.OrgContext) (*entity.TurnResult, error) {
	spec, ok := def.Slot(inst.PendingSlot)
	if !ok {
		inst.PendingSlot = ""
		return uc.advance(ctx, def, inst, org)
	}

	ans := uc.resolver.Resolve(ctx, spec, rawAnswer, service.LookupContext{
		Org:        org,
		Candidates: inst.Candidates[spec.Name],
	})

	if !ans.OK {
		inst.Attempts[spec.Name]++
		uc.logger.Debug("Slot answer rejected",
			"workflowId", inst.ID,
			"slot", spec.Name,
			"attempt", inst.Attempts[spec.Name],
			"reason", ans.Reason)

		if uc.cfg.MaxSlotAttempts > 0 && inst.Attempts[spec.Name] >= uc.cfg.MaxSlotAttempts {
			text := fmt.Sprintf("I still couldn't use that answer (%s), so I've stopped the %s. Ask again whenever you're ready.",
				ans.Reason, strings.ToLower(def.Title))
			return uc.cancel(ctx, inst, text)
		}

		res, err := uc.ask(ctx, inst, spec, org, ans.Reason)
		if err != nil {
			return nil, err
		}
		return uc.persist(ctx, inst, res)
	}

	inst.Slots[spec.Name] = ans.Value
	inst.PendingSlot = ""
	delete(inst.Candidates, spec.Name)
	delete(inst.Attempts, spec.Name)

	uc.logger.Debug("Slot resolved",
		"workflowId", inst.ID,
		"slot", spec.Name,
		"value", ans.Value.Text)

	return uc.advance(ctx, def, inst, org)
}

// advance asks for the next missing required slot, or moves the workflow to
// confirming once none remain.
func (uc *UseCase) advance(ctx context.Context, def entity.TaskDefinition, inst *entity.WorkflowInstance, org entity.OrgContext) (*entity.TurnResult, error) {
	missing := uc.catalog.MissingRequired(inst.TaskType, inst.Slots)
	if len(missing) > 0 {
		spec := missing[0]
		inst.PendingSlot = spec.Name
		res, err := uc.ask(ctx, inst, spec, org, "")
		if err != nil {
			return nil, err
		}
		return uc.persist(ctx, inst, res)
	}

	for _, spec := range def.Slots {
		if !spec.Required && spec.HasDefault() && !inst.HasSlot(spec.Name) {
			inst.Slots[spec.Name] = entity.TextValue(spec.Default)
		}
	}
	inst.PendingSlot = ""

	if err := inst.Transition(entity.StateConfirming); err != nil {
		return nil, fmt.Errorf("advance workflow: %w", err)
	}

	text, err := uc.formatter.Summary(def, inst)
	if err != nil {
		return nil, fmt.Errorf("render summary: %w", err)
	}

	res := &entity.TurnResult{Kind: entity.TurnSummary, Text: text}
	return uc.persist(ctx, inst, res)
}

// ask renders the question for spec. A retry re-offers the candidates shown
// before so numbering stays stable; a fresh question fetches them again.
func (uc *UseCase) ask(ctx context.Context, inst *entity.WorkflowInstance, spec entity.SlotSpec, org entity.OrgContext, reason string) (*entity.TurnResult, error) {
	var candidates []entity.LookupCandidate

	if lookup, ok := spec.Answer.(entity.LookupAnswer); ok {
		if reason != "" {
			candidates = inst.Candidates[spec.Name]
		} else {
			candidates = uc.fetchCandidates(ctx, inst, spec.Name, lookup.Key, org)
			if len(candidates) > 0 {
				inst.Candidates[spec.Name] = candidates
			} else {
				delete(inst.Candidates, spec.Name)
			}
		}
	}

	text, err := uc.formatter.Question(spec, candidates, reason)
	if err != nil {
		return nil, fmt.Errorf("render question for %s: %w", spec.Name, err)
	}

	return &entity.TurnResult{
		Kind:       entity.TurnQuestion,
		Text:       text,
		Slot:       spec.Name,
		Reason:     reason,
		Candidates: candidates,
	}, nil
}

// fetchCandidates returns nil when the provider fails or has nothing, which
// switches the question to manual identifier entry.
func (uc *UseCase) fetchCandidates(ctx context.Context, inst *entity.WorkflowInstance, slot, key string, org entity.OrgContext) []entity.LookupCandidate {
	if uc.lookup == nil {
		return nil
	}

	candidates, err := uc.lookup.Search(ctx, org, output.LookupQuery{
		TaskType: inst.TaskType,
		Slot:     slot,
		Key:      key,
		Limit:    uc.cfg.LookupLimit,
	})
	uc.metrics.LookupCalled("search", err, len(candidates))
	if err != nil {
		uc.logger.Warn("Lookup search failed, falling back to manual entry",
			"workflowId", inst.ID,
			"slot", slot,
			"error", err)
		return nil
	}

	if len(candidates) > uc.cfg.LookupLimit {
		candidates = candidates[:uc.cfg.LookupLimit]
	}
	return candidates
}

func (uc *UseCase) confirm(ctx context.Context, def entity.TaskDefinition, inst *entity.WorkflowInstance, rawAnswer string) (*entity.TurnResult, error) {
	title := strings.ToLower(def.Title)
	switch reply := parseConfirmation(rawAnswer); reply {
	case replyNo:
		uc.logger.Debug("Confirmation declined", "workflowId", inst.ID)
		return uc.cancel(ctx, inst, fmt.Sprintf("Okay, I've cancelled the %s.", title))
	case replyUnknown:
		uc.logger.Debug("Confirmation not understood", "workflowId", inst.ID, "answer", rawAnswer)
		return uc.cancel(ctx, inst, fmt.Sprintf("I didn't understand %q as a yes or no, so I've cancelled the %s. Ask again to start over.", strings.TrimSpace(rawAnswer), title))
	}

	if err := inst.Transition(entity.StateExecuting); err != nil {
		return nil, fmt.Errorf("confirm workflow: %w", err)
	}

	res := &entity.TurnResult{
		Kind: entity.TurnReadyToExecute,
		Text: fmt.Sprintf("Starting the %s.", strings.ToLower(def.Title)),
	}
	if _, err := uc.persist(ctx, inst, res); err != nil {
		return nil, err
	}

	uc.logger.Info("Workflow confirmed",
		"conversationId", inst.ConversationID,
		"workflowId", inst.ID,
		"taskType", inst.TaskType)
	return res, nil
}

func (uc *UseCase) cancel(ctx context.Context, inst *entity.WorkflowInstance, text string) (*entity.TurnResult, error) {
	if err := inst.Transition(entity.StateCancelled); err != nil {
		return nil, fmt.Errorf("cancel workflow: %w", err)
	}
	if err := uc.store.Remove(ctx, inst.ConversationID); err != nil {
		return nil, fmt.Errorf("cancel workflow: %w", err)
	}

	uc.metrics.WorkflowFinished(inst.TaskType, entity.StateCancelled)
	uc.logger.Info("Workflow cancelled",
		"conversationId", inst.ConversationID,
		"workflowId", inst.ID,
		"taskType", inst.TaskType)

	return &entity.TurnResult{Kind: entity.TurnCancelled, Text: text, Workflow: inst}, nil
}

// persist stores inst and attaches a snapshot of it to res.
func (uc *UseCase) persist(ctx context.Context, inst *entity.WorkflowInstance, res *entity.TurnResult) (*entity.TurnResult, error) {
	if err := uc.store.Put(ctx, inst.ConversationID, inst); err != nil {
		return nil, fmt.Errorf("save workflow: %w", err)
	}
	res.Workflow = inst.Clone()
	return res, nil
}

func (uc *UseCase) observe(began time.Time, res *entity.TurnResult) {
	if res == nil {
		return
	}
	uc.metrics.TurnObserved(res.Kind, time.Since(began))
}

type confirmReply string

const (
	replyYes     confirmReply = "yes"
	replyNo      confirmReply = "no"
	replyUnknown confirmReply = "unknown"
)

var confirmVocabulary = map[string]confirmReply{
	"yes":     replyYes,
	"y":       replyYes,
	"confirm": replyYes,
	"proceed": replyYes,
	"no":      replyNo,
	"n":       replyNo,
	"cancel":  replyNo,
}

// parseConfirmation looks only at the first word, so "yes please" confirms
// and "no thanks" declines.
func parseConfirmation(raw string) confirmReply {
	words := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return replyUnknown
	}
	if reply, ok := confirmVocabulary[words[0]]; ok {
		return reply
	}
	return replyUnknown
}
