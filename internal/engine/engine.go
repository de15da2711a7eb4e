// Package engine composes the conversation subsystems into the single
// entry point the transport layer calls once per user message. Every turn is
// one read-modify-write cycle against the session store; the caller
// guarantees at most one in-flight request per user.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/analytics"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/clarify"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/flow"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/interrupt"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/preference"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/session"
	"go.uber.org/zap"
)

// ErrNothingToResume is returned by ResumeFlow when the context stack is
// empty. Recoverable: the caller should just say so.
var ErrNothingToResume = errors.New("nothing to resume")

// lastFieldKey records which session field was committed most recently, so a
// correction can re-open the right step.
const lastFieldKey = "last_field"

// TurnResult is the engine's answer to one user message.
type TurnResult struct {
	Reply   string           `json:"reply"`
	Session *session.Session `json:"session"`
}

// Engine wires the session store, state machine, classifiers, resolver,
// preferences and analytics behind HandleTurn.
type Engine struct {
	store     session.Store
	machine   *flow.Machine
	matcher   *clarify.Matcher
	directory clarify.Directory
	prefs     preference.Service
	learner   *preference.Learner
	tracker   analytics.Service
	ttl       time.Duration
	logger    *zap.Logger
}

// Config carries the engine's collaborators. Directory, Prefs, Learner and
// Tracker may be nil; the engine degrades to the bare state machine.
type Config struct {
	Store     session.Store
	Machine   *flow.Machine
	Matcher   *clarify.Matcher
	Directory clarify.Directory
	Prefs     preference.Service
	Learner   *preference.Learner
	Tracker   analytics.Service
	TTL       time.Duration
	Logger    *zap.Logger
}

// New creates the engine.
func New(cfg Config) *Engine {
	matcher := cfg.Matcher
	if matcher == nil {
		matcher = clarify.NewMatcher()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:     cfg.Store,
		machine:   cfg.Machine,
		matcher:   matcher,
		directory: cfg.Directory,
		prefs:     cfg.Prefs,
		learner:   cfg.Learner,
		tracker:   cfg.Tracker,
		ttl:       ttl,
		logger:    logger,
	}
}

// turnState accumulates what a single turn did to the session.
type turnState struct {
	sess    *session.Session
	loaded  bool // session existed before this turn
	deleted bool // session was destroyed during this turn
}

// HandleTurn processes one user message: load session, classify interrupts,
// run the state machine or clarification, persist once, emit analytics.
// Only a store failure propagates; everything else becomes a user-facing
// reply.
func (e *Engine) HandleTurn(ctx context.Context, userID, message string, entities map[string]string) (*TurnResult, error) {
	sess, err := e.store.Get(ctx, userID)
	if err != nil {
		storeFailuresTotal.Inc()
		turnsTotal.WithLabelValues("store_failure").Inc()
		return nil, err
	}

	ts := &turnState{sess: sess, loaded: sess != nil}
	if ts.sess == nil {
		ts.sess = session.New(userID)
	}

	reply := e.route(ctx, ts, message, entities)

	if !ts.deleted && (ts.loaded || ts.sess.InFlow() || ts.sess.HasPaused()) {
		if err := e.store.Put(ctx, userID, ts.sess, e.ttl); err != nil {
			storeFailuresTotal.Inc()
			turnsTotal.WithLabelValues("store_failure").Inc()
			return nil, err
		}
	}

	turnsTotal.WithLabelValues("ok").Inc()
	return &TurnResult{Reply: reply, Session: ts.sess}, nil
}

func (e *Engine) route(ctx context.Context, ts *turnState, message string, entities map[string]string) string {
	sess := ts.sess

	// Resume requests are honored whenever something is paused and no flow
	// is live; "continue" mid-flow is just flow input.
	if interrupt.IsResumeRequest(message) && !sess.InFlow() {
		return e.resumeReply(sess)
	}

	if !sess.InFlow() {
		return e.handleIdle(ctx, ts, message, entities)
	}
	return e.handleInFlow(ctx, ts, message, entities)
}

// handleIdle starts a flow when the extracted intent (or an obvious keyword)
// asks for one.
func (e *Engine) handleIdle(ctx context.Context, ts *turnState, message string, entities map[string]string) string {
	kind := intentToFlow(entities["intent"], message)
	if kind == "" {
		if ts.sess.HasPaused() {
			return "Say \"continue\" to get back to where you were, or tell me what you'd like to do."
		}
		return "I can help you donate or search for causes. What would you like to do?"
	}

	fresh, err := e.machine.StartSession(ts.sess.UserID, kind)
	if err != nil {
		e.logger.Error("failed to start flow", zap.String("flow_kind", kind), zap.Error(err))
		return "Sorry, I can't do that right now."
	}
	// A paused context survives the new flow: carry the stack over.
	fresh.ContextStack = ts.sess.ContextStack
	ts.sess = fresh

	e.track(ctx, ts.sess, analytics.EventStarted, "")

	prompt, err := e.machine.Prompt(ts.sess)
	if err != nil {
		return "Sorry, something went wrong."
	}
	return prompt + e.suggestionFor(ctx, ts.sess)
}

func (e *Engine) handleInFlow(ctx context.Context, ts *turnState, message string, entities map[string]string) string {
	sess := ts.sess

	switch interrupt.Classify(message, sess.State) {
	case interrupt.Navigation:
		interruptsTotal.WithLabelValues("navigation").Inc()
		if isStepBack(message) {
			return e.stepBackReply(sess)
		}
		return e.cancelReply(ctx, ts)
	case interrupt.Question:
		interruptsTotal.WithLabelValues("question").Inc()
		e.track(ctx, sess, analytics.EventContextSwitched, sess.CurrentStep)
		sess.Pause(message)
		return e.answerQuestion(ctx, message) +
			" Say \"continue\" when you want to pick up where you left off."
	}

	if clarify.IsCorrection(message) {
		return e.correctionReply(sess)
	}

	if pending, ok := clarify.Pending(sess); ok {
		return e.resolvePendingReply(ctx, ts, pending, message)
	}

	step, err := e.machine.CurrentStep(sess)
	if err != nil {
		if errors.Is(err, flow.ErrAlreadyComplete) {
			return e.finishReply(ctx, ts)
		}
		e.logger.Error("current step lookup failed", zap.Error(err))
		return "Sorry, something went wrong."
	}

	input := message
	if v, ok := entities[step.Field]; ok && v != "" {
		input = v
	}

	// Target selection runs through the fuzzy matcher when a directory is
	// wired; everything else goes straight to the validator.
	if step.Field == flow.FieldTarget && e.directory != nil {
		return e.matchTargetReply(ctx, ts, input)
	}
	return e.advanceReply(ctx, ts, input)
}

// advanceReply commits input to the current step.
func (e *Engine) advanceReply(ctx context.Context, ts *turnState, input string) string {
	sess := ts.sess
	step, err := e.machine.CurrentStep(sess)
	if err != nil {
		return "Sorry, something went wrong."
	}

	res, err := e.machine.Advance(sess, input)
	if err != nil {
		var vErr *flow.ValidationError
		if errors.As(err, &vErr) {
			return fmt.Sprintf("%s %s", sentence(vErr.Reason), res.Prompt)
		}
		if errors.Is(err, flow.ErrAlreadyComplete) {
			return e.finishReply(ctx, ts)
		}
		e.logger.Error("advance failed", zap.Error(err))
		return "Sorry, something went wrong."
	}

	sess.SetField(lastFieldKey, step.Field)
	e.track(ctx, sess, analytics.EventStepCompleted, step.Name)

	if res.Completed {
		return e.finishReply(ctx, ts)
	}
	return res.Prompt + e.suggestionFor(ctx, sess)
}

// matchTargetReply resolves free text against the entity directory.
func (e *Engine) matchTargetReply(ctx context.Context, ts *turnState, input string) string {
	sess := ts.sess
	candidates, err := e.directory.Search(ctx, clarify.SearchFilters{Query: input})
	if err != nil {
		e.logger.Warn("entity directory lookup failed", zap.Error(err))
		return "Sorry, I can't look that up right now. Try again in a moment."
	}

	result := e.matcher.Match(input, candidates)
	switch result.Outcome {
	case clarify.Exact:
		sess.SetField(flow.FieldTargetID, result.Best.ID)
		return e.advanceReply(ctx, ts, result.Best.Name)
	case clarify.Ambiguous:
		clarificationsTotal.Inc()
		e.track(ctx, sess, analytics.EventClarificationRequested, sess.CurrentStep)
		if err := clarify.SavePending(sess, flow.FieldTarget, result.Options); err != nil {
			e.logger.Error("failed to save pending clarification", zap.Error(err))
			return "Sorry, something went wrong."
		}
		return "I found a few possibilities. Which one did you mean?\n" +
			clarify.FormatOptions(result.Options)
	default:
		return fmt.Sprintf("I couldn't find %q. Try another name or a cause like %s.",
			strings.TrimSpace(input), strings.Join(flow.SearchCategories, ", "))
	}
}

// resolvePendingReply maps a follow-up reply onto the previously presented
// options.
func (e *Engine) resolvePendingReply(ctx context.Context, ts *turnState, pending *clarify.PendingClarification, message string) string {
	entity, ok := clarify.ResolveReply(pending, message)
	if !ok {
		return "Sorry, I didn't catch that. Reply with a number:\n" +
			clarify.FormatOptions(pending.Options)
	}
	clarify.ClearPending(ts.sess)
	if pending.Field == flow.FieldTarget {
		ts.sess.SetField(flow.FieldTargetID, entity.ID)
	}
	return e.advanceReply(ctx, ts, entity.Name)
}

// correctionReply re-opens the step for the most recently committed field.
func (e *Engine) correctionReply(sess *session.Session) string {
	lastField, ok := sess.Field(lastFieldKey)
	if !ok {
		prompt, err := e.machine.Prompt(sess)
		if err != nil {
			return "Sorry, something went wrong."
		}
		return prompt
	}

	f, err := e.machine.Registry().Get(sess.FlowKind)
	if err != nil {
		return "Sorry, something went wrong."
	}
	for i := range f.Steps {
		if f.Steps[i].Field == lastField {
			sess.ClearField(lastField)
			sess.CurrentStep = f.Steps[i].Name
			sess.AddHistory("correction: reopened " + f.Steps[i].Name)
			return "No problem. " + f.Steps[i].Render(sess)
		}
	}
	prompt, err := e.machine.Prompt(sess)
	if err != nil {
		return "Sorry, something went wrong."
	}
	return prompt
}

// stepBackReply re-enters the previous step.
func (e *Engine) stepBackReply(sess *session.Session) string {
	f, err := e.machine.Registry().Get(sess.FlowKind)
	if err != nil {
		return "Sorry, something went wrong."
	}
	idx := f.StepIndex(sess.CurrentStep)
	if idx <= 0 {
		prompt, err := e.machine.Prompt(sess)
		if err != nil {
			return "Sorry, something went wrong."
		}
		return "We're at the beginning. " + prompt
	}
	prev := &f.Steps[idx-1]
	sess.ClearField(prev.Field)
	sess.CurrentStep = prev.Name
	sess.AddHistory("stepped back to " + prev.Name)
	return prev.Render(sess)
}

// cancelReply abandons the live flow and destroys the session.
func (e *Engine) cancelReply(ctx context.Context, ts *turnState) string {
	sess := ts.sess
	kind := sess.FlowKind
	e.track(ctx, sess, analytics.EventAbandoned, sess.CurrentStep)
	e.machine.Cancel(sess)

	if !sess.HasPaused() {
		e.destroySession(ctx, ts)
	}
	e.logger.Info("flow cancelled",
		zap.String("user_id", sess.UserID),
		zap.String("flow_kind", kind))
	return "Okay, I've cancelled that. Nothing was charged."
}

// finishReply wraps up a completed flow: confirmation check, passive
// learning, analytics, session teardown.
func (e *Engine) finishReply(ctx context.Context, ts *turnState) string {
	sess := ts.sess
	kind := sess.FlowKind

	if confirmed, ok := sess.Field(flow.FieldConfirmed); ok && confirmed == "no" {
		e.track(ctx, sess, analytics.EventAbandoned, flow.StepConfirm)
		e.machine.Cancel(sess)
		if !sess.HasPaused() {
			e.destroySession(ctx, ts)
		}
		return "Okay, I won't go ahead. Nothing was charged."
	}

	e.trackCompleted(ctx, sess)
	flowsCompletedTotal.WithLabelValues(kind).Inc()
	if e.learner != nil {
		e.learner.LearnFromFlow(ctx, sess)
	}

	reply := e.completionText(sess, kind)
	sess.EndFlow()
	if !sess.HasPaused() {
		e.destroySession(ctx, ts)
	}
	return reply
}

func (e *Engine) completionText(sess *session.Session, kind string) string {
	switch kind {
	case flow.KindDonating:
		amount, _ := sess.Field(flow.FieldAmount)
		target, _ := sess.Field(flow.FieldTarget)
		return fmt.Sprintf("Thank you! Your donation of %s birr to %s is on its way.", amount, target)
	case flow.KindSearching:
		category, _ := sess.Field(flow.FieldCategory)
		return fmt.Sprintf("Here's what we have under %s. Say \"donate\" when something speaks to you.", category)
	default:
		return "All done."
	}
}

// resumeReply pops the most recent paused context back into the live state.
func (e *Engine) resumeReply(sess *session.Session) string {
	frame := sess.Resume()
	if frame == nil {
		return "There's nothing to resume. You can say \"donate\" or \"search\" to start."
	}
	prompt, err := e.machine.Prompt(sess)
	if err != nil {
		e.logger.Error("prompt after resume failed", zap.Error(err))
		return "Picking up where you left off."
	}
	return "Picking up where you left off. " + prompt
}

// answerQuestion gives a best-effort out-of-band answer, using the entity
// directory when one is wired.
func (e *Engine) answerQuestion(ctx context.Context, message string) string {
	if e.directory == nil {
		return "Good question — I'll note it."
	}
	entities, err := e.directory.Search(ctx, clarify.SearchFilters{Query: message, Limit: 5})
	if err != nil || len(entities) == 0 {
		return "I don't have a good answer for that yet."
	}
	names := make([]string, 0, len(entities))
	for _, ent := range entities {
		names = append(names, ent.Name)
	}
	return "Here's what we have: " + strings.Join(names, ", ") + "."
}

// suggestionFor appends a preference-derived hint for the step the session
// just entered. The flow still requires explicit input before committing.
func (e *Engine) suggestionFor(ctx context.Context, sess *session.Session) string {
	if e.learner == nil || e.prefs == nil {
		return ""
	}
	prefs, err := e.prefs.GetAll(ctx, sess.UserID)
	if err != nil || len(prefs) == 0 {
		return ""
	}
	_, fragment := e.learner.SuggestDefaults(sess.CurrentStep, prefs)
	if fragment == "" {
		return ""
	}
	return " " + fragment
}

func (e *Engine) destroySession(ctx context.Context, ts *turnState) {
	if _, err := e.store.Delete(ctx, ts.sess.UserID); err != nil {
		// The TTL will reap it; don't fail the turn over cleanup.
		e.logger.Warn("session cleanup failed",
			zap.String("user_id", ts.sess.UserID),
			zap.Error(err))
	}
	ts.deleted = true
}

// track emits one analytics event; the tracker swallows its own failures.
func (e *Engine) track(ctx context.Context, sess *session.Session, eventType, stepName string) {
	if e.tracker == nil {
		return
	}
	e.tracker.Track(ctx, analytics.TrackInput{
		UserID:    sess.UserID,
		SessionID: sess.SessionID,
		EventType: eventType,
		FlowKind:  sess.FlowKind,
		StepName:  stepName,
	})
}

// trackCompleted archives the collected fields with the completion event so
// the preference learner can mine them later.
func (e *Engine) trackCompleted(ctx context.Context, sess *session.Session) {
	if e.tracker == nil {
		return
	}
	payload := make(map[string]interface{}, len(sess.Data))
	for k, v := range sess.Data {
		payload[k] = v
	}
	e.tracker.Track(ctx, analytics.TrackInput{
		UserID:    sess.UserID,
		SessionID: sess.SessionID,
		EventType: analytics.EventCompleted,
		FlowKind:  sess.FlowKind,
		Payload:   payload,
	})
}

func intentToFlow(intent, message string) string {
	switch strings.ToLower(strings.TrimSpace(intent)) {
	case "donate", "donation", "donating":
		return flow.KindDonating
	case "search", "browse", "searching":
		return flow.KindSearching
	}
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "donate"), strings.Contains(msg, "give"):
		return flow.KindDonating
	case strings.Contains(msg, "search"), strings.Contains(msg, "find"), strings.Contains(msg, "browse"):
		return flow.KindSearching
	}
	return ""
}

func isStepBack(message string) bool {
	msg := strings.ToLower(strings.TrimSpace(message))
	return msg == "back" || msg == "go back" || strings.HasPrefix(msg, "go back ")
}

// sentence upper-cases the first rune and terminates the fragment, so
// validator reasons read naturally in replies.
func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	out := string(runes)
	if !strings.HasSuffix(out, ".") && !strings.HasSuffix(out, "?") && !strings.HasSuffix(out, "!") {
		out += "."
	}
	return out
}
