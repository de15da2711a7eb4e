package preference

import (
	"context"
	"fmt"
	"strconv"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/flow"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/session"
	"go.uber.org/zap"
)

// CompletedFlow is one finished conversation as recorded by the relational
// store. The learner only reads these; the store itself is owned elsewhere.
type CompletedFlow struct {
	FlowKind string
	Fields   map[string]string
}

// FlowHistorySource reads a bounded window of a user's most recent completed
// flows for active pattern analysis.
type FlowHistorySource interface {
	RecentCompletedFlows(ctx context.Context, userID string, limit int) ([]CompletedFlow, error)
}

// Learner populates preferences by observing completed flows. Learned values
// never overwrite a preference that already exists, whatever its source.
type Learner struct {
	repo          Repository
	history       FlowHistorySource
	amountCeiling int
	scanWindow    int
	logger        *zap.Logger
}

// NewLearner creates a learner. history may be nil when no relational flow
// archive is wired; AnalyzePatterns then becomes a no-op.
func NewLearner(repo Repository, history FlowHistorySource, amountCeiling, scanWindow int, logger *zap.Logger) *Learner {
	if amountCeiling <= 0 {
		amountCeiling = 10000
	}
	if scanWindow <= 0 {
		scanWindow = 20
	}
	return &Learner{
		repo:          repo,
		history:       history,
		amountCeiling: amountCeiling,
		scanWindow:    scanWindow,
		logger:        logger,
	}
}

// learnableFields maps session data fields of completed flows onto
// preference keys.
var learnableFields = map[string]string{
	flow.FieldMethod:   KeyPaymentMethod,
	flow.FieldAmount:   KeyDefaultAmount,
	flow.FieldCategory: KeyFavoriteCategory,
}

// LearnFromFlow passively seeds preferences from a completed flow's final
// data. Each learnable field is written only if no preference exists yet for
// its key.
func (l *Learner) LearnFromFlow(ctx context.Context, sess *session.Session) {
	for field, key := range learnableFields {
		value, ok := sess.Field(field)
		if !ok || !ValidValue(key, value) {
			continue
		}
		if key == KeyDefaultAmount && !l.saneAmount(value) {
			continue
		}

		created, err := l.repo.CreateIfAbsent(ctx, &Preference{
			UserID: sess.UserID,
			Key:    key,
			Value:  value,
			Source: SourceLearned,
		})
		if err != nil {
			// Learning is best effort; the conversation already succeeded.
			l.logger.Warn("preference learning failed",
				zap.String("user_id", sess.UserID),
				zap.String("key", key),
				zap.Error(err))
			continue
		}
		if created {
			l.logger.Info("preference learned",
				zap.String("user_id", sess.UserID),
				zap.String("key", key),
				zap.String("flow_kind", sess.FlowKind))
		}
	}
}

// AnalyzePatterns scans the user's recent completed flows and derives the
// mode of categorical fields and the mean of numeric fields, seeding
// preferences the same only-if-absent way.
func (l *Learner) AnalyzePatterns(ctx context.Context, userID string) error {
	if l.history == nil {
		return nil
	}

	flows, err := l.history.RecentCompletedFlows(ctx, userID, l.scanWindow)
	if err != nil {
		return fmt.Errorf("scan completed flows: %w", err)
	}
	if len(flows) == 0 {
		return nil
	}

	methodCounts := map[string]int{}
	categoryCounts := map[string]int{}
	amountSum, amountN := 0, 0

	for _, f := range flows {
		if m := f.Fields[flow.FieldMethod]; m != "" {
			methodCounts[m]++
		}
		if c := f.Fields[flow.FieldCategory]; c != "" {
			categoryCounts[c]++
		}
		if a := f.Fields[flow.FieldAmount]; a != "" {
			if n, err := strconv.Atoi(a); err == nil && n > 0 && n <= l.amountCeiling {
				amountSum += n
				amountN++
			}
		}
	}

	derived := map[string]string{}
	if m := mode(methodCounts); m != "" {
		derived[KeyPaymentMethod] = m
	}
	if c := mode(categoryCounts); c != "" {
		derived[KeyFavoriteCategory] = c
	}
	if amountN > 0 {
		derived[KeyDefaultAmount] = strconv.Itoa(amountSum / amountN)
	}

	for key, value := range derived {
		if !ValidValue(key, value) {
			continue
		}
		if _, err := l.repo.CreateIfAbsent(ctx, &Preference{
			UserID: userID,
			Key:    key,
			Value:  value,
			Source: SourceLearned,
		}); err != nil {
			return err
		}
	}
	return nil
}

// SuggestDefaults returns the stored defaults applicable to a step plus a
// prompt fragment offering them. Suggestions are never auto-applied; the
// flow still requires a confirming input.
func (l *Learner) SuggestDefaults(stepName string, prefs map[string]string) (map[string]string, string) {
	suggestions := map[string]string{}
	var fragment string

	switch stepName {
	case flow.StepChooseMethod:
		if v, ok := prefs[KeyPaymentMethod]; ok {
			suggestions[flow.FieldMethod] = v
			fragment = fmt.Sprintf("Use your usual method, %s?", v)
		}
	case flow.StepEnterAmount:
		if v, ok := prefs[KeyDefaultAmount]; ok {
			suggestions[flow.FieldAmount] = v
			fragment = fmt.Sprintf("Your usual amount is %s birr.", v)
		}
	case flow.StepChooseCategory:
		if v, ok := prefs[KeyFavoriteCategory]; ok {
			suggestions[flow.FieldCategory] = v
			fragment = fmt.Sprintf("You usually look at %s.", v)
		}
	}
	return suggestions, fragment
}

func (l *Learner) saneAmount(value string) bool {
	n, err := strconv.Atoi(value)
	return err == nil && n > 0 && n <= l.amountCeiling
}

// mode returns the most frequent key; ties break lexicographically for
// deterministic output.
func mode(counts map[string]int) string {
	best, bestN := "", 0
	for k, n := range counts {
		if n > bestN || (n == bestN && best != "" && k < best) {
			best, bestN = k, n
		}
	}
	return best
}
