package flow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/clarify"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/session"
)

// Flow kinds shipped with the engine.
const (
	KindDonating  = "donating"
	KindSearching = "searching"
)

// Donation step names.
const (
	StepChooseTarget = "choose_target"
	StepEnterAmount  = "enter_amount"
	StepChooseMethod = "choose_method"
	StepConfirm      = "confirm"
)

// Search step names.
const (
	StepEnterQuery     = "enter_query"
	StepChooseCategory = "choose_category"
)

// Session data fields the built-in flows fill.
const (
	FieldTarget    = "target"
	FieldTargetID  = "target_id"
	FieldAmount    = "amount"
	FieldMethod    = "method"
	FieldConfirmed = "confirmed"
	FieldQuery     = "query"
	FieldCategory  = "category"
)

// PaymentMethods is the closed set of supported payment providers.
var PaymentMethods = []string{"chapa", "mpesa", "telebirr"}

// SearchCategories is the closed set of cause categories targets are filed
// under.
var SearchCategories = []string{"education", "health", "water", "emergency relief"}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validateNonEmpty(input string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("please say a name")
	}
	return nil
}

func validateAmount(input string) error {
	n, ok := clarify.ParseAmount(input)
	if !ok {
		return errors.New("I couldn't find an amount in that")
	}
	if n <= 0 {
		return errors.New("the amount has to be more than zero")
	}
	return nil
}

func normalizeAmount(input string) string {
	n, _ := clarify.ParseAmount(input)
	return fmt.Sprintf("%d", n)
}

func validateMethod(input string) error {
	m := normalizeToken(input)
	for _, method := range PaymentMethods {
		if m == method {
			return nil
		}
	}
	return fmt.Errorf("we support %s", strings.Join(PaymentMethods, ", "))
}

func validateYesNo(input string) error {
	switch normalizeToken(input) {
	case "yes", "yeah", "yep", "sure", "ok", "okay", "confirm", "no", "nope", "cancel":
		return nil
	}
	return errors.New("please answer yes or no")
}

func normalizeYesNo(input string) string {
	switch normalizeToken(input) {
	case "yes", "yeah", "yep", "sure", "ok", "okay", "confirm":
		return "yes"
	}
	return "no"
}

func validateCategory(input string) error {
	c := normalizeToken(input)
	for _, cat := range SearchCategories {
		if c == cat {
			return nil
		}
	}
	return fmt.Errorf("pick one of: %s", strings.Join(SearchCategories, ", "))
}

// DonatingFlow defines the donation conversation:
// choose_target -> enter_amount -> choose_method -> confirm.
func DonatingFlow() *Flow {
	return &Flow{
		Kind: KindDonating,
		Steps: []Step{
			{
				Name:     StepChooseTarget,
				Field:    FieldTarget,
				Prompt:   "Who would you like to donate to? You can say a name or a cause.",
				Validate: validateNonEmpty,
			},
			{
				Name:      StepEnterAmount,
				Field:     FieldAmount,
				Prompt:    "How much would you like to give, in birr?",
				Validate:  validateAmount,
				Normalize: normalizeAmount,
			},
			{
				Name:      StepChooseMethod,
				Field:     FieldMethod,
				Prompt:    fmt.Sprintf("How would you like to pay? We support %s.", strings.Join(PaymentMethods, ", ")),
				Validate:  validateMethod,
				Normalize: normalizeToken,
			},
			{
				Name:  StepConfirm,
				Field: FieldConfirmed,
				RenderFunc: func(sess *session.Session) string {
					target, _ := sess.Field(FieldTarget)
					amount, _ := sess.Field(FieldAmount)
					method, _ := sess.Field(FieldMethod)
					return fmt.Sprintf("You're giving %s birr to %s via %s. Shall I go ahead?", amount, target, method)
				},
				Validate:  validateYesNo,
				Normalize: normalizeYesNo,
			},
		},
	}
}

// SearchingFlow defines the cause-search conversation:
// enter_query -> choose_category.
func SearchingFlow() *Flow {
	return &Flow{
		Kind: KindSearching,
		Steps: []Step{
			{
				Name:     StepEnterQuery,
				Field:    FieldQuery,
				Prompt:   "What are you looking for?",
				Validate: validateNonEmpty,
			},
			{
				Name:  StepChooseCategory,
				Field: FieldCategory,
				RenderFunc: func(sess *session.Session) string {
					return fmt.Sprintf("Which area? We have %s.", strings.Join(SearchCategories, ", "))
				},
				Validate:  validateCategory,
				Normalize: normalizeToken,
			},
		},
	}
}

// DefaultRegistry returns a registry with the built-in flows.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	// Built-in definitions are well formed; Register cannot fail on them.
	_ = r.Register(DonatingFlow())
	_ = r.Register(SearchingFlow())
	return r
}
