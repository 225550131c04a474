package password

import (
	"sync"
	"time"
)

// Panel identifies a helper panel listing rules next to a field.
type Panel string

const (
	PanelRules Panel = "password-rules"
	PanelMatch Panel = "password-match-rule"
)

// DefaultHideDelay lets the user move from the field into its panel before it hides.
const DefaultHideDelay = 200 * time.Millisecond

// Indicators is the view side of the validator.
type Indicators interface {
	SetRule(rule Rule, valid bool)
	ShowPanel(panel Panel)
	HidePanel(panel Panel)
}

// Validator reflects password and confirmation input onto rule indicators.
// It never blocks submission.
type Validator struct {
	view      Indicators
	hideDelay time.Duration

	mu       sync.Mutex
	password string
	pending  map[Panel]*time.Timer
}

// NewValidator binds a validator to its indicators.
func NewValidator(view Indicators, hideDelay time.Duration) *Validator {
	if hideDelay <= 0 {
		hideDelay = DefaultHideDelay
	}
	return &Validator{
		view:      view,
		hideDelay: hideDelay,
		pending:   make(map[Panel]*time.Timer),
	}
}

// PasswordInput re-evaluates every strength rule for the new password value.
func (v *Validator) PasswordInput(password string) Report {
	v.mu.Lock()
	v.password = password
	v.mu.Unlock()

	report := Evaluate(password)
	for _, rule := range StrengthRules {
		v.view.SetRule(rule, report[rule])
	}
	return report
}

// ConfirmInput compares the confirmation with the current password.
func (v *Validator) ConfirmInput(confirm string) bool {
	v.mu.Lock()
	current := v.password
	v.mu.Unlock()

	ok := Matches(current, confirm)
	v.view.SetRule(RuleMatch, ok)
	return ok
}

// Focus shows the panel and cancels a hide still waiting from a previous blur.
func (v *Validator) Focus(panel Panel) {
	v.mu.Lock()
	if t, ok := v.pending[panel]; ok {
		t.Stop()
		delete(v.pending, panel)
	}
	v.mu.Unlock()

	v.view.ShowPanel(panel)
}

// Blur hides the panel after the hide delay.
func (v *Validator) Blur(panel Panel) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if t, ok := v.pending[panel]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(v.hideDelay, func() {
		v.mu.Lock()
		current, ok := v.pending[panel]
		if ok && current == timer {
			delete(v.pending, panel)
		}
		v.mu.Unlock()
		if ok && current == timer {
			v.view.HidePanel(panel)
		}
	})
	v.pending[panel] = timer
}

// Close cancels pending hides.
func (v *Validator) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for panel, t := range v.pending {
		t.Stop()
		delete(v.pending, panel)
	}
}
