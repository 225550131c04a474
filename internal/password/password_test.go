package password

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingView struct {
	mu     sync.Mutex
	rules  map[Rule]bool
	shown  map[Panel]bool
	hidden chan Panel
}

func newRecordingView() *recordingView {
	return &recordingView{
		rules:  make(map[Rule]bool),
		shown:  make(map[Panel]bool),
		hidden: make(chan Panel, 4),
	}
}

func (r *recordingView) SetRule(rule Rule, valid bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule] = valid
}

func (r *recordingView) ShowPanel(panel Panel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown[panel] = true
}

func (r *recordingView) HidePanel(panel Panel) {
	r.mu.Lock()
	r.shown[panel] = false
	r.mu.Unlock()
	r.hidden <- panel
}

func (r *recordingView) rule(rule Rule) (valid, set bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	valid, set = r.rules[rule]
	return valid, set
}

func TestEvaluate_Length(t *testing.T) {
	for n := 0; n <= 20; n++ {
		pw := strings.Repeat("a", n)
		want := n >= 8 && n <= 16
		assert.Equal(t, want, Evaluate(pw)[RuleLength], "length %d", n)
	}
	// Length counts characters, not bytes.
	assert.True(t, Evaluate("ääääääää")[RuleLength])
}

func TestEvaluate_Rules(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     Report
	}{
		{
			name:     "strong",
			password: "Lemon#2024",
			want:     Report{RuleLength: true, RuleUpper: true, RuleLower: true, RuleDigit: true, RuleSpecial: true},
		},
		{
			name:     "lowercase only",
			password: "lemonade",
			want:     Report{RuleLength: true, RuleUpper: false, RuleLower: true, RuleDigit: false, RuleSpecial: false},
		},
		{
			name:     "special outside set",
			password: "Lemon-2024",
			want:     Report{RuleLength: true, RuleUpper: true, RuleLower: true, RuleDigit: true, RuleSpecial: false},
		},
		{
			name:     "non ascii letters do not count",
			password: "ÄÖÜ",
			want:     Report{RuleLength: false, RuleUpper: false, RuleLower: false, RuleDigit: false, RuleSpecial: false},
		},
		{
			name:     "empty",
			password: "",
			want:     Report{RuleLength: false, RuleUpper: false, RuleLower: false, RuleDigit: false, RuleSpecial: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.password))
		})
	}
}

func TestReport_Failed(t *testing.T) {
	r := Evaluate("lemonade")
	assert.False(t, r.Valid())
	assert.Equal(t, []Rule{RuleUpper, RuleDigit, RuleSpecial}, r.Failed())
	assert.True(t, Evaluate("Lemon#2024").Valid())
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("", ""))
	assert.True(t, Matches("Lemon#2024", "Lemon#2024"))
	assert.False(t, Matches("Lemon#2024", "lemon#2024"))
	assert.False(t, Matches("a", ""))
}

func TestValidator_Indicators(t *testing.T) {
	view := newRecordingView()
	v := NewValidator(view, time.Millisecond)
	defer v.Close()

	v.PasswordInput("Lemon#1")
	for rule, want := range map[Rule]bool{
		RuleLength: false, RuleUpper: true, RuleLower: true, RuleDigit: true, RuleSpecial: true,
	} {
		got, set := view.rule(rule)
		assert.True(t, set, "rule %s not reported", rule)
		assert.Equal(t, want, got, "rule %s", rule)
	}
	_, set := view.rule(RuleMatch)
	assert.False(t, set, "password input must not touch the match indicator")

	assert.False(t, v.ConfirmInput("Lemon#"))
	got, _ := view.rule(RuleMatch)
	assert.False(t, got)

	assert.True(t, v.ConfirmInput("Lemon#1"))
	got, _ = view.rule(RuleMatch)
	assert.True(t, got)
}

func TestValidator_EmptyConfirmMatchesEmptyPassword(t *testing.T) {
	view := newRecordingView()
	v := NewValidator(view, time.Millisecond)
	assert.True(t, v.ConfirmInput(""))
}

func TestValidator_PanelHideDelay(t *testing.T) {
	view := newRecordingView()
	v := NewValidator(view, 20*time.Millisecond)
	defer v.Close()

	v.Focus(PanelRules)
	view.mu.Lock()
	assert.True(t, view.shown[PanelRules])
	view.mu.Unlock()

	v.Blur(PanelRules)
	select {
	case p := <-view.hidden:
		assert.Equal(t, PanelRules, p)
	case <-time.After(time.Second):
		t.Fatal("panel was not hidden after blur")
	}
}

func TestValidator_RefocusCancelsHide(t *testing.T) {
	view := newRecordingView()
	v := NewValidator(view, 50*time.Millisecond)
	defer v.Close()

	v.Focus(PanelMatch)
	v.Blur(PanelMatch)
	v.Focus(PanelMatch)

	select {
	case p := <-view.hidden:
		t.Fatalf("panel %s hidden despite refocus", p)
	case <-time.After(150 * time.Millisecond):
	}
}
