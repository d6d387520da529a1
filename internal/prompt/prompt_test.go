package prompt

import (
	"testing"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

func typeString(m tea.Model, s string) tea.Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestModelStepsThroughQuestions(t *testing.T) {
	var m tea.Model = newModel([]Question{
		{Key: "code", Prompt: "Authorisation code"},
		{Key: "token", Prompt: "Token", Secret: true},
	})
	m = typeString(m, "abc")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.(model).idx; got != 1 {
		t.Fatalf("idx = %d after first enter, want 1", got)
	}
	m = typeString(m, "xyz")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	final := m.(model)
	if !final.done {
		t.Fatal("model not done after last question")
	}
	if final.inputs[0].Value() != "abc" || final.inputs[1].Value() != "xyz" {
		t.Errorf("values = %q, %q", final.inputs[0].Value(), final.inputs[1].Value())
	}
	if final.inputs[1].EchoMode != textinput.EchoPassword {
		t.Error("secret question is echoed")
	}
	if final.View() != "" {
		t.Errorf("View() after done = %q", final.View())
	}
}

func TestModelCancel(t *testing.T) {
	var m tea.Model = newModel([]Question{{Key: "code", Prompt: "Code"}})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.(model).done {
		t.Error("cancelled model reports done")
	}
	if cmd == nil {
		t.Error("esc did not quit")
	}
}

func TestAskNoQuestions(t *testing.T) {
	got, err := Ask(nil, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("Ask() = %v, %v", got, err)
	}
}
