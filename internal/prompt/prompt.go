// Package prompt asks the user short questions on the terminal.
package prompt

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Question is one line of input to collect.
type Question struct {
	Key    string
	Prompt string
	// Secret hides the typed value.
	Secret bool
}

// model is a bubbletea model that asks one question at a time.
type model struct {
	questions []Question
	idx       int
	inputs    []textinput.Model
	done      bool
}

func newModel(questions []Question) model {
	inputs := make([]textinput.Model, len(questions))
	for i, q := range questions {
		ti := textinput.New()
		ti.Placeholder = q.Prompt
		ti.CharLimit = 2048
		if q.Secret {
			ti.EchoMode = textinput.EchoPassword
		}
		inputs[i] = ti
	}
	m := model{
		questions: questions,
		inputs:    inputs,
	}
	if len(inputs) > 0 {
		m.inputs[0].Focus()
	}
	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.idx < len(m.inputs)-1 {
				m.inputs[m.idx].Blur()
				m.idx++
				m.inputs[m.idx].Focus()
				return m, textinput.Blink
			}
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.inputs[m.idx], cmd = m.inputs[m.idx].Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.done || len(m.questions) == 0 {
		return ""
	}
	q := m.questions[m.idx]
	return fmt.Sprintf("%s: %s\n", q.Prompt, m.inputs[m.idx].View())
}

// Ask runs the questions on the terminal and returns answers keyed by
// Question.Key. in and out default to stdin and stdout when nil.
func Ask(in io.Reader, out io.Writer, questions ...Question) (map[string]string, error) {
	if len(questions) == 0 {
		return map[string]string{}, nil
	}
	var opts []tea.ProgramOption
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}
	result, err := tea.NewProgram(newModel(questions), opts...).Run()
	if err != nil {
		return nil, err
	}
	final, ok := result.(model)
	if !ok || !final.done {
		return nil, fmt.Errorf("prompt cancelled")
	}
	answers := make(map[string]string, len(questions))
	for i, q := range questions {
		answers[q.Key] = final.inputs[i].Value()
	}
	return answers, nil
}
