// Package tui is a terminal rendition of the prediction form.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"asthmapredict/patient"
	"asthmapredict/predict"
)

const predictTimeout = 10 * time.Second

// Predictor classifies a record. *predict.Service satisfies it.
type Predictor interface {
	Predict(ctx context.Context, record patient.Record, source string) (predict.Result, error)
}

type predictedMsg struct {
	result predict.Result
	err    error
}

// Model is the Bubble Tea model for the form.
type Model struct {
	predictor Predictor
	fields    []patient.Field
	values    []float64
	cursor    int

	editing bool
	ti      textinput.Model
	editErr string

	busy   bool
	result *predict.Result
	err    error

	keys keyMap
	help help.Model
}

// New returns a form filled with the widget defaults.
func New(predictor Predictor) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 16

	m := Model{
		predictor: predictor,
		fields:    patient.Fields(),
		ti:        ti,
		keys:      defaultKeys(),
		help:      help.New(),
	}
	m.values = patient.Defaults().Vector()
	return m
}

// Record returns the record currently shown in the form.
func (m Model) Record() patient.Record {
	r, _ := patient.FromVector(m.values)
	return r
}

// Result returns the last prediction, if any.
func (m Model) Result() *predict.Result {
	return m.result
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil
	case predictedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			m.result = nil
			return m, nil
		}
		m.err = nil
		res := msg.result
		m.result = &res
		return m, nil
	case tea.KeyMsg:
		if m.editing {
			return m.updateEdit(msg)
		}
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.fields)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Dec):
		m.values[m.cursor] = step(m.fields[m.cursor], m.values[m.cursor], -1)
	case key.Matches(msg, m.keys.Inc):
		m.values[m.cursor] = step(m.fields[m.cursor], m.values[m.cursor], 1)
	case key.Matches(msg, m.keys.Reset):
		m.values = patient.Defaults().Vector()
		m.result = nil
		m.err = nil
	case key.Matches(msg, m.keys.Edit):
		f := m.fields[m.cursor]
		m.editing = true
		m.editErr = ""
		m.ti.SetValue(f.DisplayValue(m.values[m.cursor]))
		m.ti.CursorEnd()
		m.ti.Placeholder = f.Label
		return m, m.ti.Focus()
	case key.Matches(msg, m.keys.Predict):
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, m.predictCmd()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		v, ferr := m.fields[m.cursor].Encode(m.ti.Value())
		if ferr != nil {
			m.editErr = ferr.Message
			return m, nil
		}
		m.values[m.cursor] = v
		m.editing = false
		m.ti.Blur()
		return m, nil
	case tea.KeyEsc:
		m.editing = false
		m.ti.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m Model) predictCmd() tea.Cmd {
	record := m.Record()
	predictor := m.predictor
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), predictTimeout)
		defer cancel()
		result, err := predictor.Predict(ctx, record, predict.SourceTUI)
		return predictedMsg{result: result, err: err}
	}
}

// step moves a numeric value by one widget step or cycles a category.
func step(f patient.Field, v float64, dir int) float64 {
	if f.Kind == patient.KindCategorical {
		n := len(f.Categories)
		return float64((int(v) + dir + n) % n)
	}
	inc := f.Step
	if inc <= 0 {
		inc = 1
	}
	next := f.Clamp(v + float64(dir)*inc)
	// Snap to the step grid so repeated steps do not drift.
	snapped, ferr := f.Encode(f.DisplayValue(next))
	if ferr != nil {
		return next
	}
	return snapped
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Asthma Prediction App"))
	b.WriteString("\n")

	section := ""
	for i, f := range m.fields {
		if f.Section != section {
			section = f.Section
			b.WriteString("\n" + sectionStyle.Render(section) + "\n")
		}
		value := f.DisplayValue(m.values[i])
		if f.Widget == patient.WidgetSlider {
			value = gauge(f, m.values[i]) + " " + value
		} else if f.Kind == patient.KindCategorical {
			value = "‹ " + value + " ›"
		}
		line := fmt.Sprintf("%-34s %s", f.Label, value)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
		if i == m.cursor && m.editing {
			b.WriteString("    " + m.ti.View() + "\n")
			if m.editErr != "" {
				b.WriteString("    " + errorStyle.Render(m.editErr) + "\n")
			}
		}
	}

	b.WriteString("\n")
	switch {
	case m.busy:
		b.WriteString(mutedStyle.Render("Predicting..."))
	case m.err != nil:
		b.WriteString(errorStyle.Render("Prediction failed: " + m.err.Error()))
	case m.result != nil:
		style := negativeStyle
		if m.result.Label == 1 {
			style = positiveStyle
		}
		b.WriteString(style.Render(m.result.Message()))
		if m.result.HasConfidence() {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  (%.1f%% confidence)", m.result.Confidence*100)))
		}
	default:
		b.WriteString(mutedStyle.Render("Press enter to predict."))
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return panelString(b.String())
}

func gauge(f patient.Field, v float64) string {
	const width = 10
	filled := 0
	if f.Max > f.Min {
		filled = int(math.Round((v - f.Min) / (f.Max - f.Min) * width))
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}

// Run starts the form in the terminal and returns the last prediction made.
func Run(predictor Predictor) (*predict.Result, error) {
	p := tea.NewProgram(New(predictor), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	if fm, ok := final.(Model); ok {
		return fm.Result(), nil
	}
	return nil, nil
}
