package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asthmapredict/patient"
	"asthmapredict/predict"
)

type stubPredictor struct {
	label  int
	err    error
	record patient.Record
	source string
}

func (s *stubPredictor) Predict(ctx context.Context, record patient.Record, source string) (predict.Result, error) {
	s.record = record
	s.source = source
	if s.err != nil {
		return predict.Result{}, s.err
	}
	return predict.Result{Label: s.label, Outcome: predict.Outcome(s.label), Confidence: 0.75, Record: record}, nil
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestNewStartsWithDefaults(t *testing.T) {
	m := New(&stubPredictor{})
	assert.Equal(t, patient.Defaults(), m.Record())
	assert.Nil(t, m.Result())
	assert.Contains(t, m.View(), "Press enter to predict.")
}

func TestStepNumericField(t *testing.T) {
	m := New(&stubPredictor{})
	m = press(t, m, "right", "right", "left", "right")
	assert.Equal(t, 27.0, m.Record().Age)

	// Clamped at the widget bounds.
	for i := 0; i < 100; i++ {
		m = press(t, m, "right")
	}
	assert.Equal(t, 80.0, m.Record().Age)
}

func TestStepDecimalFieldStaysOnGrid(t *testing.T) {
	m := New(&stubPredictor{})
	m = press(t, m, "down", "down", "down", "down") // BMI
	for i := 0; i < 3; i++ {
		m = press(t, m, "right")
	}
	assert.Equal(t, 22.8, m.Record().BMI)
}

func TestCycleCategoricalField(t *testing.T) {
	m := New(&stubPredictor{})
	m = press(t, m, "down") // Gender
	m = press(t, m, "right")
	assert.Equal(t, 1.0, m.Record().Gender)
	m = press(t, m, "right")
	assert.Equal(t, 0.0, m.Record().Gender)
	m = press(t, m, "left")
	assert.Equal(t, 1.0, m.Record().Gender)
}

func TestCursorStaysInBounds(t *testing.T) {
	m := New(&stubPredictor{})
	m = press(t, m, "up")
	assert.Equal(t, 0, m.cursor)
	for i := 0; i < 40; i++ {
		m = press(t, m, "down")
	}
	assert.Equal(t, len(patient.Columns())-1, m.cursor)
}

func TestPredict(t *testing.T) {
	stub := &stubPredictor{label: 1}
	m := New(stub)
	m = press(t, m, "down", "right") // Gender: Female

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Predicting...")

	next, _ = m.Update(cmd())
	m = next.(Model)

	require.NotNil(t, m.Result())
	assert.Equal(t, "Asthma", m.Result().Outcome)
	assert.Equal(t, predict.SourceTUI, stub.source)
	assert.Equal(t, 1.0, stub.record.Gender)
	assert.Contains(t, m.View(), "The model predicts: Asthma")
}

func TestPredictError(t *testing.T) {
	m := New(&stubPredictor{err: errors.New("model not loaded")})
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	m = next.(Model)
	next, _ = m.Update(cmd())
	m = next.(Model)

	assert.Nil(t, m.Result())
	assert.Contains(t, m.View(), "Prediction failed: model not loaded")
}

func TestReset(t *testing.T) {
	m := New(&stubPredictor{})
	m = press(t, m, "right", "down", "right", "r")
	assert.Equal(t, patient.Defaults(), m.Record())
}

func TestEditValue(t *testing.T) {
	m := New(&stubPredictor{})
	m = press(t, m, "e", "backspace", "backspace", "4", "2", "enter")
	assert.False(t, m.editing)
	assert.Equal(t, 42.0, m.Record().Age)

	m = press(t, m, "e", "backspace", "backspace", "9", "9", "enter")
	assert.True(t, m.editing)
	assert.Contains(t, m.View(), "is outside")
	m = press(t, m, "esc")
	assert.False(t, m.editing)
	assert.Equal(t, 42.0, m.Record().Age)
}

func TestQuit(t *testing.T) {
	m := New(&stubPredictor{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestConfidenceShownOnlyWithProbabilities(t *testing.T) {
	m := New(&stubPredictor{label: 1})
	next, _ := m.Update(predictedMsg{result: predict.Result{Label: 1, Outcome: predict.OutcomeAsthma}})
	m = next.(Model)
	assert.NotContains(t, m.View(), "% confidence")

	next, _ = m.Update(predictedMsg{result: predict.Result{
		Label:         1,
		Outcome:       predict.OutcomeAsthma,
		Confidence:    0.8,
		Probabilities: []float64{0.2, 0.8},
	}})
	m = next.(Model)
	assert.Contains(t, m.View(), "80.0% confidence")
}
