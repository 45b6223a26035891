package output

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
)

func TestSpinModel(t *testing.T) {
	m := newSpinModel("Transcribing memo.wav")
	if m.Init() == nil {
		t.Fatal("Init should start the spinner ticking")
	}
	if v := m.View(); !strings.Contains(v, "Transcribing memo.wav") {
		t.Errorf("View = %q", v)
	}

	next, cmd := m.Update(spinner.TickMsg{ID: m.spinner.ID()})
	if cmd == nil {
		t.Error("tick should schedule the next frame")
	}
	m = next.(spinModel)

	next, cmd = m.Update(spinDoneMsg{})
	if cmd == nil {
		t.Fatal("done should quit")
	}
	if v := next.View(); v != "" {
		t.Errorf("View after done = %q, want empty", v)
	}
}

func TestSpinWithoutTerminal(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Spin(context.Background(), "working", func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Errorf("Spin = %v after %d calls", err, calls)
	}
}
