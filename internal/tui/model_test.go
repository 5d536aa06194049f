package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kalambet/redpersona/internal/persona"
	"github.com/kalambet/redpersona/internal/validate"
	"github.com/kalambet/redpersona/internal/workflow"
)

type fakeGateway struct {
	list    []persona.Persona
	submit  func(ctx context.Context, url string) (persona.Persona, error)
	reports map[string][]byte
}

func (f *fakeGateway) ListPersonas(ctx context.Context) ([]persona.Persona, error) {
	return f.list, nil
}

func (f *fakeGateway) SubmitAnalysis(ctx context.Context, url string) (persona.Persona, error) {
	if f.submit == nil {
		return persona.Persona{}, errors.New("not configured")
	}
	return f.submit(ctx, url)
}

func (f *fakeGateway) FetchReport(ctx context.Context, id string) ([]byte, error) {
	data, ok := f.reports[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

type fakeSink struct {
	mu    sync.Mutex
	saved []string
}

func (s *fakeSink) Save(id string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, id)
	return "/tmp/persona_" + id + ".txt", nil
}

var testNow = time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

func kojied(id string) persona.Persona {
	demo := persona.Mapping(persona.Field{Key: "age", Value: persona.Scalar("25-34")})
	return persona.Persona{
		ID:        id,
		Username:  "kojied",
		Sections:  persona.Mapping(persona.Field{Key: "demographics", Value: demo}).Fields(),
		CreatedAt: persona.ParseTimestamp("2024-01-01T00:00:00Z"),
	}
}

func newTestModel(t *testing.T, gw *fakeGateway, sink *fakeSink) (Model, *workflow.Controller) {
	t.Helper()
	ctrl := workflow.New(gw, sink)
	m := New(context.Background(), ctrl, Options{Now: func() time.Time { return testNow }})
	t.Cleanup(func() {
		ctrl.Wait()
		m.Close()
	})
	return m, ctrl
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(Model)
	}
	return m
}

func deliver(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestSubmitShowsPersona(t *testing.T) {
	gw := &fakeGateway{
		submit: func(ctx context.Context, url string) (persona.Persona, error) {
			return kojied("1"), nil
		},
	}
	m, ctrl := newTestModel(t, gw, &fakeSink{})

	m.input.SetValue("https://www.reddit.com/user/kojied/")
	m = press(m, "enter")
	ctrl.Wait()
	m = deliver(m, snapshotMsg(ctrl.Snapshot()))

	out := m.View()
	for _, want := range []string{"u/kojied", "Demographics", "age:", "25-34", "Jan 1, 2024"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
	if m.view.Loading {
		t.Error("still loading after success")
	}
}

func TestInvalidInputShowsMessage(t *testing.T) {
	m, ctrl := newTestModel(t, &fakeGateway{}, &fakeSink{})

	m.input.SetValue("https://example.com/kojied")
	m = press(m, "enter")
	m = deliver(m, snapshotMsg(ctrl.Snapshot()))

	if !strings.Contains(m.View(), validate.Message) {
		t.Errorf("view missing validation message:\n%s", m.View())
	}
}

func TestSubmitWhileAnalyzingIsDropped(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{
		submit: func(ctx context.Context, url string) (persona.Persona, error) {
			<-release
			return kojied("1"), nil
		},
	}
	m, ctrl := newTestModel(t, gw, &fakeSink{})
	defer close(release)

	m.input.SetValue("https://www.reddit.com/user/kojied/")
	m = press(m, "enter")
	m = deliver(m, snapshotMsg(ctrl.Snapshot()))
	if !m.view.Loading || !m.spinning {
		t.Fatalf("Loading = %v, spinning = %v, want both true", m.view.Loading, m.spinning)
	}
	if !strings.Contains(m.View(), "Analyzing profile") {
		t.Errorf("view missing progress line:\n%s", m.View())
	}

	m = press(m, "enter")
	if m.status != "An analysis is already running." {
		t.Errorf("status = %q", m.status)
	}
}

func TestHistoryNavigationAndExport(t *testing.T) {
	gw := &fakeGateway{
		list:    []persona.Persona{kojied("1"), kojied("2")},
		reports: map[string][]byte{"2": []byte("report")},
	}
	sink := &fakeSink{}
	ctrl := workflow.New(gw, sink)
	if err := ctrl.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	m := New(context.Background(), ctrl, Options{Now: func() time.Time { return testNow }})
	defer m.Close()

	if got := len(m.view.History); got != 2 {
		t.Fatalf("history len = %d, want 2", got)
	}
	if !strings.Contains(m.View(), "2 days ago") {
		t.Errorf("view missing age:\n%s", m.View())
	}

	m = press(m, "tab", "j", "e")
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}
	ctrl.Wait()

	msg := m.bridge.wait()()
	res, ok := msg.(exportMsg)
	if !ok {
		t.Fatalf("msg = %T, want exportMsg", msg)
	}
	if res.PersonaID != "2" || res.Err != nil {
		t.Errorf("export result = %+v", res)
	}
	m = deliver(m, msg)
	if !strings.Contains(m.View(), "Saved /tmp/persona_2.txt") {
		t.Errorf("view missing export status:\n%s", m.View())
	}
	if len(sink.saved) != 1 || sink.saved[0] != "2" {
		t.Errorf("saved = %v", sink.saved)
	}
}

func TestHistoryOpenShowsSelected(t *testing.T) {
	other := kojied("2")
	other.Username = "spez"
	gw := &fakeGateway{list: []persona.Persona{kojied("1"), other}}
	ctrl := workflow.New(gw, &fakeSink{})
	if err := ctrl.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	m := New(context.Background(), ctrl, Options{Now: func() time.Time { return testNow }})
	defer m.Close()

	if strings.Contains(m.View(), "Demographics") {
		t.Fatal("persona panel shown before anything was opened")
	}
	m = press(m, "tab", "down", "enter")
	if m.selected != "2" {
		t.Fatalf("selected = %q, want 2", m.selected)
	}
	if !strings.Contains(m.View(), "Demographics") {
		t.Errorf("view missing opened persona:\n%s", m.View())
	}
}

func TestOpenedPersonaSurvivesReorder(t *testing.T) {
	other := kojied("2")
	other.Username = "spez"
	gw := &fakeGateway{list: []persona.Persona{kojied("1"), other}}
	ctrl := workflow.New(gw, &fakeSink{})
	if err := ctrl.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	m := New(context.Background(), ctrl, Options{Now: func() time.Time { return testNow }})
	defer m.Close()

	m = press(m, "tab", "down", "enter")
	if pv := m.shownPersona(); pv == nil || pv.Username != "spez" {
		t.Fatalf("shown = %+v, want spez", pv)
	}

	newer := kojied("3")
	newer.Username = "newcomer"
	gw.list = []persona.Persona{newer, kojied("1"), other}
	if err := ctrl.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	m = deliver(m, snapshotMsg(ctrl.Snapshot()))
	if pv := m.shownPersona(); pv == nil || pv.Username != "spez" {
		t.Errorf("after reorder shown = %+v, want spez", pv)
	}

	gw.list = []persona.Persona{newer, kojied("1")}
	if err := ctrl.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	m = deliver(m, snapshotMsg(ctrl.Snapshot()))
	if m.selected != "" {
		t.Errorf("selected = %q after the persona left the list", m.selected)
	}
}

func TestUsernameHint(t *testing.T) {
	m, _ := newTestModel(t, &fakeGateway{}, &fakeSink{})

	if strings.Contains(m.View(), "analyze u/") {
		t.Error("hint shown for empty input")
	}
	m.input.SetValue("https://www.reddit.com/user/kojied/")
	if !strings.Contains(m.View(), "analyze u/kojied") {
		t.Errorf("view missing hint:\n%s", m.View())
	}
}

func TestQuitKeys(t *testing.T) {
	m, _ := newTestModel(t, &fakeGateway{}, &fakeSink{})

	for _, k := range []string{"ctrl+c", "esc"} {
		_, cmd := m.Update(key(k))
		if cmd == nil {
			t.Fatalf("%s: no command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: command did not quit", k)
		}
	}
}

func TestTypingGoesToInput(t *testing.T) {
	m, _ := newTestModel(t, &fakeGateway{}, &fakeSink{})

	m = press(m, "a", "b")
	if got := m.input.Value(); got != "ab" {
		t.Errorf("input = %q, want %q", got, "ab")
	}

	m = press(m, "tab", "c")
	if got := m.input.Value(); got != "ab" {
		t.Errorf("input changed while history focused: %q", got)
	}
}

func TestBridgeKeepsLatestSnapshot(t *testing.T) {
	b := newBridge()
	defer b.close()

	b.publish(workflow.Snapshot{State: workflow.State{Phase: workflow.PhaseValidating}})
	b.publish(workflow.Snapshot{State: workflow.State{Phase: workflow.PhaseFailure, Message: "x"}})

	msg, ok := b.wait()().(snapshotMsg)
	if !ok {
		t.Fatal("expected snapshotMsg")
	}
	if msg.State.Phase != workflow.PhaseFailure {
		t.Errorf("phase = %v, want failure", msg.State.Phase)
	}
}

func TestBridgeCloseUnblocksWait(t *testing.T) {
	b := newBridge()
	done := make(chan tea.Msg)
	go func() { done <- b.wait()() }()

	b.close()
	select {
	case msg := <-done:
		if msg != nil {
			t.Errorf("msg = %v, want nil", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("wait did not return after close")
	}
}
