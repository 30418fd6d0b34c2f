package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/wiretree/pkg/layout"
)

func sampleTree() *layout.Node {
	text := "Sign in"
	return &layout.Node{
		ID:   "outer_0",
		Type: layout.TypeRoot,
		Children: []*layout.Node{
			{
				ID:   "ui_0",
				Type: layout.TypeBox,
				Children: []*layout.Node{
					{ID: "text_0", Type: layout.TypeText, Text: &text, Font: &layout.Font{SizeRelOuter: 0.1}},
				},
			},
			{ID: "ui_1", Type: layout.TypeBox},
		},
	}
}

func press(m TreeModel, keys ...tea.KeyType) TreeModel {
	for _, k := range keys {
		next, _ := m.Update(tea.KeyMsg{Type: k})
		m = next.(TreeModel)
	}
	return m
}

func ids(m TreeModel) []string {
	var out []string
	for _, r := range m.rows {
		out = append(out, r.node.ID)
	}
	return out
}

func TestTreeModelNavigation(t *testing.T) {
	m := NewTreeModel("login.png", sampleTree())

	if got := strings.Join(ids(m), ","); got != "outer_0,ui_0,text_0,ui_1" {
		t.Fatalf("rows = %s", got)
	}

	m = press(m, tea.KeyDown, tea.KeyDown)
	if m.Selected().ID != "text_0" {
		t.Errorf("selected %s, want text_0", m.Selected().ID)
	}

	m = press(m, tea.KeyDown, tea.KeyDown, tea.KeyDown)
	if m.Selected().ID != "ui_1" {
		t.Errorf("cursor should stop at the last row, got %s", m.Selected().ID)
	}

	m = press(m, tea.KeyUp)
	if m.Selected().ID != "text_0" {
		t.Errorf("selected %s, want text_0", m.Selected().ID)
	}
}

func TestTreeModelFolding(t *testing.T) {
	m := NewTreeModel("login.png", sampleTree())
	m = press(m, tea.KeyDown) // ui_0

	m = press(m, tea.KeyLeft)
	if got := strings.Join(ids(m), ","); got != "outer_0,ui_0,ui_1" {
		t.Fatalf("after fold rows = %s", got)
	}
	if !strings.Contains(m.View(), "ui_0  (1)") {
		t.Error("folded node should show its hidden descendant count")
	}

	m = press(m, tea.KeyLeft)
	if m.Selected().ID != "outer_0" {
		t.Errorf("left on a folded node should move to the parent, got %s", m.Selected().ID)
	}

	m = press(m, tea.KeyDown, tea.KeyRight)
	if got := strings.Join(ids(m), ","); got != "outer_0,ui_0,text_0,ui_1" {
		t.Errorf("after unfold rows = %s", got)
	}

	m = press(m, tea.KeyEnter)
	if len(m.rows) != 3 {
		t.Errorf("enter should toggle the fold, got %d rows", len(m.rows))
	}
}

func TestTreeModelView(t *testing.T) {
	m := NewTreeModel("login.png", sampleTree())
	m = press(m, tea.KeyDown, tea.KeyDown)

	view := m.View()
	for _, want := range []string{"login.png", "outer_0", `"Sign in"`, "[3/4]", "0.1"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestTreeModelQuit(t *testing.T) {
	m := NewTreeModel("x", sampleTree())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("esc should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("esc should quit")
	}
}

func TestRenderTree(t *testing.T) {
	out := renderTree(sampleTree())
	for _, want := range []string{"outer_0", "ui_0", "text_0", `"Sign in"`, "ui_1"} {
		if !strings.Contains(out, want) {
			t.Errorf("tree missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "text_0") < strings.Index(out, "ui_0") {
		t.Error("children should follow their parent")
	}
}

func TestQuoteText(t *testing.T) {
	if got := quoteText("Sign in"); got != `"Sign in"` {
		t.Errorf("quoteText = %s", got)
	}
	long := strings.Repeat("a", 60)
	got := quoteText(long)
	if !strings.HasSuffix(got, `…"`) || len([]rune(got)) != 42 {
		t.Errorf("quoteText(long) = %s", got)
	}
}
