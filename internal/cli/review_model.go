package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JINL2/mystorecluade-sub001/internal/cli/formatter"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

type reviewKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Field     key.Binding
	Increment key.Binding
	Decrement key.Binding
	Erase     key.Binding
	Accept    key.Binding
	Cancel    key.Binding
}

func defaultReviewKeys() reviewKeyMap {
	return reviewKeyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Field:     key.NewBinding(key.WithKeys("tab", "left", "right"), key.WithHelp("tab", "qty/rejected")),
		Increment: key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "add one")),
		Decrement: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "remove one")),
		Erase:     key.NewBinding(key.WithKeys("backspace")),
		Accept:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "set / continue")),
		Cancel:    key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel")),
	}
}

func (k reviewKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Field, k.Increment, k.Decrement, k.Accept, k.Cancel}
}

// reviewModel edits the quantities of the items about to be submitted. Typed
// digits replace the focused field on enter; enter with nothing typed
// accepts the whole list.
type reviewModel struct {
	title    string
	items    []domain.EditableItem
	original []domain.EditableItem
	cursor   int
	field    domain.EditField
	input    string
	keys     reviewKeyMap
	problem  string

	accepted  bool
	cancelled bool
}

func newReviewModel(title string, items []domain.EditableItem, problem string) *reviewModel {
	return &reviewModel{
		title:    title,
		items:    append([]domain.EditableItem(nil), items...),
		original: append([]domain.EditableItem(nil), items...),
		field:    domain.FieldQuantity,
		keys:     defaultReviewKeys(),
		problem:  problem,
	}
}

func (m *reviewModel) Init() tea.Cmd { return nil }

func (m *reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(km, m.keys.Cancel):
		if m.input != "" && km.Type == tea.KeyEsc {
			m.input = ""
			return m, nil
		}
		m.cancelled = true
		return m, tea.Quit
	case key.Matches(km, m.keys.Accept):
		if m.input != "" {
			n, _ := strconv.Atoi(m.input)
			m.set(n)
			m.input = ""
			return m, nil
		}
		m.accepted = true
		return m, tea.Quit
	case key.Matches(km, m.keys.Up):
		m.input = ""
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(km, m.keys.Down):
		m.input = ""
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(km, m.keys.Field):
		m.input = ""
		if m.field == domain.FieldQuantity {
			m.field = domain.FieldQuantityRejected
		} else {
			m.field = domain.FieldQuantity
		}
	case key.Matches(km, m.keys.Increment):
		m.set(m.current() + 1)
	case key.Matches(km, m.keys.Decrement):
		m.set(m.current() - 1)
	case key.Matches(km, m.keys.Erase):
		if m.input != "" {
			m.input = m.input[:len(m.input)-1]
		}
	case km.Type == tea.KeyRunes:
		for _, r := range km.Runes {
			if r >= '0' && r <= '9' && len(m.input) < 7 {
				m.input += string(r)
			}
		}
	}
	return m, nil
}

func (m *reviewModel) current() int {
	if len(m.items) == 0 {
		return 0
	}
	it := m.items[m.cursor]
	if m.field == domain.FieldQuantityRejected {
		return it.QuantityRejected
	}
	return it.Quantity
}

func (m *reviewModel) set(v int) {
	if len(m.items) == 0 {
		return
	}
	m.items[m.cursor].Set(m.field, v)
}

// Changes lists the items whose quantities differ from what the review
// started with.
func (m *reviewModel) Changes() []domain.EditableItem {
	var out []domain.EditableItem
	for i, it := range m.items {
		o := m.original[i]
		if it.Quantity != o.Quantity || it.QuantityRejected != o.QuantityRejected {
			out = append(out, it)
		}
	}
	return out
}

func (m *reviewModel) View() string {
	var b strings.Builder
	b.WriteString("\n  " + formatter.StyleHeader.Render("REVIEW "+strings.ToUpper(m.title)) + "\n")
	if m.problem != "" {
		b.WriteString("  " + formatter.StyleRed.Render(m.problem) + "\n")
	}
	b.WriteString("\n")

	rows := make([][]string, 0, len(m.items))
	for i, it := range m.items {
		marker := "  "
		name := it.ProductName
		if name == "" {
			name = it.Key.String()
		}
		qty := strconv.Itoa(it.Quantity)
		rej := strconv.Itoa(it.QuantityRejected)
		if i == m.cursor {
			marker = formatter.StyleGreen.Render("▸ ")
			name = formatter.Bold(name)
			cell := formatter.StyleHeader.Render("[" + m.fieldText(it) + "]")
			if m.field == domain.FieldQuantity {
				qty = cell
			} else {
				rej = cell
			}
		}
		rows = append(rows, []string{marker + name, qty, rej})
	}
	b.WriteString(formatter.RenderTable([]string{"  PRODUCT", "QTY", "REJECTED"}, rows, 1, 2))

	var hints []string
	for _, k := range m.keys.ShortHelp() {
		hints = append(hints, formatter.Dim(k.Help().Key+": "+k.Help().Desc))
	}
	b.WriteString("\n" + strings.Join(hints, "  ") + "\n")
	return b.String()
}

func (m *reviewModel) fieldText(it domain.EditableItem) string {
	if m.input != "" {
		return m.input + "_"
	}
	if m.field == domain.FieldQuantityRejected {
		return fmt.Sprint(it.QuantityRejected)
	}
	return fmt.Sprint(it.Quantity)
}
