package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/reconcile/pkg/reconcile/compare"
	"github.com/jamesainslie/reconcile/pkg/reconcile/plan"
	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// PickerModel walks duplicate groups one at a time so the user can choose
// which member of each group survives.
type PickerModel struct {
	groups    []compare.DupGroup
	index     int // current group
	cursor    int // current member within the group
	offset    int // scroll offset within the member list
	decisions map[string]plan.Decision
	width     int
	height    int
}

// NewPickerModel creates a picker over the given duplicate groups.
func NewPickerModel(groups []compare.DupGroup) PickerModel {
	return PickerModel{
		groups:    groups,
		decisions: make(map[string]plan.Decision),
		width:     80,
		height:    24,
	}
}

// Empty reports whether there are no groups to resolve.
func (m PickerModel) Empty() bool {
	return len(m.groups) == 0
}

// Done reports whether every group has been visited.
func (m PickerModel) Done() bool {
	return m.index >= len(m.groups)
}

// Decisions returns the choices made so far, keyed by group.
func (m PickerModel) Decisions() map[string]plan.Decision {
	return m.decisions
}

// DecidedCount returns the number of groups with an explicit decision.
func (m PickerModel) DecidedCount() int {
	return len(m.decisions)
}

// GroupCount returns the total number of groups.
func (m PickerModel) GroupCount() int {
	return len(m.groups)
}

// HandleKey handles key input for the picker.
func (m *PickerModel) HandleKey(key string) {
	if m.Empty() || m.Done() {
		return
	}

	g := m.groups[m.index]

	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.ensureVisible()
		}

	case "down", "j":
		if m.cursor < len(g.Records)-1 {
			m.cursor++
			m.ensureVisible()
		}

	case "enter":
		m.decisions[plan.GroupKey(g)] = plan.Decision{
			Keeper: plan.MemberKey(g.Records[m.cursor]),
		}
		m.advance()

	case "a":
		m.decisions[plan.GroupKey(g)] = plan.Decision{KeepAll: true}
		m.advance()

	case "n":
		m.decisions[plan.GroupKey(g)] = plan.Decision{KeepNone: true}
		m.advance()

	case "s":
		// Skipped groups fall back to the planner's default keeper.
		m.advance()

	case "left", "h":
		m.Back()
	}
}

// advance moves to the next group.
func (m *PickerModel) advance() {
	m.index++
	m.cursor = 0
	m.offset = 0
}

// Back returns to the previous group so its decision can be revised.
func (m *PickerModel) Back() {
	if m.index > 0 {
		m.index--
	}
	m.cursor = 0
	m.offset = 0
}

// View renders the picker.
func (m PickerModel) View() string {
	if m.Empty() {
		return m.renderEmpty()
	}

	idx := m.index
	if idx >= len(m.groups) {
		idx = len(m.groups) - 1
	}
	g := m.groups[idx]

	var b strings.Builder

	contentWidth := m.width - 4
	if contentWidth < 60 {
		contentWidth = 60
	}

	// Header
	b.WriteString(m.renderHeader(contentWidth, idx, g))
	b.WriteString("\n")
	b.WriteString(mutedTextStyle.Render("  digest " + shortDigest(g.Digest)))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")

	// Help bar
	b.WriteString(m.renderHelpBar())
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")

	// Member list
	b.WriteString(m.renderMemberList(contentWidth, g))

	// Footer
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.renderFooter(contentWidth))

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// renderEmpty renders the state with nothing to resolve.
func (m PickerModel) renderEmpty() string {
	contentWidth := m.width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("  No duplicate groups"))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")
	b.WriteString(center(mutedTextStyle.Render("Nothing to resolve: no duplicate content was found."), contentWidth))
	b.WriteString("\n\n")
	b.WriteString(center(
		keyStyle.Render("[Enter]")+" "+keyDescStyle.Render("Continue")+"  "+
			keyStyle.Render("[q]")+" "+keyDescStyle.Render("Quit"),
		contentWidth))
	b.WriteString("\n")

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// renderHeader renders the group header.
func (m PickerModel) renderHeader(width, idx int, g compare.DupGroup) string {
	size := int64(0)
	if len(g.Records) > 0 {
		size = g.Records[0].Size
	}
	title := fmt.Sprintf("  Duplicate group %d of %d: %d copies, %s each",
		idx+1, len(m.groups), len(g.Records), types.FormatSize(size))
	return titleStyle.Render(title)
}

// renderHelpBar renders the help bar with key hints.
func (m PickerModel) renderHelpBar() string {
	hints := []struct {
		key  string
		desc string
	}{
		{"Enter", "Keep this"},
		{"a", "Keep all"},
		{"n", "Keep none"},
		{"s", "Skip"},
		{"←", "Back"},
		{"q", "Quit"},
	}

	var parts []string
	for _, h := range hints {
		parts = append(parts, keyStyle.Render("["+h.key+"]")+" "+keyDescStyle.Render(h.desc))
	}

	return "  " + strings.Join(parts, "  ")
}

// renderMemberList renders the scrollable member list.
func (m PickerModel) renderMemberList(width int, g compare.DupGroup) string {
	var b strings.Builder

	visibleRows := m.visibleRows()
	pathWidth := width - 22 // mark + size + cursor + padding

	for i := m.offset; i < m.offset+visibleRows && i < len(g.Records); i++ {
		b.WriteString(m.renderMemberLine(g, i, pathWidth))
		b.WriteString("\n")
	}

	// Pad remaining rows
	shown := len(g.Records) - m.offset
	if shown > visibleRows {
		shown = visibleRows
	}
	for shown < visibleRows {
		b.WriteString("\n")
		shown++
	}

	return b.String()
}

// renderMemberLine renders a single group member.
func (m PickerModel) renderMemberLine(g compare.DupGroup, index, pathWidth int) string {
	rec := g.Records[index]
	isCursor := index == m.cursor && !m.Done()

	var cursor string
	if isCursor {
		cursor = cursorStyle.Render(">")
	} else {
		cursor = " "
	}

	size := fileSizeStyle.Render(padLeft(types.FormatSize(rec.Size), 9))
	path := truncatePath(string(rec.Tree)+":"+rec.Path, pathWidth)

	line := fmt.Sprintf("  %s %s %s  %s", m.memberMark(g, rec), size, cursor, path)
	if isCursor {
		return selectedItemStyle.Width(pathWidth + 20).Render(line)
	}
	return normalItemStyle.Render(line)
}

// memberMark shows the member's fate under the group's current decision.
func (m PickerModel) memberMark(g compare.DupGroup, rec types.FileRecord) string {
	dec, ok := m.decisions[plan.GroupKey(g)]
	if !ok {
		return droppedStyle.Render("[ ]")
	}
	kept := dec.KeepAll || (!dec.KeepNone && dec.Keeper == plan.MemberKey(rec))
	if kept {
		return keptStyle.Render("[x]")
	}
	return droppedStyle.Render("[ ]")
}

// renderFooter renders the footer with decision progress.
func (m PickerModel) renderFooter(width int) string {
	left := fmt.Sprintf("  Decided: %d of %d groups", m.DecidedCount(), len(m.groups))
	right := mutedTextStyle.Render("[↑↓] Navigate")

	spacing := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if spacing < 1 {
		spacing = 1
	}

	return left + strings.Repeat(" ", spacing) + right
}

// visibleRows returns the number of member rows that fit on screen.
func (m PickerModel) visibleRows() int {
	// Account for header, digest line, help, dividers, footer
	available := m.height - 12
	if available < 5 {
		available = 5
	}
	return available
}

// ensureVisible adjusts offset to keep cursor visible.
func (m *PickerModel) ensureVisible() {
	visibleRows := m.visibleRows()

	if m.cursor < m.offset {
		m.offset = m.cursor
	} else if m.cursor >= m.offset+visibleRows {
		m.offset = m.cursor - visibleRows + 1
	}

	if m.offset < 0 {
		m.offset = 0
	}
}

// SetDimensions updates the width and height.
func (m *PickerModel) SetDimensions(width, height int) {
	m.width = width
	m.height = height
}

// shortDigest abbreviates a digest for display.
func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
