package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/reconcile/pkg/reconcile/compare"
	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// CatalogModel represents the cataloging phase of the TUI.
type CatalogModel struct {
	progress    types.Progress
	spinner     spinner.Model
	currentPath string
	startTime   time.Time
	width       int
	height      int
	rootA       string
	rootB       string
	version     string
	done        bool
	err         error
}

// ProgressMsg is sent when catalog progress is updated.
type ProgressMsg types.Progress

// CatalogCompleteMsg is sent when both catalogs are built and compared.
type CatalogCompleteMsg struct {
	Builds  []types.BuildResult
	Diff    *compare.Diff
	Groups  []compare.DupGroup
	Err     error
	Elapsed time.Duration
}

// NewCatalogModel creates a new cataloging model.
func NewCatalogModel(rootA, rootB, version string) CatalogModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return CatalogModel{
		spinner:   s,
		startTime: time.Now(),
		width:     80,
		height:    24,
		rootA:     rootA,
		rootB:     rootB,
		version:   version,
	}
}

// Init initializes the cataloging model.
func (m CatalogModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// View renders the cataloging model.
func (m CatalogModel) View() string {
	var b strings.Builder

	// Calculate content width (accounting for border padding)
	contentWidth := m.width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	// Add top margin for visual spacing
	b.WriteString("\n")

	// Header
	b.WriteString(m.renderHeader(contentWidth))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")

	// Cataloging status
	if m.done {
		if m.err != nil {
			b.WriteString(errorTextStyle.Render(fmt.Sprintf("  Error: %v", m.err)))
		} else {
			b.WriteString(successTextStyle.Render("  Catalogs ready."))
		}
	} else {
		tree := "a"
		if m.progress.Tree != "" {
			tree = string(m.progress.Tree)
		}
		label := fmt.Sprintf("  %s Cataloging tree %s: %s",
			m.spinner.View(), tree,
			truncatePath(m.currentPath, contentWidth-28))
		b.WriteString(label)
	}
	b.WriteString("\n")

	// Progress bar
	b.WriteString("\n")
	b.WriteString(m.renderProgressBar(contentWidth))
	b.WriteString("\n\n")

	// Stats boxes
	b.WriteString(m.renderStats(contentWidth))
	b.WriteString("\n")

	// Build content and calculate padding needed to fill screen
	content := b.String()
	contentLines := strings.Count(content, "\n") + 1

	// Account for outer box border (2 lines: top and bottom)
	availableLines := m.height - 2
	if availableLines > contentLines {
		padding := availableLines - contentLines
		content += strings.Repeat("\n", padding)
	}

	return outerBoxStyle.Width(m.width - 2).Height(m.height - 2).Render(content)
}

// renderHeader renders the header section.
func (m CatalogModel) renderHeader(width int) string {
	title := titleStyle.Render("  reconcile " + m.version)
	hint := mutedTextStyle.Render("[Ctrl+C to stop]")

	spacing := width - lipgloss.Width(title) - lipgloss.Width(hint)
	if spacing < 1 {
		spacing = 1
	}

	return title + strings.Repeat(" ", spacing) + hint
}

// renderProgressBar renders an animated indeterminate progress bar; the
// total file count is unknown until the walk ends.
func (m CatalogModel) renderProgressBar(width int) string {
	barWidth := width - 4
	if barWidth < 10 {
		barWidth = 10
	}

	elapsed := time.Since(m.startTime)
	position := int(elapsed.Seconds()*2) % (barWidth * 2)
	if position > barWidth {
		position = barWidth*2 - position
	}

	var bar strings.Builder
	bar.WriteString("  ")

	pulseWidth := barWidth / 5
	if pulseWidth < 3 {
		pulseWidth = 3
	}

	for i := range barWidth {
		dist := i - position
		if dist < 0 {
			dist = -dist
		}
		if dist < pulseWidth {
			bar.WriteString(progressFillStyle.Render("█"))
		} else {
			bar.WriteString(progressEmptyStyle.Render("░"))
		}
	}

	return bar.String()
}

// renderStats renders the statistics boxes.
func (m CatalogModel) renderStats(totalWidth int) string {
	// Calculate box width (5 boxes with spacing)
	boxWidth := (totalWidth - 12) / 5
	if boxWidth < 10 {
		boxWidth = 10
	}

	treeVal := "-"
	if m.progress.Tree != "" {
		treeVal = string(m.progress.Tree)
	}
	seenVal := humanize.Comma(m.progress.FilesSeen)
	hashedVal := humanize.Comma(m.progress.FilesHashed)
	readVal := types.FormatSize(m.progress.BytesHashed)
	elapsedVal := formatDuration(time.Since(m.startTime))

	treeBox := m.renderStatBox("Tree", treeVal, boxWidth)
	seenBox := m.renderStatBox("Seen", seenVal, boxWidth)
	hashedBox := m.renderStatBox("Hashed", hashedVal, boxWidth)
	readBox := m.renderStatBox("Read", readVal, boxWidth)
	elapsedBox := m.renderStatBox("Time", elapsedVal, boxWidth)

	return lipgloss.JoinHorizontal(lipgloss.Top,
		"  ", treeBox, " ", seenBox, " ", hashedBox, " ", readBox, " ", elapsedBox)
}

// renderStatBox renders a single stat box.
func (m CatalogModel) renderStatBox(label, value string, width int) string {
	labelStr := statsLabelStyle.Render(label)
	valueStr := statsValueStyle.Render(value)

	content := lipgloss.JoinVertical(lipgloss.Center,
		center(labelStr, width-4),
		center(valueStr, width-4))

	return statsBoxStyle.Width(width).Render(content)
}

// formatDuration formats a duration as M:SS.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", m, s)
}

// SetProgress updates the progress.
func (m *CatalogModel) SetProgress(p types.Progress) {
	m.progress = p
	m.currentPath = p.CurrentPath
}

// SetDone marks cataloging as complete.
func (m *CatalogModel) SetDone(err error) {
	m.done = true
	m.err = err
}
