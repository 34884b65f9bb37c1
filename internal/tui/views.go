package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tickwatch/tickwatch/internal/model"
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n")

	switch m.viewMode {
	case ViewList:
		b.WriteString(m.listView())
	case ViewDetail:
		b.WriteString(m.detailView(0)) // 0 = full width
	}

	// Input line
	if m.inputMode != InputNone {
		b.WriteString("\n")
		b.WriteString(inputStyle.Render(m.inputLabel + m.inputText + "█"))
	}

	// Blocking alert wins over the transient status line
	if m.alert != "" {
		b.WriteString("\n")
		b.WriteString(alertStyle.Render("⚠ " + m.alert + "  (press any key)"))
	} else if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	} else if m.status != "" {
		b.WriteString("\n")
		b.WriteString(messageStyle.Render(m.status))
	}

	padStyle := lipgloss.NewStyle().
		PaddingLeft(contentPadding).
		PaddingRight(contentPadding).
		PaddingTop(1)

	return padStyle.Render(b.String())
}

// headerView renders the title bar with the connection badge.
func (m Model) headerView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("tickwatch"))
	b.WriteString(fmt.Sprintf("  %d/%d tickets", len(m.filtered), len(m.tickets)))

	badge := lipgloss.NewStyle().
		Foreground(connColors[m.connState]).
		Render("● " + m.connState.String())
	b.WriteString("  ")
	b.WriteString(badge)

	b.WriteString("  ")
	b.WriteString(dimStyle.Render("(" + m.session.Username + ")"))

	if filters := m.activeFiltersString(); filters != "" {
		b.WriteString("  ")
		b.WriteString(filterStyle.Render(filters))
	}
	return b.String()
}

func (m Model) activeFiltersString() string {
	var parts []string

	var statuses []string
	for _, s := range []model.Status{model.StatusNotStarted, model.StatusInProgress, model.StatusCompleted} {
		if m.filterStatuses[s] {
			statuses = append(statuses, string(s)[:1])
		}
	}
	if len(statuses) < 3 {
		parts = append(parts, "status:"+strings.Join(statuses, ""))
	}

	if m.filterReview {
		parts = append(parts, "review-only")
	}

	if m.filterSearch != "" {
		parts = append(parts, "search:\""+m.filterSearch+"\"")
	}

	return strings.Join(parts, " ")
}

func (m Model) listView() string {
	if m.width >= minSplitWidth {
		return m.splitView()
	}
	// Narrow terminal: show list only
	return m.renderListPane(m.width - (contentPadding * 2))
}

// splitView renders the split layout with list on left and details on right.
func (m Model) splitView() string {
	focusedColor := lipgloss.Color("39")
	unfocusedColor := lipgloss.Color("241")

	// Each pane has a left and right border, plus a 1 char gap between panes.
	gap := 1
	borderChars := 4
	availableWidth := m.width - borderChars - gap - (contentPadding * 2)
	leftContentWidth := availableWidth / 2
	rightContentWidth := availableWidth - leftContentWidth

	// Outer padding top, border top, border bottom, status line
	contentHeight := m.height - 5
	if contentHeight < 10 {
		contentHeight = 10
	}

	leftContent := m.renderListPaneWithHeight(leftContentWidth, contentHeight)
	rightContent := m.detailViewWithHeight(rightContentWidth, contentHeight)

	leftLines := normalizeLines(strings.Split(leftContent, "\n"), contentHeight, leftContentWidth)
	rightLines := normalizeLines(strings.Split(rightContent, "\n"), contentHeight, rightContentWidth)

	leftColor := unfocusedColor
	rightColor := unfocusedColor
	if m.focusPane == FocusList {
		leftColor = focusedColor
	} else {
		rightColor = focusedColor
	}

	leftBox := buildBorderedBox(leftLines, leftContentWidth, leftColor)
	rightBox := buildBorderedBox(rightLines, rightContentWidth, rightColor)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftBox, strings.Repeat(" ", gap), rightBox)
}

// normalizeLines ensures the slice has exactly `height` lines, each padded to `width`.
func normalizeLines(lines []string, height, width int) []string {
	result := make([]string, height)
	for i := 0; i < height; i++ {
		if i < len(lines) {
			result[i] = padToWidth(lines[i], width)
		} else {
			result[i] = strings.Repeat(" ", width)
		}
	}
	return result
}

// buildBorderedBox creates a box with rounded borders around content lines.
func buildBorderedBox(lines []string, contentWidth int, borderColor lipgloss.Color) string {
	style := lipgloss.NewStyle().Foreground(borderColor)

	topLeft := style.Render("╭")
	topRight := style.Render("╮")
	bottomLeft := style.Render("╰")
	bottomRight := style.Render("╯")
	horizontal := style.Render("─")
	vertical := style.Render("│")

	var b strings.Builder

	b.WriteString(topLeft)
	b.WriteString(strings.Repeat(horizontal, contentWidth))
	b.WriteString(topRight)
	b.WriteString("\n")

	for _, line := range lines {
		b.WriteString(vertical)
		b.WriteString(line)
		b.WriteString(vertical)
		b.WriteString("\n")
	}

	b.WriteString(bottomLeft)
	b.WriteString(strings.Repeat(horizontal, contentWidth))
	b.WriteString(bottomRight)

	return b.String()
}

// padToWidth pads a string to the specified width with spaces.
// Accounts for ANSI escape codes when calculating visible width.
func padToWidth(s string, width int) string {
	visibleLen := lipgloss.Width(s)
	if visibleLen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visibleLen)
}

// clip truncates a string to fit the given display width, adding an
// ellipsis. Trimming happens rune by rune so multibyte titles are never
// split mid-character.
func clip(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	if width <= 3 {
		return "..."
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r)) > width-3 {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

// renderListPane renders the list content for a given width (default height calc).
func (m Model) renderListPane(width int) string {
	height := m.height - 8
	if height < 10 {
		height = 15
	}
	return m.renderListPaneWithHeight(width, height)
}

// renderListPaneWithHeight renders the list content for given width and height.
func (m Model) renderListPaneWithHeight(width, height int) string {
	var b strings.Builder

	// Footer takes 3 lines (blank + 2 help lines)
	rowsHeight := height - 3
	if rowsHeight < 3 {
		rowsHeight = 3
	}

	if len(m.filtered) == 0 {
		b.WriteString("No tickets match filters\n")
	} else {
		// Keep the cursor in view
		start := 0
		if m.cursor >= rowsHeight {
			start = m.cursor - rowsHeight + 1
		}
		end := min(start+rowsHeight, len(m.filtered))

		rowWidth := width
		if rowWidth < 40 {
			rowWidth = 40
		}

		for i := start; i < end; i++ {
			t := m.filtered[i]
			if i == m.cursor {
				line := m.formatTicketLinePlain(t, rowWidth)
				b.WriteString(selectedRowStyle.Width(rowWidth).Render(line))
			} else {
				line := m.formatTicketLineStyled(t, rowWidth)
				b.WriteString(lipgloss.NewStyle().Width(rowWidth).Render(line))
			}
			b.WriteString("\n")
		}
	}

	// Footer
	b.WriteString("\n")
	if m.width >= minSplitWidth {
		if m.focusPane == FocusList {
			b.WriteString(helpStyle.Render("j/k:nav  tab:focus detail  s:start r:resume a:approve"))
		} else {
			b.WriteString(helpStyle.Render("j/k:scroll  tab:focus list  s:start r:resume a:approve"))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("f:fetch /:search 1-3:status w:review 0:all  q:quit"))
	} else {
		b.WriteString(helpStyle.Render("j/k:nav  enter:detail  s:start r:resume a:approve f:fetch"))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("/:search 1-3:status w:review 0:all  q:quit"))
	}

	return b.String()
}

// stageDots renders the pipeline as one colored dot per stage.
func stageDots(t model.Ticket) (string, int) {
	views := model.StageViews(t)
	var b strings.Builder
	for _, v := range views {
		dot := "●"
		if v == model.ViewPending {
			dot = "○"
		}
		b.WriteString(lipgloss.NewStyle().Foreground(stageColors[v]).Render(dot))
	}
	return b.String(), len(views)
}

// formatTicketLinePlain returns a plain text line without any ANSI styling.
// Used for selected rows where a single highlight style is applied.
func (m Model) formatTicketLinePlain(t model.Ticket, width int) string {
	icon := statusIcon(t)
	prio := fmt.Sprintf("%-6s", t.Priority)

	dots := ""
	for _, v := range model.StageViews(t) {
		if v == model.ViewPending {
			dots += "○"
		} else {
			dots += "●"
		}
	}

	// icon(1) + space(1) + id + spaces + priority + dots + padding
	titleWidth := width - len(t.ID) - len(dots) - 14
	if titleWidth < 20 {
		titleWidth = 20
	}

	title := clip(t.Title, titleWidth)

	return fmt.Sprintf("%s %s  %-*s %s %s", icon, t.ID, titleWidth, title, prio, dots)
}

// formatTicketLineStyled returns a styled line with colors for non-selected rows.
func (m Model) formatTicketLineStyled(t model.Ticket, width int) string {
	icon := statusIcon(t)
	color := statusColors[t.Status]
	if t.WaitingForReview {
		color = lipgloss.Color("226")
	}
	iconStyled := lipgloss.NewStyle().Foreground(color).Render(icon)

	id := dimStyle.Render(t.ID)
	prio := lipgloss.NewStyle().
		Foreground(priorityColors[t.Priority]).
		Render(fmt.Sprintf("%-6s", t.Priority))

	dots, dotCount := stageDots(t)

	titleWidth := width - len(t.ID) - dotCount - 14
	if titleWidth < 20 {
		titleWidth = 20
	}

	title := clip(t.Title, titleWidth)

	return fmt.Sprintf("%s %s  %-*s %s %s", iconStyled, id, titleWidth, title, prio, dots)
}

// detailView renders the detail pane. If width is 0, uses full terminal width.
func (m Model) detailView(width int) string {
	return m.detailViewWithHeight(width, 0)
}

// detailViewWithHeight renders the detail pane with explicit height constraint.
func (m Model) detailViewWithHeight(width, height int) string {
	t, ok := m.selected()
	if !ok {
		return "No ticket selected"
	}

	var lines []string

	truncate := func(s string, maxLen int) string {
		if width == 0 {
			return s
		}
		return clip(s, maxLen)
	}

	effectiveWidth := width
	if effectiveWidth == 0 {
		effectiveWidth = m.width - (contentPadding * 2)
	}
	if effectiveWidth < 40 {
		effectiveWidth = 40
	}

	// Title with status icon
	icon := statusIcon(t)
	color := statusColors[t.Status]
	iconStyled := lipgloss.NewStyle().Foreground(color).Render(icon)
	title := t.Title
	if width > 0 {
		title = truncate(title, effectiveWidth-4)
	}
	lines = append(lines, iconStyled+" "+titleStyle.Render(title))
	lines = append(lines, "")

	lines = append(lines, detailLabelStyle.Render("ID:        ")+t.ID)
	lines = append(lines, detailLabelStyle.Render("Customer:  ")+truncate(t.Customer, effectiveWidth-11))

	prioStyled := lipgloss.NewStyle().Foreground(priorityColors[t.Priority]).Render(string(t.Priority))
	lines = append(lines, detailLabelStyle.Render("Priority:  ")+prioStyled)

	statusStyled := lipgloss.NewStyle().Foreground(color).Render(string(t.Status))
	lines = append(lines, detailLabelStyle.Render("Status:    ")+statusStyled)

	if t.CreatedAt != "" {
		lines = append(lines, detailLabelStyle.Render("Created:   ")+t.CreatedAt)
	}

	// Descriptive fields are displayed verbatim when present, never
	// interpreted.
	for _, row := range []struct{ label, value string }{
		{"AIT:       ", t.AITNumber},
		{"Type:      ", t.DeliverableType},
		{"Category:  ", t.Category},
		{"SLA Due:   ", t.SLADeadline},
		{"ARM:       ", t.ARMID},
		{"App:       ", t.ApplicationName},
		{"LOB Owner: ", t.LOBOwner},
		{"AIT Owner: ", t.AITOwner},
		{"Contacts:  ", strings.Join(t.Contacts, ", ")},
	} {
		if row.value == "" {
			continue
		}
		lines = append(lines, detailLabelStyle.Render(row.label)+truncate(row.value, effectiveWidth-11))
	}

	// Pipeline progress
	done := 0
	for _, st := range t.Stages {
		if st.Status == model.StageCompleted {
			done++
		}
	}
	lines = append(lines, "")
	lines = append(lines, detailLabelStyle.Render(fmt.Sprintf("Pipeline (%d/%d):", done, len(t.Stages))))

	views := model.StageViews(t)
	for i, st := range t.Stages {
		marker := "○"
		switch views[i] {
		case model.ViewCompleted:
			marker = "●"
		case model.ViewActive:
			marker = "◐"
		case model.ViewError:
			marker = "✗"
		}
		markerStyled := lipgloss.NewStyle().Foreground(stageColors[views[i]]).Render(marker)
		name := st.Name
		if views[i] == model.ViewPending {
			name = dimStyle.Render(name)
		}
		lines = append(lines, "  "+markerStyled+" "+name)
		if st.Message != "" && views[i] != model.ViewPending {
			lines = append(lines, "      "+dimStyle.Render(truncate(st.Message, effectiveWidth-6)))
		}
	}

	// Banner and action hint
	lines = append(lines, "")
	switch {
	case t.WaitingForReview:
		lines = append(lines, reviewBannerStyle.Render("⏸ Waiting for review"))
	case t.Status == model.StatusCompleted:
		lines = append(lines, doneBannerStyle.Render("✓ Pipeline complete"))
	}
	if action := model.NextAction(t); action != model.ActionNone {
		key := "s"
		if action == model.ActionResume {
			key = "r"
		} else if action == model.ActionApprove {
			key = "a"
		}
		lines = append(lines, helpStyle.Render(fmt.Sprintf("[%s] %s", key, action.Label())))
	}

	// Description
	if t.Description != "" {
		lines = append(lines, "")
		lines = append(lines, detailLabelStyle.Render("Description:"))
		for _, dl := range strings.Split(t.Description, "\n") {
			lines = append(lines, truncate(dl, effectiveWidth))
		}
	}

	// Full-screen detail view: return all content with its own footer
	if width == 0 {
		lines = append(lines, "")
		lines = append(lines, helpStyle.Render("esc:back  s:start r:resume a:approve f:fetch  q:quit"))
		return strings.Join(lines, "\n")
	}

	// Split view: apply scroll offset and height constraint
	totalLines := len(lines)
	visibleHeight := height
	if visibleHeight <= 0 {
		visibleHeight = totalLines
	}

	maxScroll := max(0, totalLines-visibleHeight)
	scroll := m.detailScroll
	if scroll > maxScroll {
		scroll = maxScroll
	}

	start := scroll
	end := min(start+visibleHeight, totalLines)
	if start < len(lines) {
		lines = lines[start:end]
	}

	return strings.Join(lines, "\n")
}
