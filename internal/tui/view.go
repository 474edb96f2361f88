package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sokosumi/cli/internal/api"
)

func (m Model) View() string {
	var body string
	switch m.screen {
	case screenBoot:
		body = m.renderBoot()
	case screenSetup:
		body = m.renderSetup()
	case screenMenu:
		body = m.renderMenu()
	case screenAsk:
		body = m.renderAsk()
	case screenRouting:
		body = m.renderRouting()
	case screenPlaceholder:
		body = m.renderPlaceholder()
	case screenAccount:
		body = m.renderAccount()
	case screenAgents:
		body = m.renderAgents()
	case screenAgentDetail:
		body = m.renderAgentDetail()
	case screenHiredAgents:
		body = m.renderHired()
	case screenHire:
		body = m.renderHire()
	}
	if m.quitConfirm {
		body += "\n\n" + m.theme.modalFrame.Render("Quit Sokosumi CLI? (y/n)")
	}
	footer := m.theme.footer.Render(m.statusLine)
	return m.theme.root.Render(body + "\n" + footer)
}

func (m Model) renderBoot() string {
	logo := m.theme.brandBold.Render(renderLogoTitle("SOKOSUMI CLI"))
	dots := strings.Repeat("▪", m.bootFrame%4+1)
	return lipgloss.JoinVertical(lipgloss.Left,
		logo,
		"",
		m.theme.muted.Render("booting "+dots),
	)
}

func (m Model) renderSetup() string {
	var b strings.Builder
	b.WriteString(m.theme.brandBold.Render("Welcome to Sokosumi CLI") + "\n")
	b.WriteString(m.theme.text.Render("Let's set up your API key to get started.") + "\n\n")
	if !m.setupPopup {
		b.WriteString(m.theme.menuSelect.Render("Enter Sokosumi API Key") + "\n\n")
		b.WriteString(m.theme.muted.Render("We'll save it locally to .env as SOKOSUMI_API_KEY=...") + "\n")
		b.WriteString(m.theme.muted.Render("Press Enter to continue"))
		return b.String()
	}
	b.WriteString(m.theme.panelTitle.Render("Enter Sokosumi API Key") + "\n")
	if m.setupSaving {
		b.WriteString(m.spinner.View() + " saving...\n")
	} else {
		b.WriteString(m.setupInput.View() + "\n")
	}
	if m.setupErr != "" {
		b.WriteString(m.theme.errorText.Render(m.setupErr) + "\n")
	}
	b.WriteString("\n" + m.theme.muted.Render("Press Esc to cancel"))
	return b.String()
}

func (m Model) renderMenu() string {
	var b strings.Builder
	b.WriteString(m.theme.brandBold.Render(renderLogoTitle("SOKOSUMI CLI")) + "\n\n")

	switch m.userPhase {
	case phaseLoading:
		b.WriteString(m.spinner.View() + " " + m.theme.muted.Render("Loading user…") + "\n")
	case phaseError:
		b.WriteString(m.theme.errorText.Render(m.userErr) + "\n")
	case phaseReady:
		b.WriteString(m.theme.text.Render("Name: "+strOr(m.user.Name, "")) + "\n")
		b.WriteString(m.theme.text.Render("Email: "+strOr(m.user.Email, "")) + "\n")
		if m.user.ID != nil {
			b.WriteString(m.theme.muted.Render("ID: "+*m.user.ID) + "\n")
		}
	}
	b.WriteString("\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			b.WriteString(m.theme.menuSelect.Render("▸ "+item) + "\n")
		} else {
			b.WriteString(m.theme.menuItem.Render("  "+item) + "\n")
		}
	}
	b.WriteString("\n" + m.theme.muted.Render("Use arrows to navigate, Enter to select. Or just start typing a request."))
	return b.String()
}

func (m Model) renderAsk() string {
	return m.theme.brandBold.Render("Ask me anything") + "\n" +
		m.inputPanelView(m.ask.View()) + "\n" +
		m.theme.muted.Render("Tip: You can press Esc to go back.")
}

func (m Model) renderRouting() string {
	return m.theme.brandBold.Render("Interpreting your request...") + "\n" +
		m.spinner.View()
}

func (m Model) renderPlaceholder() string {
	var b strings.Builder
	title := "Coming soon"
	if m.routeInfo != nil && m.routeInfo.Section != "unknown" {
		title = "Coming soon: " + m.routeInfo.Section
	}
	b.WriteString(m.theme.brandBold.Render(title) + "\n")
	if m.asked != "" {
		b.WriteString(m.theme.text.Render("You asked: "+m.asked) + "\n")
	}
	if info := m.routeInfo; info != nil {
		b.WriteString(m.theme.muted.Render(fmt.Sprintf(
			"NL→ %s/%s (%d%%)", info.Section, actionOr(info.Action), int(info.Confidence*100+0.5),
		)) + "\n")
		if len(info.Args) > 0 {
			b.WriteString(m.theme.muted.Render("Args: "+formatArgs(info.Args)) + "\n")
		}
		if info.Reason != "" {
			b.WriteString(m.theme.muted.Render("Reason: "+info.Reason) + "\n")
		}
	}
	b.WriteString(m.theme.muted.Render("Press Esc to return to the main menu"))
	return b.String()
}

func (m Model) renderAccount() string {
	var b strings.Builder
	b.WriteString(m.theme.brandBold.Render("My Account") + "\n")
	switch m.accountPhase {
	case phaseLoading:
		b.WriteString(m.spinner.View() + "\n")
	case phaseError:
		b.WriteString(m.theme.errorText.Render(m.accountErr) + "\n")
	case phaseReady:
		user := m.account
		b.WriteString(m.theme.text.Render("Name: "+strOr(user.Name, "")) + "\n")
		b.WriteString(m.theme.text.Render("Email: "+strOr(user.Email, "")) + "\n")
		b.WriteString(m.theme.text.Render("Terms accepted: "+yesNo(user.TermsAccepted)) + "\n")
		b.WriteString(m.theme.text.Render("Marketing opt-in: "+yesNo(user.MarketingOptIn)) + "\n")
		if user.StripeCustomerID != nil {
			b.WriteString(m.theme.text.Render("Stripe customer: "+*user.StripeCustomerID) + "\n")
		}
		if user.ID != nil {
			b.WriteString(m.theme.muted.Render("ID: "+*user.ID) + "\n")
		}
		if user.CreatedAt != nil {
			b.WriteString(m.theme.muted.Render("Created: "+user.CreatedAt.Format(time.RFC3339)) + "\n")
		}
		if user.UpdatedAt != nil {
			b.WriteString(m.theme.muted.Render("Updated: "+user.UpdatedAt.Format(time.RFC3339)) + "\n")
		}
	}
	b.WriteString("\n" + m.theme.muted.Render("r refresh · Esc back to menu"))
	return b.String()
}

func (m Model) renderAgents() string {
	var b strings.Builder
	b.WriteString(m.theme.brandBold.Render("Agents Gallery") + "\n")
	switch m.agentsPhase {
	case phaseLoading:
		b.WriteString(m.spinner.View() + "\n")
	case phaseError:
		b.WriteString(m.theme.errorText.Render(m.agentsErr) + "\n")
	case phaseReady:
		if len(m.agents) == 0 {
			b.WriteString(m.theme.text.Render("No agents available") + "\n")
		}
		for i, agent := range m.agents {
			b.WriteString(m.renderAgentRow(agent, i == m.agentsIndex, -1) + "\n")
		}
	}
	b.WriteString("\n" + m.theme.muted.Render("Enter details · h hire · r refresh · Esc back to menu"))
	return b.String()
}

func (m Model) renderAgentRow(agent api.Agent, selected bool, jobCount int) string {
	name := strOr(agent.Name, strOr(agent.ID, ""))
	line := name
	if agent.Price.Credits != nil {
		line += "  " + m.theme.brandBold.Render(trimFloat(*agent.Price.Credits)+" cr")
	}
	var extra []string
	if agent.Description != nil && *agent.Description != "" {
		extra = append(extra, truncate(*agent.Description, 70))
	}
	if tags := agent.TagNames(); len(tags) > 0 {
		extra = append(extra, "Tags: "+strings.Join(tags, ", "))
	}
	if jobCount >= 0 {
		extra = append(extra, fmt.Sprintf("Jobs with results: %d", jobCount))
	}
	marker := "  "
	style := m.theme.menuItem
	if selected {
		marker = "▸ "
		style = m.theme.fieldActive
	}
	out := style.Render(marker + line)
	for _, line := range extra {
		out += "\n" + m.theme.muted.Render("    "+line)
	}
	return out
}

func (m Model) renderAgentDetail() string {
	var b strings.Builder
	agent := m.selected
	b.WriteString(m.theme.brandBold.Render(strOr(agent.Name, "Agent")) + "\n")
	if agent.Description != nil && *agent.Description != "" {
		b.WriteString(m.theme.text.Render(*agent.Description) + "\n")
	}
	if tags := agent.TagNames(); len(tags) > 0 {
		b.WriteString(m.theme.muted.Render("Tags: "+strings.Join(tags, ", ")) + "\n")
	}
	if agent.Price.Credits != nil {
		b.WriteString(m.theme.brand.Render("Credits: "+trimFloat(*agent.Price.Credits)) + "\n")
	}

	if m.jobDetail != nil {
		b.WriteString("\n" + m.renderJobDetailPane(*m.jobDetail))
		return b.String()
	}

	b.WriteString("\n" + m.theme.panelTitle.Render("Jobs") + "\n")
	switch m.jobsPhase {
	case phaseLoading:
		b.WriteString(m.spinner.View() + " Loading jobs...\n")
	case phaseError:
		b.WriteString(m.theme.errorText.Render(m.jobsErr) + "\n")
	case phaseReady:
		if len(m.jobs) == 0 {
			b.WriteString(m.theme.text.Render("No jobs found for this agent") + "\n")
		}
		for i, job := range m.jobs {
			b.WriteString(m.renderJobRow(job, i == m.jobsIndex) + "\n")
		}
	}
	b.WriteString("\n" + m.theme.muted.Render("Enter job details · h hire · r refresh · Esc back"))
	return b.String()
}

func (m Model) renderJobRow(job api.AgentJob, selected bool) string {
	name := strOr(job.Name, job.Key())
	if name == "" {
		name = "Job"
	}
	marker := "  "
	style := m.theme.menuItem
	if selected {
		marker = "▸ "
		style = m.theme.fieldActive
	}
	meta := "Status: " + strOr(job.Status, "-") + "   Started: " + renderDate(job.StartedAt)
	return style.Render(marker+name) + "\n" + m.theme.muted.Render("    "+meta)
}

func (m Model) renderJobDetailPane(job api.AgentJob) string {
	var b strings.Builder
	b.WriteString(m.theme.panelTitle.Render("Job Details") + "\n")
	name := strOr(job.Name, job.Key())
	if name == "" {
		name = "Job"
	}
	b.WriteString(m.theme.fieldLabel.Render(name) + "\n")
	b.WriteString(m.theme.muted.Render("Status: "+strOr(job.Status, "-")) + "\n")
	b.WriteString(m.theme.muted.Render("Started: "+renderDate(job.StartedAt)) + "\n\n")
	b.WriteString(m.detailBody.View() + "\n")
	b.WriteString(m.theme.muted.Render("Enter/Backspace/Left/B back to jobs · Up/Down scroll"))
	return b.String()
}

// renderJobBody builds the scrollable Input/Output body for a job, wrapped
// to the detail viewport width.
func (m Model) renderJobBody(job api.AgentJob) string {
	var b strings.Builder
	b.WriteString(m.theme.panelTitle.Render("Input") + "\n")
	b.WriteString(m.renderMarkdown(wrapText(inputMarkdown(job.Input), m.detailBody.Width)) + "\n\n")
	b.WriteString(m.theme.panelTitle.Render("Output") + "\n")
	b.WriteString(m.renderMarkdown(wrapText(outputMarkdown(job.Output), m.detailBody.Width)))
	return b.String()
}

func (m Model) renderHired() string {
	var b strings.Builder
	b.WriteString(m.theme.brandBold.Render("Hired Agents") + "\n")

	if m.hiredDetail != nil {
		b.WriteString("\n" + m.renderJobDetailPane(*m.hiredDetail))
		return b.String()
	}

	if m.hiredSel >= 0 && m.hiredSel < len(m.hired) {
		entry := m.hired[m.hiredSel]
		agent := entry.agent
		b.WriteString(m.theme.brandBold.Render(strOr(agent.Name, "Agent")) + "\n")
		if agent.Description != nil && *agent.Description != "" {
			b.WriteString(m.theme.text.Render(*agent.Description) + "\n")
		}
		if tags := agent.TagNames(); len(tags) > 0 {
			b.WriteString(m.theme.muted.Render("Tags: "+strings.Join(tags, ", ")) + "\n")
		}
		if agent.Price.Credits != nil {
			b.WriteString(m.theme.brand.Render("Credits: "+trimFloat(*agent.Price.Credits)) + "\n")
		}
		b.WriteString("\n" + m.theme.panelTitle.Render("Jobs with results") + "\n")
		if len(entry.jobs) == 0 {
			b.WriteString(m.theme.text.Render("No completed jobs for this agent") + "\n")
		}
		for i, job := range entry.jobs {
			b.WriteString(m.renderJobRow(job, i == m.hiredJobIndex) + "\n")
		}
		b.WriteString("\n" + m.theme.muted.Render("Enter job details · Esc back to hired agents"))
		return b.String()
	}

	switch m.hiredPhase {
	case phaseLoading:
		b.WriteString(m.spinner.View() + "\n")
	case phaseError:
		b.WriteString(m.theme.errorText.Render(m.hiredErr) + "\n")
	case phaseReady:
		if len(m.hired) == 0 {
			b.WriteString(m.theme.text.Render("No hired agents with results yet") + "\n")
		}
		for i, entry := range m.hired {
			b.WriteString(m.renderAgentRow(entry.agent, i == m.hiredIndex, len(entry.jobs)) + "\n")
		}
	}
	b.WriteString("\n" + m.theme.muted.Render("Enter select · r refresh · Esc back to menu"))
	return b.String()
}

func (m Model) renderHire() string {
	var b strings.Builder
	b.WriteString(m.theme.brandBold.Render("Hire an Agent") + "\n")
	if m.hasSelected {
		b.WriteString(m.theme.muted.Render("Agent: "+strOr(m.selected.Name, strOr(m.selected.ID, ""))) + "\n")
	}
	switch m.hirePhase {
	case phaseLoading:
		b.WriteString(m.spinner.View() + " Loading form…\n")
	case phaseError:
		b.WriteString(m.theme.errorText.Render(m.hireErr) + "\n")
		b.WriteString(m.theme.muted.Render("r retry · Esc back") + "\n")
	case phaseReady:
		b.WriteString("\n")
		for i, field := range m.hireFields {
			label := m.theme.fieldLabel
			if m.hireFocus == i {
				label = m.theme.fieldActive
			}
			b.WriteString(label.Render(field.Name) + "\n")
			if field.Type == "textarea" || field.Type == "text" || field.Type == "string" {
				b.WriteString(m.hireInputs[i].View() + "\n")
			} else {
				b.WriteString(m.theme.muted.Render("Unsupported field type: "+field.Type) + "\n")
			}
		}
		creditsLabel := m.theme.fieldLabel
		if m.hireFocus == len(m.hireInputs) {
			creditsLabel = m.theme.fieldActive
		}
		b.WriteString(creditsLabel.Render("Max accepted credits") + "\n")
		b.WriteString(m.hireCredits.View() + "\n\n")

		submit := "Hire Agent"
		if m.hireSubmitting {
			submit = "Hiring… " + m.spinner.View()
		}
		if m.hireFocus == len(m.hireInputs)+1 {
			b.WriteString(m.theme.menuSelect.Render("▸ "+submit) + "\n")
		} else {
			b.WriteString(m.theme.menuItem.Render("  "+submit) + "\n")
		}
		if m.hireFocus == len(m.hireInputs)+2 {
			b.WriteString(m.theme.menuSelect.Render("▸ Back") + "\n")
		} else {
			b.WriteString(m.theme.menuItem.Render("  Back") + "\n")
		}
		if m.hireJob != nil {
			b.WriteString("\n" + m.theme.brand.Render("Job created: "+m.hireJob.Key()) + "\n")
		}
		if m.hireSubmitErr != "" {
			b.WriteString("\n" + m.theme.errorText.Render(m.hireSubmitErr) + "\n")
		}
	}
	b.WriteString("\n" + m.theme.muted.Render("Tab next field · Esc back"))
	return b.String()
}

func (m Model) inputPanelView(inner string) string {
	return m.theme.inputPanel.Render(inner)
}

// renderMarkdown handles the small subset the marketplace emits: headings,
// bullet lines, and **bold** spans.
func (m Model) renderMarkdown(md string) string {
	var out []string
	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"):
			clean := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			out = append(out, m.theme.panelTitle.Render(clean))
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			out = append(out, "• "+m.renderInlineStrong(trimmed[2:]))
		default:
			out = append(out, m.renderInlineStrong(line))
		}
	}
	return strings.Join(out, "\n")
}

func (m Model) renderInlineStrong(line string) string {
	var b strings.Builder
	rest := line
	for {
		start := strings.Index(rest, "**")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start+2:], "**")
		if end < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:start])
		b.WriteString(m.theme.fieldLabel.Render(rest[start+2 : start+2+end]))
		rest = rest[start+2+end+2:]
	}
	return b.String()
}

// inputMarkdown turns a structured job input into the Question/Inputs
// markdown layout; plain-text inputs pass through.
func inputMarkdown(payload api.JobPayload) string {
	obj, ok := payload.Object()
	if !ok {
		if payload.IsNull() || payload.Text() == "" {
			return "—"
		}
		return payload.Text()
	}
	var parts []string
	if question, ok := obj["question"].(string); ok && strings.TrimSpace(question) != "" {
		parts = append(parts, "## Question", "", strings.TrimSpace(question))
	}
	keys := make([]string, 0, len(obj))
	for key := range obj {
		if key != "question" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		parts = append(parts, "", "## Inputs")
		for _, key := range keys {
			switch value := obj[key].(type) {
			case []any:
				for _, item := range value {
					parts = append(parts, fmt.Sprintf("- %s: %v", key, item))
				}
			case map[string]any:
				parts = append(parts, fmt.Sprintf("- %s: %s", key, formatArgs(value)))
			default:
				parts = append(parts, fmt.Sprintf("- %s: %v", key, value))
			}
		}
	}
	if len(parts) == 0 {
		return payload.Text()
	}
	return strings.Join(parts, "\n")
}

// outputMarkdown prefers the structured result field when present.
func outputMarkdown(payload api.JobPayload) string {
	if obj, ok := payload.Object(); ok {
		if result, ok := obj["result"].(string); ok {
			return result
		}
	}
	if payload.IsNull() || payload.Text() == "" {
		return "—"
	}
	return payload.Text()
}

func formatArgs(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for key := range args {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, args[key]))
	}
	return strings.Join(parts, " ")
}

func renderDate(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return value.Local().Format("2006-01-02 15:04:05")
}

func strOr(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}

func actionOr(action string) string {
	if strings.TrimSpace(action) == "" {
		return "unknown"
	}
	return action
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
