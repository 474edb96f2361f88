package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sokosumi/cli/internal/api"
	"github.com/sokosumi/cli/internal/nlroute"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case bootTickMsg:
		if m.screen != screenBoot {
			break
		}
		m.bootFrame++
		if m.bootFrame < bootFrames {
			cmds = append(cmds, bootTick())
			break
		}
		if m.cfg.HasAPIKey() {
			m.screen = screenMenu
			m.statusLine = "ready"
			m.userPhase = phaseLoading
			cmds = append(cmds, m.userCmd(m.userLife.Begin()))
		} else {
			m.screen = screenSetup
			m.statusLine = "setup required"
		}

	case userDoneMsg:
		if m.userLife.Stale(msg.gen) {
			break
		}
		if msg.err != nil {
			m.userPhase = phaseError
			m.userErr = msg.err.Error()
			m.logError(msg.err)
			break
		}
		m.user = msg.user
		m.userPhase = phaseReady

	case accountDoneMsg:
		if m.accountLife.Stale(msg.gen) {
			break
		}
		if msg.err != nil {
			m.accountPhase = phaseError
			m.accountErr = msg.err.Error()
			m.logError(msg.err)
			break
		}
		m.account = msg.user
		m.accountPhase = phaseReady

	case agentsDoneMsg:
		if m.agentsLife.Stale(msg.gen) {
			break
		}
		if msg.err != nil {
			m.agentsPhase = phaseError
			m.agentsErr = msg.err.Error()
			m.logError(msg.err)
			break
		}
		m.agents = msg.agents
		m.agentsPhase = phaseReady
		if m.agentsIndex >= len(m.agents) {
			m.agentsIndex = 0
		}

	case jobsDoneMsg:
		if m.jobsLife.Stale(msg.gen) {
			break
		}
		if msg.err != nil {
			m.jobsPhase = phaseError
			m.jobsErr = msg.err.Error()
			m.logError(msg.err)
			break
		}
		m.jobs = msg.jobs
		m.jobsPhase = phaseReady
		if m.jobsIndex >= len(m.jobs) {
			m.jobsIndex = 0
		}

	case hiredDoneMsg:
		if m.hiredLife.Stale(msg.gen) {
			break
		}
		if msg.err != nil {
			m.hiredPhase = phaseError
			m.hiredErr = msg.err.Error()
			m.logError(msg.err)
			break
		}
		m.hired = msg.hired
		m.hiredPhase = phaseReady
		if m.hiredIndex >= len(m.hired) {
			m.hiredIndex = 0
		}

	case schemaDoneMsg:
		if m.hireLife.Stale(msg.gen) {
			break
		}
		if msg.err != nil {
			m.hirePhase = phaseError
			m.hireErr = msg.err.Error()
			m.logError(msg.err)
			break
		}
		m.hireFields = msg.fields
		m.hireInputs = make([]textinput.Model, len(msg.fields))
		for i, field := range msg.fields {
			input := textinput.New()
			input.Prompt = "› "
			input.CharLimit = 2000
			if placeholder, ok := field.Data["placeholder"].(string); ok {
				input.Placeholder = placeholder
			}
			m.hireInputs[i] = input
		}
		if m.selected.Price.Credits != nil {
			m.hireCredits.SetValue(trimFloat(*m.selected.Price.Credits))
		} else {
			m.hireCredits.SetValue("")
		}
		m.hireFocus = 0
		m.syncHireFocus()
		m.hirePhase = phaseReady

	case hireDoneMsg:
		if m.hireLife.Stale(msg.gen) {
			break
		}
		m.hireSubmitting = false
		if msg.err != nil {
			m.hireSubmitErr = msg.err.Error()
			m.logError(msg.err)
			break
		}
		job := msg.job
		m.hireJob = &job
		m.statusLine = "job created: " + job.Key()
		m.appendLog(m.statusLine)

	case routeDoneMsg:
		// The user may have escaped back to the menu while the model call
		// was in flight; a late result must not navigate.
		if m.screen != screenRouting {
			break
		}
		result := msg.result
		m.asked = msg.asked
		m.routeInfo = &result
		switch result.Section {
		case nlroute.SectionQuit:
			return m, tea.Quit
		case nlroute.SectionAccount:
			cmds = append(cmds, m.enterAccount())
		case nlroute.SectionAgents:
			cmds = append(cmds, m.enterAgents())
		case nlroute.SectionJobs:
			cmds = append(cmds, m.enterHired())
		default:
			m.screen = screenPlaceholder
		}

	case keySavedMsg:
		m.setupSaving = false
		if msg.err != nil {
			m.setupErr = msg.err.Error()
			break
		}
		m.rebuildClients(msg.cfg)
		m.setupPopup = false
		m.setupInput.SetValue("")
		m.screen = screenMenu
		m.statusLine = "API key saved"
		m.appendLog("API key saved to " + msg.cfg.EnvPath)
		m.userPhase = phaseLoading
		cmds = append(cmds, m.userCmd(m.userLife.Begin()))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.detailBody.Width = maxInt(20, msg.Width-6)

	case tea.KeyMsg:
		return m.handleKey(msg, cmds)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg, cmds []tea.Cmd) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.quitConfirm {
		switch msg.String() {
		case "y", "Y", "enter":
			return m, tea.Quit
		case "n", "N", "esc":
			m.quitConfirm = false
			m.statusLine = "quit canceled"
		}
		return m, tea.Batch(cmds...)
	}

	switch m.screen {
	case screenBoot:
		// Branding runs its fixed delay; input waits.

	case screenSetup:
		return m.handleSetupKey(msg, cmds)

	case screenMenu:
		switch msg.String() {
		case "esc":
			m.quitConfirm = true
			return m, tea.Batch(cmds...)
		case "up":
			m.menuIndex = (m.menuIndex + len(menuItems) - 1) % len(menuItems)
			return m, tea.Batch(cmds...)
		case "down":
			m.menuIndex = (m.menuIndex + 1) % len(menuItems)
			return m, tea.Batch(cmds...)
		case "enter":
			return m.selectMenuItem(cmds)
		case "left", "right", "tab", "shift+tab":
			return m, tea.Batch(cmds...)
		}
		// Any other printable keystroke commits the controller to free-text
		// capture for the remainder of the input.
		if msg.Type == tea.KeyRunes && !msg.Alt {
			m.screen = screenAsk
			m.ask.SetValue(string(msg.Runes))
			m.ask.CursorEnd()
			m.ask.Focus()
		}

	case screenAsk:
		switch msg.String() {
		case "esc":
			m.returnToMenu()
			return m, tea.Batch(cmds...)
		case "enter":
			utterance := strings.TrimSpace(m.ask.Value())
			m.ask.SetValue("")
			m.ask.Blur()
			if utterance == "" {
				m.returnToMenu()
				return m, tea.Batch(cmds...)
			}
			m.asked = utterance
			m.routeInfo = nil
			m.screen = screenRouting
			m.statusLine = "interpreting your request..."
			cmds = append(cmds, m.routeCmd(utterance))
			return m, tea.Batch(cmds...)
		}
		var cmd tea.Cmd
		m.ask, cmd = m.ask.Update(msg)
		cmds = append(cmds, cmd)

	case screenRouting:
		if msg.String() == "esc" {
			m.returnToMenu()
		}

	case screenPlaceholder:
		if msg.String() == "esc" {
			m.returnToMenu()
		}

	case screenAccount:
		switch msg.String() {
		case "esc":
			m.returnToMenu()
		case "r":
			if m.accountPhase != phaseLoading {
				cmds = append(cmds, m.enterAccount())
			}
		}

	case screenAgents:
		switch msg.String() {
		case "esc":
			m.returnToMenu()
		case "up":
			if m.agentsIndex > 0 {
				m.agentsIndex--
			}
		case "down":
			if m.agentsIndex < len(m.agents)-1 {
				m.agentsIndex++
			}
		case "enter":
			if m.agentsPhase == phaseReady && m.agentsIndex < len(m.agents) {
				cmds = append(cmds, m.enterAgentDetail(m.agents[m.agentsIndex]))
			}
		case "h":
			if m.agentsPhase == phaseReady && m.agentsIndex < len(m.agents) {
				cmds = append(cmds, m.enterHire(m.agents[m.agentsIndex]))
			}
		case "r":
			if m.agentsPhase != phaseLoading {
				cmds = append(cmds, m.enterAgents())
			}
		}

	case screenAgentDetail:
		if m.jobDetail != nil {
			switch msg.String() {
			case "esc", "enter", "backspace", "left", "b", "B":
				m.jobDetail = nil
			case "pgup", "up":
				m.detailBody.LineUp(4)
			case "pgdown", "down":
				m.detailBody.LineDown(4)
			}
			return m, tea.Batch(cmds...)
		}
		switch msg.String() {
		case "esc":
			m.screen = screenAgents
			m.jobsLife.Invalidate()
		case "up":
			if m.jobsIndex > 0 {
				m.jobsIndex--
			}
		case "down":
			if m.jobsIndex < len(m.jobs)-1 {
				m.jobsIndex++
			}
		case "enter":
			if m.jobsPhase == phaseReady && m.jobsIndex < len(m.jobs) {
				job := m.jobs[m.jobsIndex]
				m.jobDetail = &job
				m.detailBody.SetContent(m.renderJobBody(job))
				m.detailBody.GotoTop()
			}
		case "h":
			if m.hasSelected {
				cmds = append(cmds, m.enterHire(m.selected))
			}
		case "r":
			if m.jobsPhase != phaseLoading && m.hasSelected {
				cmds = append(cmds, m.enterAgentDetail(m.selected))
			}
		}

	case screenHiredAgents:
		return m.handleHiredKey(msg, cmds)

	case screenHire:
		return m.handleHireKey(msg, cmds)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleSetupKey(msg tea.KeyMsg, cmds []tea.Cmd) (tea.Model, tea.Cmd) {
	if m.setupPopup {
		switch msg.String() {
		case "esc":
			if !m.setupSaving {
				m.setupPopup = false
				m.setupErr = ""
				m.setupInput.Blur()
			}
			return m, tea.Batch(cmds...)
		case "enter":
			key := strings.TrimSpace(m.setupInput.Value())
			if key == "" || m.setupSaving {
				return m, tea.Batch(cmds...)
			}
			m.setupSaving = true
			m.setupErr = ""
			cmds = append(cmds, m.saveKeyCmd(key))
			return m, tea.Batch(cmds...)
		}
		var cmd tea.Cmd
		m.setupInput, cmd = m.setupInput.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}
	switch msg.String() {
	case "enter":
		m.setupPopup = true
		m.setupInput.Focus()
	case "esc":
		if m.cfg.HasAPIKey() {
			m.screen = screenMenu
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleHiredKey(msg tea.KeyMsg, cmds []tea.Cmd) (tea.Model, tea.Cmd) {
	if m.hiredDetail != nil {
		switch msg.String() {
		case "esc", "enter", "backspace", "left", "b", "B":
			m.hiredDetail = nil
		case "pgup", "up":
			m.detailBody.LineUp(4)
		case "pgdown", "down":
			m.detailBody.LineDown(4)
		}
		return m, tea.Batch(cmds...)
	}
	if m.hiredSel >= 0 && m.hiredSel < len(m.hired) {
		jobs := m.hired[m.hiredSel].jobs
		switch msg.String() {
		case "esc":
			m.hiredSel = -1
			m.hiredJobIndex = 0
		case "up":
			if m.hiredJobIndex > 0 {
				m.hiredJobIndex--
			}
		case "down":
			if m.hiredJobIndex < len(jobs)-1 {
				m.hiredJobIndex++
			}
		case "enter":
			if m.hiredJobIndex < len(jobs) {
				job := jobs[m.hiredJobIndex]
				m.hiredDetail = &job
				m.detailBody.SetContent(m.renderJobBody(job))
				m.detailBody.GotoTop()
			}
		}
		return m, tea.Batch(cmds...)
	}
	switch msg.String() {
	case "esc":
		m.returnToMenu()
	case "up":
		if m.hiredIndex > 0 {
			m.hiredIndex--
		}
	case "down":
		if m.hiredIndex < len(m.hired)-1 {
			m.hiredIndex++
		}
	case "enter":
		if m.hiredPhase == phaseReady && m.hiredIndex < len(m.hired) {
			m.hiredSel = m.hiredIndex
			m.hiredJobIndex = 0
		}
	case "r":
		if m.hiredPhase != phaseLoading {
			cmds = append(cmds, m.enterHired())
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleHireKey(msg tea.KeyMsg, cmds []tea.Cmd) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.screen = screenAgents
		m.hireLife.Invalidate()
		return m, tea.Batch(cmds...)
	}
	if m.hirePhase == phaseError && msg.String() == "r" && m.hasSelected {
		cmds = append(cmds, m.enterHire(m.selected))
		return m, tea.Batch(cmds...)
	}
	if m.hirePhase != phaseReady {
		return m, tea.Batch(cmds...)
	}

	// Focus slots: one per schema field, then max credits, submit, back.
	slots := len(m.hireInputs) + 3
	submitSlot := len(m.hireInputs) + 1
	backSlot := len(m.hireInputs) + 2

	switch msg.String() {
	case "tab", "down":
		m.hireFocus = (m.hireFocus + 1) % slots
		m.syncHireFocus()
		return m, tea.Batch(cmds...)
	case "shift+tab", "up":
		m.hireFocus = (m.hireFocus + slots - 1) % slots
		m.syncHireFocus()
		return m, tea.Batch(cmds...)
	case "enter":
		switch m.hireFocus {
		case submitSlot:
			if m.hireSubmitting || !m.hasSelected {
				return m, tea.Batch(cmds...)
			}
			m.hireSubmitting = true
			m.hireSubmitErr = ""
			values := map[string]string{}
			for i, field := range m.hireFields {
				values[field.ID] = m.hireInputs[i].Value()
			}
			agentID := ""
			if m.selected.ID != nil {
				agentID = *m.selected.ID
			}
			cmds = append(cmds, m.submitHireCmd(
				m.hireLife.Begin(), agentID, values, creditsValue(m.hireCredits.Value()),
			))
		case backSlot:
			m.screen = screenAgents
			m.hireLife.Invalidate()
		default:
			m.hireFocus = (m.hireFocus + 1) % slots
			m.syncHireFocus()
		}
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	if m.hireFocus < len(m.hireInputs) {
		m.hireInputs[m.hireFocus], cmd = m.hireInputs[m.hireFocus].Update(msg)
	} else if m.hireFocus == len(m.hireInputs) {
		m.hireCredits, cmd = m.hireCredits.Update(msg)
	}
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) selectMenuItem(cmds []tea.Cmd) (tea.Model, tea.Cmd) {
	switch m.menuIndex {
	case 0:
		cmds = append(cmds, m.enterAccount())
	case 1:
		cmds = append(cmds, m.enterAgents())
	case 2:
		cmds = append(cmds, m.enterHired())
	case 3:
		m.screen = screenSetup
		m.setupPopup = false
		m.setupErr = ""
	case 4:
		m.quitConfirm = true
	}
	return m, tea.Batch(cmds...)
}

// Screen-entry helpers. Each entry into a data-bearing screen begins exactly
// one fetch under a fresh generation.

func (m *Model) enterAccount() tea.Cmd {
	m.screen = screenAccount
	m.accountPhase = phaseLoading
	m.accountErr = ""
	return m.accountCmd(m.accountLife.Begin())
}

func (m *Model) enterAgents() tea.Cmd {
	m.screen = screenAgents
	m.agentsPhase = phaseLoading
	m.agentsErr = ""
	return m.agentsCmd(m.agentsLife.Begin())
}

func (m *Model) enterHired() tea.Cmd {
	m.screen = screenHiredAgents
	m.hiredPhase = phaseLoading
	m.hiredErr = ""
	m.hiredSel = -1
	m.hiredDetail = nil
	m.hiredJobIndex = 0
	return m.hiredCmd(m.hiredLife.Begin())
}

func (m *Model) enterAgentDetail(agent api.Agent) tea.Cmd {
	m.screen = screenAgentDetail
	m.selected = agent
	m.hasSelected = true
	m.jobsPhase = phaseLoading
	m.jobsErr = ""
	m.jobsIndex = 0
	m.jobDetail = nil
	agentID := ""
	if agent.ID != nil {
		agentID = *agent.ID
	}
	return m.jobsCmd(m.jobsLife.Begin(), agentID)
}

func (m *Model) enterHire(agent api.Agent) tea.Cmd {
	m.screen = screenHire
	m.selected = agent
	m.hasSelected = true
	m.hirePhase = phaseLoading
	m.hireErr = ""
	m.hireSubmitErr = ""
	m.hireJob = nil
	m.hireSubmitting = false
	agentID := ""
	if agent.ID != nil {
		agentID = *agent.ID
	}
	return m.schemaCmd(m.hireLife.Begin(), agentID)
}

// returnToMenu is the cancel path: back to the root, clearing captured text,
// routing result, and the last-asked value. Lifecycles of the abandoned
// screens are invalidated so any still-running fetch lands stale.
func (m *Model) returnToMenu() {
	m.screen = screenMenu
	m.ask.SetValue("")
	m.ask.Blur()
	m.asked = ""
	m.routeInfo = nil
	m.accountLife.Invalidate()
	m.agentsLife.Invalidate()
	m.jobsLife.Invalidate()
	m.hiredLife.Invalidate()
	m.hireLife.Invalidate()
}

func (m *Model) syncHireFocus() {
	for i := range m.hireInputs {
		if i == m.hireFocus {
			m.hireInputs[i].Focus()
		} else {
			m.hireInputs[i].Blur()
		}
	}
	if m.hireFocus == len(m.hireInputs) {
		m.hireCredits.Focus()
	} else {
		m.hireCredits.Blur()
	}
}

func trimFloat(value float64) string {
	text := fmt.Sprintf("%g", value)
	return strings.TrimSpace(text)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
