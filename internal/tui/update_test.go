package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sokosumi/cli/internal/api"
	"github.com/sokosumi/cli/internal/config"
	"github.com/sokosumi/cli/internal/nlroute"
)

func apply(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned unexpected model type %T", next)
	}
	return model, cmd
}

func runeKey(text string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)}
}

func bootedMenu(t *testing.T) Model {
	t.Helper()
	m := New(config.Config{BaseURL: "https://api.example.com", APIKey: "k"})
	for i := 0; i < bootFrames; i++ {
		m, _ = apply(t, m, bootTickMsg{})
	}
	if m.screen != screenMenu {
		t.Fatalf("expected menu after boot, got %d", m.screen)
	}
	return m
}

func TestBootWithoutKeyGoesToSetup(t *testing.T) {
	m := New(config.Config{BaseURL: "https://api.example.com"})
	for i := 0; i < bootFrames; i++ {
		m, _ = apply(t, m, bootTickMsg{})
	}
	if m.screen != screenSetup {
		t.Fatalf("expected setup screen without an API key, got %d", m.screen)
	}
}

func TestBootWithKeyGoesToMenuAndLoadsUser(t *testing.T) {
	m := bootedMenu(t)
	if m.userPhase != phaseLoading {
		t.Fatalf("expected user fetch to begin on menu entry")
	}
}

func TestMenuKeystrokeBeginsFreeTextCapture(t *testing.T) {
	m := bootedMenu(t)
	m, _ = apply(t, m, runeKey("l"))
	if m.screen != screenAsk {
		t.Fatalf("expected free-text capture, got screen %d", m.screen)
	}
	if m.ask.Value() != "l" {
		t.Fatalf("expected seeded buffer %q, got %q", "l", m.ask.Value())
	}
	m, _ = apply(t, m, runeKey("ist agents"))
	if m.ask.Value() != "list agents" {
		t.Fatalf("expected accumulated buffer, got %q", m.ask.Value())
	}
}

func TestMenuArrowsDoNotBeginCapture(t *testing.T) {
	m := bootedMenu(t)
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.screen != screenMenu {
		t.Fatalf("arrow keys must stay in menu navigation")
	}
	if m.menuIndex != 1 {
		t.Fatalf("expected menu index 1, got %d", m.menuIndex)
	}
}

func TestEmptySubmitReturnsToMenuWithoutRouting(t *testing.T) {
	m := bootedMenu(t)
	m.screen = screenAsk
	m.ask.Focus()
	m, cmd := apply(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.screen != screenMenu {
		t.Fatalf("empty submit must return to menu, got %d", m.screen)
	}
	if cmd != nil {
		t.Fatalf("empty submit must not invoke the router")
	}
}

func TestNonEmptySubmitEntersRouting(t *testing.T) {
	m := bootedMenu(t)
	m, _ = apply(t, m, runeKey("show my account"))
	m, cmd := apply(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.screen != screenRouting {
		t.Fatalf("expected routing screen, got %d", m.screen)
	}
	if m.asked != "show my account" {
		t.Fatalf("unexpected asked value %q", m.asked)
	}
	if cmd == nil {
		t.Fatalf("expected a route command")
	}
}

func TestEscFromCaptureClearsState(t *testing.T) {
	m := bootedMenu(t)
	m, _ = apply(t, m, runeKey("something"))
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.screen != screenMenu {
		t.Fatalf("expected menu, got %d", m.screen)
	}
	if m.ask.Value() != "" || m.asked != "" || m.routeInfo != nil {
		t.Fatalf("expected captured text and route info cleared")
	}
}

func TestRouteResultQuitTerminates(t *testing.T) {
	m := bootedMenu(t)
	m.screen = screenRouting
	_, cmd := apply(t, m, routeDoneMsg{
		asked:  "bye",
		result: nlroute.RouteResult{Section: nlroute.SectionQuit, Action: "quit"},
	})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestRouteResultAccountNavigates(t *testing.T) {
	m := bootedMenu(t)
	m.screen = screenRouting
	m, cmd := apply(t, m, routeDoneMsg{
		asked:  "show my account",
		result: nlroute.RouteResult{Section: nlroute.SectionAccount, Action: "show"},
	})
	if m.screen != screenAccount || m.accountPhase != phaseLoading {
		t.Fatalf("expected loading account screen, got %d", m.screen)
	}
	if cmd == nil {
		t.Fatalf("expected account fetch command")
	}
}

func TestRouteResultJobsNavigatesToHiredAgents(t *testing.T) {
	m := bootedMenu(t)
	m.screen = screenRouting
	m, _ = apply(t, m, routeDoneMsg{
		asked:  "show my jobs",
		result: nlroute.RouteResult{Section: nlroute.SectionJobs, Action: "list"},
	})
	if m.screen != screenHiredAgents || m.hiredPhase != phaseLoading {
		t.Fatalf("expected loading hired-agents screen, got %d", m.screen)
	}
}

func TestRouteResultUnknownShowsPlaceholder(t *testing.T) {
	m := bootedMenu(t)
	m.screen = screenRouting
	m, _ = apply(t, m, routeDoneMsg{
		asked:  "gibberish",
		result: nlroute.RouteResult{Section: nlroute.SectionUnknown, Action: "unknown", Reason: "no clue"},
	})
	if m.screen != screenPlaceholder {
		t.Fatalf("expected placeholder, got %d", m.screen)
	}
	if m.routeInfo == nil || m.routeInfo.Reason != "no clue" {
		t.Fatalf("expected raw route result carried for display")
	}
}

func TestLateRouteResultAfterEscapeIsIgnored(t *testing.T) {
	m := bootedMenu(t)
	m.screen = screenRouting
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.screen != screenMenu {
		t.Fatalf("expected menu after escape")
	}
	m, _ = apply(t, m, routeDoneMsg{
		asked:  "late",
		result: nlroute.RouteResult{Section: nlroute.SectionAccount},
	})
	if m.screen != screenMenu {
		t.Fatalf("late route result must not navigate, got %d", m.screen)
	}
}

func TestStaleFetchResultIsDiscarded(t *testing.T) {
	m := bootedMenu(t)
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyEnter}) // My Account
	if m.screen != screenAccount {
		t.Fatalf("expected account screen")
	}
	gen := m.accountLife.gen
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	id := "u1"
	m, _ = apply(t, m, accountDoneMsg{gen: gen, user: api.User{ID: &id}})
	if m.account.ID != nil {
		t.Fatalf("stale fetch result must not mutate controller state")
	}
	if m.accountPhase == phaseReady {
		t.Fatalf("stale fetch result must not flip the phase")
	}
}

func TestFreshFetchResultApplies(t *testing.T) {
	m := bootedMenu(t)
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	id := "u1"
	m, _ = apply(t, m, accountDoneMsg{gen: m.accountLife.gen, user: api.User{ID: &id}})
	if m.accountPhase != phaseReady || m.account.ID == nil || *m.account.ID != "u1" {
		t.Fatalf("expected fresh result applied, got phase %d", m.accountPhase)
	}
}

func TestFetchErrorEntersErrorPhaseAndRefreshRetries(t *testing.T) {
	m := bootedMenu(t)
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = apply(t, m, accountDoneMsg{gen: m.accountLife.gen, err: errTest})
	if m.accountPhase != phaseError || m.accountErr == "" {
		t.Fatalf("expected error phase with message")
	}
	m, cmd := apply(t, m, runeKey("r"))
	if m.accountPhase != phaseLoading || cmd == nil {
		t.Fatalf("expected refresh to start a new fetch")
	}
}

func TestMenuQuitEntryOpensConfirm(t *testing.T) {
	m := bootedMenu(t)
	m.menuIndex = 4
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.quitConfirm {
		t.Fatalf("expected quit confirmation modal")
	}
	_, cmd := apply(t, m, runeKey("y"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg after confirm")
	}
}

func TestQuitConfirmCancel(t *testing.T) {
	m := bootedMenu(t)
	m.quitConfirm = true
	m, cmd := apply(t, m, runeKey("n"))
	if m.quitConfirm {
		t.Fatalf("expected confirm dismissed")
	}
	if cmd != nil {
		t.Fatalf("expected no command on cancel")
	}
}

func TestJobDetailSubStateRoundTrip(t *testing.T) {
	m := bootedMenu(t)
	agentID := "a1"
	m, _ = signalAgents(t, m, agentID)

	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.screen != screenAgentDetail || m.jobsPhase != phaseLoading {
		t.Fatalf("expected agent detail loading")
	}
	jobID := "j1"
	m, _ = apply(t, m, jobsDoneMsg{gen: m.jobsLife.gen, jobs: []api.AgentJob{
		api.AgentJobFrom(map[string]any{"id": jobID, "name": "run", "output": "done"}),
	}})
	if m.jobsPhase != phaseReady || len(m.jobs) != 1 {
		t.Fatalf("expected one job ready")
	}
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.jobDetail == nil {
		t.Fatalf("expected job detail sub-state")
	}
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.jobDetail != nil || m.screen != screenAgentDetail {
		t.Fatalf("escape from item detail must return to its listing")
	}
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.screen != screenAgents {
		t.Fatalf("escape from listing must return to the agents gallery")
	}
}

func TestSchemaResultBuildsHireForm(t *testing.T) {
	m := bootedMenu(t)
	m, _ = signalAgents(t, m, "a1")
	m, _ = apply(t, m, runeKey("h"))
	if m.screen != screenHire || m.hirePhase != phaseLoading {
		t.Fatalf("expected hire screen loading")
	}
	m, _ = apply(t, m, schemaDoneMsg{gen: m.hireLife.gen, fields: []api.FieldDescriptor{
		{ID: "question", Type: "textarea", Name: "Question", Data: map[string]any{"placeholder": "Ask"}},
	}})
	if m.hirePhase != phaseReady || len(m.hireInputs) != 1 {
		t.Fatalf("expected one form input")
	}
	if m.hireCredits.Value() != "2.5" {
		t.Fatalf("expected credits defaulted from agent price, got %q", m.hireCredits.Value())
	}
}

// signalAgents drives the model into a ready agents gallery containing one
// agent priced at 2.5 credits.
func signalAgents(t *testing.T, m Model, agentID string) (Model, tea.Cmd) {
	t.Helper()
	m.menuIndex = 1
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.screen != screenAgents {
		t.Fatalf("expected agents screen")
	}
	m, cmd := apply(t, m, agentsDoneMsg{gen: m.agentsLife.gen, agents: []api.Agent{
		api.AgentFrom(map[string]any{
			"id":    agentID,
			"name":  "Echo",
			"price": map[string]any{"credits": 2.5},
		}),
	}})
	if m.agentsPhase != phaseReady {
		t.Fatalf("expected agents ready")
	}
	return m, cmd
}

var errTest = errTestType{}

type errTestType struct{}

func (errTestType) Error() string { return "boom" }
