// Package tui is the session controller: one bubbletea model unifying menu
// navigation, free-text capture, and asynchronous marketplace fetches into a
// single on-screen state.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sokosumi/cli/internal/api"
	"github.com/sokosumi/cli/internal/config"
	"github.com/sokosumi/cli/internal/nlroute"
)

type screen int

const (
	screenBoot screen = iota
	screenSetup
	screenMenu
	screenAsk
	screenRouting
	screenPlaceholder
	screenAccount
	screenAgents
	screenAgentDetail
	screenHiredAgents
	screenHire
)

type phase int

const (
	phaseLoading phase = iota
	phaseReady
	phaseError
)

const (
	bootFrames       = 10
	bootFrameDelay   = 120 * time.Millisecond
	maxLogLines      = 50
	askCharLimit     = 500
	detailBodyHeight = 14
)

// fetchLifecycle hands out generations for one screen's fetches. Navigating
// away (or refreshing) begins a new generation; a done-message carrying an
// older generation is stale and must not touch controller state.
type fetchLifecycle struct {
	gen int
}

func (l *fetchLifecycle) Begin() int {
	l.gen++
	return l.gen
}

func (l *fetchLifecycle) Stale(gen int) bool {
	return gen != l.gen
}

// Invalidate marks every outstanding fetch stale without starting a new one.
func (l *fetchLifecycle) Invalidate() {
	l.gen++
}

// hiredAgent pairs an agent with its jobs that carry a non-blank output.
type hiredAgent struct {
	agent api.Agent
	jobs  []api.AgentJob
}

var menuItems = []string{
	"My Account",
	"Agents Gallery",
	"Hired Agents",
	"Setup Api Key",
	"Quit",
}

type Model struct {
	cfg    config.Config
	client *api.Client
	router *nlroute.Router

	screen      screen
	width       int
	height      int
	theme       theme
	spinner     spinner.Model
	statusLine  string
	logs        []string
	quitConfirm bool
	bootFrame   int

	// setup
	setupPopup  bool
	setupSaving bool
	setupErr    string
	setupInput  textinput.Model

	// menu + user block
	menuIndex int
	user      api.User
	userPhase phase
	userErr   string
	userLife  fetchLifecycle

	// free-text capture and routing
	ask       textinput.Model
	asked     string
	routeInfo *nlroute.RouteResult

	// account
	account      api.User
	accountPhase phase
	accountErr   string
	accountLife  fetchLifecycle

	// agents gallery
	agents      []api.Agent
	agentsPhase phase
	agentsErr   string
	agentsIndex int
	agentsLife  fetchLifecycle

	// agent detail (listing <-> job detail)
	selected    api.Agent
	hasSelected bool
	jobs        []api.AgentJob
	jobsPhase   phase
	jobsErr     string
	jobsIndex   int
	jobDetail   *api.AgentJob
	jobsLife    fetchLifecycle
	detailBody  viewport.Model

	// hired agents (listing <-> agent jobs <-> job detail)
	hired         []hiredAgent
	hiredPhase    phase
	hiredErr      string
	hiredIndex    int
	hiredSel      int
	hiredJobIndex int
	hiredDetail   *api.AgentJob
	hiredLife     fetchLifecycle

	// hire form
	hireFields     []api.FieldDescriptor
	hireInputs     []textinput.Model
	hireCredits    textinput.Model
	hirePhase      phase
	hireErr        string
	hireFocus      int
	hireSubmitting bool
	hireSubmitErr  string
	hireJob        *api.AgentJob
	hireLife       fetchLifecycle
}

// Typed results for every async operation: one message per command,
// carrying the fetch generation it was started under.

type bootTickMsg struct{}

type userDoneMsg struct {
	gen  int
	user api.User
	err  error
}

type accountDoneMsg struct {
	gen  int
	user api.User
	err  error
}

type agentsDoneMsg struct {
	gen    int
	agents []api.Agent
	err    error
}

type jobsDoneMsg struct {
	gen  int
	jobs []api.AgentJob
	err  error
}

type hiredDoneMsg struct {
	gen   int
	hired []hiredAgent
	err   error
}

type schemaDoneMsg struct {
	gen    int
	fields []api.FieldDescriptor
	err    error
}

type hireDoneMsg struct {
	gen int
	job api.AgentJob
	err error
}

type routeDoneMsg struct {
	asked  string
	result nlroute.RouteResult
}

type keySavedMsg struct {
	cfg config.Config
	err error
}

func New(cfg config.Config) Model {
	ask := textinput.New()
	ask.Prompt = "› "
	ask.CharLimit = askCharLimit
	ask.Placeholder = `e.g., show my account details, list my agents, start a new job`

	setup := textinput.New()
	setup.Prompt = "› "
	setup.CharLimit = 200
	setup.Placeholder = "Paste your Sokosumi API key"

	credits := textinput.New()
	credits.Prompt = "› "
	credits.CharLimit = 32

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipglossBrandStyle()

	body := viewport.New(0, detailBodyHeight)

	return Model{
		cfg:         cfg,
		client:      api.NewClient(cfg),
		router:      nlroute.New(cfg),
		screen:      screenBoot,
		theme:       newTheme(),
		spinner:     sp,
		statusLine:  "starting...",
		logs:        []string{},
		ask:         ask,
		setupInput:  setup,
		hireCredits: credits,
		hiredSel:    -1,
		detailBody:  body,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, bootTick())
}

func bootTick() tea.Cmd {
	return tea.Tick(bootFrameDelay, func(time.Time) tea.Msg {
		return bootTickMsg{}
	})
}

func (m *Model) appendLog(line string) {
	m.logs = append(m.logs, time.Now().Format("15:04:05")+" "+line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
}

func (m *Model) logError(err error) {
	if err == nil {
		return
	}
	m.appendLog("error: " + compactSingleLine(err.Error(), 160))
}

// rebuildClients swaps in a fresh configuration after the setup flow saved a
// key. The API client and router are reconstructed, never mutated.
func (m *Model) rebuildClients(cfg config.Config) {
	m.cfg = cfg
	m.client = api.NewClient(cfg)
	m.router = nlroute.New(cfg)
}
