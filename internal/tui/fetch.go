package tui

import (
	"context"
	"strconv"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sokosumi/cli/internal/api"
)

// Every command below captures its inputs (client, ids, generation) by
// value before the closure runs, so an in-flight fetch never reads mutated
// controller state.

func (m Model) userCmd(gen int) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		user, err := client.CurrentUser(context.Background())
		return userDoneMsg{gen: gen, user: user, err: err}
	}
}

func (m Model) accountCmd(gen int) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		user, err := client.CurrentUser(context.Background())
		return accountDoneMsg{gen: gen, user: user, err: err}
	}
}

func (m Model) agentsCmd(gen int) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		agents, err := client.Agents(context.Background())
		return agentsDoneMsg{gen: gen, agents: agents, err: err}
	}
}

func (m Model) jobsCmd(gen int, agentID string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		jobs, err := client.AgentJobs(context.Background(), agentID)
		return jobsDoneMsg{gen: gen, jobs: jobs, err: err}
	}
}

// hiredCmd fans out one job fetch per agent and joins them all before
// filtering. A single agent's failure degrades that agent to an empty job
// list; only the initial agents fetch can fail the whole view.
func (m Model) hiredCmd(gen int) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx := context.Background()
		agents, err := client.Agents(ctx)
		if err != nil {
			return hiredDoneMsg{gen: gen, err: err}
		}
		results := make([]hiredAgent, len(agents))
		var wg sync.WaitGroup
		for i, agent := range agents {
			wg.Add(1)
			go func(i int, agent api.Agent) {
				defer wg.Done()
				id := ""
				if agent.ID != nil {
					id = *agent.ID
				}
				jobs, err := client.AgentJobs(ctx, id)
				if err != nil {
					jobs = nil
				}
				results[i] = hiredAgent{agent: agent, jobs: jobsWithResults(jobs)}
			}(i, agent)
		}
		wg.Wait()
		return hiredDoneMsg{gen: gen, hired: dropJobless(results)}
	}
}

// jobsWithResults keeps only jobs whose output carries non-blank text.
func jobsWithResults(jobs []api.AgentJob) []api.AgentJob {
	kept := []api.AgentJob{}
	for _, job := range jobs {
		if job.Output.HasContent() {
			kept = append(kept, job)
		}
	}
	return kept
}

func dropJobless(entries []hiredAgent) []hiredAgent {
	kept := []hiredAgent{}
	for _, entry := range entries {
		if len(entry.jobs) > 0 {
			kept = append(kept, entry)
		}
	}
	return kept
}

func (m Model) schemaCmd(gen int, agentID string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		fields, err := client.AgentInputSchema(context.Background(), agentID)
		return schemaDoneMsg{gen: gen, fields: fields, err: err}
	}
}

func (m Model) submitHireCmd(gen int, agentID string, values map[string]string, maxCredits *float64) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		job, err := client.CreateAgentJob(context.Background(), agentID, api.HireRequest{
			InputData:          values,
			MaxAcceptedCredits: maxCredits,
		})
		return hireDoneMsg{gen: gen, job: job, err: err}
	}
}

func (m Model) routeCmd(utterance string) tea.Cmd {
	router := m.router
	return func() tea.Msg {
		return routeDoneMsg{
			asked:  utterance,
			result: router.Route(context.Background(), utterance),
		}
	}
}

func (m Model) saveKeyCmd(key string) tea.Cmd {
	cfg := m.cfg
	return func() tea.Msg {
		next, err := cfg.SaveAPIKey(key)
		return keySavedMsg{cfg: next, err: err}
	}
}

// creditsValue parses the max-credits field: a finite number or nil. Any
// non-numeric text means nil rather than an input error.
func creditsValue(text string) *float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil
	}
	return &parsed
}
