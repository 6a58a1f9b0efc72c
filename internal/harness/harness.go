package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/tremby/discord-tagbot/internal/chat/chattest"
	"github.com/tremby/discord-tagbot/internal/engine"
	"github.com/tremby/discord-tagbot/internal/game"
)

// selfID is the bot identity used inside scenario replays. Fixture posts
// must not use it.
const selfID = "harness-bot"

// Result captures the state derived from a scenario replay.
type Result struct {
	Scenario string         `json:"scenario"`
	Status   string         `json:"status"`
	Scores   map[string]int `json:"scores"`
	Excluded []string       `json:"excluded,omitempty"`
}

// Run replays the scenario's history through the recount engine and
// snapshots the derived state.
func Run(scenario *Scenario) (*Result, error) {
	fake := chattest.NewFake()
	channel := fake.AddChannel(scenario.Channel, scenario.Channel)
	for _, step := range scenario.History {
		msg := chattest.Msg(scenario.Channel, step.Author, step.At, step.HasImage(), step.Mentions...)
		msg.ID = step.ID
		fake.Seed(msg)
	}

	g := game.New(channel)
	if scenario.Config.NextTagTimeLimit > 0 {
		g.Config.TimeLimit = time.Duration(scenario.Config.NextTagTimeLimit) * time.Minute
	}

	machine := engine.NewMachine(selfID, nil)
	recounter := engine.NewRecounter(fake, machine)
	derived, err := recounter.Recount(context.Background(), g)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := &Result{
		Scenario: scenario.Name,
		Status:   string(derived.Status()),
		Scores:   map[string]int{},
	}
	for id, points := range game.ScoresOf(derived) {
		result.Scores[id] = points
	}
	if excluded := game.ExcludedOf(derived); len(excluded) > 0 {
		result.Excluded = excluded.Sorted()
	}
	return result, nil
}

// RunFile loads and runs a scenario from a file path.
func RunFile(path string) (*Result, error) {
	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, err
	}
	return Run(scenario)
}
