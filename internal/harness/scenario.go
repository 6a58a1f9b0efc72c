// Package harness replays YAML-described event histories through the
// engine and checks the derived state, optionally against golden files.
// The cli recount command and the conformance tests share it.
package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario describes a channel history to replay.
type Scenario struct {
	// Name uniquely identifies this scenario; golden files are named
	// after it.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description"`

	// Channel is the game channel's identity.
	Channel string `yaml:"channel"`

	// Config holds the optional per-game settings that affect replay.
	Config ScenarioConfig `yaml:"config,omitempty"`

	// History is the channel's post history, oldest first.
	History []HistoryStep `yaml:"history"`
}

// ScenarioConfig is the subset of game configuration a replay observes.
type ScenarioConfig struct {
	// NextTagTimeLimit is the time limit in minutes, zero for none.
	NextTagTimeLimit int `yaml:"nextTagTimeLimit,omitempty"`
}

// HistoryStep is one historical post.
type HistoryStep struct {
	// ID is the message identity; generated when empty.
	ID string `yaml:"id,omitempty"`

	// Author is the posting participant's identity.
	Author string `yaml:"author"`

	// Mentions lists the participants the post references.
	Mentions []string `yaml:"mentions,omitempty"`

	// Image marks the post as carrying a qualifying attachment.
	// Defaults to true: most fixture posts are submissions.
	Image *bool `yaml:"image,omitempty"`

	// At is the post's creation time.
	At time.Time `yaml:"at"`
}

// HasImage resolves the Image default.
func (s HistoryStep) HasImage() bool {
	return s.Image == nil || *s.Image
}

// LoadScenario reads and parses a scenario file. Unknown fields are
// rejected to catch fixture typos.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Channel == "" {
		return fmt.Errorf("channel is required")
	}
	if len(s.History) == 0 {
		return fmt.Errorf("history is required and must be non-empty")
	}
	if s.Config.NextTagTimeLimit < 0 {
		return fmt.Errorf("config.nextTagTimeLimit must not be negative")
	}

	var prev time.Time
	for i, step := range s.History {
		if step.Author == "" {
			return fmt.Errorf("history[%d]: author is required", i)
		}
		if step.At.IsZero() {
			return fmt.Errorf("history[%d]: at is required", i)
		}
		if step.At.Before(prev) {
			return fmt.Errorf("history[%d]: out of chronological order", i)
		}
		prev = step.At
	}
	return nil
}
