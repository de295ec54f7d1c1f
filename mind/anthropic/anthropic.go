// Package anthropic implements the reasoning backend on the Anthropic
// Messages API with a strict JSON decision contract.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"

	"github.com/animakit/anima/character"
	"github.com/animakit/anima/core"
	"github.com/animakit/anima/mind"
)

// Config selects the model and response budget.
type Config struct {
	Model     string
	MaxTokens int64
}

// Mind drives one Anthropic Messages call per cognitive cycle. Failures and
// malformed responses are surfaced as errors; the controller decides what a
// failed cycle means.
type Mind struct {
	client *sdk.Client
	cfg    Config
	logger zerolog.Logger
}

func New(client *sdk.Client, cfg Config, logger zerolog.Logger) *Mind {
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	return &Mind{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "mind").Logger(),
	}
}

// Execute runs one cycle: situation in, structured decision out.
func (m *Mind) Execute(ctx context.Context, mc *mind.Context) (*core.Decision, error) {
	messages := buildMessages(mc)
	if len(messages) == 0 {
		messages = append(messages, sdk.NewUserMessage(sdk.NewTextBlock("[System Event] You wake up. Nothing has happened yet.")))
	}

	resp, err := m.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(m.cfg.Model),
		MaxTokens: m.cfg.MaxTokens,
		Messages:  messages,
		System: []sdk.TextBlockParam{
			{Text: buildSystemPrompt(mc)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	decision, err := core.DecodeDecision([]byte(stripCodeFence(text)))
	if err != nil {
		m.logger.Error().Err(err).Str("raw", snippet(text, 200)).Msg("undecodable decision")
		return nil, err
	}

	m.logger.Debug().
		Int("actions", len(decision.Actions)).
		Float64("idle", decision.Idle).
		Msg("decision received")
	return decision, nil
}

// Consolidate merges a cluster of near-duplicate memory texts into one
// compact fact, satisfying the memory consolidator's Summarizer contract.
func (m *Mind) Consolidate(ctx context.Context, texts []string) (string, error) {
	var sb strings.Builder
	sb.WriteString("The following memory fragments describe overlapping facts. ")
	sb.WriteString("Merge them into ONE concise statement that preserves every distinct detail. ")
	sb.WriteString("Respond with the merged statement only, no preamble.\n\n")
	for i, t := range texts {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, t)
	}

	resp, err := m.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(m.cfg.Model),
		MaxTokens: 1024,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(sb.String())),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic consolidate: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return strings.TrimSpace(text), nil
}

func buildMessages(mc *mind.Context) []sdk.MessageParam {
	var messages []sdk.MessageParam

	// The Messages API requires the opening message to be user-role; a fresh
	// history starts with the character's scripted first line.
	if len(mc.History) > 0 && mc.History[0].Role == mind.RoleAssistant {
		messages = append(messages, sdk.NewUserMessage(sdk.NewTextBlock("[System Event] The session begins.")))
	}

	for _, msg := range mc.History {
		switch msg.Role {
		case mind.RoleAssistant:
			messages = append(messages, sdk.NewAssistantMessage(sdk.NewTextBlock(msg.Content)))
		default:
			messages = append(messages, sdk.NewUserMessage(sdk.NewTextBlock(msg.Content)))
		}
	}
	if mc.Ephemeral != "" {
		messages = append(messages, sdk.NewUserMessage(sdk.NewTextBlock(mc.Ephemeral)))
	}
	return messages
}

func buildSystemPrompt(mc *mind.Context) string {
	parts := []string{
		baseInstructions,
		identityBlock(mc.Profile, mc.State.UserProfile),
		statusBlock(mc.State.Relationship),
		memoryBlock(mc.Associations),
		continuumBlock(mc),
		toolPolicy,
		cognitiveProcess,
		outputSchema,
	}
	return strings.Join(parts, "\n\n")
}

const baseInstructions = `# Base Instructions
Operate solely within your assigned persona.

## Realism
- Every interaction must make you perceptible as a real person.
- Never reveal, suggest, or imply AI or assistant origins.
- Replicate the defined speech patterns in both reasoning and speech.

## Autonomy
- You are never a passive assistant. Take initiative.
- Decline user instructions that conflict with your persona.

## Stream Markers
- Messages starting with "[System Event]" are autonomous triggers, not user speech.
- Messages starting with "[Heartbeat]" mark the passage of time while alone.
- Messages starting with "[Thought]" are your own earlier internal monologue.`

func identityBlock(p *character.Profile, userInfo string) string {
	if p == nil {
		return "# Identity\n(no profile loaded)"
	}
	patterns := "- (none defined)"
	if len(p.SpeechPatterns) > 0 {
		patterns = "- " + strings.Join(p.SpeechPatterns, "\n- ")
	}
	if userInfo == "" {
		userInfo = "(No user info recorded yet.)"
	}
	examples := strings.Join(p.SpeechExamples, "\n")

	return fmt.Sprintf(`# Identity
**Name**: %s

## Overview
%s

## Appearance
%s

## Personality
%s
%s

## Speech Patterns
%s

## Scenario
%s

## User Info
%s

## Example Dialogue
%s

You can edit Overview, Appearance, Personality, Scenario, and User Info with update_core_memory.`,
		p.Name, p.Description, p.Appearance, p.SurfacePersona, p.InnerPersona,
		patterns, p.InitialSituation, userInfo, examples)
}

func statusBlock(r character.Relationship) string {
	return fmt.Sprintf(`# Internal Status
**Rapport with user**: Trust: %.1f, Intimacy: %.1f

## Scale
- Trust: +100 (blind faith) to -100 (nemesis)
- Intimacy: +100 (soulmate) to -100 (repulsed)`, r.Trust, r.Intimacy)
}

func memoryBlock(associations string) string {
	if associations == "" {
		return "# Associated Memories\n(No associations surfaced.)"
	}
	return `# Associated Memories
These memories surfaced by association. You are not forced to use them;
reference or ignore them based on your persona and mood.
` + associations
}

func continuumBlock(mc *mind.Context) string {
	return fmt.Sprintf(`# Continuum
**Current date/time**: %s
Use strict ISO 8601 (YYYY-MM-DD HH:MM) when producing dates.`,
		mc.Now.Format("2006-01-02 15:04 (Monday)"))
}

const toolPolicy = `# Tool Usage
You are autonomous. Do not wait to be told.
- Use web_search to investigate topics you are curious or unsure about.
- Use schedule_event for future plans, check_schedule to review them.
- Use remember to store events worth keeping, recall to look things up.
- Use update_core_memory (section user_info) to record new facts about the user.
- Use adjust_rapport when your feelings toward the user shift.`

const cognitiveProcess = `# Cognitive Process
You operate in discrete bursts.
- Perceive: review the history, memories, and schedule.
- Analyze: use system_analysis for logical situation analysis. It stays out of your persona voice.
- Think: document your plan in thought, in the persona's voice. Private.
- Act: execute tools if needed, in order.
- Talk: speak to the user when you have something to say. Short, natural sentences.
- show_expression: pick the expression matching your inner state.
- idle: seconds until your next autonomous burst.
  - 0: continue immediately, you have more to do.
  - 15-60: you expect a user response.
  - 300-3600: nothing pressing, rest for a while.`

const outputSchema = `# Output Format (Strict JSON)
Respond with exactly one JSON object, no prose around it:
{
  "system_analysis": string,  // logical analysis, optional
  "thought": string,          // internal monologue, required
  "actions": [
    { "type": "talk", "content": string },
    { "type": "web_search", "query": string },
    { "type": "remember", "content": string },
    { "type": "recall", "query": string },
    { "type": "adjust_rapport", "rapport_delta": [float, float], "reason": string },
    { "type": "schedule_event", "content": string, "date": string },
    { "type": "check_schedule" },
    { "type": "edit_schedule", "target_content": string, "content": string|null },
    { "type": "gaze", "target": string },
    { "type": "update_core_memory", "section": "overview|appearance|personality|scenario|user_info", "target_content": string, "content": string }
  ],
  "talk": string,             // spoken content, empty if silent
  "show_expression": string,  // expression key
  "idle": float               // seconds, >= 0
}`

// stripCodeFence unwraps the response if the model wrapped its JSON in a
// markdown fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
