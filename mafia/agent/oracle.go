package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mafia-lite/mafia"
)

// OracleConfig configures the chat-completions endpoint used by OracleBrain.
// Any OpenAI-compatible server works, local or hosted.
type OracleConfig struct {
	BaseURL string        `env:"ORACLE_BASE_URL" envDefault:"https://api.openai.com/v1"`
	APIKey  string        `env:"ORACLE_API_KEY"`
	Model   string        `env:"ORACLE_MODEL" envDefault:"gpt-4o-mini"`
	Timeout time.Duration `env:"ORACLE_TIMEOUT" envDefault:"45s"`
}

// OracleFailure marks transport, parse, and validation errors from the
// decision endpoint. The orchestrator retries these once with a hint and
// then records an abstention; anything else aborts the run.
type OracleFailure struct {
	Stage string
	Err   error
}

func (e *OracleFailure) Error() string {
	return fmt.Sprintf("oracle %s failure: %v", e.Stage, e.Err)
}

func (e *OracleFailure) Unwrap() error { return e.Err }

// OracleBrain routes decisions to an external chat-completions model. One
// instance is shared across agents; the persona rides in the prompt.
type OracleBrain struct {
	cfg     OracleConfig
	client  *http.Client
	persona *Persona
}

// NewOracleBrain validates the endpoint config and returns a ready brain.
func NewOracleBrain(cfg OracleConfig, persona *Persona) (*OracleBrain, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("oracle base url is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("oracle model is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &OracleBrain{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		persona: persona,
	}, nil
}

func (b *OracleBrain) Name() string { return b.persona.Name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Decide implements Brain. The full role-scoped game context goes into one
// user message; the reply must be a single JSON object matching Decision.
func (b *OracleBrain) Decide(ctx context.Context, req Request) (Decision, error) {
	body, err := json.Marshal(chatRequest{
		Model: b.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: b.systemPrompt(req)},
			{Role: "user", Content: buildPrompt(req)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return Decision{}, &OracleFailure{Stage: "encode", Err: err}
	}

	url := strings.TrimRight(b.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Decision{}, &OracleFailure{Stage: "request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return Decision{}, &OracleFailure{Stage: "transport", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Decision{}, &OracleFailure{Stage: "read", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return Decision{}, &OracleFailure{Stage: "status", Err: fmt.Errorf("http %d: %s", resp.StatusCode, truncate(string(raw), 200))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Decision{}, &OracleFailure{Stage: "decode", Err: err}
	}
	if parsed.Error != nil {
		return Decision{}, &OracleFailure{Stage: "api", Err: fmt.Errorf("%s", parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return Decision{}, &OracleFailure{Stage: "decode", Err: fmt.Errorf("empty choices")}
	}

	decision, err := ParseDecision(parsed.Choices[0].Message.Content)
	if err != nil {
		return Decision{}, &OracleFailure{Stage: "parse", Err: err}
	}
	return decision, nil
}

// ParseDecision extracts the JSON decision object from a model reply,
// tolerating markdown code fences and surrounding prose.
func ParseDecision(content string) (Decision, error) {
	text := strings.TrimSpace(content)
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Decision{}, fmt.Errorf("no JSON object in reply: %s", truncate(content, 120))
	}
	var d Decision
	if err := json.Unmarshal([]byte(text[start:end+1]), &d); err != nil {
		return Decision{}, fmt.Errorf("malformed decision JSON: %w", err)
	}
	return d, nil
}

func (b *OracleBrain) systemPrompt(req Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, a player in a game of Mafia.\n", req.View.Self)
	if b.persona != nil {
		fmt.Fprintf(&sb, "Personality: %s. %s\n", b.persona.Tagline, b.persona.Voice)
	}
	fmt.Fprintf(&sb, "Your secret role: %s.\n", req.View.Role)
	switch req.View.Role {
	case mafia.RoleMafia:
		sb.WriteString("You win when mafia equal or outnumber the village. Never reveal your team. Deflect suspicion onto villagers.\n")
	case mafia.RoleDoctor:
		sb.WriteString("Each night you may protect one player from elimination. Keep your role hidden unless it saves you.\n")
	case mafia.RoleDetective:
		sb.WriteString("Each night you may learn one player's true role. Use findings carefully; revealing too early gets you killed.\n")
	default:
		sb.WriteString("You have no night power. Find the mafia through discussion and voting.\n")
	}
	sb.WriteString("Reply with exactly one JSON object and nothing else.")
	return sb.String()
}

// buildPrompt renders the role-scoped view plus per-request instructions.
func buildPrompt(req Request) string {
	view := req.View
	var sb strings.Builder

	fmt.Fprintf(&sb, "Round %d, phase %s.\n", view.Round, view.Phase)
	fmt.Fprintf(&sb, "Living players: %s\n", strings.Join(view.Living, ", "))
	if len(view.Eliminated) > 0 {
		fmt.Fprintf(&sb, "Eliminated: %s\n", strings.Join(view.Eliminated, ", "))
	}
	if len(view.MafiaTeam) > 0 {
		fmt.Fprintf(&sb, "Your mafia team: %s\n", strings.Join(view.MafiaTeam, ", "))
	}
	for _, prop := range view.TeamProposals {
		if prop.Round == view.Round {
			fmt.Fprintf(&sb, "Teammate %s proposes killing %s.\n", prop.Actor, prop.Target)
		}
	}
	for _, inv := range view.Investigations {
		fmt.Fprintf(&sb, "Your investigation (round %d): %s is %s.\n", inv.Round, inv.Target, inv.Role)
	}
	if len(view.Messages) > 0 {
		sb.WriteString("Discussion so far:\n")
		for _, msg := range view.Messages {
			tag := ""
			if msg.Defense {
				tag = " (defense)"
			}
			fmt.Fprintf(&sb, "  [round %d] %s%s: %s\n", msg.Round, msg.Speaker, tag, msg.Text)
		}
	}
	if len(view.Votes) > 0 {
		sb.WriteString("Votes this round:\n")
		for _, v := range view.Votes {
			target := v.Target
			if target == mafia.AbstainTarget {
				target = "(abstain)"
			}
			fmt.Fprintf(&sb, "  %s -> %s\n", v.Voter, target)
		}
	}

	switch req.Kind {
	case RequestNightAction:
		fmt.Fprintf(&sb, "\nChoose your night target from: %s\n", strings.Join(req.Candidates, ", "))
		sb.WriteString(`Respond as {"target": "<name>", "reason": "<short reason>"} or {"abstain": true, "reason": "..."} to skip.`)
	case RequestDiscussion:
		sb.WriteString("\nDecide whether to speak this turn.\n")
		sb.WriteString(`Respond as {"speak": true, "message": "<what you say aloud>", "reason": "..."} or {"speak": false}.`)
	case RequestVote:
		fmt.Fprintf(&sb, "\nVote to accuse one of: %s\n", strings.Join(req.Candidates, ", "))
		sb.WriteString(`Respond as {"target": "<name>", "reason": "..."} or {"abstain": true, "reason": "..."}.`)
	case RequestDefense:
		sb.WriteString("\nYou stand accused and face elimination. Make your defense.\n")
		sb.WriteString(`Respond as {"speak": true, "message": "<your defense>"}.`)
	case RequestConfirm:
		fmt.Fprintf(&sb, "\n%s made a defense. Confirm or reject the elimination.\n", req.Accused)
		sb.WriteString(`Respond as {"affirm": true, "reason": "..."} or {"affirm": false, "reason": "..."} or {"abstain": true}.`)
	}
	if req.Hint != "" {
		fmt.Fprintf(&sb, "\nNote: %s", req.Hint)
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
