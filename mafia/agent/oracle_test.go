package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mafia-lite/mafia"
)

func TestParseDecision(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    Decision
	}{
		{
			"bare object",
			`{"target": "Elena", "reason": "too quiet"}`,
			Decision{Target: "Elena", Reason: "too quiet"},
		},
		{
			"json fence",
			"Here is my decision:\n```json\n{\"target\": \"Elena\"}\n```",
			Decision{Target: "Elena"},
		},
		{
			"plain fence",
			"```\n{\"speak\": true, \"message\": \"I suspect Bruno\"}\n```",
			Decision{Speak: true, Message: "I suspect Bruno"},
		},
		{
			"surrounding prose",
			"Thinking about it... {\"abstain\": true, \"reason\": \"no read\"} that is final.",
			Decision{Abstain: true, Reason: "no read"},
		},
	}
	for _, tc := range cases {
		got, err := ParseDecision(tc.content)
		if err != nil {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestParseDecisionRejectsGarbage(t *testing.T) {
	for _, content := range []string{"", "I vote for Elena.", "```json\nnot json\n```"} {
		if _, err := ParseDecision(content); err == nil {
			t.Errorf("accepted %q", content)
		}
	}
}

func chatReply(content string) string {
	raw, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(raw)
}

func TestOracleBrainDecide(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatReply("```json\n{\"target\": \"Elena\", \"reason\": \"deflecting\"}\n```")))
	}))
	defer srv.Close()

	persona := testPersona("oracle_test", PersonalityProfile{})
	brain, err := NewOracleBrain(OracleConfig{BaseURL: srv.URL, APIKey: "sk-test", Model: "test-model"}, persona)
	if err != nil {
		t.Fatalf("NewOracleBrain: %v", err)
	}

	dec, err := brain.Decide(context.Background(), Request{
		Kind:       RequestNightAction,
		Candidates: []string{"Elena", "Felix"},
		View: mafia.View{
			Self:   "Alice",
			Role:   mafia.RoleMafia,
			Round:  1,
			Living: []string{"Alice", "Elena", "Felix"},
		},
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if dec.Target != "Elena" || dec.Reason != "deflecting" {
		t.Fatalf("bad decision: %+v", dec)
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("wrong endpoint %q", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("missing auth header: %q", gotAuth)
	}
	if gotBody["model"] != "test-model" {
		t.Fatalf("model not sent: %v", gotBody["model"])
	}
}

func TestOracleBrainFailuresAreTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	brain, _ := NewOracleBrain(OracleConfig{BaseURL: srv.URL, Model: "m"}, testPersona("f", PersonalityProfile{}))
	_, err := brain.Decide(context.Background(), Request{Kind: RequestVote, View: mafia.View{Self: "Alice"}})
	var fail *OracleFailure
	if !errors.As(err, &fail) {
		t.Fatalf("expected OracleFailure, got %v", err)
	}
	if fail.Stage != "status" {
		t.Fatalf("wrong stage %q", fail.Stage)
	}
}

func TestOracleBrainRejectsUnparseableReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply("I will think about it.")))
	}))
	defer srv.Close()

	brain, _ := NewOracleBrain(OracleConfig{BaseURL: srv.URL, Model: "m"}, testPersona("p", PersonalityProfile{}))
	_, err := brain.Decide(context.Background(), Request{Kind: RequestVote, View: mafia.View{Self: "Alice"}})
	var fail *OracleFailure
	if !errors.As(err, &fail) || fail.Stage != "parse" {
		t.Fatalf("expected parse failure, got %v", err)
	}
}

func TestOraclePromptScopesHiddenState(t *testing.T) {
	view := mafia.View{
		Self:       "Felix",
		Role:       mafia.RoleVillager,
		Round:      2,
		Living:     []string{"Alice", "Felix"},
		Eliminated: []string{"Elena"},
		Messages: []mafia.DiscussionMessage{
			{Round: 1, Speaker: "Alice", Text: "Elena was acting strange"},
		},
	}
	prompt := buildPrompt(Request{Kind: RequestVote, View: view, Candidates: []string{"Alice"}})

	if !strings.Contains(prompt, "Eliminated: Elena") {
		t.Fatalf("eliminated roster missing:\n%s", prompt)
	}
	if strings.Contains(prompt, "mafia team") {
		t.Fatalf("villager prompt mentions a team:\n%s", prompt)
	}
	if strings.Contains(prompt, "investigation") {
		t.Fatalf("villager prompt mentions investigations:\n%s", prompt)
	}
}
