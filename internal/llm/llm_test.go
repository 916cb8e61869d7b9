package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewAdapterValidation(t *testing.T) {
	if _, err := NewAdapter(Config{}); err == nil {
		t.Error("missing base URL should fail")
	}
	if _, err := NewAdapter(Config{BaseURL: "http://127.0.0.1:8081/v1", Template: "nope"}); err == nil {
		t.Error("unknown template should fail")
	}
	if _, err := NewAdapter(Config{BaseURL: "http://127.0.0.1:8081/v1"}); err != nil {
		t.Errorf("default template should be accepted: %v", err)
	}
}

func TestKnownTemplate(t *testing.T) {
	for _, tag := range []string{"", TemplateSessionNotes, TemplateBrief} {
		if !KnownTemplate(tag) {
			t.Errorf("KnownTemplate(%q) = false", tag)
		}
	}
	if KnownTemplate("haiku") {
		t.Error("unknown tag accepted")
	}
}

func TestSummarizeAgainstFakeBridge(t *testing.T) {
	var gotModel string
	var gotSystem, gotUser string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gotModel = req.Model
		for _, m := range req.Messages {
			switch m.Role {
			case "system":
				gotSystem = m.Content
			case "user":
				gotUser = m.Content
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "le résumé"}},
			},
		})
	}))
	defer srv.Close()

	adapter, err := NewAdapter(Config{
		BaseURL:  srv.URL,
		APIKey:   "local",
		Model:    "mistral",
		Template: TemplateBrief,
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := adapter.Summarize(context.Background(), "le client a parlé de ses objectifs")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "le résumé" {
		t.Errorf("summary = %q", got)
	}
	if gotModel != "mistral" {
		t.Errorf("model = %q", gotModel)
	}
	if !strings.Contains(gotSystem, "running summary") {
		t.Errorf("brief template not applied: %q", gotSystem)
	}
	if !strings.Contains(gotUser, "objectifs") {
		t.Errorf("transcript missing from user prompt: %q", gotUser)
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	adapter := newBridgeAdapter(Config{BaseURL: "http://127.0.0.1:1/v1"})
	got, err := adapter.Summarize(context.Background(), "")
	if err != nil || got != "" {
		t.Errorf("empty input should short-circuit, got %q, %v", got, err)
	}
}
