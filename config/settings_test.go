package config

import "testing"

func TestNewDefaults(t *testing.T) {
	t.Setenv("LLM_MAX_TOKENS", "")
	t.Setenv("LLM_TEMPERATURE", "")
	t.Setenv("OPENAI_MODEL", "")

	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "openai" {
		t.Errorf("expected openai, got %q", settings.LLM.Provider)
	}
	if settings.LLM.Model != "gpt-4o" {
		t.Errorf("expected default model gpt-4o, got %q", settings.LLM.Model)
	}
	if settings.LLM.Temperature != 0.7 {
		t.Errorf("expected default temperature 0.7, got %f", settings.LLM.Temperature)
	}
	if settings.Agent.Retries != 1 || settings.Agent.ResultRetries != 1 {
		t.Errorf("unexpected retry defaults: %+v", settings.Agent)
	}
}

func TestNewAliases(t *testing.T) {
	settings, err := New("claude")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "anthropic" {
		t.Errorf("expected claude to normalize to anthropic, got %q", settings.LLM.Provider)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New("mystery"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("AGENT_RETRIES", "3")

	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Model != "gpt-4o-mini" {
		t.Errorf("expected model override, got %q", settings.LLM.Model)
	}
	if settings.LLM.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %f", settings.LLM.Temperature)
	}
	if settings.Agent.Retries != 3 {
		t.Errorf("expected 3 retries, got %d", settings.Agent.Retries)
	}
}

func TestNewInvalidEnvValue(t *testing.T) {
	t.Setenv("LLM_TEMPERATURE", "hot")

	if _, err := New("openai"); err == nil {
		t.Fatal("expected error for invalid temperature")
	}
}

func TestNewDefaultProviderFromEnv(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "deepseek")

	settings, err := New("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "deepseek" {
		t.Errorf("expected provider from env, got %q", settings.LLM.Provider)
	}
}
