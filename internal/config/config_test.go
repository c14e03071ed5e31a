package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("AI_PROVIDER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 30*time.Second, cfg.AITimeout)
	assert.Equal(t, 2*time.Minute, cfg.AnalysisLockTTL)
	assert.Equal(t, "candidate-scored", cfg.EventsTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.RemoteAIEnabled())
}

func Test_Load_ParsesLists_And_Provider(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("AI_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("GEMINI_MODEL", "gemini-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.RemoteAIEnabled())
	assert.Equal(t, "gemini-test", cfg.AIModel())
}

func Test_Load_InvalidDuration(t *testing.T) {
	t.Setenv("AI_TIMEOUT", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=config.Load")
}

func Test_RemoteAIEnabled_OpenAI(t *testing.T) {
	cfg := Config{AIProvider: "openai", OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-4o-mini"}
	assert.True(t, cfg.RemoteAIEnabled())
	assert.Equal(t, "gpt-4o-mini", cfg.AIModel())
	cfg.OpenAIAPIKey = ""
	assert.False(t, cfg.RemoteAIEnabled())
}

func Test_DefaultPrompts_Render(t *testing.T) {
	p := DefaultPrompts()
	require.NotEmpty(t, p.System)
	assert.Contains(t, p.System, "JSON")

	out, err := p.RenderUser(PromptData{
		VacancyTitle: "Backend Developer",
		Profile:      "Go services",
		Skills:       "Go, SQL",
		Instructions: "Prefer remote experience",
		CVText:       "Ten years of Go",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Backend Developer")
	assert.Contains(t, out, "Desired skills: Go, SQL")
	assert.Contains(t, out, "Additional instructions: Prefer remote experience")
	assert.Contains(t, out, "Ten years of Go")
	assert.Contains(t, out, `"match_percentage"`)

	out, err = p.RenderUser(PromptData{VacancyTitle: "x", Profile: "y", Skills: "z", CVText: "cv"})
	require.NoError(t, err)
	assert.NotContains(t, out, "Additional instructions")
}

func Test_LoadPrompts_OverrideKeepsMissingKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("system: Custom system prompt answering in JSON\n"), 0o600))

	p, err := LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, "Custom system prompt answering in JSON", p.System)

	out, err := p.RenderUser(PromptData{VacancyTitle: "Data Engineer", Profile: "p", Skills: "s", CVText: "cv"})
	require.NoError(t, err)
	assert.Contains(t, out, "Data Engineer")
}

func Test_LoadPrompts_Errors(t *testing.T) {
	_, err := LoadPrompts(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("user: \"{{.Nope\"\n"), 0o600))
	_, err = LoadPrompts(bad)
	require.Error(t, err)

	p, err := LoadPrompts("")
	require.NoError(t, err)
	assert.NotNil(t, p.User)
}
