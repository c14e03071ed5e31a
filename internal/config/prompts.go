package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts/cv_analysis.yaml
var defaultPromptsYAML []byte

// PromptsYAML is the on-disk shape of the CV analysis prompt document.
type PromptsYAML struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Prompts holds the parsed CV analysis prompts.
type Prompts struct {
	System string
	User   *template.Template
}

// PromptData is what the user prompt template is rendered with.
type PromptData struct {
	VacancyTitle string
	Profile      string
	Skills       string
	Instructions string
	CVText       string
}

// RenderUser executes the user template.
func (p Prompts) RenderUser(d PromptData) (string, error) {
	var b strings.Builder
	if err := p.User.Execute(&b, d); err != nil {
		return "", fmt.Errorf("op=prompts.render: %w", err)
	}
	return b.String(), nil
}

// DefaultPrompts returns the embedded prompt set.
func DefaultPrompts() Prompts {
	p, err := parsePrompts(defaultPromptsYAML, PromptsYAML{})
	if err != nil {
		panic(fmt.Sprintf("embedded prompts invalid: %v", err))
	}
	return p
}

// LoadPrompts reads an optional override document. Keys missing from the
// override keep their embedded value. An empty path returns the defaults.
func LoadPrompts(path string) (Prompts, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPrompts(), nil
	}
	// #nosec G304 -- operator supplied configuration path
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Prompts{}, fmt.Errorf("op=config.LoadPrompts: %w", err)
	}
	var base PromptsYAML
	if err := yaml.Unmarshal(defaultPromptsYAML, &base); err != nil {
		return Prompts{}, fmt.Errorf("op=config.LoadPrompts: embedded: %w", err)
	}
	p, err := parsePrompts(content, base)
	if err != nil {
		return Prompts{}, fmt.Errorf("op=config.LoadPrompts: %w", err)
	}
	return p, nil
}

func parsePrompts(content []byte, base PromptsYAML) (Prompts, error) {
	var doc PromptsYAML
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return Prompts{}, fmt.Errorf("yaml parse: %w", err)
	}
	if strings.TrimSpace(doc.System) == "" {
		doc.System = base.System
	}
	if strings.TrimSpace(doc.User) == "" {
		doc.User = base.User
	}
	if strings.TrimSpace(doc.System) == "" || strings.TrimSpace(doc.User) == "" {
		return Prompts{}, fmt.Errorf("system and user prompts are required")
	}
	tmpl, err := template.New("user").Option("missingkey=error").Parse(doc.User)
	if err != nil {
		return Prompts{}, fmt.Errorf("user template: %w", err)
	}
	return Prompts{System: strings.TrimSpace(doc.System), User: tmpl}, nil
}
