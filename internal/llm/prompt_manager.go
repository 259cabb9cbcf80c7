package llm

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"strings"
	"text/template"
)

//go:embed prompts/*.prompt
var promptFiles embed.FS

// ModelProvider selects a provider-specific template variant.
type ModelProvider string
type PromptKey string

const (
	DefaultProvider ModelProvider = "default"
	ReviewPrompt    PromptKey     = "review"
)

// ReviewPromptData is rendered into the instruction part of a review request.
type ReviewPromptData struct {
	Instruction        string
	CustomInstructions []string
}

// PromptManager holds the embedded templates, named key_provider.prompt.
// Lookups fall back to the "default" provider.
type PromptManager struct {
	prompts map[PromptKey]map[ModelProvider]*template.Template
}

func NewPromptManager() (*PromptManager, error) {
	pm := &PromptManager{
		prompts: make(map[PromptKey]map[ModelProvider]*template.Template),
	}

	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded prompts directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key, provider, err := parsePromptFilename(entry.Name())
		if err != nil {
			return nil, err
		}
		content, err := promptFiles.ReadFile(path.Join("prompts", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded prompt %s: %w", entry.Name(), err)
		}
		if err := pm.register(key, provider, string(content)); err != nil {
			return nil, fmt.Errorf("failed to register prompt %s: %w", entry.Name(), err)
		}
	}
	return pm, nil
}

func parsePromptFilename(name string) (PromptKey, ModelProvider, error) {
	base := strings.TrimSuffix(name, path.Ext(name))
	key, provider, ok := cutLast(base, "_")
	if !ok || key == "" || provider == "" {
		return "", "", fmt.Errorf("invalid prompt filename %q (expected key_provider.prompt)", name)
	}
	return PromptKey(key), ModelProvider(provider), nil
}

func cutLast(s, sep string) (before, after string, found bool) {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}

func (pm *PromptManager) register(key PromptKey, provider ModelProvider, content string) error {
	tmpl, err := template.New(string(key) + "_" + string(provider)).Option("missingkey=error").Parse(content)
	if err != nil {
		return fmt.Errorf("could not parse template: %w", err)
	}
	if pm.prompts[key] == nil {
		pm.prompts[key] = make(map[ModelProvider]*template.Template)
	}
	pm.prompts[key][provider] = tmpl
	return nil
}

func (pm *PromptManager) Get(key PromptKey, provider ModelProvider) (*template.Template, error) {
	variants, ok := pm.prompts[key]
	if !ok {
		return nil, fmt.Errorf("no prompts found for key %q", key)
	}
	if tmpl, ok := variants[provider]; ok {
		return tmpl, nil
	}
	if tmpl, ok := variants[DefaultProvider]; ok {
		return tmpl, nil
	}
	return nil, fmt.Errorf("no template for key %q and provider %q, and no default", key, provider)
}

func (pm *PromptManager) Render(key PromptKey, provider ModelProvider, data any) (string, error) {
	tmpl, err := pm.Get(key, provider)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// RenderReview builds the review instruction: the configured prompt followed
// by the repository and comment instructions as a bullet list. Blank and
// repeated instructions are dropped.
func (pm *PromptManager) RenderReview(provider ModelProvider, data ReviewPromptData) (string, error) {
	var custom []string
	seen := make(map[string]bool, len(data.CustomInstructions))
	for _, instruction := range data.CustomInstructions {
		instruction = strings.Join(strings.Fields(instruction), " ")
		if instruction == "" || seen[instruction] {
			continue
		}
		seen[instruction] = true
		custom = append(custom, instruction)
	}
	data.CustomInstructions = custom
	return pm.Render(ReviewPrompt, provider, data)
}
