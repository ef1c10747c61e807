// Package config loads task definitions from YAML or TOML files.
//
// A file has a task section holding the prompt and behavior settings, a model section
// naming the provider, and optional memory and knowledge sections for persistent
// storage:
//
//	[task]
//	name = "travel"
//	description = "You are a travel agent."
//	add_history_to_prompt = true
//
//	[model]
//	provider = "github"
//	name = "openai/gpt-4.1-mini"
//
//	[memory]
//	path = "gentask.db"
//	conversation = "default"
//
// Settings left out of the task section keep the values of task.DefaultConfig.
package config

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rickchristie/gentask"
	"github.com/rickchristie/gentask/knowledge"
	"github.com/rickchristie/gentask/memory"
	"github.com/rickchristie/gentask/models"
	"github.com/rickchristie/gentask/task"
	"github.com/tmc/langchaingo/llms/openai"
	"gopkg.in/yaml.v3"
)

// Providers supported in the model section.
const (
	ProviderOpenAI = "openai"
	ProviderGitHub = "github"
)

// Default model names and token variables per provider.
const (
	DefaultOpenAIModel    = "gpt-4.1-mini"
	DefaultOpenAIKeyEnv   = "OPENAI_API_KEY"
	DefaultGitHubKeyEnv   = "GITHUB_TOKEN"
	DefaultConversationID = "default"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither YAML nor TOML.
	ErrUnsupportedFormat = errors.New("config: unsupported file format, use .yaml, .yml or .toml")

	// ErrUnknownProvider is returned by ModelFactory for an unknown provider name.
	ErrUnknownProvider = errors.New("config: unknown model provider")
)

// File is the on-disk configuration.
type File struct {
	Task      Task      `yaml:"task" toml:"task"`
	Model     Model     `yaml:"model" toml:"model"`
	Memory    Memory    `yaml:"memory" toml:"memory"`
	Knowledge Knowledge `yaml:"knowledge" toml:"knowledge"`
}

// Task mirrors the serializable part of task.Config. Pointer fields distinguish
// "not set" from false or zero, so defaults that are on stay on.
type Task struct {
	Name              string   `yaml:"name" toml:"name"`
	SystemPrompt      *string  `yaml:"system_prompt" toml:"system_prompt"`
	Description       string   `yaml:"description" toml:"description"`
	Instructions      []string `yaml:"instructions" toml:"instructions"`
	ExtraInstructions []string `yaml:"extra_instructions" toml:"extra_instructions"`
	AddToSystemPrompt string   `yaml:"add_to_system_prompt" toml:"add_to_system_prompt"`

	AddKnowledgeBaseInstructions *bool `yaml:"add_knowledge_base_instructions" toml:"add_knowledge_base_instructions"`
	AddDontKnowInstructions      *bool `yaml:"add_dont_know_instructions" toml:"add_dont_know_instructions"`
	PreventPromptInjection       bool  `yaml:"prevent_prompt_injection" toml:"prevent_prompt_injection"`
	LimitToolAccess              *bool `yaml:"limit_tool_access" toml:"limit_tool_access"`
	AddDatetimeToInstructions    bool  `yaml:"add_datetime_to_instructions" toml:"add_datetime_to_instructions"`
	Markdown                     *bool `yaml:"markdown" toml:"markdown"`

	AddHistoryToPrompt   bool `yaml:"add_history_to_prompt" toml:"add_history_to_prompt"`
	AddHistoryToMessages bool `yaml:"add_history_to_messages" toml:"add_history_to_messages"`
	HistoryMessages      *int `yaml:"history_messages" toml:"history_messages"`

	AddReferencesToPrompt bool `yaml:"add_references_to_prompt" toml:"add_references_to_prompt"`
	ReferenceDocuments    int  `yaml:"reference_documents" toml:"reference_documents"`

	UseTools            bool   `yaml:"use_tools" toml:"use_tools"`
	UpdateKnowledgeBase bool   `yaml:"update_knowledge_base" toml:"update_knowledge_base"`
	ReadToolCallHistory bool   `yaml:"read_tool_call_history" toml:"read_tool_call_history"`
	ShowToolCalls       *bool  `yaml:"show_tool_calls" toml:"show_tool_calls"`
	ToolChoice          string `yaml:"tool_choice" toml:"tool_choice"`
	ToolCallLimit       int    `yaml:"tool_call_limit" toml:"tool_call_limit"`

	// OutputFields switches on structured output with a list schema.
	OutputFields []string `yaml:"output_fields" toml:"output_fields"`
	ParseOutput  *bool    `yaml:"parse_output" toml:"parse_output"`
}

// Model selects the provider and model.
type Model struct {
	Provider string `yaml:"provider" toml:"provider"`
	Name     string `yaml:"name" toml:"name"`

	// APIKeyEnv names the environment variable holding the token. Defaults to
	// OPENAI_API_KEY or GITHUB_TOKEN.
	APIKeyEnv string `yaml:"api_key_env" toml:"api_key_env"`
	BaseURL   string `yaml:"base_url" toml:"base_url"`
}

// Memory configures SQLite-backed conversation memory. Empty Path keeps memory in
// process.
type Memory struct {
	Path         string `yaml:"path" toml:"path"`
	Conversation string `yaml:"conversation" toml:"conversation"`
}

// Knowledge configures an on-disk bleve index. Empty Path means no knowledge base.
type Knowledge struct {
	Path string `yaml:"path" toml:"path"`
}

// Load reads a configuration file, choosing the decoder by extension. Unknown keys
// are errors.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config: parse %s: unknown keys %v", path, undecoded)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return &f, nil
}

// TaskConfig builds a task.Config from the task section, starting from
// task.DefaultConfig. Models, memory and knowledge bases are not set.
func (f *File) TaskConfig() (task.Config, error) {
	s := f.Task
	cfg := task.DefaultConfig()

	cfg.Name = s.Name
	if s.SystemPrompt != nil {
		cfg.SystemPrompt = gentask.SystemLiteral(*s.SystemPrompt)
	}
	cfg.Description = s.Description
	cfg.Instructions = s.Instructions
	cfg.ExtraInstructions = s.ExtraInstructions
	cfg.AddToSystemPrompt = s.AddToSystemPrompt

	setBool(&cfg.AddKnowledgeBaseInstructions, s.AddKnowledgeBaseInstructions)
	setBool(&cfg.AddDontKnowInstructions, s.AddDontKnowInstructions)
	setBool(&cfg.LimitToolAccess, s.LimitToolAccess)
	setBool(&cfg.Markdown, s.Markdown)
	setBool(&cfg.ParseOutput, s.ParseOutput)
	cfg.PreventPromptInjection = s.PreventPromptInjection
	cfg.AddDatetimeToInstructions = s.AddDatetimeToInstructions

	cfg.AddHistoryToPrompt = s.AddHistoryToPrompt
	cfg.AddHistoryToMessages = s.AddHistoryToMessages
	if s.HistoryMessages != nil {
		if *s.HistoryMessages < 0 {
			return task.Config{}, fmt.Errorf("config: history_messages must not be negative")
		}
		cfg.HistoryMessages = *s.HistoryMessages
	}

	cfg.AddReferencesToPrompt = s.AddReferencesToPrompt
	cfg.ReferenceDocuments = s.ReferenceDocuments

	cfg.UseTools = s.UseTools
	cfg.UpdateKnowledgeBase = s.UpdateKnowledgeBase
	cfg.ReadToolCallHistory = s.ReadToolCallHistory
	cfg.ShowToolCalls = s.ShowToolCalls
	cfg.ToolCallLimit = s.ToolCallLimit
	if s.ToolChoice != "" {
		choice := gentask.ToolChoice(s.ToolChoice)
		valid := []gentask.ToolChoice{
			gentask.ToolChoiceAuto,
			gentask.ToolChoiceNone,
			gentask.ToolChoiceRequired,
		}
		if !slices.Contains(valid, choice) {
			return task.Config{}, fmt.Errorf("config: invalid tool_choice %q", s.ToolChoice)
		}
		cfg.ToolChoice = &choice
	}

	if len(s.OutputFields) > 0 {
		cfg.OutputSchema = gentask.ListSchema{Fields: s.OutputFields}
	}
	return cfg, nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// ModelFactory returns a factory for the configured model. The API token is read from
// the environment when the factory is built, so a missing token fails here rather
// than at the first run.
func (f *File) ModelFactory() (gentask.ModelFactory, error) {
	m := f.Model

	var opts []openai.Option
	if m.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(m.BaseURL))
	}

	switch m.Provider {
	case ProviderOpenAI, "":
		token, err := lookupToken(m.APIKeyEnv, DefaultOpenAIKeyEnv)
		if err != nil {
			return nil, err
		}
		return models.OpenAIFactory(cmp.Or(m.Name, DefaultOpenAIModel), token, opts...), nil
	case ProviderGitHub:
		token, err := lookupToken(m.APIKeyEnv, DefaultGitHubKeyEnv)
		if err != nil {
			return nil, err
		}
		return models.GitHubFactory(cmp.Or(m.Name, models.GitHubGPT41Mini), token, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, m.Provider)
	}
}

// OpenMemory opens the SQLite conversation memory. It returns nil when no path is
// configured.
func (f *File) OpenMemory() (*memory.SQLite, error) {
	if f.Memory.Path == "" {
		return nil, nil
	}
	return memory.NewSQLite(f.Memory.Path, cmp.Or(f.Memory.Conversation, DefaultConversationID))
}

// OpenKnowledgeBase opens the bleve index. It returns nil when no path is configured.
func (f *File) OpenKnowledgeBase() (*knowledge.Bleve, error) {
	if f.Knowledge.Path == "" {
		return nil, nil
	}
	return knowledge.OpenBleve(f.Knowledge.Path)
}

func lookupToken(env, fallback string) (string, error) {
	env = cmp.Or(env, fallback)
	token := os.Getenv(env)
	if token == "" {
		return "", fmt.Errorf("config: %s is not set: %w", env, models.ErrMissingToken)
	}
	return token, nil
}
