package models

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rickchristie/gentask"
	"github.com/tmc/langchaingo/llms/openai"
)

// GitHubModelsBaseURL is the base URL of the GitHub Models API. Its chat completions
// endpoint is OpenAI compatible.
const GitHubModelsBaseURL = "https://models.github.ai/inference"

// A few GitHub Models IDs. Model IDs use the "publisher/model" format; the full
// catalog is at https://models.github.ai/catalog/models.
const (
	GitHubGPT41     = "openai/gpt-4.1"
	GitHubGPT41Mini = "openai/gpt-4.1-mini"
	GitHubGPT4o     = "openai/gpt-4o"
	GitHubGPT4oMini = "openai/gpt-4o-mini"
	GitHubLlama4    = "meta-llama/llama-4-scout-17b-16e-instruct"
)

// ErrMissingToken is returned when a provider is created without an API token.
var ErrMissingToken = errors.New("api token is required")

// githubHeaderTransport injects the GitHub API version header into every request.
type githubHeaderTransport struct {
	base http.RoundTripper
}

func (t *githubHeaderTransport) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	return t.base.RoundTrip(req)
}

// NewGitHubModel creates a model backed by the GitHub Models API. The token must be a
// fine-grained personal access token with the models:read permission. Extra
// openai.Option values override the defaults.
func NewGitHubModel(model, token string, opts ...openai.Option) (*LCG, error) {
	if token == "" {
		return nil, fmt.Errorf("github models: %w "+
			"(create a fine-grained PAT with models:read at "+
			"https://github.com/settings/personal-access-tokens/new)", ErrMissingToken)
	}

	all := append([]openai.Option{
		openai.WithBaseURL(GitHubModelsBaseURL),
		openai.WithToken(token),
		openai.WithModel(model),
		openai.WithHTTPClient(&githubHeaderTransport{base: http.DefaultTransport}),
	}, opts...)

	llm, err := openai.New(all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub Models client: %w", err)
	}
	return NewLCG(llm).WithModelName(model), nil
}

// NewOpenAI creates a model backed by the OpenAI API or any compatible endpoint
// (pass openai.WithBaseURL).
func NewOpenAI(model, token string, opts ...openai.Option) (*LCG, error) {
	if token == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingToken)
	}

	all := append([]openai.Option{
		openai.WithToken(token),
		openai.WithModel(model),
	}, opts...)

	llm, err := openai.New(all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	return NewLCG(llm).WithModelName(model), nil
}

// OpenAIFactory returns a gentask.ModelFactory that creates an OpenAI model on demand.
func OpenAIFactory(model, token string, opts ...openai.Option) gentask.ModelFactory {
	return func() (gentask.Model, error) {
		return NewOpenAI(model, token, opts...)
	}
}

// GitHubFactory returns a gentask.ModelFactory that creates a GitHub Models model on
// demand.
func GitHubFactory(model, token string, opts ...openai.Option) gentask.ModelFactory {
	return func() (gentask.Model, error) {
		return NewGitHubModel(model, token, opts...)
	}
}
