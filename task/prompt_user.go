package task

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/rickchristie/gentask"
)

//go:embed templates/user.tmpl
var userTemplateContent string

var userTemplate = template.Must(template.New("user").Parse(userTemplateContent))

// UserPromptData is the data passed to the user prompt template.
type UserPromptData struct {
	References string
	History    string
	Message    string
}

// UserPrompt resolves the user message sent to the model. references and history
// are empty when not available.
//
// A literal prompt ignores msg. A generator receives everything and must return
// content. Otherwise msg is required: it is returned unchanged when the default build
// is disabled, when there is nothing to add, or when it is structured; plain text is
// wrapped in the template with the knowledge-base block first, then chat history,
// then the message itself.
func (t *Task) UserPrompt(
	ctx context.Context,
	msg *gentask.Content,
	references, history string,
) (*gentask.Content, error) {
	src := t.cfg.UserPrompt

	if c, ok := src.Literal(); ok {
		return c, nil
	}

	if fn, ok := src.Generator(); ok {
		if fn == nil {
			return nil, fmt.Errorf("user prompt: %w", gentask.ErrPromptSourceEmpty)
		}
		c, err := fn(ctx, gentask.UserPromptRequest{
			Task:       t,
			Message:    msg,
			References: references,
			History:    history,
		})
		if err != nil {
			return nil, fmt.Errorf("user prompt generator: %w", err)
		}
		if c == nil {
			return nil, fmt.Errorf("user prompt: %w", gentask.ErrPromptSourceEmpty)
		}
		return c, nil
	}

	if msg == nil {
		return nil, gentask.ErrPromptConstruction
	}
	if src.IsDisabled() {
		return msg, nil
	}
	if references == "" && history == "" {
		return msg, nil
	}
	if msg.IsStructured() {
		return msg, nil
	}

	var buf bytes.Buffer
	err := userTemplate.Execute(&buf, UserPromptData{
		References: references,
		History:    history,
		Message:    msg.Text,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: user template: %v", gentask.ErrPromptConstruction, err)
	}
	return gentask.Text(strings.TrimSuffix(buf.String(), "\n")), nil
}
