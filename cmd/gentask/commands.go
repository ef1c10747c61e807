package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rickchristie/gentask"
	"github.com/rickchristie/gentask/task"
	"gopkg.in/yaml.v3"
)

// AskCmd sends one message.
type AskCmd struct {
	Message  []string `arg:"" help:"Message to send"`
	NoStream bool     `help:"Wait for the whole response and print it in a box"`
	Record   bool     `help:"Print the task record as YAML after the response"`
}

func (c *AskCmd) Run(a *app) error {
	t, err := a.newTask(true)
	if err != nil {
		return err
	}
	msg := strings.Join(c.Message, " ")

	if c.NoStream {
		res, err := t.Run(a.ctx, gentask.Text(msg))
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, renderExchange(msg, renderOutput(res), res.Duration))
		fmt.Fprintln(a.out, renderFooter(t, res.Duration))
	} else {
		start := time.Now()
		if err := stream(a.ctx, a.out, t, msg); err != nil {
			return err
		}
		fmt.Fprintln(a.out, renderFooter(t, time.Since(start)))
	}

	if c.Record {
		return printRecord(a.ctx, a.out, t)
	}
	return nil
}

// ChatCmd runs an interactive session.
type ChatCmd struct {
	HistoryFile string `type:"path" help:"Readline history file"`
}

func (c *ChatCmd) Run(a *app) error {
	t, err := a.newTask(true)
	if err != nil {
		return err
	}
	return chat(a.ctx, a.out, t, c.HistoryFile)
}

// PromptCmd prints the outbound messages for a message. References and history are
// read from the configured stores.
type PromptCmd struct {
	Message []string `arg:"" help:"Message to build prompts for"`
}

func (c *PromptCmd) Run(a *app) error {
	t, err := a.newTask(false)
	if err != nil {
		return err
	}
	msgs, _, err := t.Messages(a.ctx, gentask.Text(strings.Join(c.Message, " ")))
	if err != nil {
		return err
	}
	for _, m := range msgs {
		fmt.Fprintln(a.out, titleStyle.Render(strings.ToUpper(string(m.Role))))
		fmt.Fprintln(a.out, m.Content.String())
		fmt.Fprintln(a.out)
	}
	return nil
}

// stream prints response fragments as they arrive. With an output schema the
// decoded output is printed once the run completes.
func stream(ctx context.Context, w io.Writer, t *task.Task, msg string) error {
	for frag, err := range t.RunStream(ctx, gentask.Text(msg)) {
		if err != nil {
			fmt.Fprintln(w)
			return err
		}
		if t.Config().OutputSchema == nil {
			fmt.Fprint(w, frag)
		}
	}
	if t.Config().OutputSchema != nil {
		out, err := yamlString(t.Output())
		if err != nil {
			return err
		}
		fmt.Fprint(w, out)
	}
	fmt.Fprintln(w)
	return nil
}

func printRecord(ctx context.Context, w io.Writer, t *task.Task) error {
	rec, err := t.Serialize(ctx)
	if err != nil {
		return err
	}
	out, err := yamlString(rec)
	if err != nil {
		return err
	}
	fmt.Fprint(w, out)
	return nil
}

func yamlString(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode yaml: %w", err)
	}
	return string(b), nil
}
