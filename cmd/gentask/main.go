// Command gentask runs LLM tasks from the terminal.
//
//	gentask ask "What is the capital of Peru?"
//	gentask -c travel.toml chat
//	gentask prompt "Plan a weekend in Lisbon"
//
// API tokens are read from the environment; a .env file in the working directory is
// loaded first.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/rickchristie/gentask/config"
	"github.com/rickchristie/gentask/hooks"
	"github.com/rickchristie/gentask/task"
)

// CLI defines the command-line interface.
type CLI struct {
	Config    string `short:"c" type:"existingfile" help:"Task config file (.yaml, .yml or .toml)"`
	Provider  string `help:"Model provider (openai, github); overrides the config file"`
	Model     string `short:"m" help:"Model name; overrides the config file"`
	Verbose   bool   `short:"v" help:"Log debug records"`
	EventsLog string `type:"path" help:"Append every run event as YAML to this file"`

	Ask    AskCmd    `cmd:"" help:"Ask a single question"`
	Chat   ChatCmd   `cmd:"" default:"1" help:"Chat interactively (default)"`
	Prompt PromptCmd `cmd:"" help:"Print the prompts a message would produce, without calling a model"`
}

func main() {
	_ = godotenv.Load()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("gentask"),
		kong.Description("Run single-turn and conversational LLM tasks."),
		kong.UsageOnError(),
	)

	if err := run(kctx, &cli); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func run(kctx *kong.Context, cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cli, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}
	defer app.Close()
	return kctx.Run(app)
}

// app holds what every command needs.
type app struct {
	ctx    context.Context
	cli    *CLI
	file   *config.File
	out    io.Writer
	logger *slog.Logger

	closers []io.Closer
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindAny {
				if _, ok := a.Value.Any().(error); ok {
					return tint.Attr(9, a)
				}
			}
			return a
		},
	}))
}

func newApp(ctx context.Context, cli *CLI, out, logOut io.Writer) (*app, error) {
	a := &app{ctx: ctx, cli: cli, out: out, logger: newLogger(logOut, cli.Verbose), file: &config.File{}}
	if cli.Config != "" {
		f, err := config.Load(cli.Config)
		if err != nil {
			return nil, err
		}
		a.file = f
	}
	if cli.Provider != "" {
		a.file.Model.Provider = cli.Provider
	}
	if cli.Model != "" {
		a.file.Model.Name = cli.Model
	}
	return a, nil
}

// newTask builds a task from the config file. withModel is false for commands that
// never call the model, so no API token is needed.
func (a *app) newTask(withModel bool) (*task.Task, error) {
	cfg, err := a.file.TaskConfig()
	if err != nil {
		return nil, err
	}
	cfg.Logger = a.logger

	if withModel {
		if cfg.ModelFactory, err = a.file.ModelFactory(); err != nil {
			return nil, err
		}
	}

	mem, err := a.file.OpenMemory()
	if err != nil {
		return nil, err
	}
	if mem != nil {
		a.closers = append(a.closers, mem)
		cfg.ConversationMemory = mem
	}

	kb, err := a.file.OpenKnowledgeBase()
	if err != nil {
		return nil, err
	}
	if kb != nil {
		a.closers = append(a.closers, kb)
		cfg.KnowledgeBase = kb
	}

	if a.cli.EventsLog != "" {
		f, err := os.OpenFile(a.cli.EventsLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open events log: %w", err)
		}
		a.closers = append(a.closers, f)
		cfg.Hooks = hooks.NewRegistry().Register(hooks.NewLoggerHook(f))
	}
	return task.New(cfg), nil
}

// Close releases stores and files opened by newTask.
func (a *app) Close() error {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	return nil
}
