package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/rickchristie/gentask/task"
)

const chatHelp = "Commands: /history, /record, /exit"

func chat(ctx context.Context, w io.Writer, t *task.Task, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36m> \033[0m",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "/exit",
		Stdout:          w,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(w, dimStyle.Render(chatHelp))
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/history":
			history, err := t.FormattedHistory(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, dimStyle.Render(history))
			continue
		case "/record":
			if err := printRecord(ctx, w, t); err != nil {
				return err
			}
			continue
		}

		start := time.Now()
		if err := stream(ctx, w, t, line); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintln(w, errorStyle.Render("Error: "+err.Error()))
			continue
		}
		fmt.Fprintln(w, renderFooter(t, time.Since(start)))
	}
}
