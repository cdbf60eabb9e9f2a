package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/poiesic/graphhelper/core"
	"github.com/urfave/cli/v2"
)

// answerer is the part of the Assistant a chat session drives.
type answerer interface {
	indexInspector
	Answer(ctx context.Context, text string, mode core.Mode, history []core.Turn) (*core.Result, error)
}

// lineReader reads one line of input. *liner.State satisfies it.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

type chatSession struct {
	assistant answerer
	mode      core.Mode
	memory    bool
	verbose   bool
	history   []core.Turn
	out       io.Writer
}

func chatCommand(c *cli.Context) error {
	a, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer a.Close()

	mode, err := resolveMode(c, a.Config())
	if err != nil {
		return err
	}
	warnIfEmpty(c.Context, a, c.App.ErrWriter)

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	historyFile := chatHistoryPath()
	loadLineHistory(line, historyFile)
	defer func() {
		saveLineHistory(line, historyFile)
		line.Close()
	}()

	session := &chatSession{
		assistant: a,
		mode:      mode,
		memory:    c.Bool("memory"),
		verbose:   c.Bool("verbose"),
		out:       c.App.Writer,
	}
	return session.run(c.Context, &historyReader{State: line})
}

// run reads lines until quit, end of input or Ctrl+C at the prompt.
// Ctrl+C while a question is being answered cancels only that request.
func (s *chatSession) run(ctx context.Context, in lineReader) error {
	fmt.Fprintf(s.out, "Mode: %s | Memory: %s\n", s.mode, onOff(s.memory))
	fmt.Fprintln(s.out, "Ready! Type your question or 'help' for commands.")
	fmt.Fprintln(s.out)

	for {
		input, err := in.Prompt("You: ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out, "\nGoodbye!")
				return nil
			}
			return err
		}

		reqCtx, cancel := signal.NotifyContext(ctx, os.Interrupt)
		more := s.handle(reqCtx, input)
		cancel()
		if !more {
			return nil
		}
	}
}

// handle processes one line of input and reports whether the session
// continues.
func (s *chatSession) handle(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return true
	}

	switch strings.ToLower(input) {
	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "\nGoodbye!")
		return false
	case "help":
		fmt.Fprintf(s.out, "\n  Mode: %s | Memory: %s\n", s.mode, onOff(s.memory))
		fmt.Fprintln(s.out, "  Commands:")
		fmt.Fprintln(s.out, "    mode     - Switch offline/online")
		fmt.Fprintln(s.out, "    status   - Show current settings")
		fmt.Fprintln(s.out, "    clear    - Clear chat history")
		fmt.Fprintln(s.out, "    quit     - Exit")
		fmt.Fprintln(s.out)
		return true
	case "status":
		s.printStatus(ctx)
		return true
	case "mode":
		s.mode = s.mode.Toggle()
		fmt.Fprintf(s.out, "\n  Switched to %s mode\n\n", s.mode)
		return true
	case "clear":
		if s.memory {
			s.history = nil
			fmt.Fprintln(s.out, "\n  Chat history cleared")
		} else {
			fmt.Fprintln(s.out, "\n  Memory is disabled")
		}
		fmt.Fprintln(s.out)
		return true
	}

	var history []core.Turn
	if s.memory {
		history = s.history
	}
	result, err := s.assistant.Answer(ctx, input, s.mode, history)
	if err != nil {
		fmt.Fprintf(s.out, "\nError: %v\n\n", err)
		return true
	}

	fmt.Fprintln(s.out)
	fmt.Fprint(s.out, "Assistant: ")
	printResult(s.out, result, s.verbose)
	fmt.Fprintln(s.out)

	if s.memory {
		s.history = append(s.history,
			core.Turn{Role: core.RoleUser, Content: input},
			core.Turn{Role: core.RoleAssistant, Content: result.Answer},
		)
	}
	return true
}

func (s *chatSession) printStatus(ctx context.Context) {
	fmt.Fprintf(s.out, "\n  Mode: %s\n", s.mode)
	fmt.Fprintf(s.out, "  Memory: %s\n", onOff(s.memory))
	if len(s.history) > 0 {
		fmt.Fprintf(s.out, "  History: %d messages\n", len(s.history))
	}
	if stats, err := s.assistant.IndexStats(ctx); err == nil {
		fmt.Fprintf(s.out, "  Index: %d chunks from %d sources\n", stats.Chunks, len(stats.Sources))
	}
	fmt.Fprintln(s.out)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// historyReader records every non-blank line in the liner history.
type historyReader struct {
	*liner.State
}

func (h *historyReader) Prompt(prompt string) (string, error) {
	input, err := h.State.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		h.AppendHistory(input)
	}
	return input, nil
}

func chatHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "graphhelper", "chat_history")
}

func loadLineHistory(line *liner.State, path string) {
	if f, err := os.Open(path); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
}

func saveLineHistory(line *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}
