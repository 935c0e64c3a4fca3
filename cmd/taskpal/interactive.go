package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/chzyer/readline"

	"taskpal/internal/chat"
)

// RunChatREPL runs the line-based chat loop with readline support (arrow
// keys, history). It is the fallback surface when no full terminal is
// available or --no-tui is set.
func RunChatREPL(container *Container) error {
	snap := container.Session.Snapshot()
	fmt.Printf("taskpal — signed in as %s\n", bold(snap.User.Email))
	fmt.Println("Type a message and press Enter. Type 'exit' or 'quit' to quit.")
	fmt.Println()
	fmt.Println(renderREPLMarkdown(chat.Greeting))

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("you> "),
		HistoryFile:       container.Config.HistoryPath(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,

		Stdin:  readline.NewCancelableStdin(os.Stdin),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	ctx := context.Background()
	for {
		input, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(input) == 0 {
				fmt.Println("\nGoodbye!")
				break
			}
			continue
		} else if err == io.EOF {
			fmt.Println("\nGoodbye!")
			break
		}

		input = strings.TrimSpace(input)
		if input == "exit" || input == "quit" || input == "q" {
			fmt.Println("Goodbye!")
			break
		}
		if input == "" {
			continue
		}

		// The session may have been force-cleared by a 401 mid-loop.
		if !container.Session.Snapshot().Authenticated() {
			fmt.Println(errorLine("session expired, please sign in again"))
			break
		}

		// Send ignores errors here: the transcript already carries the
		// fallback assistant reply, so the loop just prints the last turn.
		_ = container.Chat.Send(ctx, input)

		transcript := container.Chat.Snapshot()
		last := transcript.Messages[len(transcript.Messages)-1]
		fmt.Printf("\n%s\n", renderREPLMarkdown(last.Content))
		printAnnotations(last)
	}

	return nil
}

// printAnnotations shows the tool activity and task changes behind an
// assistant reply, the way the web transcript annotates them.
func printAnnotations(msg chat.Message) {
	for _, call := range msg.ToolCalls {
		fmt.Println(gray(fmt.Sprintf("  ⚙ %s", call.Name)))
	}
	for _, update := range msg.TaskUpdates {
		switch {
		case update.Task != nil:
			fmt.Println(green(fmt.Sprintf("  ✓ %s task: %s", update.Action, update.Task.Title)))
		case len(update.Tasks) > 0:
			fmt.Println(green(fmt.Sprintf("  ✓ %s %d tasks", update.Action, len(update.Tasks))))
		}
	}
	if len(msg.ToolCalls) > 0 || len(msg.TaskUpdates) > 0 {
		fmt.Println()
	}
}

// renderREPLMarkdown renders markdown content for the plain terminal.
func renderREPLMarkdown(content string) string {
	width := 100
	result := markdown.Render(content, width, 2)
	return strings.TrimRight(string(result), "\n")
}
