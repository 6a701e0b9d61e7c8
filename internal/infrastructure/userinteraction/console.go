package userinteraction

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"socflow/internal/application/port/output"
	"socflow/internal/domain/entity"

	"github.com/fatih/color"
)

var _ output.UserInteractionPort = (*ConsoleUserInteraction)(nil)

const maxResultLen = 4000

type ConsoleUserInteraction struct {
	reader *bufio.Reader
	out    io.Writer
}

func NewConsoleUserInteraction() *ConsoleUserInteraction {
	return NewConsoleUserInteractionWithIO(os.Stdin, color.Output)
}

func NewConsoleUserInteractionWithIO(in io.Reader, out io.Writer) *ConsoleUserInteraction {
	return &ConsoleUserInteraction{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// ReadMessage returns io.EOF once input is exhausted.
func (u *ConsoleUserInteraction) ReadMessage(ctx context.Context) (string, error) {
	color.New(color.FgCyan, color.Bold).Fprint(u.out, "\nyou> ")

	line, err := u.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line), nil
		}
		if err == io.EOF {
			return "", io.EOF
		}
		return "", fmt.Errorf("failed to read user input: %w", err)
	}

	return strings.TrimSpace(line), nil
}

func (u *ConsoleUserInteraction) ShowTurn(ctx context.Context, turn *entity.TurnResult) {
	if turn == nil {
		return
	}

	switch turn.Kind {
	case entity.TurnQuestion:
		if turn.Reason != "" {
			color.New(color.FgYellow).Fprintf(u.out, "⚠ %s\n", turn.Reason)
		}
		color.New(color.FgBlue, color.Bold).Fprint(u.out, "❓ ")
		fmt.Fprintln(u.out, stripReason(turn.Text, turn.Reason))

	case entity.TurnSummary:
		color.New(color.FgMagenta, color.Bold).Fprintln(u.out, "📋 Summary")
		fmt.Fprintln(u.out, turn.Text)

	case entity.TurnReadyToExecute:
		color.New(color.FgGreen, color.Bold).Fprintf(u.out, "▶ %s\n", turn.Text)

	case entity.TurnExecuting:
		color.New(color.FgCyan).Fprintf(u.out, "⏳ %s\n", turn.Text)

	case entity.TurnCancelled:
		color.New(color.FgRed).Fprintf(u.out, "✗ %s\n", turn.Text)

	case entity.TurnNoActiveWorkflow, entity.TurnPassthrough:
		color.New(color.Faint).Fprintln(u.out, "I can help with incident reports, malware analysis, threat hunts, IOC analysis and response playbooks. Tell me what you need.")

	default:
		fmt.Fprintln(u.out, turn.Text)
	}
}

func (u *ConsoleUserInteraction) ShowStage(ctx context.Context, index, total int, stage entity.Stage) {
	color.New(color.FgCyan, color.Bold).Fprintf(u.out, "\n━━━ Stage %d/%d: %s ━━━\n", index, total, stage.Name)
	if stage.Description != "" {
		color.New(color.Faint).Fprintf(u.out, "   %s\n", stage.Description)
	}
}

func (u *ConsoleUserInteraction) ShowResult(ctx context.Context, content string) {
	color.New(color.FgGreen, color.Bold).Fprintln(u.out, "\n✓ Result")
	fmt.Fprintln(u.out, truncate(content, maxResultLen))
}

func (u *ConsoleUserInteraction) ShowError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	color.New(color.FgRed).Fprint(u.out, "❌ Error: ")
	color.New(color.Faint).Fprintln(u.out, truncate(err.Error(), 300))
}

// stripReason drops the reason line the question template already starts
// with, since the console prints the reason on its own line.
func stripReason(text, reason string) string {
	if reason == "" {
		return text
	}
	first, rest, ok := strings.Cut(text, "\n")
	if ok && strings.Contains(first, reason) {
		return rest
	}
	return text
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
