package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/tendril/internal/presentation/tui"
	"github.com/aretw0/tendril/pkg/chatbot"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// ChatOptions configures an interactive chat session.
type ChatOptions struct {
	SessionID string
	In        io.Reader
	Out       io.Writer
	// Render formats assistant replies. Defaults to tui.Plain.
	Render tui.Renderer
	// AutoApprove sends gated replies without asking.
	AutoApprove bool
}

type chat struct {
	eng     ports.Engine[chatbot.ChatState]
	opts    ChatOptions
	lines   *bufio.Scanner
	history chatbot.ChatState
}

// Chat runs a read-eval loop over the chatbot graph. Every reply that the
// engine pauses on is shown to the operator for approval before it is sent.
// An existing session continues where it stopped, including a pending approval.
func Chat(ctx context.Context, eng ports.Engine[chatbot.ChatState], opts ChatOptions) error {
	if opts.Render == nil {
		opts.Render = tui.Plain
	}
	c := &chat{eng: eng, opts: opts, lines: bufio.NewScanner(opts.In)}

	snap, err := eng.State(ctx, opts.SessionID)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		printSystemMessage(opts.Out, "Session '%s' active. Type 'summarize' for a transcript, 'exit' to leave.", opts.SessionID)
	case err != nil:
		return fmt.Errorf("load session: %w", err)
	default:
		c.history = snap.State
		printSystemMessage(opts.Out, "Resuming session '%s' (%d messages).", opts.SessionID, len(snap.State.Messages))
		if snap.Status == domain.CheckpointPaused {
			if err := c.approve(ctx, snap.Cursor); err != nil {
				return c.exit(err)
			}
		}
	}

	for {
		line, ok := c.prompt("> ")
		if !ok {
			return c.exit(c.lines.Err())
		}
		switch line {
		case "":
			continue
		case "exit", "quit":
			printSystemMessage(opts.Out, "Bye!")
			return nil
		}

		if err := c.send(ctx, line); err != nil {
			return c.exit(err)
		}
	}
}

func (c *chat) send(ctx context.Context, text string) error {
	input := chatbot.NewState(text)
	if len(c.history.Messages) > 0 {
		input = c.history.WithUserMessage(text)
	}
	res, err := c.eng.Run(ctx, c.opts.SessionID, input)
	if err != nil {
		return err
	}
	c.history = res.State
	if res.Status == domain.StatusPaused {
		return c.approve(ctx, res.PausedBefore)
	}
	return c.printReply()
}

// approve asks whether the reply gated on node may be produced.
// A refusal leaves the checkpoint paused; the next message starts a fresh run over it.
func (c *chat) approve(ctx context.Context, node string) error {
	if !c.opts.AutoApprove {
		fmt.Fprintf(c.opts.Out, "Sentiment: %s. Run '%s'? [y/N] ", c.history.Sentiment, node)
		answer, ok := c.prompt("")
		if !ok {
			return io.EOF
		}
		if answer != "y" && answer != "yes" {
			printSystemMessage(c.opts.Out, "Held before '%s'.", node)
			return nil
		}
	}

	res, err := c.eng.Run(ctx, c.opts.SessionID, chatbot.ChatState{}, domain.Resume())
	if err != nil {
		return err
	}
	c.history = res.State
	return c.printReply()
}

func (c *chat) printReply() error {
	last, ok := c.history.Last()
	if !ok || last.Role != chatbot.RoleAssistant {
		return nil
	}
	out, err := c.opts.Render(last.Content)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.opts.Out, strings.TrimRight(out, "\n"))
	return nil
}

func (c *chat) prompt(p string) (string, bool) {
	fmt.Fprint(c.opts.Out, p)
	if !c.lines.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.lines.Text()), true
}

// exit maps end of input and cancellation to a clean exit.
func (c *chat) exit(err error) error {
	if err == nil || isInterrupted(err) {
		fmt.Fprintln(c.opts.Out)
		return nil
	}
	return err
}
