package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nakari-agent/server/internal/agent/loop"
	"github.com/nakari-agent/server/internal/agent/model"
	"github.com/nakari-agent/server/internal/memory"
	logx "github.com/nakari-agent/server/pkg/logger"
)

// Session is the agent as driven by the console.
type Session interface {
	Run(ctx context.Context, in model.QueryInput, observe loop.Observer) (*loop.Result, error)
	Clear(ctx context.Context, conversationID string) error
}

// SchemaSource lists the memory graph's schema for /schema.
type SchemaSource interface {
	InspectSchema(ctx context.Context) (*memory.SchemaSnapshot, error)
}

// REPL reads user lines and hands them to the agent until /quit or end of input.
type REPL struct {
	session        Session
	schema         SchemaSource
	printer        *Printer
	in             io.Reader
	conversationID string
}

func NewREPL(session Session, schema SchemaSource, printer *Printer, in io.Reader, conversationID string) *REPL {
	return &REPL{
		session:        session,
		schema:         schema,
		printer:        printer,
		in:             in,
		conversationID: conversationID,
	}
}

// Run blocks until the user quits, input ends or ctx is cancelled. A failed
// turn is printed and the loop continues.
func (r *REPL) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if ctx.Err() != nil {
			return nil
		}
		r.printer.Prompt()
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			r.printer.Info("\nEnd of input. Goodbye!")
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			r.printer.Info("Goodbye!")
			return nil
		case "/help":
			r.printer.Help()
			continue
		case "/schema":
			r.showSchema(ctx)
			continue
		case "/clear":
			if err := r.session.Clear(ctx, r.conversationID); err != nil {
				r.printer.Error(err.Error())
			} else {
				r.printer.Info("Conversation history cleared.")
			}
			continue
		}

		r.turn(ctx, line)
	}
}

func (r *REPL) turn(ctx context.Context, line string) {
	r.printer.resetTurn()
	_, err := r.session.Run(ctx, model.QueryInput{ConversationID: r.conversationID, Query: line}, r.printer.OnStep)
	if err != nil {
		logx.Error().Err(err).Str("conversation_id", r.conversationID).Msg("turn failed")
		if !r.printer.errored {
			r.printer.Error(err.Error())
		}
	}
	fmt.Fprintln(r.printer.out)
}

func (r *REPL) showSchema(ctx context.Context) {
	snapshot, err := r.schema.InspectSchema(ctx)
	if err != nil {
		r.printer.Error(err.Error())
		return
	}
	r.printer.Schema(snapshot)
}
