package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"repair-desk/internal/adapters/cli"
	"repair-desk/internal/ai"
	"repair-desk/internal/app"
	"repair-desk/internal/core"
)

const (
	maxClarificationRounds = 3
	lowConfidence          = 0.6
)

var errExit = errors.New("exit")

// Run starts the interactive REPL loop.
// Slash commands run the one-shot CLI commands deterministically; any other
// input is treated as a drop-off note and routed through the AI intake assistant.
func Run(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader, out io.Writer) {
	s := &session{ctx: ctx, svc: svc, reader: reader, out: out}

	fmt.Fprintln(out, "Repair Desk")
	fmt.Fprintln(out, "Describe a device drop-off to receive it, or use /help for commands.")
	fmt.Fprintln(out, strings.Repeat("-", 70))

	for {
		fmt.Fprint(out, "\n> ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			if err != nil {
				return
			}
			continue
		}

		// Slash prefix → deterministic command dispatcher, no AI invoked.
		if strings.HasPrefix(input, "/") {
			if s.dispatchSlash(input) == errExit {
				fmt.Fprintln(out, "Goodbye!")
				return
			}
			continue
		}

		if s.interpret(input) == errExit {
			fmt.Fprintln(out, "Goodbye!")
			return
		}
		if err != nil {
			return
		}
	}
}

type session struct {
	ctx    context.Context
	svc    app.ApplicationService
	reader *bufio.Reader
	out    io.Writer
}

func (s *session) readLine(prompt string) string {
	fmt.Fprint(s.out, prompt)
	line, _ := s.reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// dispatchSlash runs a slash command. Only errExit is returned; other
// failures are printed.
func (s *session) dispatchSlash(input string) error {
	args := splitArgs(strings.TrimPrefix(input, "/"))
	if len(args) == 0 {
		return nil
	}
	switch strings.ToLower(args[0]) {
	case "exit", "quit", "e", "q":
		return errExit
	case "help", "h":
		printHelp(s.out)
		return nil
	case "show":
		args[0] = "report"
	case "receive":
		handleReceive(s)
		return nil
	}

	err := cli.Run(s.ctx, s.svc, args, strings.NewReader(""), s.out)
	if err != nil && !errors.Is(err, cli.ErrUsage) {
		printError(s.out, err)
	}
	return nil
}

// interpret runs the AI intake conversation for a drop-off note.
func (s *session) interpret(note string) error {
	fmt.Fprintln(s.out, "[AI] Processing...")
	accumulated := note

	for round := 1; ; round++ {
		if round > maxClarificationRounds {
			fmt.Fprintln(s.out, "Could not produce an intake form. Try /receive instead, or type /help.")
			return nil
		}

		result, err := s.svc.InterpretIntake(s.ctx, accumulated)
		if errors.Is(err, app.ErrAssistantDisabled) {
			fmt.Fprintln(s.out, "The AI assistant is not configured (set OPENAI_API_KEY). Use /receive to fill in the form.")
			return nil
		}
		if err != nil {
			printError(s.out, err)
			return nil
		}

		if result.IsClarification {
			fmt.Fprintf(s.out, "\n[AI]: %s\n", result.ClarificationMessage)
			if len(result.MissingFields) > 0 {
				fmt.Fprintf(s.out, "      (missing: %s)\n", strings.Join(result.MissingFields, ", "))
			}
			followUp := s.readLine("> ")

			// Slash command during clarification cancels the AI flow and runs it.
			if strings.HasPrefix(followUp, "/") {
				fmt.Fprintln(s.out, "(AI session cancelled)")
				return s.dispatchSlash(followUp)
			}
			if followUp == "" || strings.EqualFold(followUp, "cancel") {
				fmt.Fprintln(s.out, "Cancelled.")
				return nil
			}
			accumulated = fmt.Sprintf("Original note: %s\nClarification requested: %s\nOperator response: %s",
				accumulated, result.ClarificationMessage, followUp)
			fmt.Fprintln(s.out, "[AI] Thinking...")
			continue
		}

		s.review(result.Proposal)
		return nil
	}
}

// review shows the proposal and lets the operator approve, edit or discard it.
func (s *session) review(p *ai.IntakeProposal) {
	if p == nil {
		fmt.Fprintln(s.out, "The assistant returned no proposal.")
		return
	}
	in := p.IntakeInput()
	printProposal(s.out, p)
	if p.Confidence < lowConfidence {
		fmt.Fprintln(s.out, "\nWARNING: Low confidence proposal. Check every field.")
	}

	for {
		choice := strings.ToLower(s.readLine("\nReceive this device? (y = yes, e = edit, n = discard): "))
		switch choice {
		case "y", "yes":
			intake, err := s.svc.CreateIntake(s.ctx, in)
			var verr *core.ValidationError
			if errors.As(err, &verr) {
				printValidation(s.out, verr)
				fmt.Fprintln(s.out, "Edit the form to fix these fields.")
				continue
			}
			if err != nil {
				printError(s.out, err)
				return
			}
			printIntake(s.out, intake)
			return
		case "e", "edit":
			editIntake(s, &in)
			printForm(s.out, in)
		default:
			fmt.Fprintln(s.out, "Discarded.")
			return
		}
	}
}

// splitArgs splits a command line on spaces, keeping double-quoted runs together.
func splitArgs(line string) []string {
	var (
		args    []string
		cur     strings.Builder
		quoted  bool
		pending bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			pending = true
		case r == ' ' && !quoted:
			if pending {
				args = append(args, cur.String())
				cur.Reset()
				pending = false
			}
		default:
			cur.WriteRune(r)
			pending = true
		}
	}
	if pending {
		args = append(args, cur.String())
	}
	return args
}
