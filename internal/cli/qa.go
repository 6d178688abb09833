package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/colthorp/threadsum-go/internal/core"
	"github.com/colthorp/threadsum-go/internal/forum"
)

// QAState is a step of the interactive question session.
type QAState int

const (
	AwaitingConsent QAState = iota
	AwaitingQuestion
	Answering
	Done
)

func (s QAState) String() string {
	switch s {
	case AwaitingConsent:
		return "awaiting-consent"
	case AwaitingQuestion:
		return "awaiting-question"
	case Answering:
		return "answering"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("QAState(%d)", int(s))
	}
}

// Answerer answers questions about a thread.
type Answerer interface {
	Answer(ctx context.Context, msgs []forum.Message, question string) (string, error)
}

// QASession asks whether the user wants to ask questions and then answers
// them one at a time until "quit" or end of input.
type QASession struct {
	in       *bufio.Reader
	out      io.Writer
	answerer Answerer
	messages []forum.Message

	state    QAState
	question string
}

// NewQASession creates a session in the AwaitingConsent state.
func NewQASession(in io.Reader, out io.Writer, answerer Answerer, msgs []forum.Message) *QASession {
	return &QASession{
		in:       bufio.NewReader(in),
		out:      out,
		answerer: answerer,
		messages: msgs,
		state:    AwaitingConsent,
	}
}

// State reports the current state.
func (s *QASession) State() QAState {
	return s.state
}

// Run drives the session to Done.
func (s *QASession) Run(ctx context.Context) error {
	for s.state != Done {
		if err := ctx.Err(); err != nil {
			s.state = Done
			return err
		}
		s.Step(ctx)
	}
	return nil
}

// Step performs one transition.
func (s *QASession) Step(ctx context.Context) {
	switch s.state {
	case AwaitingConsent:
		line, ok := s.prompt("\nDo you want to ask questions about this thread? (yes/no): ")
		if !ok {
			s.state = Done
			return
		}
		switch strings.ToLower(line) {
		case "yes", "y":
			s.state = AwaitingQuestion
		case "no", "n":
			s.state = Done
		default:
			fmt.Fprintln(s.out, "Please answer 'yes' or 'no'.")
		}

	case AwaitingQuestion:
		line, ok := s.prompt("\nYour question (or 'quit' to exit): ")
		if !ok || strings.EqualFold(line, "quit") {
			s.state = Done
			return
		}
		if line == "" {
			return
		}
		s.question = line
		s.state = Answering

	case Answering:
		answer, err := s.answerer.Answer(ctx, s.messages, s.question)
		if err != nil {
			core.Warn(fmt.Sprintf("Error answering question: %v", err))
		} else {
			fmt.Fprintf(s.out, "\nAnswer:\n%s\n", answer)
		}
		s.question = ""
		s.state = AwaitingQuestion
	}
}

// prompt writes p and reads one trimmed line. ok is false at end of input.
func (s *QASession) prompt(p string) (string, bool) {
	fmt.Fprint(s.out, p)
	line, err := s.in.ReadString('\n')
	if err != nil && (line == "" || err != io.EOF) {
		return "", false
	}
	return strings.TrimSpace(line), true
}
