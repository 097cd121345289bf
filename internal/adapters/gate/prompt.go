// Package gate implements the operator acknowledgment asked before a batch starts.
package gate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/bft-labs/volumetrize/internal/domain"
	"github.com/bft-labs/volumetrize/internal/ports"
)

// Prompt asks a y/N question on a terminal.
type Prompt struct {
	in        io.Reader
	out       io.Writer
	assumeYes bool
}

// NewPrompt creates a prompt reading answers from in and writing the
// question to out. With assumeYes the prompt approves without asking.
func NewPrompt(in io.Reader, out io.Writer, assumeYes bool) *Prompt {
	return &Prompt{in: in, out: out, assumeYes: assumeYes}
}

// Confirm prints summary and waits for an answer. Only "y" or "yes" approve.
// A non-terminal input without assumeYes is a configuration error so that
// unattended runs never block on a hidden prompt.
func (p *Prompt) Confirm(ctx context.Context, summary string) (bool, error) {
	if p.assumeYes {
		return true, nil
	}
	if f, ok := p.in.(*os.File); ok && !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false, &domain.ConfigurationError{Field: "yes", Reason: "stdin is not a terminal; pass --yes to run unattended"}
	}

	fmt.Fprintf(p.out, "%s\nProceed? [y/N]: ", summary)

	answer := make(chan string, 1)
	errc := make(chan error, 1)
	// The reader stays blocked on p.in after ctx is canceled; it ends once
	// the input delivers a line or is closed.
	go func() {
		line, err := bufio.NewReader(p.in).ReadString('\n')
		if err != nil && line == "" {
			errc <- err
			return
		}
		answer <- line
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errc:
		if err == io.EOF {
			return false, nil
		}
		return false, fmt.Errorf("read answer: %w", err)
	case a := <-answer:
		switch strings.ToLower(strings.TrimSpace(a)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

var _ ports.Gate = (*Prompt)(nil)
