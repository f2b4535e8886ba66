package listener

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"
)

// Terminal is the operator console. Lines printed while a prompt is open are
// held and flushed once the answer is in, so telemetry never splits an
// operator's input.
type Terminal struct {
	mu        sync.Mutex
	rl        *readline.Instance
	out       io.Writer
	holdAsync bool
	heldLines []string
}

func NewTerminal() (*Terminal, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "",
	})
	if err != nil {
		return nil, err
	}
	return &Terminal{rl: rl}, nil
}

// NewPlain returns a Terminal without line editing that writes to w. Ask is
// not available on it.
func NewPlain(w io.Writer) *Terminal {
	return &Terminal{out: w}
}

func (t *Terminal) Close() error {
	if t.rl != nil {
		return t.rl.Close()
	}
	return nil
}

func (t *Terminal) BeginInteractive() {
	t.mu.Lock()
	t.holdAsync = true
	t.mu.Unlock()
}

func (t *Terminal) EndInteractive() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.holdAsync = false
	for _, s := range t.heldLines {
		t.writeUnlocked(s)
	}
	t.heldLines = nil
}

func (t *Terminal) writeUnlocked(s string) {
	if t.rl == nil {
		w := t.out
		if w == nil {
			w = os.Stdout
		}
		fmt.Fprintln(w, s)
		return
	}
	_, _ = t.rl.Write([]byte(s + "\n"))
	t.rl.Refresh()
}

// PrintAbove writes immediately, even during a prompt.
func (t *Terminal) PrintAbove(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeUnlocked(s)
}

// Println is safe from any goroutine.
func (t *Terminal) Println(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.holdAsync {
		t.heldLines = append(t.heldLines, s)
		return
	}
	t.writeUnlocked(s)
}

// Ask shows prompt and reads one line. Ctrl-C yields readline.ErrInterrupt and
// Ctrl-D io.EOF.
func (t *Terminal) Ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if t.rl == nil {
		return "", fmt.Errorf("terminal is not interactive")
	}

	t.BeginInteractive()
	defer t.EndInteractive()

	// Multi-line prompts: everything before the last newline goes above.
	if i := strings.LastIndex(prompt, "\n"); i >= 0 {
		if head := strings.TrimLeft(prompt[:i], "\n"); head != "" {
			t.PrintAbove(head)
		}
		prompt = prompt[i+1:]
	}

	t.mu.Lock()
	old := t.rl.Config.Prompt
	t.rl.SetPrompt(prompt)
	t.mu.Unlock()

	line, err := t.rl.Readline()

	t.mu.Lock()
	t.rl.SetPrompt(old)
	t.mu.Unlock()

	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks until it gets a yes or no.
func (t *Terminal) Confirm(ctx context.Context, question string) (bool, error) {
	t.PrintAbove(question + " [y/n]")
	for {
		ans, err := t.Ask(ctx, "> ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(ans) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		t.PrintAbove("Please answer y/n.")
	}
}
