package listener

import (
	"bytes"
	"context"
	"sync"
	"testing"
)

func TestPrintlnHoldsLinesDuringPrompt(t *testing.T) {
	var buf bytes.Buffer
	term := NewPlain(&buf)

	term.Println("Mission progress: 0/2")
	term.BeginInteractive()
	term.Println("Mission progress: 1/2")
	term.PrintAbove("Add more? [y/n]")
	if got := buf.String(); got != "Mission progress: 0/2\nAdd more? [y/n]\n" {
		t.Fatalf("held line leaked: %q", got)
	}
	term.EndInteractive()

	want := "Mission progress: 0/2\nAdd more? [y/n]\nMission progress: 1/2\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestPrintlnConcurrent(t *testing.T) {
	var buf bytes.Buffer
	term := NewPlain(&buf)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			term.Println("x")
		}()
	}
	wg.Wait()
	if got := bytes.Count(buf.Bytes(), []byte("x\n")); got != 8 {
		t.Errorf("lines = %d, want 8", got)
	}
}

func TestAskNeedsInteractiveTerminal(t *testing.T) {
	term := NewPlain(&bytes.Buffer{})
	if _, err := term.Ask(context.Background(), "> "); err == nil {
		t.Error("Ask on a plain terminal should fail")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := term.Ask(ctx, "> "); err != context.Canceled {
		t.Errorf("Ask with cancelled ctx = %v", err)
	}
}
