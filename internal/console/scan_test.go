package console

import (
	"context"
	"io"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestScanLines_DeliversLinesUntilEOF(t *testing.T) {
	r, w := io.Pipe()
	lines, stopped := scanLines(r, make(chan struct{}))

	go func() {
		_, _ = io.WriteString(w, "1\n  two \n")
		w.Close()
	}()

	var got []string
	for line := range lines {
		got = append(got, line)
	}
	if len(got) != 2 || got[0] != "1" || got[1] != "  two " {
		t.Fatalf("unexpected lines %q", got)
	}

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not stop at end of input")
	}
}

func TestScanLines_StopsWhenNobodyReads(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	done := make(chan struct{})
	_, stopped := scanLines(r, done)
	close(done)

	// The write returns once the scanner has consumed the line; with no
	// reader left the goroutine must not block sending it.
	if _, err := io.WriteString(w, "8\n"); err != nil {
		t.Fatal(err)
	}

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("reader goroutine still blocked after done was closed")
	}
}

func TestConsole_RunReleasesReader(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	c := New(nil, r, io.Discard, zap.NewNop())
	go func() { _, _ = io.WriteString(w, "9\n") }()

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// More input after Run has returned must not strand the reader.
	if _, err := io.WriteString(w, "1\n"); err != nil {
		t.Fatal(err)
	}
	select {
	case <-c.readerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("reader goroutine leaked after Run returned")
	}
}
