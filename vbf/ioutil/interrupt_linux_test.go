//go:build linux

package ioutil

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"
)

func newPipeInput(t *testing.T) (*InterruptibleInput, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	in, err := NewInterruptibleInput(r, 8)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		in.Close()
		r.Close()
		w.Close()
	})
	return in, w
}

func TestInterruptBeforeWait(t *testing.T) {
	in, _ := newPipeInput(t)
	if err := in.Interrupt(); err != nil {
		t.Fatal(err)
	}
	if err := in.WaitForPacket(context.Background()); !errors.Is(err, ErrInterrupted) {
		t.Errorf("expected ErrInterrupted, got %v", err)
	}
}

func TestInterruptFromGoroutine(t *testing.T) {
	in, _ := newPipeInput(t)
	go func() {
		time.Sleep(20 * time.Millisecond)
		in.Interrupt()
	}()
	if err := in.WaitForPacket(context.Background()); !errors.Is(err, ErrInterrupted) {
		t.Errorf("expected ErrInterrupted, got %v", err)
	}
}

func TestInterruptOnCancel(t *testing.T) {
	in, _ := newPipeInput(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := in.WaitForPacket(ctx); !errors.Is(err, ErrInterrupted) {
		t.Errorf("expected ErrInterrupted, got %v", err)
	}
}

func TestInterruptibleReadsPackets(t *testing.T) {
	in, w := newPipeInput(t)
	go func() {
		w.Write(framed("first packet", "second"))
		w.Close()
	}()

	for _, want := range []string{"first packet", "second"} {
		if err := in.WaitForPacket(context.Background()); err != nil {
			t.Fatal(err)
		}
		in.BeginPacket()
		got, _ := io.ReadAll(in)
		in.EndPacket()
		if string(got) != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
	if err := in.WaitForPacket(context.Background()); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestInterruptibleWaitForBytes(t *testing.T) {
	in, w := newPipeInput(t)
	go func() {
		w.Write([]byte("VBFF"))
		w.Write(append([]byte("VPCK"), framed("body")...))
	}()

	if err := in.WaitForBytes(context.Background(), 12); err != nil {
		t.Fatal(err)
	}
	magic := make([]byte, 4)
	for _, want := range []string{"VBFF", "VPCK"} {
		if err := in.ReadRaw(magic); err != nil || string(magic) != want {
			t.Fatalf("ReadRaw: %q %v", magic, err)
		}
	}
	if in.Size() < 12 {
		t.Errorf("ring should have grown, size %d", in.Size())
	}
	if err := in.WaitForPacket(context.Background()); err != nil {
		t.Fatal(err)
	}
}
