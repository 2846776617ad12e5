package util

import (
	"os"
	"strings"
	"sync"
	"testing"
)

func TestListenWriteFansInToFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "io_test_*.txt")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	defer f.Close()

	wg := sync.WaitGroup{}
	ListenWrite(2, f, &wg)

	w1 := NewWriter()
	w2 := NewWriter()
	w1.Write("hello %s\n", "one")
	w2.WriteString("hello two\n")
	w1.Close()
	w2.Close()

	wg.Wait()
	Close()

	got, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatalf("reading back temp file: %v", err)
	}
	s := string(got)
	if !strings.Contains(s, "hello one\n") || !strings.Contains(s, "hello two\n") {
		t.Fatalf("output %q missing one of the expected lines", s)
	}
}
