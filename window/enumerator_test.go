package window

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/micha/app-loopback/logging"
	"github.com/micha/app-loopback/proc"
)

// helperCommand runs this test binary as a fake window lister.
func helperCommand(mode string) proc.CommandFunc {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", mode}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
		return cmd
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}
	if len(args) == 0 {
		os.Exit(2)
	}

	switch args[0] {
	case "windows":
		fmt.Fprint(os.Stdout, "101;Audacity\n202;Notepad\r\n\n")
	case "split":
		// A record split across two writes.
		fmt.Fprint(os.Stdout, "101;Auda")
		time.Sleep(20 * time.Millisecond)
		fmt.Fprint(os.Stdout, "city\n202;Notepad")
	case "empty":
	case "fail":
		fmt.Fprint(os.Stderr, "boom")
		fmt.Fprint(os.Stdout, "7;Seven\n")
		os.Exit(3)
	case "hang":
		time.Sleep(time.Hour)
	case "long":
		// One line past the limit, then stay alive until killed.
		os.Stdout.Write(bytes.Repeat([]byte("x"), maxLineSize+1))
		time.Sleep(time.Hour)
	}
}

func TestEnumeratorList(t *testing.T) {
	t.Run("parses lister output", func(t *testing.T) {
		e := NewEnumerator("ProcessList.exe", WithCommand(helperCommand("windows")), WithLogger(logging.Nop()))

		got, err := e.List(context.Background())
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		want := []Record{
			{ProcessID: "101", Title: "Audacity"},
			{ProcessID: "202", Title: "Notepad"},
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("List() = %+v, want %+v", got, want)
		}
	})

	t.Run("joins lines split across writes", func(t *testing.T) {
		e := NewEnumerator("ProcessList.exe", WithCommand(helperCommand("split")), WithLogger(logging.Nop()))

		got, err := e.List(context.Background())
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		want := []Record{
			{ProcessID: "101", Title: "Audacity"},
			{ProcessID: "202", Title: "Notepad"},
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("List() = %+v, want %+v", got, want)
		}
	})

	t.Run("no output is an empty result", func(t *testing.T) {
		e := NewEnumerator("ProcessList.exe", WithCommand(helperCommand("empty")), WithLogger(logging.Nop()))

		got, err := e.List(context.Background())
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("List() = %#v, want empty non-nil slice", got)
		}
	})

	t.Run("non-zero exit keeps records", func(t *testing.T) {
		e := NewEnumerator("ProcessList.exe", WithCommand(helperCommand("fail")), WithLogger(logging.Nop()))

		got, err := e.List(context.Background())
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 1 || got[0].ProcessID != "7" {
			t.Errorf("List() = %+v, want the single record", got)
		}
	})

	t.Run("missing executable is a spawn error", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "ProcessList.exe")
		e := NewEnumerator(missing, WithLogger(logging.Nop()))

		_, err := e.List(context.Background())
		var spawnErr *proc.SpawnError
		if !errors.As(err, &spawnErr) {
			t.Fatalf("List() error = %v, want *proc.SpawnError", err)
		}
	})

	t.Run("overlong line kills the lister", func(t *testing.T) {
		e := NewEnumerator("ProcessList.exe", WithCommand(helperCommand("long")), WithLogger(logging.Nop()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		_, err := e.List(ctx)
		if !errors.Is(err, bufio.ErrTooLong) {
			t.Fatalf("List() error = %v, want bufio.ErrTooLong", err)
		}
	})

	t.Run("cancel kills the lister", func(t *testing.T) {
		e := NewEnumerator("ProcessList.exe", WithCommand(helperCommand("hang")), WithLogger(logging.Nop()))

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := e.List(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("List() error = %v, want deadline exceeded", err)
		}
		if elapsed := time.Since(start); elapsed > 10*time.Second {
			t.Errorf("List() took %v after cancel", elapsed)
		}
	})
}
