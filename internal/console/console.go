// Package console reads operator input for the hub and peer binaries:
// one-shot prompts at startup and a line loop afterwards.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrQuit is returned by InputLoop when the operator types quit.
var ErrQuit = errors.New("quit requested")

// IsQuit reports whether line is the quit command, in any letter case.
func IsQuit(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), "quit")
}

// Prompt writes label and returns the trimmed answer.
func Prompt(r *bufio.Reader, w io.Writer, label string) (string, error) {
	_, _ = fmt.Fprint(w, label)
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// PromptPort asks until the answer parses as a TCP port.
func PromptPort(r *bufio.Reader, w io.Writer, label string) (int, error) {
	for {
		answer, err := Prompt(r, w, label)
		if err != nil {
			return 0, err
		}
		port, err := strconv.Atoi(answer)
		if err == nil && port > 0 && port <= 65535 {
			return port, nil
		}
		_, _ = fmt.Fprintf(w, "Invalid port %q\n", answer)
	}
}

// InputLoop hands every non-blank line to handle. It returns ErrQuit on the
// quit command, nil at end of input, and ctx.Err() once ctx is done. The
// reader goroutine outlives a cancelled loop until its next line or EOF.
func InputLoop(ctx context.Context, r io.Reader, w io.Writer, prompt string, handle func(line string)) error {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		_, _ = fmt.Fprint(w, prompt)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case line := <-lines:
			if IsQuit(line) {
				return ErrQuit
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			handle(line)
		}
	}
}
