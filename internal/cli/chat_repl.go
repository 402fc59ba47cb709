package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

const chatPrompt = "you> "

type chatChannel interface {
	Read() (string, error)
	Write(text string) error
}

type readlineChatChannel struct {
	rl  *readline.Instance
	out io.Writer
}

func newReadlineChatChannel(in io.Reader, out io.Writer) (*readlineChatChannel, error) {
	stdin, ok := in.(io.ReadCloser)
	if !ok {
		return nil, fmt.Errorf("stdin is not read-closer")
	}
	inFile, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(inFile.Fd())) {
		return nil, fmt.Errorf("stdin is not terminal")
	}
	outFile, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(outFile.Fd())) {
		return nil, fmt.Errorf("stdout is not terminal")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          chatPrompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".opteee_history"),
		HistoryLimit:    200,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           stdin,
		Stdout:          out,
		Stderr:          out,
	})
	if err != nil {
		return nil, err
	}
	return &readlineChatChannel{rl: rl, out: out}, nil
}

func (c *readlineChatChannel) Read() (string, error) {
	line, err := c.rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", err
	}
	return line, nil
}

func (c *readlineChatChannel) Write(text string) error {
	_, err := fmt.Fprintf(c.out, "%s\n\n", text)
	return err
}

func (c *readlineChatChannel) Close() error {
	return c.rl.Close()
}

type stdioChatChannel struct {
	in  *bufio.Reader
	out io.Writer
}

func (c *stdioChatChannel) Read() (string, error) {
	if _, err := fmt.Fprint(c.out, chatPrompt); err != nil {
		return "", err
	}
	line, err := c.in.ReadString('\n')
	if err != nil {
		if len(line) > 0 {
			return line, nil
		}
		return "", err
	}
	return line, nil
}

func (c *stdioChatChannel) Write(text string) error {
	_, err := fmt.Fprintf(c.out, "%s\n\n", text)
	return err
}

func runChatREPL(ctx context.Context, runner *chatRunner, in io.Reader, out io.Writer) error {
	var channel chatChannel
	if rlChannel, err := newReadlineChatChannel(in, out); err == nil {
		channel = rlChannel
	} else {
		channel = &stdioChatChannel{in: bufio.NewReader(in), out: out}
	}
	if closer, ok := channel.(io.Closer); ok {
		defer closer.Close()
	}

	if _, err := fmt.Fprintln(out, "OPTEEE chat. /health, /reset, or exit."); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := channel.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		input := strings.TrimSpace(line)
		switch {
		case input == "":
			continue
		case input == "exit" || input == "quit":
			return nil
		case input == "/reset":
			runner.Reset()
			if err := channel.Write("Conversation reset."); err != nil {
				return err
			}
			continue
		case input == "/health":
			if err := channel.Write("API: " + runner.Health(ctx)); err != nil {
				return err
			}
			continue
		}

		answer, err := runner.Ask(ctx, input)
		if err != nil {
			if writeErr := channel.Write("error: " + err.Error()); writeErr != nil {
				return writeErr
			}
			continue
		}
		if err := channel.Write(answer); err != nil {
			return err
		}
	}
}
