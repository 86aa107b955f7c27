package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"scholar/pkg/api"
)

// CLIChannel is the interactive terminal front end. It runs a REPL on
// stdin and prints replies to stdout. The handler is invoked
// synchronously, so the prompt only comes back once the reply landed.
type CLIChannel struct {
	in   io.Reader
	out  io.Writer
	done chan struct{}
	once sync.Once
}

func NewCLIChannel() *CLIChannel {
	return &CLIChannel{
		in:   os.Stdin,
		out:  os.Stdout,
		done: make(chan struct{}),
	}
}

// ID returns the unique platform identifier "cli".
func (c *CLIChannel) ID() string {
	return "cli"
}

// Done is closed when the user ends the session with exit/quit or EOF
func (c *CLIChannel) Done() <-chan struct{} {
	return c.done
}

// Start launches the REPL loop in a background goroutine
func (c *CLIChannel) Start(ctx api.ChannelContext) error {
	fmt.Fprintln(c.out, "Type a query, @<topic> for resources, /prompts to list prompt templates.")
	fmt.Fprintln(c.out, "Type 'exit' or 'quit' to leave.")
	fmt.Fprintln(c.out)

	go c.repl(ctx)
	return nil
}

func (c *CLIChannel) repl(ctx api.ChannelContext) {
	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	session := api.SessionContext{
		ChannelID: "cli",
		UserID:    "local",
		ChatID:    "local",
		Username:  "You",
	}

	for {
		fmt.Fprint(c.out, "🧑 You: ")
		if !scanner.Scan() {
			c.close()
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Fprintln(c.out, "❌ Please enter a valid query.")
			continue
		}
		if line == "exit" || line == "quit" {
			fmt.Fprintln(c.out, "👋 Bye!")
			c.close()
			return
		}

		// Synchronous dispatch keeps the prompt blocked until the reply
		// has been printed
		ctx.OnMessage(c.ID(), &api.UnifiedMessage{
			Session: session,
			Content: line,
		})
		fmt.Fprintln(c.out)
	}
}

func (c *CLIChannel) Stop() error {
	c.close()
	return nil
}

func (c *CLIChannel) Send(_ api.SessionContext, message string) error {
	_, err := fmt.Fprintf(c.out, "\n🤖 Assistant:\n%s\n", message)
	return err
}

// SendSignal implements the api.SignalingChannel interface
func (c *CLIChannel) SendSignal(_ api.SessionContext, signal string) error {
	if signal == "thinking" {
		fmt.Fprintln(c.out, "💬 Thinking...")
	}
	return nil
}

func (c *CLIChannel) close() {
	c.once.Do(func() {
		close(c.done)
	})
}
