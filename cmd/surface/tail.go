package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aretw0/surface/internal/logging"
	"github.com/aretw0/surface/internal/presentation/tui"
	"github.com/aretw0/surface/pkg/adapters/websocket"
	"github.com/aretw0/surface/pkg/animator"
	"github.com/aretw0/surface/pkg/client"
	"github.com/aretw0/surface/pkg/registry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Connect to a Surface server as a terminal chat client",
	Long: `Opens a WebSocket connection for one conversation, renders incoming
components as they stream in and sends every line typed as a user message.

Commands:
  /focus <componentId>  focus a list or time picker; replies go to its node
  /close                leave focus
  /history              redraw the conversation
  /quit                 disconnect`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runTail(cmd); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(tailCmd)
	tailCmd.Flags().String("url", "http://localhost:8080/ws", "WebSocket endpoint of the server")
	tailCmd.Flags().String("user", "cli", "User id")
	tailCmd.Flags().String("conversation", "", "Conversation id (default: a new one)")
	tailCmd.Flags().String("trigger", "chat", "Trigger node for unfocused messages")
	tailCmd.Flags().Float64("rate", 120, "Text reveal rate in runes per second")
}

func runTail(cmd *cobra.Command) error {
	endpoint, _ := cmd.Flags().GetString("url")
	userID, _ := cmd.Flags().GetString("user")
	conversationID, _ := cmd.Flags().GetString("conversation")
	trigger, _ := cmd.Flags().GetString("trigger")
	rate, _ := cmd.Flags().GetFloat64("rate")
	levelName, _ := cmd.Flags().GetString("log-level")

	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	logger := logging.New(level)

	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := websocket.Dial(ctx, endpoint, userID, conversationID)
	if err != nil {
		return err
	}
	defer conn.Close()

	reg := registry.NewRegistry()
	tui.Register(reg, tui.Width(os.Stdout))
	printer := tui.NewPrinter(os.Stdout)

	c := client.New(
		client.WithRegistry(reg),
		client.WithDefaultTrigger(trigger),
		client.WithAnimatorOptions(animator.WithRate(rate)),
		client.WithUpdateHandler(printer.Handle),
		client.WithLogger(logger),
	)
	defer c.Close()

	if tui.IsTerminal(os.Stdout) {
		tui.PrintBanner(os.Stdout)
	}
	fmt.Printf("Connected to %s as %s (conversation %s)\n", endpoint, userID, conversationID)

	runErr := make(chan error, 1)
	go func() {
		runErr <- c.Run(ctx, conn)
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-runErr:
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("connection closed: %w", err)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := handleLine(ctx, c, conn, strings.TrimSpace(line))
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

// handleLine runs a slash command or sends line as a user message.
func handleLine(ctx context.Context, c *client.Client, conn *websocket.ClientConn, line string) (bool, error) {
	switch {
	case line == "":
		return false, nil
	case line == "/quit":
		return true, nil
	case line == "/history":
		tui.RenderView(os.Stdout, c.View())
		return false, nil
	case line == "/close":
		return false, conn.Send(ctx, c.CloseFocus())
	case strings.HasPrefix(line, "/focus "):
		id := strings.TrimSpace(strings.TrimPrefix(line, "/focus "))
		frame, ok := c.OpenFocus(id)
		if !ok {
			fmt.Printf("Component %s cannot be focused\n", id)
			return false, nil
		}
		tui.RenderView(os.Stdout, c.View())
		return false, conn.Send(ctx, frame)
	}
	return false, conn.Send(ctx, c.UserMessage(line))
}
