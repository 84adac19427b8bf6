// Package app provides the persona assistant command line application.
package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kart-io/persona-assistant/cmd/assistant/app/options"
	"github.com/kart-io/persona-assistant/internal/assistant"
	"github.com/kart-io/persona-assistant/internal/assistant/biz"
	"github.com/kart-io/persona-assistant/pkg/infra/app"
	"github.com/kart-io/persona-assistant/pkg/utils/json"
)

// commandDesc is the description of the command.
const commandDesc = `Persona Assistant

Answers questions about one person on behalf of a visitor role
(hiring manager, developer, visitor) using a retrieved corpus, an optional
source code symbol index and per-session conversation memory.

Optional backends (Milvus, Redis, remote model providers) degrade
gracefully: when they are unreachable the assistant keeps answering
in offline mode.`

var roleUsage = "Visitor role: " + strings.Join(roleNames(), ", ") + "."

func roleNames() []string {
	names := make([]string, 0, len(biz.Roles()))
	for _, r := range biz.Roles() {
		names = append(names, string(r))
	}
	return names
}

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewOptions()
	return app.NewApp(
		app.WithName(assistant.Name),
		app.WithShortDescription("Role-aware personal assistant"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithCommands(
			newAskCommand(opts),
			newChatCommand(opts),
			newIngestCommand(opts),
			newStatsCommand(opts),
			newClearSessionCommand(opts),
		),
	)
}

// withAssistant builds the assistant, runs fn and releases every backend.
func withAssistant(opts *options.Options, fn func(ctx context.Context, a *assistant.Assistant) error) error {
	cfg, err := opts.Config()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := setupSignalContext()
	a, err := cfg.NewAssistant(ctx)
	if err != nil {
		return fmt.Errorf("failed to create assistant: %w", err)
	}
	defer a.Close(context.Background())

	return fn(ctx, a)
}

func newAskCommand(opts *options.Options) *cobra.Command {
	var (
		role    string
		session string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withAssistant(opts, func(ctx context.Context, a *assistant.Assistant) error {
				resp := a.Ask(ctx, session, role, query)
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), resp)
				}
				writeText(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&role, "role", "r", string(biz.RoleJustLooking), roleUsage)
	cmd.Flags().StringVarP(&session, "session", "s", "", "Session ID; empty disables conversation memory.")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full response as JSON.")
	return cmd
}

func newChatCommand(opts *options.Options) *cobra.Command {
	var (
		role    string
		session string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive session reading one question per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAssistant(opts, func(ctx context.Context, a *assistant.Assistant) error {
				return chatLoop(ctx, a, cmd.InOrStdin(), cmd.OutOrStdout(), session, role)
			})
		},
	}
	cmd.Flags().StringVarP(&role, "role", "r", string(biz.RoleJustLooking), roleUsage)
	cmd.Flags().StringVarP(&session, "session", "s", "cli", "Session ID used for the whole chat.")
	return cmd
}

func chatLoop(ctx context.Context, a *assistant.Assistant, in io.Reader, out io.Writer, session, role string) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/quit", "/exit":
			return nil
		case "/clear":
			a.ClearSession(ctx, session)
			fmt.Fprintln(out, "session cleared")
		default:
			writeText(out, a.Ask(ctx, session, role, line))
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func newIngestCommand(opts *options.Options) *cobra.Command {
	var recreate bool
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Embed the corpus and write it to the configured index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAssistant(opts, func(ctx context.Context, a *assistant.Assistant) error {
				result, err := a.Ingest(ctx, recreate)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().BoolVar(&recreate, "recreate", false, "Re-embed every document and rebuild the Milvus collection.")
	return cmd
}

func newStatsCommand(opts *options.Options) *cobra.Command {
	var prometheus bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print runtime statistics and backend status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAssistant(opts, func(ctx context.Context, a *assistant.Assistant) error {
				if prometheus {
					_, err := io.WriteString(cmd.OutOrStdout(), a.Metrics())
					return err
				}
				return writeJSON(cmd.OutOrStdout(), a.Stats(ctx))
			})
		},
	}
	cmd.Flags().BoolVar(&prometheus, "prometheus", false, "Print metrics in Prometheus text format.")
	return cmd
}

func newClearSessionCommand(opts *options.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-session [session-id]",
		Short: "Delete the stored history of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAssistant(opts, func(ctx context.Context, a *assistant.Assistant) error {
				a.ClearSession(ctx, args[0])
				fmt.Fprintf(cmd.OutOrStdout(), "session %s cleared\n", args[0])
				return nil
			})
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeText(w io.Writer, resp *biz.RoutedResponse) {
	fmt.Fprintln(w, resp.Response)
	if resp.ExternalLink != "" {
		fmt.Fprintln(w, resp.ExternalLink)
	}
	for _, s := range resp.CodeSymbols {
		fmt.Fprintf(w, "  - %s %s (%s)\n", s.Kind, s.Name, s.Citation)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
