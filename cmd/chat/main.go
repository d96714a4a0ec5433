package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/danishi/adk-blog-writer-agent/pkg/agent"
	"github.com/danishi/adk-blog-writer-agent/pkg/chat"
	"github.com/danishi/adk-blog-writer-agent/pkg/config"
	"github.com/danishi/adk-blog-writer-agent/pkg/logging"
	"github.com/danishi/adk-blog-writer-agent/pkg/mcp"
	"github.com/danishi/adk-blog-writer-agent/pkg/runner"
	"github.com/danishi/adk-blog-writer-agent/pkg/version"
)

type rootCfg struct {
	ConfigDir string
	LogLevel  string
	Verbose   bool
	Chat      chat.Options
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := &rootCfg{}

	rootCmd := &cobra.Command{
		Use:   "blogchat",
		Short: "blogchat is a terminal client for the blog writer agents",
		Long:  `blogchat runs the blog writer agents in process and chats with them from the terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, func(c *chat.Client) error {
				shell := c.Shell(cmd.Context())
				defer shell.Close()
				shell.Println(chat.BoldBlue("blogchat " + version.Get().Short() + ", type help for commands."))
				if err := shell.Process("chat"); err != nil {
					return err
				}
				shell.Run()
				return nil
			})
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfg.ConfigDir, "config-dir", "c", config.DefaultConfigDir, "Config directory")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", "warn", "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Show thoughts and full tool payloads")
	rootCmd.PersistentFlags().StringVarP(&cfg.Chat.UserID, "user", "u", "user1", "User ID")
	rootCmd.PersistentFlags().StringVarP(&cfg.Chat.SessionID, "session", "s", "", "Session ID")
	rootCmd.PersistentFlags().StringVar(&cfg.Chat.PreviewDir, "preview-dir", "previews", "Directory for saved image previews")

	askCmd := &cobra.Command{
		Use:     "ask [message]",
		Short:   "Send one message and print the reply",
		Args:    cobra.MinimumNArgs(1),
		Example: `blogchat ask "Suggest three themes for a post about autumn in Kyoto"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, func(c *chat.Client) error {
				return c.Ask(cmd.Context(), strings.Join(args, " "), os.Stdout)
			})
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Get().Short())
		},
	}

	rootCmd.AddCommand(askCmd, versionCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// run wires config, agents and runner, then hands the client to fn.
func run(ctx context.Context, cfg *rootCfg, fn func(*chat.Client) error) error {
	logger, zapLogger := logging.SetupConsole(cfg.LogLevel)
	defer func() {
		_ = zapLogger.Sync()
	}()
	ctx = logr.NewContext(ctx, logger)

	appCfg, err := config.Load(cfg.ConfigDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := appCfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger.V(1).Info("Loaded config", "summary", appCfg.Summary())

	toolsets := mcp.CreateToolsets(ctx, appCfg.HttpTools, appCfg.SseTools)
	root, err := agent.NewCoordinator(ctx, appCfg, agent.Deps{Toolsets: toolsets})
	if err != nil {
		return err
	}

	r, err := runner.New(runner.Config{AppName: appCfg.AppName, Agent: root, Stream: appCfg.Stream})
	if err != nil {
		return err
	}

	opts := cfg.Chat
	opts.Verbose = cfg.Verbose
	opts.Spinner = true
	return fn(chat.NewClient(r, opts, logger.WithName("chat")))
}
