package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/smartreplyhq/smartreply/pkg/bus"
	"github.com/smartreplyhq/smartreply/pkg/config"
	"github.com/smartreplyhq/smartreply/pkg/contacts"
	"github.com/smartreplyhq/smartreply/pkg/logger"
	"github.com/smartreplyhq/smartreply/pkg/privacy"
	"github.com/smartreplyhq/smartreply/pkg/retention"
	"github.com/smartreplyhq/smartreply/pkg/storage"
	"github.com/spf13/cobra"
)

func executeCLI() error {
	root := buildRootCommand()
	if err := root.Execute(); err != nil {
		return err
	}
	return nil
}

func buildRootCommand() *cobra.Command {
	var (
		showVersion bool
		configPath  string
		debug       bool
	)

	root := &cobra.Command{
		Use:   "smartreply",
		Short: "Context-aware reply suggestions for messaging conversations",
		Long: strings.TrimSpace(`smartreply watches a messaging surface, learns each contact's
style, and proposes reply variants when the other side is typing.

Use run to attach to a structural change feed on stdin, or simulate
for an interactive local conversation.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debugLogging = debug
			if debug {
				logger.SetLevel("debug")
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	root.AddCommand(newRunCommand(&configPath))
	root.AddCommand(newSimulateCommand(&configPath))
	root.AddCommand(newStatusCommand(&configPath))
	root.AddCommand(newPurgeCommand(&configPath))
	root.AddCommand(newVersionCommand())

	return root
}

// debugLogging records the --debug flag so config-driven log levels
// never lower it back.
var debugLogging bool

func loadConfigOrDefault(path string) (*config.Config, error) {
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.SetJSON(cfg.Logging.JSON)
	if debugLogging {
		logger.SetLevel("debug")
	} else {
		logger.SetLevel(cfg.Logging.Level)
	}
	return cfg, nil
}

func newRunCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Attach to a structural change feed on stdin and suggest replies",
		Long: strings.TrimSpace(`Read JSON-line frames from stdin: a page snapshot first, then
mutation and navigate frames as the surface changes. Suggestion and
status events are printed as they happen.`),
		Example: "  host-shell | smartreply run --debug",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigOrDefault(*configPath)
			if err != nil {
				return err
			}
			return runPipeline(cfg)
		},
	}
}

func runPipeline(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := bufio.NewReader(os.Stdin)
	page, err := readPageFrame(reader)
	if err != nil {
		return err
	}

	p, err := buildPipeline(ctx, cfg, page)
	if err != nil {
		return err
	}
	p.start(ctx)
	defer p.stop()

	go printUIEvents(ctx, p.events)

	logger.InfoCF("main", "Pipeline running", map[string]any{
		"platform": p.adapter.Platform(),
	})

	done := make(chan error, 1)
	go func() {
		done <- pumpFeed(reader, page, p)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		logger.InfoC("main", "Shutting down")
		return nil
	}
}

// printUIEvents renders suggestion and notice events as plain lines on
// stdout so a host shell can relay them to its surface.
func printUIEvents(ctx context.Context, events *bus.EventBus) {
	for {
		ev, ok := events.SubscribeUI(ctx)
		if !ok {
			return
		}
		switch ev.Kind {
		case bus.UIShown:
			fmt.Printf("suggestions for %s:\n", ev.ContactID)
			for i, text := range ev.Texts {
				fmt.Printf("  [%d] %s\n", i+1, text)
			}
		case bus.UISelected:
			fmt.Printf("selected %s\n", ev.SuggestionID)
		case bus.UIRejected:
			fmt.Printf("rejected %s\n", ev.SuggestionID)
		case bus.UINotice:
			fmt.Printf("notice: %s\n", ev.Message)
		}
	}
}

func newStatusCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show configuration and stored-data summary",
		Example: "  smartreply status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigOrDefault(*configPath)
			if err != nil {
				return err
			}
			return printStatus(cmd.Context(), cfg)
		},
	}
}

func printStatus(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s := cfg.Snapshot()
	fmt.Printf("enabled:          %v\n", s.Enabled)
	fmt.Printf("provider:         %s\n", s.Provider)
	fmt.Printf("max suggestions:  %d\n", s.MaxSuggestions)
	fmt.Printf("response delay:   %dms\n", s.ResponseDelayMs)
	fmt.Printf("storage path:     %s\n", cfg.Storage.Path)
	fmt.Printf("retention days:   %d\n", cfg.Privacy.RetentionDays)

	kv, err := storage.NewStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer kv.Close()

	contactsKeys, err := kv.Keys(ctx, storage.PrefixContactData)
	if err != nil {
		return fmt.Errorf("list contacts: %w", err)
	}
	convKeys, err := kv.Keys(ctx, storage.PrefixConversationRec)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}
	fmt.Printf("stored contacts:  %d\n", len(contactsKeys))
	fmt.Printf("stored windows:   %d\n", len(convKeys))
	return nil
}

func newPurgeCommand(configPath *string) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete conversation records past the retention window now",
		Example: strings.Join([]string{
			"  smartreply purge",
			"  smartreply purge --all",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigOrDefault(*configPath)
			if err != nil {
				return err
			}
			kv, err := storage.NewStore(cfg.Storage.Path)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer kv.Close()

			if all {
				return clearAllData(cmd.Context(), kv)
			}

			removed, err := retention.NewJob(kv, cfg.Privacy.RetentionDays).RunOnce(cmd.Context())
			if err != nil {
				return fmt.Errorf("purge: %w", err)
			}
			fmt.Printf("removed %d expired conversation record(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Delete all stored contact and conversation data")
	return cmd
}

// clearAllData wipes every contact profile and conversation record.
func clearAllData(ctx context.Context, kv *storage.Store) error {
	store, err := contacts.NewStore(kv, privacy.NewDegradedCipher())
	if err != nil {
		return fmt.Errorf("contact store: %w", err)
	}
	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("clear contact data: %w", err)
	}
	fmt.Println("all contact and conversation data removed")
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show build/version metadata",
		Example: "  smartreply version",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion()
			return nil
		},
	}
}
