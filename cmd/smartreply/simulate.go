package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/smartreplyhq/smartreply/pkg/bus"
	"github.com/smartreplyhq/smartreply/pkg/config"
	"github.com/smartreplyhq/smartreply/pkg/feed"
	"github.com/smartreplyhq/smartreply/pkg/platform"
	"github.com/spf13/cobra"
)

func newSimulateCommand(configPath *string) *cobra.Command {
	var contact string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run an interactive local conversation against the full pipeline",
		Long: strings.TrimSpace(`Drive the detection-to-suggestion pipeline from a local REPL
instead of a live messaging surface. Plain input arrives as an
incoming message from the current contact; commands start with /.`),
		Example: strings.Join([]string{
			"  smartreply simulate",
			"  smartreply simulate --contact bob",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigOrDefault(*configPath)
			if err != nil {
				return err
			}
			return runSimulate(cfg, contact)
		},
	}
	cmd.Flags().StringVar(&contact, "contact", "alice", "Initial contact name")
	return cmd
}

// simulatedPage builds a page the resolver recognizes immediately.
func simulatedPage(contact string) *platform.SyntheticPage {
	root := &platform.Node{Tag: "div", Classes: []string{"app"}, Children: []*platform.Node{
		{Tag: "div", Classes: []string{"message-input"}},
		{Tag: "div", Classes: []string{"message-in"}, Children: []*platform.Node{
			{Tag: "span", Classes: []string{"selectable-text"}, Text: ""},
		}},
	}}
	return platform.NewSyntheticPage("https://web.whatsapp.com/chat/"+contact, contact, root)
}

func inboundNode(text string) *platform.Node {
	return &platform.Node{
		Tag:     "div",
		Classes: []string{"message-in"},
		Children: []*platform.Node{
			{Tag: "span", Classes: []string{"selectable-text"}, Text: text},
			{Tag: "span", Classes: []string{"message-time"}, Text: "now"},
		},
	}
}

func outboundNode(text string) *platform.Node {
	return &platform.Node{
		Tag:     "div",
		Classes: []string{"message-out"},
		Children: []*platform.Node{
			{Tag: "span", Classes: []string{"selectable-text"}, Text: text},
			{Tag: "span", Classes: []string{"message-time"}, Text: "now"},
		},
	}
}

func typingNode() *platform.Node {
	return &platform.Node{Tag: "div", Classes: []string{"typing"}}
}

func runSimulate(cfg *config.Config, contact string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	page := simulatedPage(contact)
	p, err := buildPipeline(ctx, cfg, page)
	if err != nil {
		return err
	}
	p.start(ctx)
	defer p.stop()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("%s> ", contact),
		HistoryFile:     filepath.Join(os.TempDir(), ".smartreply_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	go simulateUIEvents(ctx, p.events, rl)

	fmt.Fprintf(rl.Stdout(), "simulating whatsapp, contact %q (/help for commands)\n", contact)

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if !strings.HasPrefix(input, "/") {
			p.observer.Process(feed.Mutation{Added: []*platform.Node{inboundNode(input)}})
			continue
		}
		if done := simulateCommand(ctx, p, page, rl, input); done {
			return nil
		}
	}
}

// simulateCommand handles one /-prefixed REPL command; returns true to
// exit the loop.
func simulateCommand(ctx context.Context, p *pipeline, page *platform.SyntheticPage, rl *readline.Instance, input string) bool {
	out := rl.Stdout()
	fields := strings.Fields(input)
	arg := strings.TrimSpace(strings.TrimPrefix(input, fields[0]))

	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprint(out, simulateHelp)
	case "/contact":
		if arg == "" {
			fmt.Fprintln(out, "usage: /contact <name>")
			break
		}
		page.Navigate("https://web.whatsapp.com/chat/"+arg, arg)
		p.observer.SyncContact()
		rl.SetPrompt(fmt.Sprintf("%s> ", arg))
		fmt.Fprintf(out, "switched to %s\n", arg)
	case "/typing":
		p.observer.Process(feed.Mutation{AttributeTargets: []*platform.Node{typingNode()}})
		fmt.Fprintln(out, "typing indicator raised")
	case "/out":
		if arg == "" {
			fmt.Fprintln(out, "usage: /out <text>")
			break
		}
		p.observer.Process(feed.Mutation{Added: []*platform.Node{outboundNode(arg)}})
	case "/pick", "/reject":
		idx, err := strconv.Atoi(arg)
		if err != nil || idx < 1 {
			fmt.Fprintf(out, "usage: %s <number>\n", fields[0])
			break
		}
		_, current := p.engine.Current()
		if idx > len(current) {
			fmt.Fprintf(out, "no suggestion %d on screen\n", idx)
			break
		}
		id := current[idx-1].ID
		if fields[0] == "/pick" {
			if !p.engine.Select(ctx, id) {
				fmt.Fprintln(out, "selection failed")
			} else if inserted := page.Inserted(); len(inserted) > 0 {
				fmt.Fprintf(out, "sent: %s\n", inserted[len(inserted)-1])
			}
		} else {
			p.engine.Reject(ctx, id)
		}
	case "/status":
		contactID, current := p.engine.Current()
		fmt.Fprintf(out, "platform:        %s (%s)\n", p.adapter.Platform(), p.resolver.State())
		fmt.Fprintf(out, "surface ready:   %v\n", p.resolver.IsReady())
		fmt.Fprintf(out, "active contact:  %s\n", p.store.ActiveContact())
		fmt.Fprintf(out, "engine running:  %v\n", p.engine.IsRunning())
		fmt.Fprintf(out, "crypto:          %s\n", cryptoMode(p))
		fmt.Fprintf(out, "dropped events:  %d\n", p.events.DroppedEvents())
		if len(current) > 0 {
			fmt.Fprintf(out, "suggestions for %s:\n", contactID)
			for i, s := range current {
				fmt.Fprintf(out, "  [%d] (%s) %s\n", i+1, s.Kind, s.Text)
			}
		}
	default:
		fmt.Fprintf(out, "unknown command %s (/help for commands)\n", fields[0])
	}
	return false
}

func cryptoMode(p *pipeline) string {
	if p.cipher.Degraded() {
		return "degraded (plaintext)"
	}
	return "encrypted"
}

const simulateHelp = `  <text>           incoming message from the current contact
  /out <text>      your own message (observed, never suggested on)
  /typing          raise the contact's typing indicator
  /contact <name>  switch the active conversation
  /pick <n>        accept suggestion n (inserts into the input box)
  /reject <n>      dismiss suggestion n
  /status          pipeline state and current suggestions
  /quit            exit
`

// simulateUIEvents renders pipeline output above the prompt.
func simulateUIEvents(ctx context.Context, events *bus.EventBus, rl *readline.Instance) {
	out := rl.Stdout()
	for {
		ev, ok := events.SubscribeUI(ctx)
		if !ok {
			return
		}
		switch ev.Kind {
		case bus.UIShown:
			fmt.Fprintf(out, "suggestions:\n")
			for i, text := range ev.Texts {
				fmt.Fprintf(out, "  [%d] %s\n", i+1, text)
			}
		case bus.UINotice:
			fmt.Fprintf(out, "notice: %s\n", ev.Message)
		}
	}
}
