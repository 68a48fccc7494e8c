package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/smartreplyhq/smartreply/pkg/feed"
	"github.com/smartreplyhq/smartreply/pkg/logger"
	"github.com/smartreplyhq/smartreply/pkg/platform"
)

// The run command consumes the host shell's structural change feed as
// JSON lines. The first frame must be a page snapshot; mutation and
// navigate frames follow as the surface changes.
type feedFrame struct {
	Kind  string       `json:"kind"` // "page", "mutation", "navigate"
	URL   string       `json:"url,omitempty"`
	Title string       `json:"title,omitempty"`
	Root  *nodeFrame   `json:"root,omitempty"`
	Added []*nodeFrame `json:"added,omitempty"`
	Attrs []*nodeFrame `json:"attrs,omitempty"`
}

type nodeFrame struct {
	Tag      string            `json:"tag"`
	Classes  []string          `json:"classes,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Text     string            `json:"text,omitempty"`
	Children []*nodeFrame      `json:"children,omitempty"`
}

func (n *nodeFrame) toNode() *platform.Node {
	if n == nil {
		return nil
	}
	node := &platform.Node{
		Tag:     n.Tag,
		Classes: n.Classes,
		Attrs:   n.Attrs,
		Text:    n.Text,
	}
	for _, child := range n.Children {
		node.Children = append(node.Children, child.toNode())
	}
	return node
}

func toNodes(frames []*nodeFrame) []*platform.Node {
	nodes := make([]*platform.Node, 0, len(frames))
	for _, f := range frames {
		if f != nil {
			nodes = append(nodes, f.toNode())
		}
	}
	return nodes
}

// readPageFrame blocks until the initial page snapshot arrives.
func readPageFrame(r *bufio.Reader) (*platform.SyntheticPage, error) {
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read page frame: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var frame feedFrame
		if err := json.Unmarshal([]byte(line), &frame); err != nil {
			return nil, fmt.Errorf("parse page frame: %w", err)
		}
		if frame.Kind != "page" {
			return nil, fmt.Errorf("expected page frame first, got %q", frame.Kind)
		}
		return platform.NewSyntheticPage(frame.URL, frame.Title, frame.Root.toNode()), nil
	}
}

// pumpFeed drives the observer from the frame stream until EOF.
func pumpFeed(r *bufio.Reader, page *platform.SyntheticPage, p *pipeline) error {
	for {
		line, err := r.ReadString('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read feed: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var frame feedFrame
		if err := json.Unmarshal([]byte(line), &frame); err != nil {
			logger.WarnCF("main", "Skipping malformed feed frame", map[string]any{"error": err.Error()})
			continue
		}

		switch frame.Kind {
		case "mutation":
			p.observer.Process(feed.Mutation{
				Added:            toNodes(frame.Added),
				AttributeTargets: toNodes(frame.Attrs),
			})
		case "navigate":
			page.Navigate(frame.URL, frame.Title)
			if frame.Root != nil {
				page.SetRoot(frame.Root.toNode())
			}
			p.resolver.Reset()
			adapter, err := p.resolver.Resolve()
			if err != nil {
				logger.WarnCF("main", "Re-resolution failed after navigation", map[string]any{
					"url": frame.URL,
				})
				continue
			}
			if adapter.Platform() != p.adapter.Platform() {
				// Cross-platform navigation needs a fresh pipeline.
				logger.WarnCF("main", "Platform changed, restart required", map[string]any{
					"was": p.adapter.Platform(),
					"now": adapter.Platform(),
				})
				continue
			}
			p.observer.SyncContact()
		case "page":
			page.Navigate(frame.URL, frame.Title)
			page.SetRoot(frame.Root.toNode())
		default:
			logger.WarnCF("main", "Unknown feed frame kind", map[string]any{"kind": frame.Kind})
		}
	}
}
