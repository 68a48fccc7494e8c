package platform

import "sync"

// SyntheticPage is an in-memory Page used by the simulate REPL and by
// tests. The whole pipeline runs against it unchanged.
type SyntheticPage struct {
	mu            sync.Mutex
	url           string
	title         string
	root          *Node
	inserted      []string
	inputDisabled bool
}

func NewSyntheticPage(url, title string, root *Node) *SyntheticPage {
	return &SyntheticPage{url: url, title: title, root: root}
}

func (p *SyntheticPage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *SyntheticPage) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title
}

func (p *SyntheticPage) Root() *Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.root
}

func (p *SyntheticPage) SetInput(text string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inputDisabled {
		return false
	}
	p.inserted = append(p.inserted, text)
	return true
}

func (p *SyntheticPage) Navigate(url, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	p.title = title
}

func (p *SyntheticPage) SetRoot(root *Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.root = root
}

func (p *SyntheticPage) DisableInput(disabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inputDisabled = disabled
}

// Inserted returns a copy of everything written via SetInput.
func (p *SyntheticPage) Inserted() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.inserted...)
}
