// Package browsertest provides a scripted in-memory DOM that satisfies the
// ports browser interfaces, for exercising the resolver, the synchronizer
// and the workflow without a real browser.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"visa-rescheduler/internal/entity"
	"visa-rescheduler/internal/ports"
)

// Node is a fake DOM node. Children are keyed by the exact selector string
// that matches them inside this node's scope.
type Node struct {
	mu sync.Mutex

	Name     string
	children map[string]*Node
	shadow   *Node

	Hidden bool
	// ConnectAfter makes IsConnected report false for that many calls.
	ConnectAfter int
	// OffScreen nodes are outside the viewport until scrolled.
	OffScreen bool
	// ScrollIgnored nodes stay off screen even after a scroll.
	ScrollIgnored bool

	DOMType     string
	Value       string
	TextContent string
	ParentAttrs map[string]string

	QueryErr error
	ClickErr error
	OnClick  func()

	Clicks     int
	LastOffset *entity.Offset
	Typed      string
	Scrolls    int
	Focused    bool
	Events     []string
	connChecks int
}

func NewNode(name string) *Node {
	return &Node{Name: name, children: map[string]*Node{}}
}

// Add attaches child under selector and returns child.
func (n *Node) Add(selector string, child *Node) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.children[selector] = child

	return child
}

// Remove detaches whatever matches selector.
func (n *Node) Remove(selector string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.children, selector)
}

// AttachShadow gives the node an open shadow root and returns it.
func (n *Node) AttachShadow() *Node {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.shadow = NewNode(n.Name + "#shadow")

	return n.shadow
}

// AddPath creates (or reuses) one node per selector in group, each nested in
// the previous one's scope, and returns the last.
func (n *Node) AddPath(group entity.SelectorGroup, leaf *Node) *Node {
	cur := n

	for i, sel := range group {
		if i == len(group)-1 {
			return cur.Add(sel, leaf)
		}

		cur.mu.Lock()
		next, ok := cur.children[sel]
		cur.mu.Unlock()

		if !ok {
			next = cur.Add(sel, NewNode(sel))
		}

		cur = next
	}

	return leaf
}

func (n *Node) QuerySelector(ctx context.Context, selector string) (ports.Element, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.QueryErr != nil {
		return nil, n.QueryErr
	}

	child, ok := n.children[selector]
	if !ok {
		return nil, nil
	}

	return child, nil
}

func (n *Node) ShadowScope(ctx context.Context) (ports.Scope, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.shadow != nil {
		return n.shadow, nil
	}

	return n, nil
}

func (n *Node) IsVisible(ctx context.Context) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return !n.Hidden, nil
}

func (n *Node) IsConnected(ctx context.Context) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.connChecks++

	return n.connChecks > n.ConnectAfter, nil
}

func (n *Node) IsInViewport(ctx context.Context) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return !n.OffScreen, nil
}

func (n *Node) ScrollIntoCenter(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.Scrolls++
	if !n.ScrollIgnored {
		n.OffScreen = false
	}

	return nil
}

func (n *Node) Click(ctx context.Context, offset *entity.Offset) error {
	n.mu.Lock()
	if n.ClickErr != nil {
		err := n.ClickErr
		n.mu.Unlock()

		return err
	}

	n.Clicks++
	n.LastOffset = offset
	hook := n.OnClick
	n.mu.Unlock()

	if hook != nil {
		hook()
	}

	return nil
}

func (n *Node) Focus(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.Focused = true

	return nil
}

func (n *Node) Type(ctx context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.Typed += text
	n.Value += text

	return nil
}

func (n *Node) InputType(ctx context.Context) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.DOMType, nil
}

func (n *Node) SetValue(ctx context.Context, value string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.Value = value
	n.Events = append(n.Events, "input", "change")

	return nil
}

func (n *Node) Text(ctx context.Context) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.TextContent, nil
}

func (n *Node) ParentAttribute(ctx context.Context, name string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.ParentAttrs[name], nil
}

// Snapshot returns copies of the counters under lock.
func (n *Node) Snapshot() (clicks int, typed, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.Clicks, n.Typed, n.Value
}

// Response scripts what Goto returns for a URL.
type Response struct {
	Status int
	Body   string
	Err    error
}

// Page is a fake page whose document root is a Node.
type Page struct {
	*Node

	mu        sync.Mutex
	responses map[string]Response
	Visited   []string
	Headers   []map[string]string
	Keys      []string
	Selected  map[string]string
	Chosen    map[string]int
	Navigated int
	Closed    bool
}

func NewPage() *Page {
	return &Page{
		Node:      NewNode("document"),
		responses: map[string]Response{},
		Selected:  map[string]string{},
		Chosen:    map[string]int{},
	}
}

// Respond scripts the response for every URL that starts with prefix.
func (p *Page) Respond(prefix string, r Response) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.responses[prefix] = r
}

func (p *Page) Goto(ctx context.Context, url string) (*entity.PageResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Visited = append(p.Visited, url)

	best := ""
	for prefix := range p.responses {
		if strings.HasPrefix(url, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}

	r, ok := p.responses[best]
	if !ok {
		return &entity.PageResponse{URL: url, Status: 200}, nil
	}

	if r.Err != nil {
		return nil, r.Err
	}

	status := r.Status
	if status == 0 {
		status = 200
	}

	return &entity.PageResponse{URL: url, Status: status, Body: []byte(r.Body)}, nil
}

func (p *Page) SetExtraHTTPHeaders(ctx context.Context, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cp := make(map[string]string, len(headers))
	for k, v := range headers {
		cp[k] = v
	}

	p.Headers = append(p.Headers, cp)

	return nil
}

func (p *Page) SelectOption(ctx context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Selected[selector] = value

	return nil
}

func (p *Page) ChooseOptionAt(ctx context.Context, selector string, index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Chosen[selector] = index

	return nil
}

func (p *Page) PressKey(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Keys = append(p.Keys, key)

	return nil
}

func (p *Page) ClickAndWaitForNavigation(ctx context.Context, el ports.Element, offset *entity.Offset) error {
	if err := el.Click(ctx, offset); err != nil {
		return err
	}

	p.mu.Lock()
	p.Navigated++
	p.mu.Unlock()

	return nil
}

func (p *Page) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Closed = true

	return nil
}

func (p *Page) VisitedURLs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.Visited...)
}

// Session hands out a single scripted page.
type Session struct {
	mu       sync.Mutex
	page     *Page
	Closed   bool
	NewErr   error
	closeErr error
}

func (s *Session) NewPage(ctx context.Context) (ports.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.NewErr != nil {
		return nil, s.NewErr
	}

	return s.page, nil
}

func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		_ = s.page.Close(ctx)
	}

	s.Closed = true

	return s.closeErr
}

func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.Closed
}

// Launcher builds a fresh page per launch with Build.
type Launcher struct {
	mu       sync.Mutex
	Build    func(n int) *Page
	Sessions []*Session
	Err      error
}

func (l *Launcher) Launch(ctx context.Context) (ports.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Err != nil {
		return nil, l.Err
	}

	n := len(l.Sessions)

	var p *Page
	if l.Build != nil {
		p = l.Build(n)
	}

	if p == nil {
		p = NewPage()
	}

	s := &Session{page: p}
	l.Sessions = append(l.Sessions, s)

	return s, nil
}

// Launches reports how many sessions were opened.
func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.Sessions)
}

// AllClosed reports whether every opened session has been closed.
func (l *Launcher) AllClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range l.Sessions {
		if !s.IsClosed() {
			return false
		}
	}

	return true
}

// Notifier records every message.
type Notifier struct {
	mu       sync.Mutex
	Messages []string
	Err      error
}

func (n *Notifier) Notify(ctx context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.Messages = append(n.Messages, message)

	return n.Err
}

func (n *Notifier) Sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.Messages...)
}

// PauseRegistry is an in-memory pause record.
type PauseRegistry struct {
	mu      sync.Mutex
	Content string
	Writes  int
}

func (r *PauseRegistry) IsPaused(ctx context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return username != "" && strings.Contains(r.Content, username), nil
}

func (r *PauseRegistry) MarkPaused(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Content += fmt.Sprintln(username)
	r.Writes++

	return nil
}
