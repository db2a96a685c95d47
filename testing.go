package meld

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
)

// TestResult holds the result of processing a message or rendering a
// component for testing.
//
// Provides convenience methods for asserting on HTML content, the root
// element's attributes and the returned snapshot.
type TestResult struct {
	ID       string
	HTML     string
	Data     Attributes
	Checksum string
}

func newTestResult(resp *Response) *TestResult {
	return &TestResult{
		ID:       resp.ID,
		HTML:     resp.DOM,
		Data:     resp.Data,
		Checksum: resp.Checksum,
	}
}

// TestRender renders a component and returns testable output.
//
// Use this for unit tests of templates when you control the component's
// state directly. The component is mounted first if it has not been:
//
//	c, _ := meld.Mount(ctx, &Counter{Count: 2}, "c1", nil)
//	result, err := meld.TestRender(renderer, "counter", c)
//	if !result.HTMLContains("2") {
//	    t.Fatal("missing count")
//	}
func TestRender(r *Renderer, name string, c Component) (*TestResult, error) {
	return TestRenderWithContext(context.Background(), r, name, c)
}

// TestRenderWithContext renders a component with a custom context.
func TestRenderWithContext(ctx context.Context, r *Renderer, name string, c Component) (*TestResult, error) {
	if c.base().desc == nil {
		if err := mount(ctx, c, "", nil, slog.New(slog.DiscardHandler)); err != nil {
			return nil, err
		}
	}
	st := StateOf(c)
	dom, err := r.RenderState(ctx, name, st)
	if err != nil {
		return nil, err
	}
	return &TestResult{ID: st.ID, HTML: dom, Data: st.Attributes}, nil
}

// HTMLContains checks if the HTML output contains the given substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the HTML output contains all given substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// Value returns a snapshot value by attribute name.
func (r *TestResult) Value(name string) any {
	v, _ := r.Data.Get(name)
	return v
}

// RootAttr returns an attribute of the rendered root element.
func (r *TestResult) RootAttr(key string) (string, bool) {
	root := r.root()
	if root == nil {
		return "", false
	}
	return getAttr(root, key)
}

// RootAttrKeys returns the root element's attribute names in document order.
func (r *TestResult) RootAttrKeys() []string {
	root := r.root()
	if root == nil {
		return nil
	}
	keys := make([]string, len(root.Attr))
	for i, a := range root.Attr {
		keys[i] = a.Key
	}
	return keys
}

// ModelValue returns the value attribute of the first element bound to name
// with meld:model.
func (r *TestResult) ModelValue(name string) (string, bool) {
	root := r.root()
	if root == nil {
		return "", false
	}
	var find func(n *html.Node) (string, bool)
	find = func(n *html.Node) (string, bool) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if m, ok := getAttr(c, AttrModel); ok && m == name {
				return getAttr(c, "value")
			}
			if v, ok := find(c); ok {
				return v, true
			}
		}
		return "", false
	}
	return find(root)
}

func (r *TestResult) root() *html.Node {
	nodes, err := html.ParseFragment(strings.NewReader(r.HTML), fragmentContext(r.HTML))
	if err != nil {
		return nil
	}
	return rootElement(nodes)
}

// TestMessageBuilder provides a fluent API for building test messages.
//
//	result, err := meld.NewTestMessage("counter").
//	    WithID("c1").
//	    WithData("count", 1).
//	    Call("add", 2).
//	    Execute(dispatcher)
type TestMessageBuilder struct {
	msg Message
	ctx context.Context
}

// NewTestMessage creates a message builder for the named component.
func NewTestMessage(component string) *TestMessageBuilder {
	return &TestMessageBuilder{
		msg: Message{ComponentName: component, Data: map[string]any{}},
		ctx: context.Background(),
	}
}

// WithID sets the component id.
func (b *TestMessageBuilder) WithID(id string) *TestMessageBuilder {
	b.msg.ID = id
	return b
}

// WithData adds a snapshot value.
func (b *TestMessageBuilder) WithData(key string, value any) *TestMessageBuilder {
	b.msg.Data[key] = value
	return b
}

// WithSnapshot adds every value of a previous response's snapshot.
func (b *TestMessageBuilder) WithSnapshot(data Attributes) *TestMessageBuilder {
	for _, attr := range data {
		b.msg.Data[attr.Name] = attr.Value
	}
	return b
}

// WithChecksum sets the snapshot checksum.
func (b *TestMessageBuilder) WithChecksum(sum string) *TestMessageBuilder {
	b.msg.Checksum = sum
	return b
}

// Sync queues an input sync.
func (b *TestMessageBuilder) Sync(name string, value any) *TestMessageBuilder {
	b.msg.ActionQueue = append(b.msg.ActionQueue, SyncInput(name, value))
	return b
}

// Call queues a method call with literal arguments.
func (b *TestMessageBuilder) Call(method string, args ...any) *TestMessageBuilder {
	b.msg.ActionQueue = append(b.msg.ActionQueue, Call(method, args...))
	return b
}

// CallRaw queues a method call from a raw call expression.
func (b *TestMessageBuilder) CallRaw(expr string) *TestMessageBuilder {
	b.msg.ActionQueue = append(b.msg.ActionQueue, CallMethod(expr))
	return b
}

// WithContext sets the context for processing.
func (b *TestMessageBuilder) WithContext(ctx context.Context) *TestMessageBuilder {
	b.ctx = ctx
	return b
}

// Message returns a copy of the built message.
func (b *TestMessageBuilder) Message() *Message {
	msg := b.msg
	msg.ActionQueue = append([]Action(nil), b.msg.ActionQueue...)
	msg.Data = make(map[string]any, len(b.msg.Data))
	for k, v := range b.msg.Data {
		msg.Data[k] = v
	}
	return &msg
}

// Execute processes the message with d.
func (b *TestMessageBuilder) Execute(d *Dispatcher) (*TestResult, error) {
	resp, err := d.Process(b.ctx, b.Message())
	if err != nil {
		return nil, err
	}
	return newTestResult(resp), nil
}
