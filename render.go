package meld

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Markup attributes written and read by the render pipeline.
const (
	AttrID       = "meld:id"
	AttrData     = "meld:data"
	AttrModel    = "meld:model"
	AttrChecksum = "meld:checksum"
)

// State is what the render pipeline reads from a component.
type State struct {
	ID         string
	Attributes Attributes
	Functions  map[string]any
	Data       map[string]any
	// Checksum, when set, is written to the root element as meld:checksum.
	Checksum string
}

// StateOf captures the current state of c.
func StateOf(c Component) State {
	b := c.base()
	return State{
		ID:         b.ID(),
		Attributes: b.Attributes(),
		Functions:  b.Functions(),
		Data:       b.Data(),
	}
}

// Vars returns the template variables: attributes, then actions, then
// explicit data, with later entries shadowing earlier ones.
func (s State) Vars() map[string]any {
	vars := make(map[string]any, len(s.Attributes)+len(s.Functions)+len(s.Data))
	for _, attr := range s.Attributes {
		vars[attr.Name] = attr.Value
	}
	for name, fn := range s.Functions {
		vars[name] = fn
	}
	for name, v := range s.Data {
		vars[name] = v
	}
	return vars
}

// Renderer turns a component's template output into live markup.
type Renderer struct {
	engine       Engine
	templateName func(string) string
}

// RenderOption configures a Renderer.
type RenderOption func(*Renderer)

// WithTemplateName maps a component name to its template name.
//
//	meld.WithTemplateName(func(name string) string { return "meld/" + name })
func WithTemplateName(fn func(component string) string) RenderOption {
	return func(r *Renderer) { r.templateName = fn }
}

// NewRenderer creates a renderer backed by engine.
func NewRenderer(engine Engine, opts ...RenderOption) *Renderer {
	r := &Renderer{
		engine:       engine,
		templateName: func(name string) string { return name },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TemplateName returns the template used for the named component.
func (r *Renderer) TemplateName(component string) string {
	return r.templateName(component)
}

// Render renders the named component's current state.
func (r *Renderer) Render(ctx context.Context, name string, c Component) (string, error) {
	return r.RenderState(ctx, name, StateOf(c))
}

// RenderState renders the template for name and rewrites the output:
//
//  1. the first element becomes the component root;
//  2. the root gets meld:id and meld:data (the JSON snapshot);
//  3. every descendant with meld:model="x" gets value set to x's value;
//  4. a Meld.componentInit script is appended as the root's last child.
//
// Existing attributes keep their position; new ones are appended.
func (r *Renderer) RenderState(ctx context.Context, name string, st State) (string, error) {
	vars := st.Vars()
	snapshot, err := json.Marshal(st.Attributes)
	if err != nil {
		return "", fmt.Errorf("%w: %s: snapshot: %w", ErrRenderFailed, name, err)
	}

	out, err := r.engine.Render(ctx, r.templateName(name), vars)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s: %w", ErrRenderFailed, name, err)
	}

	nodes, err := html.ParseFragment(strings.NewReader(out), fragmentContext(out))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrRenderFailed, name, err)
	}
	root := rootElement(nodes)
	if root == nil {
		return "", fmt.Errorf("%w: component %q", ErrNoRootElement, name)
	}

	setAttr(root, AttrID, st.ID)
	setAttr(root, AttrData, string(snapshot))
	if st.Checksum != "" {
		setAttr(root, AttrChecksum, st.Checksum)
	}
	bindModels(root, vars)

	script, err := initScript(st.ID, name, snapshot)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrRenderFailed, name, err)
	}
	root.AppendChild(script)

	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrRenderFailed, name, err)
		}
	}
	return buf.String(), nil
}

// fragmentContext picks the parent element the fragment is parsed under.
// Table parts only survive parsing inside their table scope.
func fragmentContext(markup string) *html.Node {
	parent := atom.Body
	z := html.NewTokenizer(strings.NewReader(markup))
scan:
	for {
		switch z.Next() {
		case html.ErrorToken, html.EndTagToken:
			break scan
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Tr:
				parent = atom.Tbody
			case atom.Td, atom.Th:
				parent = atom.Tr
			case atom.Thead, atom.Tbody, atom.Tfoot, atom.Caption, atom.Colgroup:
				parent = atom.Table
			case atom.Col:
				parent = atom.Colgroup
			}
			break scan
		}
	}
	return &html.Node{Type: html.ElementNode, Data: parent.String(), DataAtom: parent}
}

func rootElement(nodes []*html.Node) *html.Node {
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return n
		}
	}
	return nil
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// bindModels sets value on every descendant bound with meld:model to a known
// variable. Unknown names are left alone.
func bindModels(root *html.Node, vars map[string]any) {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if key, ok := getAttr(c, AttrModel); ok {
			if v, ok := vars[key]; ok {
				if s, ok := modelValue(v); ok {
					setAttr(c, "value", s)
				}
			}
		}
		bindModels(c, vars)
	}
}

func modelValue(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", true
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case fmt.Stringer:
		return x.String(), true
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Func, reflect.Chan:
		return "", false
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprint(v), true
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v), true
	}
	return string(data), true
}

func initScript(id, name string, snapshot []byte) (*html.Node, error) {
	payload, err := json.Marshal(struct {
		ID   string          `json:"id"`
		Name string          `json:"name"`
		Data json.RawMessage `json:"data"`
	}{id, name, snapshot})
	if err != nil {
		return nil, err
	}
	script := &html.Node{Type: html.ElementNode, Data: "script", DataAtom: atom.Script}
	script.AppendChild(&html.Node{
		Type: html.TextNode,
		Data: "Meld.componentInit(" + string(payload) + ");",
	})
	return script, nil
}
