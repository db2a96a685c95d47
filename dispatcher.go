package meld

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"time"

	"github.com/a-h/templ"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/pthm/meld"

// Dispatcher applies client messages to components and renders the result.
//
// Every message is handled against a fresh instance reconstructed from the
// message snapshot, so a Dispatcher holds no per-client state and is safe for
// concurrent use.
type Dispatcher struct {
	registry *Registry
	renderer *Renderer
	signer   *Signer
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. Skipped actions are logged at warn level.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithMetrics records Prometheus metrics for every message.
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithTracer sets the tracer. The default is the global OpenTelemetry
// tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = t }
}

// WithSigner enables snapshot checksums. Rendered snapshots are signed and
// messages carrying a snapshot must present a valid checksum.
func WithSigner(s *Signer) Option {
	return func(d *Dispatcher) { d.signer = s }
}

// NewDispatcher creates a dispatcher for the components in reg.
func NewDispatcher(reg *Registry, renderer *Renderer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: reg,
		renderer: renderer,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the dispatcher's component registry.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Renderer returns the dispatcher's renderer.
func (d *Dispatcher) Renderer() *Renderer { return d.renderer }

// Process handles one message:
//
//  1. the component is constructed from the message id and snapshot;
//  2. the actions are applied in order;
//  3. the component is rendered and its new snapshot returned.
//
// Unknown attributes, unknown methods, argument mismatches and unknown
// action types are logged and skipped. A method that returns an error or
// panics aborts the message with ErrActionFailed.
func (d *Dispatcher) Process(ctx context.Context, msg *Message) (resp *Response, err error) {
	start := time.Now()
	label := "unknown"
	ctx, span := d.tracer.Start(ctx, "meld.Process", trace.WithSpanKind(trace.SpanKindServer))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		d.metrics.message(label, start, err)
	}()

	if err := msg.Validate(); err != nil {
		return nil, err
	}
	name, err := d.registry.Resolve(msg.ComponentName)
	if err != nil {
		return nil, err
	}
	label = name
	span.SetAttributes(
		attribute.String("meld.component", name),
		attribute.String("meld.id", msg.ID),
		attribute.Int("meld.actions", len(msg.Actions())),
	)

	if d.signer != nil && len(msg.Data) > 0 {
		if err := d.signer.Verify(msg.Data, msg.Checksum); err != nil {
			return nil, wrapEncodingError(err)
		}
	}

	logger := d.logger.With("component", name)
	c, err := d.registry.instantiate(ctx, name, msg.ID, msg.Data, d.logger)
	if err != nil {
		return nil, err
	}
	logger = logger.With("id", c.base().ID())

	for _, a := range msg.Actions() {
		if err := d.apply(ctx, logger, name, c, a); err != nil {
			return nil, err
		}
	}
	return d.respond(ctx, name, c)
}

// Mount creates a fresh instance of the named component and renders it.
// This is the initial, server-side render of a component on a page.
func (d *Dispatcher) Mount(ctx context.Context, name string) (*Response, error) {
	key, err := d.registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	c, err := d.registry.instantiate(ctx, key, "", nil, d.logger)
	if err != nil {
		return nil, err
	}
	return d.respond(ctx, key, c)
}

// Templ returns a templ component that mounts and renders the named
// component, for embedding in templ layouts.
func (d *Dispatcher) Templ(name string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		resp, err := d.Mount(ctx, name)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, resp.DOM)
		return err
	})
}

// FuncMap returns html/template functions for page templates:
//
//	{{ meld "counter" }}
func (d *Dispatcher) FuncMap() template.FuncMap {
	return template.FuncMap{
		"meld": func(name string) (template.HTML, error) {
			resp, err := d.Mount(context.Background(), name)
			if err != nil {
				return "", err
			}
			return template.HTML(resp.DOM), nil
		},
	}
}

func (d *Dispatcher) respond(ctx context.Context, name string, c Component) (*Response, error) {
	st := StateOf(c)
	if d.signer != nil {
		sum, err := d.signer.Sign(st.Attributes)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: checksum: %w", ErrRenderFailed, name, err)
		}
		st.Checksum = sum
	}
	dom, err := d.renderer.RenderState(ctx, name, st)
	if err != nil {
		return nil, err
	}
	return &Response{ID: st.ID, DOM: dom, Data: st.Attributes, Checksum: st.Checksum}, nil
}

func (d *Dispatcher) apply(ctx context.Context, logger *slog.Logger, name string, c Component, a Action) error {
	ctx, span := d.tracer.Start(ctx, "meld.Action", trace.WithAttributes(
		attribute.String("meld.action.type", string(a.Type)),
		attribute.String("meld.action.name", a.Payload.Name),
	))
	defer span.End()

	switch a.Type {
	case ActionSyncInput:
		d.syncInput(logger, name, c, a.Payload)
		return nil
	case ActionCallMethod:
		err := d.callMethod(ctx, logger, name, c, a.Payload.Name)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	default:
		logger.Warn("unknown action type, skipping", "type", a.Type)
		d.metrics.action(name, a.Type, outcomeSkipped)
		return nil
	}
}

func (d *Dispatcher) syncInput(logger *slog.Logger, name string, c Component, p Payload) {
	b := c.base()
	if p.Name == errorsAttr || !b.Has(p.Name) {
		logger.Warn("sync for unknown attribute, skipping", "attribute", p.Name)
		d.metrics.action(name, ActionSyncInput, outcomeSkipped)
		return
	}
	if err := b.Set(p.Name, p.Value); err != nil {
		logger.Warn("sync value rejected, skipping", "attribute", p.Name, "error", err)
		d.metrics.action(name, ActionSyncInput, outcomeSkipped)
		return
	}

	field := p.Name
	form := b.Form()
	if form != nil && form.Has(field) {
		if err := form.Set(field, p.Value); err != nil {
			logger.Warn("form field not updated", "field", field, "error", err)
		}
	}
	if u, ok := c.(Updater); ok {
		u.Updated(field)
	}
	if form != nil && form.Has(field) {
		b.errors.Set(field, form.FieldErrors(field))
	}
	d.metrics.action(name, ActionSyncInput, outcomeApplied)
}

func (d *Dispatcher) callMethod(ctx context.Context, logger *slog.Logger, name string, c Component, expr string) error {
	b := c.base()
	method, args := ParseCall(expr)
	act, ok := b.desc.action(method)
	if !ok {
		logger.Warn("call to unknown method, skipping", "method", method)
		d.metrics.action(name, ActionCallMethod, outcomeSkipped)
		return nil
	}

	err := b.invoke(ctx, act, args)
	switch {
	case errors.Is(err, errArguments):
		logger.Warn("call arguments rejected, skipping", "method", act.name, "error", err)
		d.metrics.action(name, ActionCallMethod, outcomeSkipped)
		return nil
	case err != nil:
		logger.Error("method failed", "method", act.name, "error", err)
		d.metrics.action(name, ActionCallMethod, outcomeFailed)
		return err
	}

	b.bindForm(logger)
	d.metrics.action(name, ActionCallMethod, outcomeApplied)
	return nil
}
