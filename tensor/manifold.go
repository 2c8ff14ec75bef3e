package tensor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/njchilds90/spacetime/symbolic"
)

// Manifold is a registry of named tensors over one metric. A name maps to
// at most one tensor; the manifold owns every tensor it registers.
//
// A Manifold is not safe for concurrent use.
type Manifold struct {
	id       string
	metric   *MetricTensor
	settings Settings
	logger   *slog.Logger
	tensors  map[string]*Tensor
	order    []string
}

// Option configures a Manifold.
type Option func(*Manifold)

// WithSettings replaces DefaultSettings. Nil constants keep their defaults.
func WithSettings(s Settings) Option {
	return func(m *Manifold) {
		def := DefaultSettings()
		if s.Kappa == nil {
			s.Kappa = def.Kappa
		}
		if s.Lambda == nil {
			s.Lambda = def.Lambda
		}
		m.settings = s
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manifold) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManifold creates an empty registry over metric.
func NewManifold(metric *MetricTensor, opts ...Option) (*Manifold, error) {
	if metric == nil {
		return nil, fmt.Errorf("manifold without metric: %w", ErrDimensionMismatch)
	}
	m := &Manifold{
		id:       uuid.NewString(),
		metric:   metric,
		settings: DefaultSettings(),
		logger:   slog.Default(),
		tensors:  make(map[string]*Tensor),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("manifold_id", m.id)
	return m, nil
}

func (m *Manifold) ID() string                { return m.id }
func (m *Manifold) Metric() *MetricTensor     { return m.metric }
func (m *Manifold) Dim() int                  { return m.metric.Dim() }
func (m *Manifold) Settings() Settings        { return m.settings }
func (m *Manifold) Names() Names              { return m.settings.Names }
func (m *Manifold) Coords() *CoordinateSystem { return m.metric.Coordinates() }

// Define registers a tensor of the given kind under name. If name is taken
// it returns Duplicate and leaves the registered tensor untouched. If the
// kind's Populate fails, nothing is registered and the error is returned.
func (m *Manifold) Define(ctx context.Context, name string, kind Kind) (Status, error) {
	ctx, span := tracer.Start(ctx, "Manifold.Define",
		trace.WithAttributes(
			attribute.String("manifold_id", m.id),
			attribute.String("tensor", name),
			attribute.Int("rank", kind.Rank),
		),
	)
	defer span.End()
	start := time.Now()

	if name == "" {
		err := fmt.Errorf("define %s: empty tensor name", kind.Role)
		span.RecordError(err)
		span.SetStatus(codes.Error, "empty name")
		return 0, err
	}
	if _, ok := m.tensors[name]; ok {
		m.logger.Warn("tensor already defined", "tensor", name)
		span.SetAttributes(attribute.String("status", Duplicate.String()))
		recordDefine(ctx, name, Duplicate.String(), time.Since(start))
		return Duplicate, nil
	}

	t, err := NewTensor(m.metric, kind.Rank)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid tensor")
		return 0, fmt.Errorf("define %q: %w", name, err)
	}
	t.name = name
	if kind.Populate != nil {
		if err := kind.Populate(m, t); err != nil {
			m.logger.Error("tensor definition failed", "tensor", name, "rank", kind.Rank, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "populate failed")
			recordDefine(ctx, name, "failed", time.Since(start))
			return 0, fmt.Errorf("define %q: %w", name, err)
		}
	}
	m.tensors[name] = t
	m.order = append(m.order, name)

	elapsed := time.Since(start)
	recordComponents(ctx, name, Stats{}, t.Stats())
	recordDefine(ctx, name, Defined.String(), elapsed)
	span.SetAttributes(
		attribute.String("status", Defined.String()),
		attribute.Int("components_computed", t.Stats().Total().Computed),
	)
	m.logger.Info("tensor defined",
		"tensor", name,
		"rank", kind.Rank,
		"role", kind.Role.String(),
		"duration", elapsed,
	)
	return Defined, nil
}

// DefineKind registers kind under its Name, or under the name its role has
// in the manifold's Names.
func (m *Manifold) DefineKind(ctx context.Context, kind Kind) (Status, error) {
	name := kind.Name
	if name == "" {
		name = m.settings.Names.Of(kind.Role)
	}
	return m.Define(ctx, name, kind)
}

// Lookup returns the tensor registered under name.
func (m *Manifold) Lookup(name string) (*Tensor, error) {
	t, ok := m.tensors[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUndefinedTensor)
	}
	return t, nil
}

// Require looks a tensor up by role.
func (m *Manifold) Require(role Role) (*Tensor, error) {
	name := m.settings.Names.Of(role)
	if name == "" {
		return nil, fmt.Errorf("role %s has no name: %w", role, ErrUndefinedTensor)
	}
	return m.Lookup(name)
}

// Component is Lookup followed by Tensor.Component.
func (m *Manifold) Component(name string, v Variance, idx ...int) (symbolic.Expr, error) {
	t, err := m.Lookup(name)
	if err != nil {
		return nil, err
	}
	before := t.Stats()
	e, err := t.Component(v, idx...)
	recordComponents(context.Background(), name, before, t.Stats())
	return e, err
}

// Tensors returns the registered names in definition order.
func (m *Manifold) Tensors() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Close drops every registered tensor.
func (m *Manifold) Close() {
	m.tensors = make(map[string]*Tensor)
	m.order = nil
}
