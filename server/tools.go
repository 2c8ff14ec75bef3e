package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/njchilds90/spacetime/field"
	"github.com/njchilds90/spacetime/symbolic"
	"github.com/njchilds90/spacetime/tensor"
	"github.com/njchilds90/spacetime/worldline"
)

var validate = validator.New()

type searchParams struct {
	Terms   []string        `json:"terms" validate:"required,min=1"`
	Filters map[string]bool `json:"filters"`
}

type createParams struct {
	// Metric names a catalog metric. Without it Coordinates and Components
	// give the metric literally.
	Metric      string     `json:"metric" validate:"required_without=Components"`
	Coordinates []string   `json:"coordinates" validate:"required_with=Components"`
	Components  [][]string `json:"components"`
}

type sessionParams struct {
	ID string `json:"id" validate:"required"`
}

type defineParams struct {
	ID     string `json:"id" validate:"required"`
	Tensor string `json:"tensor" validate:"required"`
}

type componentParams struct {
	ID       string `json:"id" validate:"required"`
	Tensor   string `json:"tensor" validate:"required"`
	Variance string `json:"variance" validate:"required"`
	Indices  []int  `json:"indices" validate:"required,dive,gte=0"`
}

type reportParams struct {
	ID       string `json:"id" validate:"required"`
	Tensor   string `json:"tensor" validate:"required"`
	Variance string `json:"variance" validate:"required"`
}

type scalarParams struct {
	ID     string `json:"id" validate:"required"`
	Scalar string `json:"scalar" validate:"oneof=ricci kretschmann"`
}

type geodesicParams struct {
	ID       string             `json:"id" validate:"required"`
	Position []float64          `json:"position" validate:"required"`
	Velocity []float64          `json:"velocity" validate:"required"`
	Params   map[string]float64 `json:"params"`
	Steps    int                `json:"steps" validate:"gte=1,lte=100000"`
	Dtau     float64            `json:"dtau" validate:"gt=0"`
}

type normalizeParams struct {
	Expr string `json:"expr" validate:"required"`
}

func decode(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

func fail(err error) ToolResponse { return ToolResponse{Error: err.Error()} }

func respondExpr(e symbolic.Expr) ToolResponse {
	return ToolResponse{Result: symbolic.Tree(e), LaTeX: e.LaTeX(), String: e.String()}
}

// Handle executes one tool call. Errors are reported in the response.
func (s *Server) Handle(ctx context.Context, req ToolRequest) ToolResponse {
	start := time.Now()
	resp := s.dispatch(ctx, req)
	outcome := "ok"
	if resp.Error != "" {
		outcome = "error"
		s.logger.Warn("tool call failed", "tool", req.Tool, "error", resp.Error)
	} else {
		s.logger.Debug("tool call", "tool", req.Tool, "duration", time.Since(start))
	}
	recordToolCall(ctx, req.Tool, outcome, time.Since(start))
	return resp
}

func (s *Server) dispatch(ctx context.Context, req ToolRequest) ToolResponse {
	switch req.Tool {
	case "search":
		var p searchParams
		if err := decode(req.Params, &p); err != nil {
			return fail(err)
		}
		type hit struct {
			Name  string   `json:"name"`
			Kind  string   `json:"kind"`
			Tags  []string `json:"tags"`
			Score int      `json:"score"`
		}
		hits := []hit{}
		for _, r := range s.catalog.Search(p.Terms, p.Filters) {
			hits = append(hits, hit{Name: r.Entry.Name, Kind: string(r.Entry.Kind), Tags: r.Entry.Tags, Score: r.Score})
		}
		return ToolResponse{Result: hits}

	case "create_manifold":
		var p createParams
		if err := decode(req.Params, &p); err != nil {
			return fail(err)
		}
		m, err := s.createManifold(p)
		if err != nil {
			return fail(err)
		}
		if err := s.open(m); err != nil {
			return fail(err)
		}
		s.logger.Info("manifold created", "manifold_id", m.ID(), "coordinates", m.Coords().String())
		return ToolResponse{Result: map[string]interface{}{
			"id":          m.ID(),
			"coordinates": m.Coords().Names(),
			"metric":      m.Metric().Covariant().String(),
		}, LaTeX: m.Metric().Covariant().LaTeX()}

	case "delete_manifold":
		var p sessionParams
		if err := decode(req.Params, &p); err != nil {
			return fail(err)
		}
		if err := s.drop(p.ID); err != nil {
			return fail(err)
		}
		return ToolResponse{Result: map[string]string{"deleted": p.ID}}

	case "list":
		var p sessionParams
		if err := decode(req.Params, &p); err != nil {
			return fail(err)
		}
		var names []string
		err := s.with(p.ID, func(m *tensor.Manifold) error {
			names = m.Tensors()
			return nil
		})
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: names}

	case "define":
		var p defineParams
		if err := decode(req.Params, &p); err != nil {
			return fail(err)
		}
		statuses := map[string]string{}
		err := s.with(p.ID, func(m *tensor.Manifold) error {
			kinds, err := s.catalog.Resolve(p.Tensor)
			if err != nil {
				return err
			}
			for _, k := range kinds {
				st, err := m.DefineKind(ctx, k)
				if err != nil {
					return err
				}
				statuses[m.Names().Of(k.Role)] = st.String()
			}
			return nil
		})
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: statuses}

	case "component":
		var p componentParams
		if err := decode(req.Params, &p); err != nil {
			return fail(err)
		}
		v, err := tensor.ParseVariance(p.Variance)
		if err != nil {
			return fail(err)
		}
		var e symbolic.Expr
		err = s.with(p.ID, func(m *tensor.Manifold) error {
			e, err = m.Component(ResolveName(m, p.Tensor), v, p.Indices...)
			return err
		})
		if err != nil {
			return fail(err)
		}
		return respondExpr(e)

	case "report":
		var p reportParams
		if err := decode(req.Params, &p); err != nil {
			return fail(err)
		}
		v, err := tensor.ParseVariance(p.Variance)
		if err != nil {
			return fail(err)
		}
		var rows []ReportRow
		err = s.with(p.ID, func(m *tensor.Manifold) error {
			rows, err = Report(m, ResolveName(m, p.Tensor), v)
			return err
		})
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: rows}

	case "scalar":
		var p scalarParams
		if err := decode(req.Params, &p); err != nil {
			return fail(err)
		}
		var e symbolic.Expr
		err := s.with(p.ID, func(m *tensor.Manifold) error {
			var err error
			if p.Scalar == "kretschmann" {
				e, err = field.KretschmannScalar(m)
			} else {
				e, err = field.RicciScalar(m)
			}
			return err
		})
		if err != nil {
			return fail(err)
		}
		return respondExpr(e)

	case "geodesic":
		var p geodesicParams
		if err := decode(req.Params, &p); err != nil {
			return fail(err)
		}
		var states []worldline.State
		err := s.with(p.ID, func(m *tensor.Manifold) error {
			w, err := worldline.New(m, p.Position, p.Velocity, p.Params)
			if err != nil {
				return err
			}
			states, err = w.Trace(p.Steps, p.Dtau)
			return err
		})
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: states}

	case "normalize":
		var p normalizeParams
		if err := decode(req.Params, &p); err != nil {
			return fail(err)
		}
		e, err := symbolic.Parse(p.Expr)
		if err != nil {
			return fail(err)
		}
		n, err := symbolic.NormalForm(s.units.Apply(e))
		if err != nil {
			return fail(err)
		}
		return respondExpr(n)

	case "schema":
		var spec interface{}
		_ = json.Unmarshal([]byte(ToolSpec()), &spec)
		return ToolResponse{Result: spec}
	}
	return fail(fmt.Errorf("%w: %q", ErrUnknownTool, req.Tool))
}

func (s *Server) createManifold(p createParams) (*tensor.Manifold, error) {
	var g *tensor.MetricTensor
	var err error
	if p.Metric != "" {
		g, err = s.catalog.Metric(p.Metric, s.units)
	} else {
		var cs *tensor.CoordinateSystem
		cs, err = tensor.NewCoordinateSystem(p.Coordinates...)
		if err == nil {
			g, err = tensor.ParseMetric(p.Components, cs)
		}
	}
	if err != nil {
		return nil, err
	}
	return tensor.NewManifold(g,
		tensor.WithSettings(s.units.Settings(s.names)),
		tensor.WithLogger(s.logger),
	)
}

// ResolveName maps a role alias such as "riemann" to the registry name.
func ResolveName(m *tensor.Manifold, name string) string {
	if _, err := m.Lookup(name); err == nil {
		return name
	}
	if k, ok := field.ByName(name); ok {
		return m.Names().Of(k.Role)
	}
	return name
}

// ReportRow is one nonzero component.
type ReportRow struct {
	Indices []int  `json:"indices"`
	String  string `json:"string"`
	LaTeX   string `json:"latex"`
}

// Report lists the nonzero components of a tensor in one representation.
func Report(m *tensor.Manifold, name string, v tensor.Variance) ([]ReportRow, error) {
	t, err := m.Lookup(name)
	if err != nil {
		return nil, err
	}
	rows := []ReportRow{}
	err = tensor.ForEachIndex(t.Rank(), t.Dim(), func(idx []int) error {
		e, err := m.Component(name, v, idx...)
		if err != nil {
			return err
		}
		if symbolic.IsZero(e) {
			return nil
		}
		rows = append(rows, ReportRow{
			Indices: append([]int(nil), idx...),
			String:  e.String(),
			LaTeX:   e.LaTeX(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
