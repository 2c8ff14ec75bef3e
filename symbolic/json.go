package symbolic

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// ============================================================
// JSON Serialization
// ============================================================

// ErrBadJSON is returned by FromJSON for trees that do not describe an
// expression.
var ErrBadJSON = errors.New("symbolic: malformed expression tree")

func ToJSON(e Expr) (string, error) {
	b, err := json.Marshal(e.toJSON())
	return string(b), err
}

// Tree returns the JSON-ready tree form of e.
func Tree(e Expr) map[string]interface{} { return e.toJSON() }

// ParseJSON decodes text produced by ToJSON.
func ParseJSON(text string) (Expr, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	return FromJSON(data)
}

func FromJSON(data map[string]interface{}) (Expr, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: expression must be an object", ErrBadJSON)
	}
	typ, ok := data["type"].(string)
	if !ok || typ == "" {
		return nil, fmt.Errorf("%w: field 'type' must be a non-empty string", ErrBadJSON)
	}

	subObj := func(field string) (Expr, error) {
		m, ok := data[field].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: %s: %q must be an object", ErrBadJSON, typ, field)
		}
		e, err := FromJSON(m)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", typ, field, err)
		}
		return e, nil
	}

	subObjArray := func(field string) ([]Expr, error) {
		raw, ok := data[field].([]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: %s: %q must be an array", ErrBadJSON, typ, field)
		}
		out := make([]Expr, len(raw))
		for i, it := range raw {
			m, ok := it.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: %s: %q[%d] must be an object", ErrBadJSON, typ, field, i)
			}
			e, err := FromJSON(m)
			if err != nil {
				return nil, fmt.Errorf("%s: %s[%d]: %w", typ, field, i, err)
			}
			out[i] = e
		}
		return out, nil
	}

	subString := func(field string) (string, error) {
		s, ok := data[field].(string)
		if !ok || s == "" {
			return "", fmt.Errorf("%w: %s: %q must be a non-empty string", ErrBadJSON, typ, field)
		}
		return s, nil
	}

	switch typ {
	case "num":
		val, err := subString("value")
		if err != nil {
			return nil, err
		}
		r, ok := new(big.Rat).SetString(val)
		if !ok {
			return nil, fmt.Errorf("%w: invalid num value %q", ErrBadJSON, val)
		}
		return &Num{val: r}, nil

	case "sym":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		return S(name), nil

	case "add":
		terms, err := subObjArray("terms")
		if err != nil {
			return nil, err
		}
		return AddOf(terms...), nil

	case "mul":
		factors, err := subObjArray("factors")
		if err != nil {
			return nil, err
		}
		return MulOf(factors...), nil

	case "pow":
		base, err := subObj("base")
		if err != nil {
			return nil, err
		}
		exp, err := subObj("exp")
		if err != nil {
			return nil, err
		}
		return PowOf(base, exp), nil

	case "func":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		arg, err := subObj("arg")
		if err != nil {
			return nil, err
		}
		return funcOf(name, arg).Simplify(), nil
	}
	return nil, fmt.Errorf("%w: unknown expression type %q", ErrBadJSON, typ)
}
