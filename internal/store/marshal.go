package store

import (
	"fmt"

	"github.com/roach88/configured/internal/ir"
	"github.com/roach88/configured/internal/schema"
)

// marshalConfig converts a resolved config to canonical JSON TEXT.
// A nil config (failed resolution) is stored as "null".
func marshalConfig(cfg ir.Object) (string, error) {
	var v ir.Value = ir.Null{}
	if cfg != nil {
		v = cfg
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}

// unmarshalConfig parses canonical JSON TEXT. "null" yields nil.
func unmarshalConfig(data string) (ir.Object, error) {
	if data == "" || data == "null" {
		return nil, nil
	}
	v, err := ir.ParseJSON([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("unmarshal config: expected object, got %s", ir.KindOf(v))
	}
	return obj, nil
}

// violationsValue renders violations as an ir.Array, preserving order.
func violationsValue(vs []schema.Violation) ir.Array {
	arr := make(ir.Array, len(vs))
	for i, v := range vs {
		path := make(ir.Array, len(v.Path))
		for j, p := range v.Path {
			path[j] = ir.String(p)
		}
		arr[i] = ir.Object{
			"path":    path,
			"code":    ir.String(v.Code),
			"message": ir.String(v.Message),
		}
	}
	return arr
}

func marshalViolations(vs []schema.Violation) (string, error) {
	data, err := ir.MarshalCanonical(violationsValue(vs))
	if err != nil {
		return "", fmt.Errorf("marshal violations: %w", err)
	}
	return string(data), nil
}

func unmarshalViolations(data string) ([]schema.Violation, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	v, err := ir.ParseJSON([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal violations: %w", err)
	}
	arr, ok := v.(ir.Array)
	if !ok {
		return nil, fmt.Errorf("unmarshal violations: expected list, got %s", ir.KindOf(v))
	}

	out := make([]schema.Violation, 0, len(arr))
	for i, elem := range arr {
		obj, ok := elem.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("unmarshal violations: [%d] is a %s", i, ir.KindOf(elem))
		}
		var viol schema.Violation
		if path, ok := obj["path"].(ir.Array); ok {
			for _, p := range path {
				s, _ := p.(ir.String)
				viol.Path = append(viol.Path, string(s))
			}
		}
		code, _ := obj["code"].(ir.String)
		msg, _ := obj["message"].(ir.String)
		viol.Code, viol.Message = string(code), string(msg)
		out = append(out, viol)
	}
	return out, nil
}
