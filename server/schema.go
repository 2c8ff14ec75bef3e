package server

import "encoding/json"

// ToolSpec returns the JSON tool schema served on GET /schema.
func ToolSpec() string {
	tools := []map[string]interface{}{
		ts("search", "Search the catalog of coordinates, metrics and tensors by terms and tag filters",
			[]string{"terms"}, map[string]string{"terms": "array", "filters": "object"}),
		ts("create_manifold", "Create a manifold from a catalog metric name, or from coordinates and components (expression strings)",
			[]string{}, map[string]string{"metric": "string", "coordinates": "array", "components": "array"}),
		ts("delete_manifold", "Drop a manifold and its tensors", []string{"id"}, map[string]string{"id": "string"}),
		ts("list", "List the tensors defined on a manifold", []string{"id"}, map[string]string{"id": "string"}),
		ts("define", "Define a field tensor (riemann, ricci, ...) or a catalog tensor set (\"everything\")",
			[]string{"id", "tensor"}, map[string]string{"id": "string", "tensor": "string"}),
		ts("component", "One component. variance is co, contra or mixed",
			[]string{"id", "tensor", "variance", "indices"},
			map[string]string{"id": "string", "tensor": "string", "variance": "string", "indices": "array"}),
		ts("report", "All nonzero components in one variance",
			[]string{"id", "tensor", "variance"},
			map[string]string{"id": "string", "tensor": "string", "variance": "string"}),
		ts("scalar", "Ricci or Kretschmann scalar", []string{"id", "scalar"}, map[string]string{"id": "string", "scalar": "string"}),
		ts("geodesic", "Trace a timelike geodesic with explicit proper-time steps. Requires connection coefficients",
			[]string{"id", "position", "velocity", "steps", "dtau"},
			map[string]string{"id": "string", "position": "array", "velocity": "array", "params": "object", "steps": "integer", "dtau": "number"}),
		ts("normalize", "Bring an expression string to rational normal form", []string{"expr"}, map[string]string{"expr": "string"}),
		ts("schema", "Return this tool schema", []string{}, map[string]string{}),
	}
	spec := map[string]interface{}{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
