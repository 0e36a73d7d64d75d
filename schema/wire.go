package schema

// ToWire converts a schema into the JSON-Schema-like descriptor that
// providers accept for function parameters and structured output.
// Objects carry a properties map plus a required list naming exactly
// the fields that are not optional-wrapped. Kinds the wire format
// cannot express degrade to an open object rather than failing, since
// advertising something to the model beats refusing the request.
func ToWire(s *Schema) map[string]any {
	if s == nil {
		return map[string]any{"type": "object"}
	}

	wire := toWire(s)
	if s.Description != "" {
		wire["description"] = s.Description
	}
	return wire
}

func toWire(s *Schema) map[string]any {
	switch s.Kind {
	case KindString:
		return withDesc(s, map[string]any{"type": "string"})
	case KindNumber:
		return withDesc(s, map[string]any{"type": "number"})
	case KindBoolean:
		return withDesc(s, map[string]any{"type": "boolean"})
	case KindArray:
		items := map[string]any{"type": "string"}
		if s.Elem != nil {
			items = toWire(s.Elem)
		}
		return withDesc(s, map[string]any{"type": "array", "items": items})
	case KindObject:
		properties := make(map[string]any, len(s.Fields))
		required := make([]string, 0, len(s.Fields))
		for _, f := range s.Fields {
			properties[f.Name] = toWire(f.Schema)
			if !f.Schema.IsOptional() {
				required = append(required, f.Name)
			}
		}
		return withDesc(s, map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		})
	case KindEnum:
		values := make([]any, len(s.Values))
		for i, v := range s.Values {
			values[i] = v
		}
		return withDesc(s, map[string]any{"type": "string", "enum": values})
	case KindOptional:
		if s.Elem == nil {
			return map[string]any{"type": "object"}
		}
		wire := toWire(s.Elem)
		if s.Description != "" {
			wire["description"] = s.Description
		}
		return wire
	case KindUnion:
		variants := make([]any, len(s.Variants))
		for i, v := range s.Variants {
			variants[i] = toWire(v)
		}
		return withDesc(s, map[string]any{"oneOf": variants})
	case KindLiteral:
		return withDesc(s, map[string]any{"const": s.Value})
	default:
		// Lossy fallback for kinds the wire format cannot express
		return map[string]any{"type": "object"}
	}
}

func withDesc(s *Schema, wire map[string]any) map[string]any {
	if s.Description != "" {
		wire["description"] = s.Description
	}
	return wire
}
