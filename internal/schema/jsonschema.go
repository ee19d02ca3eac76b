package schema

import "google.golang.org/protobuf/reflect/protoreflect"

// projectJSONSchema recursively walks message fields, mapping each
// protoreflect Kind onto its JSON-Schema equivalent. A message type that
// recurs inside its own fields is projected as a bare object at the point
// where it recurs.
func projectJSONSchema(desc protoreflect.MessageDescriptor) map[string]any {
	return projectMessage(desc, make(map[protoreflect.FullName]bool))
}

func projectMessage(desc protoreflect.MessageDescriptor, visiting map[protoreflect.FullName]bool) map[string]any {
	if visiting[desc.FullName()] {
		return map[string]any{"type": "object"}
	}
	visiting[desc.FullName()] = true
	defer delete(visiting, desc.FullName())

	properties := make(map[string]any)
	fields := desc.Fields()
	for i := 0; i < fields.Len(); i++ {
		f := fields.Get(i)
		properties[string(f.Name())] = projectField(f, visiting)
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}

func projectField(f protoreflect.FieldDescriptor, visiting map[protoreflect.FullName]bool) map[string]any {
	base := projectKind(f, visiting)
	if f.IsList() {
		return map[string]any{
			"type":  "array",
			"items": base,
		}
	}
	return base
}

func projectKind(f protoreflect.FieldDescriptor, visiting map[protoreflect.FullName]bool) map[string]any {
	switch f.Kind() {
	case protoreflect.Int32Kind, protoreflect.Int64Kind,
		protoreflect.Uint32Kind, protoreflect.Uint64Kind,
		protoreflect.Sint32Kind, protoreflect.Sint64Kind,
		protoreflect.Fixed32Kind, protoreflect.Fixed64Kind,
		protoreflect.Sfixed32Kind, protoreflect.Sfixed64Kind:
		return map[string]any{"type": "integer"}
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		return map[string]any{"type": "number"}
	case protoreflect.BoolKind:
		return map[string]any{"type": "boolean"}
	case protoreflect.StringKind, protoreflect.BytesKind:
		return map[string]any{"type": "string"}
	case protoreflect.EnumKind:
		values := f.Enum().Values()
		names := make([]string, values.Len())
		for i := 0; i < values.Len(); i++ {
			names[i] = string(values.Get(i).Name())
		}
		return map[string]any{"type": "string", "enum": names}
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return projectMessage(f.Message(), visiting)
	default:
		return map[string]any{"type": "string"}
	}
}
