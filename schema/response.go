package schema

import "maps"

// ResponseSchemas maps a schema name to its client-key -> handler-key
// mapping.
type ResponseSchemas struct {
	schemas map[string]map[string]string
}

func NewResponseSchemas(schemas map[string]map[string]string) ResponseSchemas {
	out := make(map[string]map[string]string, len(schemas))
	for name, mapping := range schemas {
		out[name] = maps.Clone(mapping)
	}
	return ResponseSchemas{schemas: out}
}

// Lookup returns a copy of the named mapping.
func (r ResponseSchemas) Lookup(name string) (map[string]string, bool) {
	mapping, ok := r.schemas[name]
	if !ok {
		return nil, false
	}
	return maps.Clone(mapping), true
}

func (r ResponseSchemas) Len() int {
	return len(r.schemas)
}

func decodeResponseSchemas(raw map[string]any) (ResponseSchemas, error) {
	schemas := map[string]map[string]string{}
	if err := decodeInto(raw, &schemas); err != nil {
		return ResponseSchemas{}, err
	}
	return ResponseSchemas{schemas: schemas}, nil
}
