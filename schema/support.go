package schema

import "sort"

type SupportKey struct {
	Name     string
	Required bool
	Default  string
}

type supportKeyRecord struct {
	Required bool   `mapstructure:"required"`
	Default  string `mapstructure:"default"`
}

// SupportSchema declares the defaults of support parameters.
type SupportSchema struct {
	keys []SupportKey
}

func NewSupportSchema(keys ...SupportKey) SupportSchema {
	out := append([]SupportKey(nil), keys...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return SupportSchema{keys: out}
}

func (s SupportSchema) Keys() []SupportKey {
	return append([]SupportKey(nil), s.keys...)
}

func decodeSupportSchema(raw map[string]any) (SupportSchema, error) {
	section, ok := raw["support"]
	if !ok {
		return SupportSchema{}, nil
	}
	records := map[string]supportKeyRecord{}
	if err := decodeInto(section, &records); err != nil {
		return SupportSchema{}, err
	}
	keys := make([]SupportKey, 0, len(records))
	for name, rec := range records {
		keys = append(keys, SupportKey{Name: name, Required: rec.Required, Default: rec.Default})
	}
	return NewSupportSchema(keys...), nil
}
