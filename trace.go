package subst

import (
	"encoding/json"
)

// Trace captures, for one key, what every layer of a Stack holds. Layers are
// listed strongest first.
type Trace struct {
	Key    string       `json:"key"`
	Layers []Provenance `json:"layers"`
}

// Provenance details how a specific scope contributed to a traced key.
type Provenance struct {
	Scope Scope  `json:"scope"`
	Value string `json:"value,omitempty"`
	Found bool   `json:"found"`
}

// Trace reports the raw, unsubstituted value each layer holds for key.
func (s *Stack) Trace(key string) Trace {
	trace := Trace{Key: key}
	if s == nil {
		return trace
	}
	trace.Layers = make([]Provenance, 0, len(s.layers))
	for _, layer := range s.layers {
		value, ok := layer.Source.Get(key)
		trace.Layers = append(trace.Layers, Provenance{
			Scope: layer.Scope.clone(),
			Value: value,
			Found: ok,
		})
	}
	return trace
}

// Effective returns the provenance of the layer that wins for the key.
func (t Trace) Effective() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found {
			return layer, true
		}
	}
	return Provenance{}, false
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
