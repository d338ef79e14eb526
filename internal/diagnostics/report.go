package diagnostics

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Report is a flat fact-name → value mapping that keeps insertion order,
// including when encoded as JSON.
type Report struct {
	facts *orderedmap.OrderedMap[string, string]
}

// NewReport creates an empty report
func NewReport() *Report {
	return &Report{facts: orderedmap.New[string, string]()}
}

// Set stores a fact. Re-setting a key keeps its original position.
func (r *Report) Set(key, value string) {
	r.facts.Set(key, value)
}

// Get returns a fact and whether it is present
func (r *Report) Get(key string) (string, bool) {
	return r.facts.Get(key)
}

// Len returns the number of facts
func (r *Report) Len() int {
	return r.facts.Len()
}

// Keys returns fact names in insertion order
func (r *Report) Keys() []string {
	keys := make([]string, 0, r.facts.Len())
	for pair := r.facts.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Delete removes a fact
func (r *Report) Delete(key string) {
	r.facts.Delete(key)
}

func (r *Report) MarshalJSON() ([]byte, error) {
	return r.facts.MarshalJSON()
}

func (r *Report) UnmarshalJSON(data []byte) error {
	r.facts = orderedmap.New[string, string]()
	return r.facts.UnmarshalJSON(data)
}
