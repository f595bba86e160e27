package waterfall

// Attempt records one source tried for a field.
type Attempt struct {
	Source string `json:"source"`
	Value  string `json:"value,omitempty"`
	Cached bool   `json:"cached,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Resolution is the outcome of a field's waterfall.
type Resolution struct {
	FieldKey string    `json:"field_key"`
	Value    string    `json:"value,omitempty"`
	Source   string    `json:"source,omitempty"`
	Attempts []Attempt `json:"attempts"`
}

// Resolved reports whether any source produced a value.
func (r Resolution) Resolved() bool {
	return r.Value != ""
}
