// Package variable holds the Event type and its VariableStore: the
// typed per-event variable bag and (base, current) weight pair that
// every other package in the core operates on.
package variable

// VariableStore is an ordered, named bag of per-event variables. Scalar
// variables are stored as a single-element slice; vector variables keep
// their full per-event array, giving callers per-event-array access
// without a second type.
type VariableStore struct {
	names  []string
	values map[string][]float64
	frozen bool
}

// NewVariableStore builds an empty, mutable VariableStore.
func NewVariableStore() *VariableStore {
	return &VariableStore{values: make(map[string][]float64)}
}

// Set assigns a variable's values. Panics if the store is frozen; this
// is a programmer error (loading after Freeze), not a runtime condition.
func (v *VariableStore) Set(name string, values []float64) {
	if v.frozen {
		panic("variable: Set called on a frozen VariableStore")
	}
	if _, exists := v.values[name]; !exists {
		v.names = append(v.names, name)
	}
	v.values[name] = values
}

// SetScalar is a convenience for Set(name, []float64{x}).
func (v *VariableStore) SetScalar(name string, x float64) {
	v.Set(name, []float64{x})
}

// Freeze marks the store immutable. Called once after an event finishes
// loading; every subsequent Set panics.
func (v *VariableStore) Freeze() {
	v.frozen = true
}

// Frozen reports whether Freeze has been called.
func (v *VariableStore) Frozen() bool { return v.frozen }

// Scalar returns a variable's first element and whether it exists.
func (v *VariableStore) Scalar(name string) (float64, bool) {
	vals, ok := v.values[name]
	if !ok || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

// Array returns a variable's full per-event array and whether it exists.
// The returned slice must not be mutated by the caller.
func (v *VariableStore) Array(name string) ([]float64, bool) {
	vals, ok := v.values[name]
	return vals, ok
}

// Names returns the variables in insertion order.
func (v *VariableStore) Names() []string {
	return v.names
}

// Event is one simulated or observed entry: its dataset origin, its
// assigned sample/bin, its (base, current) weight pair, and its frozen
// variable bag.
type Event struct {
	DatasetIndex int
	EntryID      int64
	SampleIndex  int
	BinIndex     int // -1 iff the event fails all bins

	BaseWeight    float64
	CurrentWeight float64

	Variables *VariableStore
}

// NewEvent builds an Event with BinIndex unassigned (-1) and both
// weights equal to baseWeight, satisfying P1 (current == base after
// reset) at construction time too.
func NewEvent(datasetIndex int, entryID int64, baseWeight float64, vars *VariableStore) *Event {
	return &Event{
		DatasetIndex:  datasetIndex,
		EntryID:       entryID,
		SampleIndex:   -1,
		BinIndex:      -1,
		BaseWeight:    baseWeight,
		CurrentWeight: baseWeight,
		Variables:     vars,
	}
}

// ResetWeight sets CurrentWeight back to BaseWeight, the first step of
// every Propagator.propagateParameters pass.
func (e *Event) ResetWeight() {
	e.CurrentWeight = e.BaseWeight
}

// ApplyResponse multiplies the current weight by one dial response.
func (e *Event) ApplyResponse(response float64) {
	e.CurrentWeight *= response
}

// IsBinned reports whether the event was assigned to a bin.
func (e *Event) IsBinned() bool {
	return e.BinIndex >= 0
}
