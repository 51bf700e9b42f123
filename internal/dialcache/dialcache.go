// Package dialcache builds the per-event {parameter → applicable Dial}
// table once, up front, turning the hot reweighting loop's
// O(events × params × dials) search into O(events × cachedDials)
// pointer chasing.
package dialcache

import (
	"github.com/nuwisp/gundam-go/internal/dial"
	"github.com/nuwisp/gundam-go/internal/fitparam"
	"github.com/nuwisp/gundam-go/internal/variable"
)

// Slot is one cached (parameterSet, paramIndex) → Dial binding for a
// single event. Build records a Slot only when a dial applies, so Dial is
// never nil.
type Slot struct {
	SetIndex   int
	ParamIndex int
	Dial       *dial.Dial
}

// Cache is the per-event list of cached slots (only the parameters whose
// dial applies to the event appear), indexed by event
// position in the owning Sample's event list. Built once via Build,
// then frozen; Propagator never mutates it.
type Cache struct {
	perEvent [][]Slot
	frozen   bool
}

// Build scans every event against every (parameterSet, parameter)'s
// dial set for sampleName, and records the first matching dial — or no
// slot at all when the dialset's apply-formula rejects the event,
// matching the spec's "mark null" step (an event with no applicable
// dial for a parameter simply has no Slot for it, rather than a Slot
// with a nil Dial, since the dense table is keyed positionally by
// event rather than by parameter).
func Build(sampleName string, events []*variable.Event, eventValues func(*variable.Event) map[string]float64, sets []*fitparam.ParameterSet) *Cache {
	c := &Cache{perEvent: make([][]Slot, len(events))}
	for i, e := range events {
		values := eventValues(e)
		var slots []Slot
		for si, ps := range sets {
			for pi := range ps.Parameters {
				p := &ps.Parameters[pi]
				ds := p.FindDialSet(sampleName)
				if ds == nil {
					continue
				}
				if ds.ApplyFormula != nil && !ds.ApplyFormula(values) {
					continue
				}
				d := firstApplicable(ds.DialList, values)
				if d == nil {
					continue
				}
				slots = append(slots, Slot{SetIndex: si, ParamIndex: pi, Dial: d})
			}
		}
		c.perEvent[i] = slots
	}
	c.frozen = true
	return c
}

func firstApplicable(dials []*dial.Dial, values map[string]float64) *dial.Dial {
	for _, d := range dials {
		if d.Applies(values) {
			return d
		}
	}
	return nil
}

// Slots returns the cached slots for the event at position i.
func (c *Cache) Slots(i int) []Slot {
	return c.perEvent[i]
}

// Len returns the number of events the cache was built over.
func (c *Cache) Len() int { return len(c.perEvent) }

// Frozen reports whether Build has completed.
func (c *Cache) Frozen() bool { return c.frozen }
