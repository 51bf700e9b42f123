package fitparam

import "github.com/nuwisp/gundam-go/internal/dial"

// DialSet is the list of candidate dials a single Parameter offers for
// one sample (what the original calls a "detector"), plus the optional
// apply-condition formula shared by all of them. DialCache.Build scans
// DialList in order and takes the first dial whose apply-bin contains
// the event.
type DialSet struct {
	SampleName   string
	ApplyFormula dial.Formula
	DialList     []*dial.Dial
}

// FindDialSet returns the DialSet this parameter offers for sampleName,
// or nil if the parameter has no dials there.
func (p *Parameter) FindDialSet(sampleName string) *DialSet {
	for _, ds := range p.dialSets {
		if ds.SampleName == sampleName {
			return ds
		}
	}
	return nil
}

// AddDialSet attaches a DialSet to this parameter.
func (p *Parameter) AddDialSet(ds *DialSet) {
	p.dialSets = append(p.dialSets, ds)
}
