// Package mapping persists which local rows were created for which remote
// catalog identifiers. The ledger is the only record of what an import
// created; update and undo are driven entirely by it.
package mapping

import "fmt"

type Kind string

const (
	KindDataset Kind = "dataset"
	KindPlace   Kind = "place"
)

type Entry struct {
	RemoteID string
	LocalID  int64
}

// IntegrityWarning describes a remote id that appeared twice. The later
// entry wins; it is reported, never fatal.
type IntegrityWarning struct {
	Kind     Kind
	RemoteID string
	Previous int64
	Current  int64
}

func (w IntegrityWarning) String() string {
	return fmt.Sprintf("%s mapping: remote id %q maps to %d, replaced by %d", w.Kind, w.RemoteID, w.Previous, w.Current)
}

// Index is one kind of mapping: entries in creation order plus a lookup.
type Index struct {
	entries []Entry
	pos     map[string]int
}

func NewIndex() *Index {
	return &Index{pos: make(map[string]int)}
}

func (ix *Index) Lookup(remoteID string) (int64, bool) {
	i, ok := ix.pos[remoteID]
	if !ok {
		return 0, false
	}
	return ix.entries[i].LocalID, true
}

// Add records remoteID -> localID. A repeated remote id keeps its original
// position, takes the new local id and returns ok == false with the id it
// replaced.
func (ix *Index) Add(remoteID string, localID int64) (previous int64, ok bool) {
	if i, exists := ix.pos[remoteID]; exists {
		previous = ix.entries[i].LocalID
		ix.entries[i].LocalID = localID
		return previous, false
	}
	ix.pos[remoteID] = len(ix.entries)
	ix.entries = append(ix.entries, Entry{RemoteID: remoteID, LocalID: localID})
	return 0, true
}

func (ix *Index) Entries() []Entry {
	out := make([]Entry, len(ix.entries))
	copy(out, ix.entries)
	return out
}

func (ix *Index) Len() int { return len(ix.entries) }

// Ledger holds both mapping kinds.
type Ledger struct {
	Datasets *Index
	Places   *Index
}

func NewLedger() *Ledger {
	return &Ledger{Datasets: NewIndex(), Places: NewIndex()}
}

func (l *Ledger) index(kind Kind) *Index {
	if kind == KindPlace {
		return l.Places
	}
	return l.Datasets
}

func (l *Ledger) Lookup(kind Kind, remoteID string) (int64, bool) {
	return l.index(kind).Lookup(remoteID)
}

// Add records one mapping and reports a replaced entry as a warning.
func (l *Ledger) Add(kind Kind, remoteID string, localID int64) *IntegrityWarning {
	prev, ok := l.index(kind).Add(remoteID, localID)
	if ok {
		return nil
	}
	return &IntegrityWarning{Kind: kind, RemoteID: remoteID, Previous: prev, Current: localID}
}

// Changes are the mappings produced by one step of a run, in creation order.
type Changes struct {
	Datasets []Entry
	Places   []Entry
}

func (c *Changes) AddDataset(remoteID string, localID int64) {
	c.Datasets = append(c.Datasets, Entry{RemoteID: remoteID, LocalID: localID})
}

func (c *Changes) AddPlace(remoteID string, localID int64) {
	c.Places = append(c.Places, Entry{RemoteID: remoteID, LocalID: localID})
}

// Append concatenates other onto c.
func (c *Changes) Append(other Changes) {
	c.Datasets = append(c.Datasets, other.Datasets...)
	c.Places = append(c.Places, other.Places...)
}

func (c Changes) Empty() bool {
	return len(c.Datasets) == 0 && len(c.Places) == 0
}

// Merge applies changes in order and returns any warnings raised.
func (l *Ledger) Merge(c Changes) []IntegrityWarning {
	var warnings []IntegrityWarning
	for _, e := range c.Datasets {
		if w := l.Add(KindDataset, e.RemoteID, e.LocalID); w != nil {
			warnings = append(warnings, *w)
		}
	}
	for _, e := range c.Places {
		if w := l.Add(KindPlace, e.RemoteID, e.LocalID); w != nil {
			warnings = append(warnings, *w)
		}
	}
	return warnings
}
