// Package catalog holds the reference table of known outlets and their bias.
//
// A Catalog is an immutable snapshot. Store publishes snapshots through a
// single atomic pointer so readers always see either the old or the new
// table in full.
package catalog

import (
	"sort"

	"biaslens/internal/model"
	"biaslens/internal/util"
)

// Record is one known outlet.
type Record struct {
	NormalizedName string
	OriginalName   string
	Bias           model.BiasLabel
	Confidence     float64
}

// Row is an unparsed line of the reference table.
type Row struct {
	Source     string
	Bias       string
	Confidence string
}

// Catalog maps normalized outlet names to records.
type Catalog struct {
	records  map[string]Record
	original map[string]string
	keys     []string
}

// Empty is the catalog used when no reference data could be read.
var Empty = &Catalog{records: map[string]Record{}, original: map[string]string{}}

// New builds a snapshot from already parsed records. Records with an empty
// normalized name are dropped; later duplicates replace earlier ones.
func New(records []Record) *Catalog {
	c := &Catalog{
		records:  make(map[string]Record, len(records)),
		original: make(map[string]string, len(records)),
	}
	for _, r := range records {
		key := util.NormalizeSource(r.OriginalName)
		if key == "" {
			continue
		}
		r.NormalizedName = key
		c.records[key] = r
		c.original[key] = r.OriginalName
	}
	c.keys = make([]string, 0, len(c.records))
	for k := range c.records {
		c.keys = append(c.keys, k)
	}
	sort.Strings(c.keys)
	return c
}

// Lookup returns the record stored under an exact normalized key.
func (c *Catalog) Lookup(key string) (Record, bool) {
	r, ok := c.records[key]
	return r, ok
}

// OriginalName returns the display name for a normalized key, or the key itself.
func (c *Catalog) OriginalName(key string) string {
	if n, ok := c.original[key]; ok {
		return n
	}
	return key
}

// Keys returns the normalized names in lexicographic order. The slice must not be modified.
func (c *Catalog) Keys() []string { return c.keys }

func (c *Catalog) Len() int { return len(c.records) }

// Current lets a fixed snapshot stand in wherever a live Store is expected.
func (c *Catalog) Current() *Catalog { return c }
