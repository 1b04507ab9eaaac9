// Package report formats comparison results for people and machines.
//
// The package uses a registry pattern so formatters can be selected at
// runtime by name:
//
//	formatter, err := report.Get("text")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, rep); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package report

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/reconcile/pkg/reconcile/compare"
	"github.com/jamesainslie/reconcile/pkg/reconcile/plan"
	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// Report is the complete outcome of one comparison run, ready for
// formatting.
type Report struct {
	// GeneratedAt stamps the run.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	// HashCap is the partial-hash cap in bytes. Zero means digests
	// cover whole files.
	HashCap int64 `json:"hash_cap,omitempty" yaml:"hash_cap,omitempty"`

	// Builds describes the catalog builds behind the diff, tree A first.
	Builds []types.BuildResult `json:"builds" yaml:"builds"`

	// Diff is the comparison outcome.
	Diff *compare.Diff `json:"diff" yaml:"diff"`

	// Plans summarizes the operations each requested mode would perform.
	Plans []PlanSummary `json:"plans,omitempty" yaml:"plans,omitempty"`
}

// PlanSummary condenses one plan for reporting.
type PlanSummary struct {
	Mode        string `json:"mode" yaml:"mode"`
	Copies      int    `json:"copies" yaml:"copies"`
	Moves       int    `json:"moves" yaml:"moves"`
	Deletes     int    `json:"deletes" yaml:"deletes"`
	BytesCopied int64  `json:"bytes_copied" yaml:"bytes_copied"`
	BytesFreed  int64  `json:"bytes_freed" yaml:"bytes_freed"`
	Degraded    int    `json:"degraded,omitempty" yaml:"degraded,omitempty"`

	// Script is the path the plan was rendered to, when it was.
	Script string `json:"script,omitempty" yaml:"script,omitempty"`
}

// New assembles a report from catalog builds and their diff.
func New(builds []types.BuildResult, diff *compare.Diff, hashCap int64) *Report {
	return &Report{
		GeneratedAt: time.Now(),
		HashCap:     hashCap,
		Builds:      builds,
		Diff:        diff,
	}
}

// AddPlan records a plan's footprint in the report. scriptPath may be
// empty when the plan was not rendered.
func (r *Report) AddPlan(p *plan.Plan, scriptPath string) {
	copies, moves, deletes := p.Counts()
	r.Plans = append(r.Plans, PlanSummary{
		Mode:        string(p.Mode),
		Copies:      copies,
		Moves:       moves,
		Deletes:     deletes,
		BytesCopied: p.BytesCopied,
		BytesFreed:  p.BytesFreed,
		Degraded:    p.Degraded,
		Script:      scriptPath,
	})
}

// Reclaimable returns the bytes that deleting all redundant duplicate
// copies would free, across both trees.
func (r *Report) Reclaimable() int64 {
	var total int64
	for _, g := range r.Diff.DupGroups {
		for _, rec := range g.Records[1:] {
			total += rec.Size
		}
	}
	return total
}

// Formatter is the interface all report formatters implement.
type Formatter interface {
	// Format writes the formatted report to the buffer.
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty formatter registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds a formatter factory, replacing any existing formatter
// with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown format: %s", name)
	}
	return factory(), nil
}

// Available returns the sorted names of all registered formatters.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// shortDigest truncates a digest for display.
func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	if digest == "" {
		return "-"
	}
	return digest
}
