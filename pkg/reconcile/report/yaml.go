package report

import (
	"bytes"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// yamlOutput is the full YAML document structure.
type yamlOutput struct {
	GeneratedAt time.Time      `yaml:"generated_at"`
	HashCap     int64          `yaml:"hash_cap,omitempty"`
	Builds      []yamlBuild    `yaml:"builds"`
	Summary     yamlSummary    `yaml:"summary"`
	Modified    []yamlPair     `yaml:"modified,omitempty"`
	Moved       []yamlMove     `yaml:"moved,omitempty"`
	OnlyInA     []yamlFile     `yaml:"only_in_a,omitempty"`
	OnlyInB     []yamlFile     `yaml:"only_in_b,omitempty"`
	Duplicates  []yamlDupGroup `yaml:"duplicates,omitempty"`
	Plans       []PlanSummary  `yaml:"plans,omitempty"`
}

// yamlBuild describes one catalog build in YAML output.
type yamlBuild struct {
	Tree         string            `yaml:"tree"`
	Root         string            `yaml:"root"`
	FilesSeen    int64             `yaml:"files_seen"`
	FilesHashed  int64             `yaml:"files_hashed"`
	FilesReused  int64             `yaml:"files_reused"`
	FilesRemoved int64             `yaml:"files_removed"`
	BytesHashed  int64             `yaml:"bytes_hashed"`
	Elapsed      string            `yaml:"elapsed"`
	Errors       []types.ScanError `yaml:"errors,omitempty"`
}

// yamlSummary carries bucket counts.
type yamlSummary struct {
	Identical   int   `yaml:"identical"`
	Modified    int   `yaml:"modified"`
	Moved       int   `yaml:"moved"`
	OnlyInA     int   `yaml:"only_in_a"`
	OnlyInB     int   `yaml:"only_in_b"`
	DupGroups   int   `yaml:"dup_groups"`
	Reclaimable int64 `yaml:"reclaimable"`
	InSync      bool  `yaml:"in_sync"`
}

type yamlPair struct {
	Path    string `yaml:"path"`
	SizeA   int64  `yaml:"size_a"`
	SizeB   int64  `yaml:"size_b"`
	DigestA string `yaml:"digest_a,omitempty"`
	DigestB string `yaml:"digest_b,omitempty"`
}

type yamlMove struct {
	PathA  string `yaml:"path_a"`
	PathB  string `yaml:"path_b"`
	Size   int64  `yaml:"size"`
	Digest string `yaml:"digest,omitempty"`
}

type yamlFile struct {
	Path      string `yaml:"path"`
	Size      int64  `yaml:"size"`
	SizeHuman string `yaml:"size_human"`
	Digest    string `yaml:"digest,omitempty"`
}

type yamlDupGroup struct {
	Digest string   `yaml:"digest"`
	Tree   string   `yaml:"tree"`
	Size   int64    `yaml:"size"`
	Paths  []string `yaml:"paths"`
}

// YAMLFormatter renders a report as YAML, with the same structure as
// JSONFormatter.
type YAMLFormatter struct{}

// Format writes the formatted report to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Report) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(f.buildOutput(r)); err != nil {
		return err
	}
	return encoder.Close()
}

// buildOutput converts a Report to the YAML document structure.
func (f *YAMLFormatter) buildOutput(r *Report) yamlOutput {
	src := buildOutput(r)

	out := yamlOutput{
		GeneratedAt: src.GeneratedAt,
		HashCap:     src.HashCap,
		Plans:       src.Plans,
		Summary: yamlSummary{
			Identical:   src.Summary.Identical,
			Modified:    src.Summary.Modified,
			Moved:       src.Summary.Moved,
			OnlyInA:     src.Summary.OnlyInA,
			OnlyInB:     src.Summary.OnlyInB,
			DupGroups:   src.Summary.DupGroups,
			Reclaimable: src.Summary.Reclaimable,
			InSync:      src.Summary.InSync,
		},
	}

	for _, b := range src.Builds {
		out.Builds = append(out.Builds, yamlBuild(b))
	}
	for _, p := range src.Modified {
		out.Modified = append(out.Modified, yamlPair(p))
	}
	for _, m := range src.Moved {
		out.Moved = append(out.Moved, yamlMove(m))
	}
	for _, rec := range src.OnlyInA {
		out.OnlyInA = append(out.OnlyInA, yamlFile(rec))
	}
	for _, rec := range src.OnlyInB {
		out.OnlyInB = append(out.OnlyInB, yamlFile(rec))
	}
	for _, g := range src.Duplicates {
		out.Duplicates = append(out.Duplicates, yamlDupGroup(g))
	}

	return out
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
