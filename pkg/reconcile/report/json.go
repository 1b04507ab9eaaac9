package report

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

// jsonOutput is the full JSON document structure.
type jsonOutput struct {
	GeneratedAt time.Time      `json:"generated_at"`
	HashCap     int64          `json:"hash_cap,omitempty"`
	Builds      []jsonBuild    `json:"builds"`
	Summary     jsonSummary    `json:"summary"`
	Modified    []jsonPair     `json:"modified,omitempty"`
	Moved       []jsonMove     `json:"moved,omitempty"`
	OnlyInA     []jsonFile     `json:"only_in_a,omitempty"`
	OnlyInB     []jsonFile     `json:"only_in_b,omitempty"`
	Duplicates  []jsonDupGroup `json:"duplicates,omitempty"`
	Plans       []PlanSummary  `json:"plans,omitempty"`
}

// jsonBuild describes one catalog build in JSON output.
type jsonBuild struct {
	Tree         string            `json:"tree"`
	Root         string            `json:"root"`
	FilesSeen    int64             `json:"files_seen"`
	FilesHashed  int64             `json:"files_hashed"`
	FilesReused  int64             `json:"files_reused"`
	FilesRemoved int64             `json:"files_removed"`
	BytesHashed  int64             `json:"bytes_hashed"`
	Elapsed      string            `json:"elapsed"`
	Errors       []types.ScanError `json:"errors,omitempty"`
}

// jsonSummary carries bucket counts; identical pairs appear only here,
// never as a full listing.
type jsonSummary struct {
	Identical   int   `json:"identical"`
	Modified    int   `json:"modified"`
	Moved       int   `json:"moved"`
	OnlyInA     int   `json:"only_in_a"`
	OnlyInB     int   `json:"only_in_b"`
	DupGroups   int   `json:"dup_groups"`
	Reclaimable int64 `json:"reclaimable"`
	InSync      bool  `json:"in_sync"`
}

type jsonPair struct {
	Path    string `json:"path"`
	SizeA   int64  `json:"size_a"`
	SizeB   int64  `json:"size_b"`
	DigestA string `json:"digest_a,omitempty"`
	DigestB string `json:"digest_b,omitempty"`
}

type jsonMove struct {
	PathA  string `json:"path_a"`
	PathB  string `json:"path_b"`
	Size   int64  `json:"size"`
	Digest string `json:"digest,omitempty"`
}

type jsonFile struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	SizeHuman string `json:"size_human"`
	Digest    string `json:"digest,omitempty"`
}

type jsonDupGroup struct {
	Digest string   `json:"digest"`
	Tree   string   `json:"tree"`
	Size   int64    `json:"size"`
	Paths  []string `json:"paths"`
}

// JSONFormatter renders a report as a single indented JSON document.
type JSONFormatter struct{}

// Format writes the formatted report to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildOutput(r))
}

// buildOutput converts a Report to the JSON document structure.
func buildOutput(r *Report) jsonOutput {
	d := r.Diff

	builds := make([]jsonBuild, len(r.Builds))
	for i, b := range r.Builds {
		builds[i] = jsonBuild{
			Tree:         string(b.Tree),
			Root:         b.Root,
			FilesSeen:    b.FilesSeen,
			FilesHashed:  b.FilesHashed,
			FilesReused:  b.FilesReused,
			FilesRemoved: b.FilesRemoved,
			BytesHashed:  b.BytesHashed,
			Elapsed:      b.Elapsed.String(),
			Errors:       b.Errors,
		}
	}

	out := jsonOutput{
		GeneratedAt: r.GeneratedAt,
		HashCap:     r.HashCap,
		Builds:      builds,
		Plans:       r.Plans,
		Summary: jsonSummary{
			Identical:   len(d.Identical),
			Modified:    len(d.Modified),
			Moved:       len(d.Moved),
			OnlyInA:     len(d.OnlyInA),
			OnlyInB:     len(d.OnlyInB),
			DupGroups:   len(d.DupGroups),
			Reclaimable: r.Reclaimable(),
			InSync:      d.InSync(),
		},
	}

	for _, pr := range d.Modified {
		out.Modified = append(out.Modified, jsonPair{
			Path:    pr.A.Path,
			SizeA:   pr.A.Size,
			SizeB:   pr.B.Size,
			DigestA: pr.A.Digest,
			DigestB: pr.B.Digest,
		})
	}
	for _, pr := range d.Moved {
		out.Moved = append(out.Moved, jsonMove{
			PathA:  pr.A.Path,
			PathB:  pr.B.Path,
			Size:   pr.A.Size,
			Digest: pr.A.Digest,
		})
	}
	out.OnlyInA = jsonFiles(d.OnlyInA)
	out.OnlyInB = jsonFiles(d.OnlyInB)

	for _, g := range d.DupGroups {
		group := jsonDupGroup{Digest: g.Digest, Tree: string(g.Tree)}
		if len(g.Records) > 0 {
			group.Size = g.Records[0].Size
		}
		for _, rec := range g.Records {
			group.Paths = append(group.Paths, rec.Path)
		}
		out.Duplicates = append(out.Duplicates, group)
	}

	return out
}

func jsonFiles(recs []types.FileRecord) []jsonFile {
	if len(recs) == 0 {
		return nil
	}
	files := make([]jsonFile, len(recs))
	for i, rec := range recs {
		files[i] = jsonFile{
			Path:      rec.Path,
			Size:      rec.Size,
			SizeHuman: rec.HumanSize(),
			Digest:    rec.Digest,
		}
	}
	return files
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
