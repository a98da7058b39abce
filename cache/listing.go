package cache

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Listing is one entry of the store as shown to an operator.
type Listing struct {
	Key       string
	Record    *Record
	Malformed bool
}

// List returns every entry sorted by key. Malformed entries are included
// with Malformed set and a nil Record.
func (s *Store) List() []Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Listing, 0, len(s.records)+len(s.malformed))
	for key, rec := range s.records {
		out = append(out, Listing{Key: key, Record: rec.clone()})
	}
	for key := range s.malformed {
		out = append(out, Listing{Key: key, Malformed: true})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Render writes a human-readable listing of the store to w.
func (s *Store) Render(w io.Writer) error {
	return RenderListings(w, s.List())
}

// RenderListings formats listings, skipping malformed entries with a notice.
func RenderListings(w io.Writer, listings []Listing) error {
	var b strings.Builder
	if len(listings) == 0 {
		b.WriteString("No cache records\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString("Cache records:\n")
	b.WriteString(strings.Repeat("=", 80) + "\n")
	for _, l := range listings {
		if l.Malformed {
			fmt.Fprintf(&b, "! malformed cache record: %s\n", l.Key)
			continue
		}
		rec := l.Record
		fmt.Fprintf(&b, "Key:    %s\n", l.Key)
		fmt.Fprintf(&b, "File:   %s\n", rec.DataFile)
		for _, d := range []Discriminator{Purchase, Redeem} {
			p := rec.Params[d]
			if p == nil {
				continue
			}
			fmt.Fprintf(&b, "%-8s %s  AIC: %.2f  params: %d (%g%%)  at %s\n",
				string(d)+":", p.BestParams, p.BestAIC, p.TotalParams, p.ParamRatio, p.Timestamp.Format("2006-01-02 15:04:05"))
		}
		writeArtifacts(&b, "Images", rec.Images)
		writeArtifacts(&b, "CSV files", rec.CSVFiles)
		fmt.Fprintf(&b, "Updated: %s\n", rec.Timestamp.Format("2006-01-02 15:04:05"))
		b.WriteString(strings.Repeat("-", 40) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeArtifacts(b *strings.Builder, title string, artifacts map[string]*Artifact) {
	if len(artifacts) == 0 {
		return
	}
	labels := make([]string, 0, len(artifacts))
	for label := range artifacts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	fmt.Fprintf(b, "%s:\n", title)
	for _, label := range labels {
		a := artifacts[label]
		mark := ""
		if !a.Exists {
			mark = " (missing)"
		}
		fmt.Fprintf(b, "  - %s: %s%s\n", label, a.Path, mark)
	}
}
