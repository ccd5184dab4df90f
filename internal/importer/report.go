// ABOUTME: Per-table import outcome tallies.
package importer

import "time"

// TableReport describes the import of one table or collection.
type TableReport struct {
	Name     string   `json:"name"`
	Store    string   `json:"store"`
	File     string   `json:"file"`
	Missing  bool     `json:"missing,omitempty"`
	Failed   bool     `json:"failed,omitempty"`
	Read     int      `json:"read"`
	Inserted int      `json:"inserted"`
	Existing int      `json:"existing"`
	Skipped  int      `json:"skipped"`
	Problems []string `json:"problems,omitempty"`
}

func (t *TableReport) addProblems(errs []error) {
	for _, err := range errs {
		if len(t.Problems) < maxProblems {
			t.Problems = append(t.Problems, err.Error())
		}
	}
}

// Report summarizes a whole import run.
type Report struct {
	Dir      string        `json:"dir"`
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
	Tables   []TableReport `json:"tables"`
}

func (r *Report) TotalInserted() int {
	n := 0
	for _, t := range r.Tables {
		n += t.Inserted
	}
	return n
}

func (r *Report) TotalSkipped() int {
	n := 0
	for _, t := range r.Tables {
		n += t.Skipped
	}
	return n
}

// Missing lists the tables and collections whose source file was absent.
func (r *Report) Missing() []string {
	var out []string
	for _, t := range r.Tables {
		if t.Missing {
			out = append(out, t.Name)
		}
	}
	return out
}

// Failed lists the tables and collections whose file could not be read or decoded.
func (r *Report) Failed() []string {
	var out []string
	for _, t := range r.Tables {
		if t.Failed {
			out = append(out, t.Name)
		}
	}
	return out
}
