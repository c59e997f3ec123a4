package seeder

import "fmt"

// UpsertResult reports what an upsert did. Exactly one flag is set.
type UpsertResult struct {
	Created bool
	Updated bool
	ID      string
}

// UnitSummary is the outcome of one step or pass.
type UnitSummary struct {
	Name     string   `json:"name"`
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Warnings []string `json:"warnings"`
	Failures []string `json:"failures"`
}

func newUnit(name string) *UnitSummary {
	return &UnitSummary{Name: name, Warnings: []string{}, Failures: []string{}}
}

func (u *UnitSummary) record(res UpsertResult) {
	if res.Created {
		u.Created++
	}
	if res.Updated {
		u.Updated++
	}
}

func (u *UnitSummary) warn(msg string) {
	u.Warnings = append(u.Warnings, msg)
}

func (u *UnitSummary) fail(format string, args ...any) {
	u.Failures = append(u.Failures, fmt.Sprintf(format, args...))
}

// RunSummary aggregates every unit of a run. Run-level warnings and
// failures are prefixed with "[unit]".
type RunSummary struct {
	Units    []*UnitSummary `json:"units"`
	Warnings []string       `json:"warnings"`
	Failures []string       `json:"failures"`
}

func newRunSummary() *RunSummary {
	return &RunSummary{Units: []*UnitSummary{}, Warnings: []string{}, Failures: []string{}}
}

func (s *RunSummary) add(u *UnitSummary) {
	s.Units = append(s.Units, u)
	for _, w := range u.Warnings {
		s.Warnings = append(s.Warnings, fmt.Sprintf("[%s] %s", u.Name, w))
	}
	for _, f := range u.Failures {
		s.Failures = append(s.Failures, fmt.Sprintf("[%s] %s", u.Name, f))
	}
}

// Unit returns the unit named name, or nil.
func (s *RunSummary) Unit(name string) *UnitSummary {
	for _, u := range s.Units {
		if u.Name == name {
			return u
		}
	}
	return nil
}

// Totals sums created and updated counts across units.
func (s *RunSummary) Totals() (created, updated int) {
	for _, u := range s.Units {
		created += u.Created
		updated += u.Updated
	}
	return created, updated
}

// OK reports whether the run recorded no failures.
func (s *RunSummary) OK() bool {
	return len(s.Failures) == 0
}
