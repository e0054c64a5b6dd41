package geo

import (
	"sort"
	"strings"

	"service-master-dispatch/internal/domain"
)

// Ranked is a master paired with its distance to a job.
type Ranked struct {
	Master         domain.Master
	DistanceMeters float64
}

// Matcher ranks eligible masters by proximity to a job.
type Matcher struct{}

// NewMatcher returns a Matcher.
func NewMatcher() *Matcher { return &Matcher{} }

// Rank filters pool down to available, verified masters that carry the job's skill
// and have a valid location, then orders them by haversine distance ascending.
// Equal distances are ordered by master id ascending.
//
// The job location must be validated by the caller; a job without a location yields no candidates.
func (m *Matcher) Rank(job domain.Job, pool []domain.Master) []Ranked {
	if job.Location == nil || strings.TrimSpace(job.Skill) == "" {
		return nil
	}
	out := make([]Ranked, 0, len(pool))
	for _, c := range pool {
		if !c.Available || !c.Verified || !c.HasSkill(job.Skill) {
			continue
		}
		if c.Location == nil || Validate(*c.Location) != nil {
			continue
		}
		out = append(out, Ranked{Master: c, DistanceMeters: Distance(*job.Location, *c.Location)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceMeters != out[j].DistanceMeters {
			return out[i].DistanceMeters < out[j].DistanceMeters
		}
		return out[i].Master.ID < out[j].Master.ID
	})
	return out
}
