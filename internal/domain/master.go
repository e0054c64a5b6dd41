package domain

// Master represents a field technician that can be offered jobs.
type Master struct {
	ID        int64
	Name      string
	Location  *Point
	Skills    []string
	Available bool
	Verified  bool
}

// HasSkill reports whether the master carries the given skill tag.
func (m *Master) HasSkill(skill string) bool {
	for _, s := range m.Skills {
		if s == skill {
			return true
		}
	}
	return false
}
