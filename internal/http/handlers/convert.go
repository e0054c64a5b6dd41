package handlers

import (
	"service-master-dispatch/internal/domain"
)

func toPoint(p *pointDTO) *domain.Point {
	if p == nil {
		return nil
	}
	return &domain.Point{Lat: p.Lat, Lon: p.Lon}
}

func fromPoint(p *domain.Point) *pointDTO {
	if p == nil {
		return nil
	}
	return &pointDTO{Lat: p.Lat, Lon: p.Lon}
}

func toDispatchResponse(res domain.DispatchResult) dispatchResponse {
	out := dispatchResponse{JobID: res.JobID, Outcome: string(res.Outcome)}
	if a := res.Assignment; a != nil {
		exp := a.ExpiresAt
		out.AssignmentID = a.ID.String()
		out.MasterID = a.MasterID
		out.Attempt = a.Attempt
		out.DistanceMeters = a.DistanceMeters
		out.ExpiresAt = &exp
	}
	return out
}

func toAssignmentDTOs(list []domain.Assignment) []assignmentDTO {
	out := make([]assignmentDTO, 0, len(list))
	for _, a := range list {
		out = append(out, assignmentDTO{
			ID:              a.ID.String(),
			JobID:           a.JobID,
			MasterID:        a.MasterID,
			Status:          string(a.Status),
			Attempt:         a.Attempt,
			DistanceMeters:  a.DistanceMeters,
			RejectionReason: a.RejectionReason,
			CreatedAt:       a.CreatedAt,
			ExpiresAt:       a.ExpiresAt,
			ResolvedAt:      a.ResolvedAt,
		})
	}
	return out
}

func toRejectResponse(res domain.RejectResult) rejectResponse {
	out := rejectResponse{
		AssignmentID: res.AssignmentID.String(),
		JobID:        res.JobID,
		Next:         "exhausted",
	}
	if res.Next.Outcome == domain.OutcomeOffered {
		next := toDispatchResponse(res.Next)
		out.Next = string(domain.OutcomeOffered)
		out.Offer = &next
	}
	return out
}

func toRouteResponse(rt domain.Route) routeResponse {
	legs := make([]legDTO, 0, len(rt.Legs))
	for _, l := range rt.Legs {
		legs = append(legs, legDTO{
			JobID:              l.JobID,
			Lat:                l.Location.Lat,
			Lon:                l.Location.Lon,
			DistanceMeters:     l.DistanceMeters,
			DurationSeconds:    l.Duration.Seconds(),
			CumulativeDistance: l.CumulativeDistance,
		})
	}
	return routeResponse{
		Start:                pointDTO{Lat: rt.Start.Lat, Lon: rt.Start.Lon},
		Legs:                 legs,
		TotalDistanceMeters:  rt.TotalDistanceMeters,
		TotalDurationSeconds: rt.TotalDuration.Seconds(),
	}
}

func toMasterDTO(m *domain.Master) masterDTO {
	skills := m.Skills
	if skills == nil {
		skills = []string{}
	}
	return masterDTO{
		ID:        m.ID,
		Name:      m.Name,
		Location:  fromPoint(m.Location),
		Skills:    skills,
		Available: m.Available,
		Verified:  m.Verified,
	}
}
