package domain

// Field sets per role. Every field a role may read is listed explicitly.
var spotFields = map[Role][]string{
	RolePublic: {"id", "name", "description", "thumbnail_path", "location", "created_at"},
	RoleOwner: {
		"id", "owner_id", "name", "description", "thumbnail_path", "location",
		"status", "reject_reason", "is_active", "created_at", "updated_at",
	},
	RoleStaff: {
		"id", "owner_id", "name", "description", "thumbnail_path", "location",
		"status", "reject_reason", "reviewed_by", "reviewed_at", "is_active",
		"deleted_at", "created_at", "updated_at",
	},
}

var routeFields = map[Role][]string{
	RolePublic: {"id", "spot_id", "difficulty", "travel_mode", "description", "path", "distance_km", "created_at"},
	RoleOwner: {
		"id", "owner_id", "spot_id", "difficulty", "travel_mode", "description",
		"path", "distance_km", "is_active", "created_at", "updated_at",
	},
	RoleStaff: {
		"id", "owner_id", "spot_id", "difficulty", "travel_mode", "description",
		"path", "distance_km", "is_active", "deleted_at", "created_at", "updated_at",
	},
}

// SpotFields returns the field names visible to role.
func SpotFields(role Role) []string {
	return append([]string(nil), spotFields[role]...)
}

// ProjectSpot returns the view of s that role is allowed to see.
func ProjectSpot(s *Spot, role Role) map[string]any {
	all := map[string]any{
		"id":             s.ID,
		"owner_id":       s.OwnerID,
		"name":           s.Name,
		"description":    s.Description,
		"thumbnail_path": s.ThumbnailPath,
		"location":       s.Location,
		"status":         s.Status,
		"reject_reason":  s.RejectReason,
		"reviewed_by":    s.ReviewedBy,
		"reviewed_at":    s.ReviewedAt,
		"is_active":      s.Active,
		"deleted_at":     s.DeletedAt,
		"created_at":     s.CreatedAt,
		"updated_at":     s.UpdatedAt,
	}
	return pick(all, spotFields[role])
}

// ProjectSpotHit projects a radius hit and keeps its distance.
func ProjectSpotHit(h *SpotWithDistance, role Role) map[string]any {
	out := ProjectSpot(&h.Spot, role)
	out["distance_km"] = h.DistanceKm
	return out
}

// ProjectRoute returns the view of r that role is allowed to see.
func ProjectRoute(r *Route, role Role) map[string]any {
	all := map[string]any{
		"id":          r.ID,
		"owner_id":    r.OwnerID,
		"spot_id":     r.SpotID,
		"difficulty":  r.Difficulty,
		"travel_mode": r.TravelMode,
		"description": r.Description,
		"path":        r.Path,
		"distance_km": r.DistanceKm,
		"is_active":   r.Active,
		"deleted_at":  r.DeletedAt,
		"created_at":  r.CreatedAt,
		"updated_at":  r.UpdatedAt,
	}
	return pick(all, routeFields[role])
}

func pick(all map[string]any, fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f] = all[f]
	}
	return out
}
