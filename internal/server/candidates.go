package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/huntworks/hunt/internal/match"
	"github.com/huntworks/hunt/internal/model"
)

type candidatePayload struct {
	Email         string   `json:"email"`
	Name          string   `json:"name"`
	RoleFamilies  []string `json:"role_families"`
	Seniority     string   `json:"seniority"`
	MinSalary     *int     `json:"min_salary"`
	Locations     []string `json:"locations"`
	LocationTypes []string `json:"location_types"`
	RoleTypes     []string `json:"role_types"`
	Skills        []string `json:"skills"`
	Exclusions    []string `json:"exclusions"`
	ProfileText   string   `json:"profile_text"`
}

func (s *Server) getCandidate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return detailError(fiber.StatusBadRequest, "invalid candidate id")
	}

	candidate, err := s.st.Candidates.Get(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(candidateView(candidate))
}

func (s *Server) updateCandidate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return detailError(fiber.StatusBadRequest, "invalid candidate id")
	}

	candidate, err := s.st.Candidates.Get(c.Context(), id)
	if err != nil {
		return err
	}

	var payload candidatePayload
	if err := c.BodyParser(&payload); err != nil {
		return detailError(fiber.StatusBadRequest, "invalid json body")
	}
	applyPayload(candidate, &payload)

	if err := s.st.Candidates.Update(c.Context(), candidate); err != nil {
		return err
	}

	updated, err := s.st.Candidates.Get(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(candidateView(updated))
}

func (s *Server) syncFromWaitlist(c *fiber.Ctx) error {
	var payload candidatePayload
	if err := c.BodyParser(&payload); err != nil {
		return detailError(fiber.StatusBadRequest, "invalid json body")
	}
	if strings.TrimSpace(payload.Email) == "" {
		return detailError(fiber.StatusBadRequest, "email is required")
	}

	candidate := &model.CandidateProfile{Email: strings.ToLower(strings.TrimSpace(payload.Email))}
	applyPayload(candidate, &payload)

	if err := s.st.Candidates.UpsertFromWaitlist(c.Context(), candidate); err != nil {
		return err
	}

	created, err := s.st.Candidates.Get(c.Context(), candidate.ID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(candidateView(created))
}

func (s *Server) candidateMatches(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return detailError(fiber.StatusBadRequest, "invalid candidate id")
	}

	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 20)
	minScore := c.QueryFloat("min_score", 0)
	if page < 1 || pageSize < 1 || pageSize > 100 {
		return detailError(fiber.StatusBadRequest, "invalid pagination")
	}

	matches, total, err := s.st.Matches.ForCandidate(c.Context(), id, minScore, page, pageSize)
	if err != nil {
		return err
	}

	response := fiber.Map{
		"matches":   matchViews(matches),
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"has_more":  page*pageSize < total,
	}

	// An empty first page gets the structured no-matches explanation.
	if total == 0 {
		opts := match.Options{SoftInclusive: c.QueryBool("soft_inclusive")}
		outcome, err := s.matcher.MatchCandidate(c.Context(), id, opts)
		if err != nil {
			return err
		}
		if len(outcome.Matches) > 0 {
			matches, total, err = s.st.Matches.ForCandidate(c.Context(), id, minScore, page, pageSize)
			if err != nil {
				return err
			}
			response["matches"] = matchViews(matches)
			response["total"] = total
			response["has_more"] = page*pageSize < total
		} else {
			response["no_matches_reason"] = outcome.NoMatchReason
		}
	}

	return c.JSON(response)
}

func matchViews(matches []*model.Match) []fiber.Map {
	out := make([]fiber.Map, 0, len(matches))
	for _, m := range matches {
		view := fiber.Map{
			"id":            m.ID,
			"job_id":        m.JobID,
			"score":         m.Score,
			"hard_match":    m.HardMatch,
			"match_reasons": m.MatchReasons,
			"clicked_at":    m.ClickedAt,
			"shown_at":      m.ShownAt,
		}
		if m.Job != nil {
			view["job"] = toJobResponse(m.Job)
		}
		out = append(out, view)
	}
	return out
}

func candidateView(c *model.CandidateProfile) fiber.Map {
	return fiber.Map{
		"id":              c.ID,
		"email":           c.Email,
		"name":            c.Name,
		"role_families":   c.RoleFamilies,
		"seniority":       c.Seniority,
		"min_salary":      c.MinSalary,
		"locations":       c.Locations,
		"location_types":  c.LocationTypes,
		"role_types":      c.RoleTypes,
		"skills":          c.Skills,
		"exclusions":      c.Exclusions,
		"profile_text":    c.ProfileText,
		"has_embedding":   c.Embedding != nil,
		"last_matched_at": c.LastMatchedAt,
		"is_active":       c.IsActive,
	}
}

func applyPayload(candidate *model.CandidateProfile, p *candidatePayload) {
	if p.Name != "" {
		candidate.Name = p.Name
	}
	if p.RoleFamilies != nil {
		candidate.RoleFamilies = p.RoleFamilies
	}
	if p.Seniority != "" {
		candidate.Seniority = p.Seniority
	}
	if p.MinSalary != nil {
		candidate.MinSalary = p.MinSalary
	}
	if p.Locations != nil {
		candidate.Locations = p.Locations
	}
	if p.LocationTypes != nil {
		candidate.LocationTypes = p.LocationTypes
	}
	if p.RoleTypes != nil {
		candidate.RoleTypes = p.RoleTypes
	}
	if p.Skills != nil {
		candidate.Skills = p.Skills
	}
	if p.Exclusions != nil {
		candidate.Exclusions = p.Exclusions
	}
	if p.ProfileText != "" {
		candidate.ProfileText = p.ProfileText
	}
}
