package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/huntworks/hunt/internal/model"
)

// jobResponse is the public shape of a canonical job.
type jobResponse struct {
	ID                 uuid.UUID  `json:"id"`
	CompanyID          uuid.UUID  `json:"company_id"`
	CompanyName        string     `json:"company_name"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	SourceURL          string     `json:"source_url"`
	RoleFamily         string     `json:"role_family"`
	RoleSpecialization string     `json:"role_specialization,omitempty"`
	Seniority          string     `json:"seniority,omitempty"`
	LocationType       string     `json:"location_type,omitempty"`
	Locations          []string   `json:"locations,omitempty"`
	Skills             []string   `json:"skills,omitempty"`
	MinSalary          *int       `json:"min_salary,omitempty"`
	MaxSalary          *int       `json:"max_salary,omitempty"`
	EmploymentType     string     `json:"employment_type,omitempty"`
	PostedAt           *time.Time `json:"posted_at,omitempty"`
	FreshnessScore     float64    `json:"freshness_score"`
	IsActive           bool       `json:"is_active"`
}

func toJobResponse(j *model.Job) jobResponse {
	return jobResponse{
		ID:                 j.ID,
		CompanyID:          j.CompanyID,
		CompanyName:        j.CompanyName,
		Title:              j.Title,
		Description:        j.Description,
		SourceURL:          j.SourceURL,
		RoleFamily:         j.RoleFamily,
		RoleSpecialization: j.RoleSpecialization,
		Seniority:          j.Seniority,
		LocationType:       j.LocationType,
		Locations:          j.Locations,
		Skills:             j.Skills,
		MinSalary:          j.MinSalary,
		MaxSalary:          j.MaxSalary,
		EmploymentType:     j.EmploymentType,
		PostedAt:           j.PostedAt,
		FreshnessScore:     j.FreshnessScore,
		IsActive:           j.IsActive,
	}
}

func (s *Server) listJobs(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 20)
	if page < 1 {
		return detailError(fiber.StatusBadRequest, "page must be >= 1")
	}
	if pageSize < 1 || pageSize > 100 {
		return detailError(fiber.StatusBadRequest, "page_size must be between 1 and 100")
	}

	jobs, total, err := s.st.Jobs.List(c.Context(),
		c.Query("role_family"), c.Query("seniority"), c.Query("location_type"),
		page, pageSize,
	)
	if err != nil {
		return err
	}

	out := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobResponse(j))
	}

	return c.JSON(fiber.Map{
		"jobs":      out,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"has_more":  page*pageSize < total,
	})
}

func (s *Server) getJob(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return detailError(fiber.StatusBadRequest, "invalid job id")
	}

	job, err := s.st.Jobs.Get(c.Context(), id)
	if err != nil {
		return err
	}

	company, err := s.st.Companies.Get(c.Context(), job.CompanyID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"job": toJobResponse(job),
		"company": fiber.Map{
			"id":          company.ID,
			"name":        company.Name,
			"domain":      company.Domain,
			"careers_url": company.CareersURL,
			"industry":    company.Industry,
		},
	})
}

func (s *Server) recordClick(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return detailError(fiber.StatusBadRequest, "invalid job id")
	}
	candidateID, err := uuid.Parse(c.Query("candidate_id"))
	if err != nil {
		return detailError(fiber.StatusBadRequest, "candidate_id is required")
	}

	found, err := s.st.Matches.RecordClick(c.Context(), candidateID, jobID)
	if err != nil {
		return err
	}
	if !found {
		return detailError(fiber.StatusNotFound, "no match for this candidate and job")
	}

	return c.JSON(fiber.Map{"status": "recorded"})
}
