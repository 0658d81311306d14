package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/slicehouse/pizzeria/internal/api/dto"
	"github.com/slicehouse/pizzeria/internal/service"
)

type RecommendationsHandler struct {
	recommendations *service.RecommendationService
}

func NewRecommendationsHandler(recommendations *service.RecommendationService) *RecommendationsHandler {
	return &RecommendationsHandler{recommendations: recommendations}
}

// Get GET /api/recommendations?limit=5.
func (h *RecommendationsHandler) Get(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	recs, err := h.recommendations.Recommend(c.UserContext(), principal.User.ID, queryInt(c, "limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(data(dto.Recommendations(recs)))
}
