package handlers

import (
	"github.com/gofiber/fiber/v2"

	"vardhanvasista/fresalyzer/internal/models"
)

type ModelHandler struct{}

func NewModelHandler() *ModelHandler {
	return &ModelHandler{}
}

// HandleListModels handles GET /models
func (h *ModelHandler) HandleListModels(c *fiber.Ctx) error {
	list := make([]models.ModelInfo, 0, len(models.KnownModels))
	for _, id := range models.KnownModels {
		list = append(list, models.ModelInfo{ID: id, Accuracy: models.ReferenceAccuracy[id]})
	}
	return c.JSON(fiber.Map{
		"models": list,
	})
}
