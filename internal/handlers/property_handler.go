package handlers

import (
	"errors"
	"fmt"
	"log"

	"azlistings/internal/models"
	"azlistings/internal/repositories"
	"azlistings/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// PropertyHandler handles HTTP requests for property listings.
type PropertyHandler struct {
	service  *services.PropertyService
	validate *validator.Validate
}

// NewPropertyHandler creates a new PropertyHandler.
func NewPropertyHandler(service *services.PropertyService) *PropertyHandler {
	return &PropertyHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterPublicRoutes registers the read-only listing routes. These back the
// public site and require no authentication.
func (h *PropertyHandler) RegisterPublicRoutes(router fiber.Router) {
	propertyRoutes := router.Group("/properties")
	propertyRoutes.Get("/", h.HandleGetProperties)
	propertyRoutes.Get("/featured", h.HandleGetFeatured)
	propertyRoutes.Get("/:id", h.HandleGetPropertyByID)
}

// RegisterAdminRoutes registers the write routes. The caller is expected to
// have wrapped the router group with auth middleware.
func (h *PropertyHandler) RegisterAdminRoutes(router fiber.Router) {
	propertyRoutes := router.Group("/properties")
	propertyRoutes.Post("/", h.HandleCreateProperty)
	propertyRoutes.Put("/", h.HandleReplaceAll)
	propertyRoutes.Put("/:id", h.HandleUpdateProperty)
	propertyRoutes.Delete("/:id", h.HandleDeleteProperty)
}

// HandleGetProperties retrieves all listings.
func (h *PropertyHandler) HandleGetProperties(c *fiber.Ctx) error {
	properties, err := h.service.ListProperties()
	if err != nil {
		log.Printf("Error getting all properties: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve properties",
			"error":   err.Error(),
		})
	}
	return c.JSON(properties)
}

// HandleGetFeatured retrieves the promoted listings.
func (h *PropertyHandler) HandleGetFeatured(c *fiber.Ctx) error {
	properties, err := h.service.ListFeatured()
	if err != nil {
		log.Printf("Error getting featured properties: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve featured properties",
			"error":   err.Error(),
		})
	}
	return c.JSON(properties)
}

// HandleGetPropertyByID retrieves a single listing by its ID.
func (h *PropertyHandler) HandleGetPropertyByID(c *fiber.Ctx) error {
	propertyID := c.Params("id")
	property, err := h.service.GetPropertyByID(propertyID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Property with ID %s not found", propertyID),
			})
		}
		log.Printf("Error getting property by ID %s: %v", propertyID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve property",
			"error":   err.Error(),
		})
	}
	return c.JSON(property)
}

// HandleCreateProperty creates a new listing.
func (h *PropertyHandler) HandleCreateProperty(c *fiber.Ctx) error {
	var property models.Property
	if err := c.BodyParser(&property); err != nil {
		log.Printf("Error parsing request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if msgs := h.validateProperty(property); msgs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  msgs,
		})
	}

	if err := h.service.CreateProperty(&property); err != nil {
		log.Printf("Error creating property: %v", err)
		if errors.Is(err, repositories.ErrNotFound) {
			// Not reachable for create, kept for symmetry with update.
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not create property",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(property)
}

// HandleUpdateProperty replaces an existing listing.
func (h *PropertyHandler) HandleUpdateProperty(c *fiber.Ctx) error {
	propertyID := c.Params("id")

	var property models.Property
	if err := c.BodyParser(&property); err != nil {
		log.Printf("Error parsing request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	property.ID = propertyID

	if msgs := h.validateProperty(property); msgs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  msgs,
		})
	}

	if err := h.service.UpdateProperty(&property); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Property with ID %s not found", propertyID),
			})
		}
		log.Printf("Error updating property %s: %v", propertyID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update property",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(property)
}

// HandleDeleteProperty removes a listing by its ID.
func (h *PropertyHandler) HandleDeleteProperty(c *fiber.Ctx) error {
	propertyID := c.Params("id")

	if err := h.service.DeleteProperty(propertyID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Property with ID %s not found", propertyID),
			})
		}
		log.Printf("Error deleting property %s: %v", propertyID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not delete property",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": fmt.Sprintf("Property with ID %s deleted", propertyID),
	})
}

// HandleReplaceAll overwrites the whole collection, the bulk import path for
// admin tooling.
func (h *PropertyHandler) HandleReplaceAll(c *fiber.Ctx) error {
	var properties []models.Property
	if err := c.BodyParser(&properties); err != nil {
		log.Printf("Error parsing request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	for _, property := range properties {
		if msgs := h.validateProperty(property); msgs != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Validation failed",
				"errors":  msgs,
			})
		}
	}

	if err := h.service.ReplaceAll(properties); err != nil {
		log.Printf("Error replacing properties: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not replace properties",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": fmt.Sprintf("%d properties saved", len(properties)),
	})
}

// validateProperty returns per-field messages when the record fails struct
// validation, or nil when it is well formed.
func (h *PropertyHandler) validateProperty(property models.Property) map[string]string {
	if err := h.validate.Struct(property); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return errorMessages
	}
	return nil
}
