package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"azlistings/internal/handlers"
	"azlistings/internal/middleware"
	"azlistings/internal/models"
	"azlistings/internal/repositories"
	"azlistings/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupApp wires a Fiber app the way main does, with the property store in a
// temp dir and admin accounts in in-memory SQLite.
func setupApp(t *testing.T) (*fiber.App, *services.AuthService, error) {
	t.Helper()

	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to in-memory database: %w", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		return nil, nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	propertyRepo := repositories.NewFilePropertyRepository(filepath.Join(t.TempDir(), "properties.json"))
	userRepo := repositories.NewGORMUserRepository(db)

	propertyService := services.NewPropertyService(propertyRepo, nil) // nil for RabbitMQ client
	authService := services.NewAuthService(userRepo, jwtSecret)

	propertyHandler := handlers.NewPropertyHandler(propertyService)
	authHandler := handlers.NewAuthHandler(authService)

	app := fiber.New()

	apiV1 := app.Group("/api/v1")

	// Public routes
	authHandler.RegisterRoutes(apiV1)
	propertyHandler.RegisterPublicRoutes(apiV1)

	// Admin routes behind JWT auth
	adminRoutes := apiV1.Group("", middleware.AuthRequired(authService))
	propertyHandler.RegisterAdminRoutes(adminRoutes)

	return app, authService, nil
}

// registerAndLogin creates an admin account and returns a bearer token for it.
func registerAndLogin(t *testing.T, app *fiber.App, username string) string {
	t.Helper()

	userToRegister := map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	}
	jsonBody, _ := json.Marshal(userToRegister)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	loginCredentials := map[string]string{
		"username": username,
		"password": "password123",
	}
	jsonBody, _ = json.Marshal(loginCredentials)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp map[string]string
	err = json.NewDecoder(resp.Body).Decode(&loginResp)
	assert.NoError(t, err)
	resp.Body.Close()
	token := loginResp["token"]
	assert.NotEmpty(t, token)
	return token
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

func TestAuthRegisterAndLogin(t *testing.T) {
	app, authService, err := setupApp(t)
	assert.NoError(t, err)

	token := registerAndLogin(t, app, "authuser")

	// Duplicate registration conflicts.
	userToRegister := map[string]string{
		"username": "authuser",
		"email":    "authuser@example.com",
		"password": "password123",
	}
	jsonBody, _ := json.Marshal(userToRegister)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// The token round-trips through the auth service.
	claims, err := authService.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "authuser", claims["username"])
	assert.Contains(t, claims, "user_id")
}

func TestPublicPropertyEndpoints(t *testing.T) {
	app, _, err := setupApp(t)
	assert.NoError(t, err)

	// --- GET /properties returns the seeded catalog without auth ---
	req := httptest.NewRequest(http.MethodGet, "/api/v1/properties", nil)
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var properties []models.Property
	err = json.NewDecoder(resp.Body).Decode(&properties)
	assert.NoError(t, err)
	assert.Len(t, properties, 3)
	assert.Equal(t, "prop_1", properties[0].ID)
	assert.Equal(t, "123 Oak Street, Riverside", properties[0].Location)
	resp.Body.Close()

	// --- GET /properties/featured ---
	req = httptest.NewRequest(http.MethodGet, "/api/v1/properties/featured", nil)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var featured []models.Property
	err = json.NewDecoder(resp.Body).Decode(&featured)
	assert.NoError(t, err)
	assert.Len(t, featured, 3) // the whole default catalog is featured
	resp.Body.Close()

	// --- GET /properties/:id ---
	req = httptest.NewRequest(http.MethodGet, "/api/v1/properties/prop_2", nil)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var property models.Property
	err = json.NewDecoder(resp.Body).Decode(&property)
	assert.NoError(t, err)
	assert.Equal(t, "prop_2", property.ID)
	assert.Equal(t, "456 City Center, Downtown", property.Location)
	resp.Body.Close()

	// --- GET /properties/:id for a missing listing is a 404 ---
	req = httptest.NewRequest(http.MethodGet, "/api/v1/properties/prop_99", nil)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminEndpointsRequireAuth(t *testing.T) {
	app, _, err := setupApp(t)
	assert.NoError(t, err)

	newProperty := map[string]interface{}{
		"name":     "Unauthorized Bungalow",
		"price":    "$100,000",
		"location": "Nowhere",
		"sqft":     400,
	}
	jsonBody, _ := json.Marshal(newProperty)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/properties", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/properties/prop_1", nil)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestPropertyAdminLifecycle(t *testing.T) {
	app, _, err := setupApp(t)
	assert.NoError(t, err)

	token := registerAndLogin(t, app, "lifecycleadmin")

	// --- POST /properties (protected) ---
	newProperty := map[string]interface{}{
		"name":        "Lakeside Cabin",
		"price":       "$210,000",
		"location":    "55 Shore Road, Lakeside",
		"bedrooms":    2,
		"bathrooms":   1,
		"sqft":        800,
		"description": "Small cabin right on the waterline.",
		"featured":    false,
	}
	jsonBody, _ := json.Marshal(newProperty)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/properties", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Property
	err = json.NewDecoder(resp.Body).Decode(&created)
	assert.NoError(t, err)
	// Seeds occupy prop_1..prop_3, so the new listing gets prop_4.
	assert.Equal(t, "prop_4", created.ID)
	assert.Equal(t, models.StatusForSale, created.Status)
	assert.NotEmpty(t, created.DateCreated)
	resp.Body.Close()

	// --- PUT /properties/:id (protected) ---
	updated := map[string]interface{}{
		"name":        "Lakeside Cabin Deluxe",
		"price":       "$240,000",
		"location":    "55 Shore Road, Lakeside",
		"bedrooms":    3,
		"bathrooms":   1,
		"sqft":        950,
		"description": "Now with an extra bedroom.",
		"featured":    true,
	}
	jsonBody, _ = json.Marshal(updated)
	req = httptest.NewRequest(http.MethodPut, "/api/v1/properties/prop_4", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var afterUpdate models.Property
	err = json.NewDecoder(resp.Body).Decode(&afterUpdate)
	assert.NoError(t, err)
	assert.Equal(t, "prop_4", afterUpdate.ID)
	assert.Equal(t, "Lakeside Cabin Deluxe", afterUpdate.Name)
	assert.Equal(t, created.DateCreated, afterUpdate.DateCreated)
	resp.Body.Close()

	// --- PUT on a missing listing is a 404 ---
	req = httptest.NewRequest(http.MethodPut, "/api/v1/properties/prop_77", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// --- DELETE /properties/:id (protected) ---
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/properties/prop_4", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	req = httptest.NewRequest(http.MethodGet, "/api/v1/properties/prop_4", nil)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestPropertyValidation(t *testing.T) {
	app, _, err := setupApp(t)
	assert.NoError(t, err)

	token := registerAndLogin(t, app, "validationadmin")

	// Missing name and price, zero sqft.
	invalid := map[string]interface{}{
		"location": "1 Incomplete Way",
		"sqft":     0,
	}
	jsonBody, _ := json.Marshal(invalid)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/properties", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&body)
	assert.NoError(t, err)
	assert.Equal(t, "Validation failed", body["message"])
	resp.Body.Close()
}

func TestBulkReplace(t *testing.T) {
	app, _, err := setupApp(t)
	assert.NoError(t, err)

	token := registerAndLogin(t, app, "bulkadmin")

	records := []models.Property{
		{
			ID:          "prop_9",
			Name:        "Test Loft",
			Price:       "$300,000",
			Location:    "X",
			Bedrooms:    1,
			Bathrooms:   1,
			Sqft:        500,
			Status:      models.StatusForSale,
			Description: "d",
			Images:      []string{},
			Featured:    false,
			DateCreated: "2024-01-01T00:00:00Z",
			DateUpdated: "2024-01-01T00:00:00Z",
		},
	}
	jsonBody, _ := json.Marshal(records)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/properties", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The replacement collection is what the public surface now serves.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/properties", nil)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var properties []models.Property
	err = json.NewDecoder(resp.Body).Decode(&properties)
	assert.NoError(t, err)
	assert.Len(t, properties, 1)
	assert.Equal(t, records[0], properties[0])
	resp.Body.Close()

	// The seeded prop_1 is gone; the store was replaced wholesale.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/properties/prop_1", nil)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
