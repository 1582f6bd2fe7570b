package controllers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"traintrack/backend/config"
	"traintrack/backend/models"
	"traintrack/backend/routes"
	"traintrack/backend/utils"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	cfg *config.Config
}

// newTestEnv builds a fresh app on an isolated in-memory database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, utils.Migrate(db))

	cfg := &config.Config{
		JWTSecret:       "testsecret",
		TokenTTL:        time.Hour,
		SessionTokenTTL: time.Hour,
	}

	app := fiber.New()
	routes.SetupRoutes(app, db, cfg)

	return &testEnv{app: app, db: db, cfg: cfg}
}

// staff creates an active staff user and returns it with a login token.
func (env *testEnv) staff(t *testing.T, role, email string) (*models.User, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Name:         role + " user",
		Email:        &email,
		PasswordHash: string(hash),
		Role:         role,
		Status:       models.StatusActive,
	}
	require.NoError(t, env.db.Create(&user).Error)

	token, err := utils.GenerateJWTToken(&user, env.cfg)
	require.NoError(t, err)
	return &user, token
}

// trainee creates a trainee identified by phone number.
func (env *testEnv) trainee(t *testing.T, name, phone string) *models.User {
	t.Helper()

	user := models.User{
		Name:        name,
		PhoneNumber: &phone,
		Department:  "operations",
		Role:        models.RoleTrainee,
		Status:      models.StatusActive,
	}
	require.NoError(t, env.db.Create(&user).Error)
	return &user
}

// request performs a JSON request against the test app and decodes the body.
func (env *testEnv) request(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

// data extracts the data object from a success envelope.
func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "expected data object in response: %v", body)
	return d
}
