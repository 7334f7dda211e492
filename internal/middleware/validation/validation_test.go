package validation

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testApp() *fiber.App {
	app := fiber.New()
	app.Use(Middleware(Config{Logger: zap.NewNop()}))
	app.Post("/api/v1/chat", func(c *fiber.Ctx) error {
		// Echo the sanitized message so tests can observe what the
		// handler would consume.
		if sanitized, ok := c.Locals("sanitized_body").(map[string]interface{}); ok {
			if message, ok := sanitized["message"].(string); ok {
				return c.SendString(message)
			}
		}
		return c.SendString("")
	})
	app.Post("/api/v1/admin/intents", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestChatMessageIsSanitizedForTheHandler(t *testing.T) {
	app := testApp()

	status, body := postJSON(t, app, "/api/v1/chat", `{"message": "  hello there   "}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "hello there", body)
}

func TestChatRejectsMissingMessage(t *testing.T) {
	app := testApp()

	status, _ := postJSON(t, app, "/api/v1/chat", `{"message": "   "}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = postJSON(t, app, "/api/v1/chat", `{"user_id": "u1"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = postJSON(t, app, "/api/v1/chat", `not json`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestChatRejectsScriptInjection(t *testing.T) {
	app := testApp()

	status, _ := postJSON(t, app, "/api/v1/chat", `{"message": "<script>alert(1)</script>"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestChatRejectsOversizeMessage(t *testing.T) {
	app := testApp()

	status, _ := postJSON(t, app, "/api/v1/chat", `{"message": "`+strings.Repeat("a", 3000)+`"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestUnsupportedContentType(t *testing.T) {
	app := testApp()

	req := httptest.NewRequest("POST", "/api/v1/chat", strings.NewReader("message=hi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestAdminTagValidation(t *testing.T) {
	app := testApp()

	status, _ := postJSON(t, app, "/api/v1/admin/intents", `{"tag": "Greeting!"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = postJSON(t, app, "/api/v1/admin/intents", `{"tag": "order_status", "patterns": ["p"], "responses": ["r"]}`)
	assert.Equal(t, fiber.StatusCreated, status)
}
