package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newAuthApp(m *AuthMiddleware) *fiber.App {
	app := fiber.New()
	app.Get("/whoami", m.Authenticate(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"userId":   GetUserID(c),
			"username": GetUsername(c),
		})
	})
	return app
}

func TestAuthenticate(t *testing.T) {
	m := NewAuthMiddleware("test-secret")
	app := newAuthApp(m)

	t.Run("Valid Token", func(t *testing.T) {
		token, err := m.GenerateToken("u1", "alice")
		if err != nil {
			t.Fatalf("generating token: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("Missing Header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("Wrong Scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Basic abc")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		other := NewAuthMiddleware("other-secret")
		token, err := other.GenerateToken("u1", "alice")
		if err != nil {
			t.Fatalf("generating token: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
	})
}
