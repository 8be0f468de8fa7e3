package serverutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ba-assistant-be/pkg/store"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool                   `json:"success"`
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func failing(err error) *fiber.App {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/", func(c *fiber.Ctx) error { return err })
	return app
}

func request(path, auth string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return req
}

func call(t *testing.T, app *fiber.App, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestErrorHandlerMiddleware(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"fiber error", fiber.NewError(fiber.StatusNotFound, "nope"), 404},
		{"empty message", store.ErrEmptyMessage, 400},
		{"not found", fmt.Errorf("%w: s1", store.ErrSessionNotFound), 404},
		{"busy", fmt.Errorf("%w: s1", store.ErrSessionBusy), 409},
		{"timeout", fmt.Errorf("%w: s1", store.ErrTurnTimeout), 504},
		{"configuration", &store.ConfigurationError{SessionID: "s1", DocType: store.DocBugFix, Reason: "no template"}, 500},
		{"generation", &store.GenerationError{SessionID: "s1", Err: errors.New("503")}, 502},
		{"render", &store.RenderError{SessionID: "s1", Err: errors.New("disk")}, 502},
		{"unknown", errors.New("boom"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := call(t, failing(tt.err), request("/", ""))
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.code, body.Code)
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Message)
		})
	}
}

type sample struct {
	Message   string `json:"message" validate:"required,max=5"`
	SessionId string `json:"session_id" validate:"omitempty,max=3"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(&sample{Message: "hi"}))

	err := ValidateRequest(&sample{SessionId: "toolong"})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "is required", vErr.Fields["message"])
	assert.Equal(t, "must be at most 3 characters", vErr.Fields["session_id"])

	code, body := call(t, failing(err), request("/", ""))
	assert.Equal(t, 400, code)
	assert.Equal(t, "is required", body.Data["message"])
}

func TestSuccessResponse(t *testing.T) {
	res := SuccessResponse("ok", []int{1})
	assert.True(t, res.Success)
	assert.Equal(t, 200, res.Code)
	assert.Equal(t, []int{1}, res.Data)
}

func sign(t *testing.T, secret string, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.MapClaims{"sub": "admin", "exp": time.Now().Add(time.Hour).Unix()})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJwtMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/admin", JwtMiddleware("secret"), func(c *fiber.Ctx) error {
		return c.JSON(SuccessResponse("ok", map[string]interface{}{"subject": c.Locals("subject")}))
	})

	code, _ := call(t, app, request("/admin", ""))
	assert.Equal(t, 401, code)

	code, body := call(t, app, request("/admin", "Bearer "+sign(t, "other", jwt.SigningMethodHS256)))
	assert.Equal(t, 401, code)
	assert.Equal(t, "Invalid token", body.Message)

	code, body = call(t, app, request("/admin", "Bearer "+sign(t, "secret", jwt.SigningMethodHS256)))
	assert.Equal(t, 200, code)
	assert.Equal(t, "admin", body.Data["subject"])

	open := fiber.New()
	open.Get("/admin", JwtMiddleware(""), func(c *fiber.Ctx) error {
		return c.JSON(SuccessResponse[any]("ok", nil))
	})
	code, body = call(t, open, request("/admin", ""))
	assert.Equal(t, 200, code)
	assert.Equal(t, "ok", body.Message)
}
