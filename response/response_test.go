package response

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	rmserrors "github.com/signatur/rms-go-pkg/errors"
	"github.com/signatur/rms-go-pkg/grid"

	"github.com/gofiber/fiber/v3"
)

func TestError_BizError(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Get("/err", func(c fiber.Ctx) error {
		return Error(c, rmserrors.New(rmserrors.ErrCodeInvalidArgument, "bad request"))
	})

	req := httptest.NewRequest("GET", "/err", nil)
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("unexpected status: got=%d want=%d", resp.StatusCode, fiber.StatusBadRequest)
	}

	var got Result
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Code != int(rmserrors.ErrCodeInvalidArgument) {
		t.Fatalf("unexpected code: got=%d want=%d", got.Code, int(rmserrors.ErrCodeInvalidArgument))
	}
	if got.Msg != "bad request" {
		t.Fatalf("unexpected msg: got=%q want=%q", got.Msg, "bad request")
	}
}

func TestError_ClientViolation(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Post("/write", func(c fiber.Ctx) error {
		return Error(c, rmserrors.ErrClientViolation)
	})

	req := httptest.NewRequest("POST", "/write", nil)
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("unexpected status: got=%d want=%d", resp.StatusCode, fiber.StatusConflict)
	}
}

func TestGridData(t *testing.T) {
	t.Parallel()

	type row struct {
		ID int64 `json:"id"`
	}
	app := fiber.New()
	app.Get("/list", func(c fiber.Ctx) error {
		return GridData(c, &grid.Result[row]{
			Items:      []row{{ID: 1}, {ID: 2}},
			TotalCount: 57,
			Page:       2,
			PageSize:   25,
		})
	})

	req := httptest.NewRequest("GET", "/list", nil)
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	var got Result
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data, ok := got.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data shape: %T", got.Data)
	}
	if data["total_count"].(float64) != 57 || data["page"].(float64) != 2 {
		t.Fatalf("unexpected grid payload: %v", data)
	}
}
