package app

import (
	"bytes"
	"encoding/json"
	"fmt"

	financebladi "financebladi"
	"financebladi/app/handler"
	"financebladi/app/middleware"
	"financebladi/export"

	"github.com/gofiber/fiber/v2"
)

// hr 은 nil 가능. 그 경우 이력은 로컬 백업에서 조회
func New(allowOrigins string, local *export.LocalStore, hr handler.RecordRetriever, fb *financebladi.FinanceBladi) *fiber.App {

	app := fiber.New(fiber.Config{
		JSONEncoder:           jsonEncoder,
		DisableStartupMessage: true,
	})

	middleware.SetupMiddleware(app, allowOrigins)

	handler.NewReportHandler(local, local, hr, fb).InitRoute(app)
	handler.NewEventHandler(fb, fb, fb).InitRoute(app)

	return app
}

func Run(port int, app *fiber.App) error {
	return app.Listen(fmt.Sprintf(":%d", port))
}

// memo. 컬럼명 "S&P 500" 의 & 가 \u0026 로 나가지 않도록 HTML escape 해제
func jsonEncoder(v interface{}) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buffer.Bytes(), "\n"), nil
}
