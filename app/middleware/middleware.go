package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog/log"
)

func SetupMiddleware(router fiber.Router, allowOrigins string) {

	if allowOrigins == "" {
		allowOrigins = "*"
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET,POST",
	}))
	router.Use(errorHandle)
	router.Use(logRequest)

}

// fiber.Error 는 그 코드로, 나머지는 400
func errorHandle(c *fiber.Ctx) error {

	err := c.Next()
	if err != nil {
		log.Error().Err(err).Str("endpoint", c.Path()).Msg("Error in middleware")

		code := fiber.StatusBadRequest
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		return c.Status(code).SendString(err.Error())
	}
	return nil
}

func logRequest(c *fiber.Ctx) error {
	log.Info().Str("endpoint", c.Path()).Msg("Request endpoint")
	if body := c.Body(); len(body) > 0 {
		log.Debug().Str("body", string(body)).Msg("Request body")
	}
	return c.Next()
}
