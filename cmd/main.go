package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/bd31600/planning/internal/handler"
	"github.com/bd31600/planning/internal/identity"
	"github.com/bd31600/planning/internal/middleware"
	"github.com/bd31600/planning/internal/repository/postgres"
	"github.com/bd31600/planning/internal/schedule"

	_ "github.com/bd31600/planning/docs"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (customValidator *CustomValidator) Validate(i interface{}) error {
	if err := customValidator.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// @title Training Program Scheduler API
// @version 1.0
// @description RPC endpoint for course sessions, room reservations and the role-scoped calendar

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @BasePath /api
// @schemes https http

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and an identity-provider token.

func main() {
	godotenv.Load()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	e := echo.New()

	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.POST, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Timezone-Offset"},
	}))

	e.Validator = &CustomValidator{validator: validator.New()}

	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		panic("DATABASE_URL not set")
	}

	storage, err := postgres.NewConnection(connString)
	if err != nil {
		panic(err)
	}
	defer storage.Close()

	ctx := context.Background()
	if err := storage.ApplySchema(ctx); err != nil {
		panic(err)
	}
	if err := storage.SeedDatabase(ctx); err != nil {
		log.Error("seeding failed", "error", err)
	}

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	var verifier identity.Verifier
	if clientID := os.Getenv("GOOGLE_CLIENT_ID"); clientID != "" {
		verifier = &identity.GoogleVerifier{ClientID: clientID}
	} else {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			panic("neither GOOGLE_CLIENT_ID nor JWT_SECRET set")
		}
		verifier = &identity.HMACVerifier{SigningKey: []byte(secret)}
	}

	deps := handler.Deps{
		Directory: storage,
		Source:    storage,
		Gateway:   postgres.NewGateway(storage),
		Booker:    &schedule.Booker{Store: storage, Log: log},
		Reserver:  storage,
		Sessions:  storage,
		Log:       log,
	}
	handler.SetupRPCRoutes(e, deps, middleware.Auth(verifier))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}
