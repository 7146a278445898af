package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/pedocs-forecast/internal/forecast"
	"github.com/i474232898/pedocs-forecast/internal/ingest"
	"github.com/i474232898/pedocs-forecast/internal/model"
	"github.com/i474232898/pedocs-forecast/internal/weather"
)

var validate = validator.New()

const requestIDKey = "requestid"

// Predictor runs the forecast pipeline on an uploaded CSV.
type Predictor interface {
	Predict(ctx context.Context, raw []byte) ([]forecast.Point, error)
}

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins  []string
	RateLimitMax    int
	RateLimitWindow time.Duration
	MaxUploadBytes  int
	Logger          logr.Logger
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// NewApp builds the Fiber app with global middleware and all routes.
func NewApp(opts Options, predictor Predictor) *fiber.App {
	json := jsoniter.ConfigCompatibleWithStandardLibrary

	app := fiber.New(fiber.Config{
		AppName:               "pedocs-forecast",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		// Room for multipart framing around the file itself.
		BodyLimit:    opts.MaxUploadBytes + 64<<10,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: ErrorHandler,
	})

	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: requestIDKey,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(opts.AllowedOrigins, ","),
		AllowMethods: "GET,POST,OPTIONS",
	}))

	RegisterRoutes(app, opts, predictor)
	return app
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, opts Options, predictor Predictor) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Post("/predict", rateLimit(opts), predictHandler(opts, predictor))
}

// rateLimit bounds /predict per client IP over a sliding window. Rejected
// requests never reach the handler.
func rateLimit(opts Options) fiber.Handler {
	limit, window := opts.RateLimitMax, opts.RateLimitWindow
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	message := fmt.Sprintf("rate limit exceeded: %d per %s", limit, describeWindow(window))

	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, message)
		},
		LimiterMiddleware: limiter.SlidingWindow{},
	})
}

func describeWindow(d time.Duration) string {
	switch {
	case d == time.Minute:
		return "1 minute"
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}

// upload describes the multipart file of a /predict request.
type upload struct {
	Filename string `validate:"required"`
	Size     int64  `validate:"gt=0"`
}

func predictHandler(opts Options, predictor Predictor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, `multipart field "file" is required`)
		}

		if err := validate.Struct(upload{Filename: fh.Filename, Size: fh.Size}); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "uploaded file is empty")
		}
		if opts.MaxUploadBytes > 0 && fh.Size > int64(opts.MaxUploadBytes) {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge,
				fmt.Sprintf("uploaded file exceeds %d bytes", opts.MaxUploadBytes))
		}

		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not read uploaded file")
		}
		defer f.Close()

		raw, err := io.ReadAll(f)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not read uploaded file")
		}

		log := opts.Logger
		if id, ok := c.Locals(requestIDKey).(string); ok {
			log = log.WithValues("request_id", id)
		}
		ctx := logr.NewContext(c.UserContext(), log)

		points, err := predictor.Predict(ctx, raw)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(points)
	}
}

// toHTTPError maps pipeline failures onto status codes.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ingest.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, weather.ErrUpstream):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case errors.Is(err, model.ErrModel):
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusServiceUnavailable, "request canceled")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
}
