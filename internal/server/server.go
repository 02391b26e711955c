// Package server exposes scheduling over HTTP.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/TudorHulban/taskpacker"
	"github.com/TudorHulban/taskpacker/internal/config"
	"github.com/TudorHulban/taskpacker/internal/loader"
	"github.com/TudorHulban/taskpacker/internal/runner"
	"github.com/TudorHulban/taskpacker/internal/store"
)

// Config for the HTTP API handler.
type Config struct {
	Store    *store.Store   // nil disables persistence
	Settings *config.Config // nil means config.Default()
	Logger   *log.Logger
	BasePath string
}

// New returns an HTTP handler exposing the Taskpacker API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if cfg.Settings == nil {
		cfg.Settings = config.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	huma.DefaultArrayNullable = false

	router := chi.NewRouter()
	hcfg := huma.DefaultConfig("Taskpacker API", "0.1.0")
	hcfg.OpenAPIPath = basePath + "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerSchedules(group, &cfg)

	return router, nil
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerSchedules(api huma.API, cfg *Config) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-schedule",
		Method:        http.MethodPost,
		Path:          "/schedules",
		Summary:       "Solve a scheduling document",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body ScheduleRequest `json:"body"`
	}) (*struct {
		Body ScheduleResponse `json:"body"`
	}, error) {
		request := &input.Body

		if request.Persist && cfg.Store == nil {
			return nil, huma.Error400BadRequest("persistence is not configured")
		}

		plan, err := loader.Build(&request.Document)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}

		result, err := runner.Run(ctx, &runner.Params{
			Plan:     plan,
			Settings: cfg.Settings,
			Logger:   cfg.Logger,

			Mode:         request.Mode,
			WindowPolicy: request.WindowPolicy,
			Optimize:     request.Optimize,
			LowerBound:   request.LowerBound,
			UpperBound:   request.UpperBound,
			TimeLimit:    time.Duration(request.TimeLimitMs) * time.Millisecond,
		})
		if err != nil {
			return nil, handleError(err)
		}

		response := scheduleResponse(result)
		response.Name = request.Name

		if request.Persist {
			run, err := result.Save(ctx, cfg.Store, request.Name)
			if err != nil {
				cfg.Logger.Printf("server: save run: %v", err)

				return nil, huma.Error500InternalServerError("could not store the schedule")
			}

			response.ID = run.ID
		}

		return &struct {
			Body ScheduleResponse `json:"body"`
		}{Body: response}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-schedule",
		Method:      http.MethodGet,
		Path:        "/schedules/{id}",
		Summary:     "Get a stored schedule",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body ScheduleResponse `json:"body"`
	}, error) {
		if cfg.Store == nil {
			return nil, huma.Error404NotFound("persistence is not configured")
		}

		run, err := cfg.Store.GetRun(ctx, input.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, huma.Error404NotFound("schedule not found")
			}

			cfg.Logger.Printf("server: get run %s: %v", input.ID, err)

			return nil, huma.Error500InternalServerError("could not load the schedule")
		}

		response, err := runResponse(run)
		if err != nil {
			return nil, huma.Error500InternalServerError(err.Error())
		}

		return &struct {
			Body ScheduleResponse `json:"body"`
		}{Body: response}, nil
	})
}

// handleError maps solve errors to statuses: no schedule within the
// constraints is a 422, anything else is a bad request.
func handleError(err error) huma.StatusError {
	if taskpacker.IsNoSolution(err) {
		return huma.Error422UnprocessableEntity(err.Error())
	}

	return huma.Error400BadRequest(err.Error())
}
