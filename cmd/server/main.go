package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/compliance-checker/backend/internal/api"
	"github.com/compliance-checker/backend/internal/config"
	"github.com/compliance-checker/backend/internal/gateway"
	"github.com/compliance-checker/backend/internal/history"
	"github.com/compliance-checker/backend/internal/orchestrator"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	configPath := filepath.Join(exeDir, "compliance-checker.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	if cfg.Evaluation.APIKey == "" {
		fmt.Println("Warning: no API credential configured (set EVAL_API_KEY); uploads and executions will be rejected")
	}

	uploadClient := &http.Client{Timeout: time.Duration(cfg.Evaluation.UploadTimeoutSeconds) * time.Second}
	workflowClient := &http.Client{Timeout: time.Duration(cfg.Evaluation.WorkflowTimeoutSeconds) * time.Second}

	// Audit store is optional; the tracker alone carries history without it.
	var sink orchestrator.HistorySink
	var auditStore *history.Store
	if cfg.Storage.EnableAuditStore {
		auditStore, err = history.NewStore(cfg.Storage.TempDirectory)
		if err != nil {
			fmt.Printf("Warning: audit store unavailable, falling back to in-memory history: %v\n", err)
		} else {
			sink = auditStore
			defer auditStore.Close()
		}
	}

	orch := orchestrator.New(orchestrator.Config{
		Uploads:    gateway.NewHTTPUploadGateway(cfg.Evaluation.BaseURL, uploadClient),
		Workflows:  gateway.NewHTTPWorkflowGateway(cfg.Evaluation.BaseURL, workflowClient),
		Credential: cfg.Evaluation.APIKey,
		UserID:     cfg.Evaluation.User,
		Sink:       sink,
	})

	wsHandler := api.NewWebSocketHandler()
	orch.AddListener(wsHandler.Broadcast)

	handlers := api.NewHandlers(&api.Dependencies{
		Orchestrator: orch,
		Version:      Version,
	})

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/status") || path == "/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			// Uploads and the websocket outlive the request timeout.
			path := c.Request().URL.Path
			return strings.Contains(path, "/upload") ||
				strings.Contains(path, "/ws/") ||
				strings.Contains(path, "/export")
		},
		ErrorMessage: "Request timeout",
	}))

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}

	api.RegisterRoutes(e, handlers)
	e.GET("/api/ws/events", wsHandler.HandleEvents)

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Compliance Checker Server                       ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Service:   %-46s║\n", cfg.Evaluation.BaseURL)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	e.Logger.Fatal(e.StartServer(s))
}
