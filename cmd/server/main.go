package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"gopkg.in/yaml.v3"

	"github.com/zeohealth/zeo-server/internal/chat"
	"github.com/zeohealth/zeo-server/internal/cleanup"
	"github.com/zeohealth/zeo-server/internal/handlers"
	"github.com/zeohealth/zeo-server/internal/jobs"
	"github.com/zeohealth/zeo-server/internal/mcp"
	"github.com/zeohealth/zeo-server/internal/notify"
	"github.com/zeohealth/zeo-server/internal/pipeline"
	"github.com/zeohealth/zeo-server/internal/queue"
	"github.com/zeohealth/zeo-server/internal/storage"
)

const version = "1.0.0"

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	// WebSocket.Port > 0 runs the real-time channel on its own
	// listener (the production port split); otherwise /ws is served
	// from the HTTP app.
	WebSocket struct {
		Port int `yaml:"port"`
	} `yaml:"websocket"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Storage struct {
		UploadDir string `yaml:"upload_dir"`
		OutputDir string `yaml:"output_dir"`
		Database  string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeMinutes   int `yaml:"max_age_minutes"`
	} `yaml:"cleanup"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	MCP struct {
		Servers []mcp.ServerConfig `yaml:"servers"`
	} `yaml:"mcp"`
}

func main() {
	config, err := loadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	env := getenv("ZEO_ENV", "development")

	if err := cleanup.EnsureDirExists(config.Storage.UploadDir); err != nil {
		log.Fatalf("Failed to create upload directory: %v", err)
	}
	if err := os.MkdirAll(config.Storage.OutputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	// Custom logger setup
	logBuffer := &LogBuffer{
		lines: make([]string, 0, 1000),
	}
	multiWriter := io.MultiWriter(os.Stdout, logBuffer)
	log.SetOutput(multiWriter)

	log.Println("Initializing components...")

	registry := jobs.NewRegistry()
	hub := notify.NewHub()

	mcpClient := mcp.NewClient(config.MCP.Servers)
	if !mcpClient.Connected() {
		log.Println("WARNING: No MCP servers enabled - transcription runs in fallback mode")
	} else {
		log.Printf("MCP servers enabled: %v", mcpClient.ConnectedServers())
	}

	xaiClient := chat.NewXAIClient(os.Getenv("XAI_API_KEY"))
	if !xaiClient.Configured() {
		log.Println("WARNING: XAI_API_KEY not set - chat endpoint will report a configuration error")
	}

	processor := pipeline.NewProcessor(registry, hub, mcpClient, mcpClient)

	localStore := storage.NewLocalStore(config.Storage.OutputDir)

	// Google Drive export (optional - may fail if credentials not set up)
	var driveClient *storage.DriveClient
	if _, err := os.Stat(config.GoogleDrive.CredentialsFile); err == nil {
		driveClient, err = storage.NewDriveClient(
			config.GoogleDrive.CredentialsFile,
			config.GoogleDrive.TokenFile,
			config.GoogleDrive.FolderName,
		)
		if err != nil {
			log.Printf("WARNING: Google Drive not available: %v", err)
			log.Println("Transcripts will only be saved locally")
			driveClient = nil
		} else {
			log.Println("Google Drive export enabled")
		}
	} else {
		log.Println("Google Drive credentials not found - saving locally only")
	}

	archiveDB, err := storage.NewArchiveDB(config.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize archive database: %v", err)
	}
	defer archiveDB.Close()

	workerPool := queue.NewWorkerPool(
		config.Workers.Count,
		processor,
		registry,
		localStore,
		driveClient,
		archiveDB,
	)
	workerPool.Start()

	cleanupScheduler := cleanup.NewScheduler(
		registry,
		config.Storage.UploadDir,
		config.Cleanup.IntervalMinutes,
		config.Cleanup.MaxAgeMinutes,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	app := fiber.New(fiber.Config{
		BodyLimit: config.Limits.MaxFileSizeMB * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(corsConfig(env)))

	uploadHandler := handlers.NewUploadHandler(registry, workerPool, config.Storage.UploadDir, config.Limits.MaxFileSizeMB)
	statusHandler := handlers.NewStatusHandler(registry)
	chatHandler := handlers.NewChatHandler(xaiClient)
	healthHandler := handlers.NewHealthHandler(mcpClient, xaiClient, env, version)
	wsHandler := handlers.NewWSHandler(hub)

	app.Get("/health", healthHandler.Handle)
	app.Get("/mcp/servers", healthHandler.HandleServers)
	app.Post("/upload", uploadHandler.Handle)
	app.Get("/status/:jobId", statusHandler.Handle)
	app.Post("/chat", chatHandler.Handle)

	// Archived transcript metadata
	app.Get("/transcripts", func(c *fiber.Ctx) error {
		limit := 50
		transcripts, err := archiveDB.ListTranscripts(limit)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(transcripts)
	})

	// Archived transcript text
	app.Get("/transcripts/:id/text", func(c *fiber.Ctx) error {
		record, err := archiveDB.GetTranscript(c.Params("id"))
		if err != nil {
			return c.Status(404).JSON(fiber.Map{"error": "Transcript not found"})
		}

		content, err := os.ReadFile(record.LocalPath)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "Failed to read transcript file"})
		}
		return c.SendString(string(content))
	})

	// Server logs
	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	app.Static("/", "./public")

	// Real-time channel: dedicated listener in production, shared
	// listener otherwise.
	var wsApp *fiber.App
	if config.WebSocket.Port > 0 {
		wsApp = fiber.New()
		wsApp.Use(recover.New())
		wsApp.Get("/ws", websocket.New(wsHandler.Handle))

		go func() {
			wsAddr := fmt.Sprintf("%s:%d", config.Server.Host, config.WebSocket.Port)
			log.Printf("WebSocket server starting on %s", wsAddr)
			if err := wsApp.Listen(wsAddr); err != nil {
				log.Fatalf("WebSocket server failed: %v", err)
			}
		}()
	} else {
		app.Get("/ws", websocket.New(wsHandler.Handle))
	}

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	log.Printf("ZEO server starting on %s (env: %s)", addr, env)
	log.Println("Endpoints:")
	log.Println("   POST /upload           - Upload audio for transcription")
	log.Println("   GET  /status/:jobId    - Poll job status")
	log.Println("   GET  /ws               - Real-time progress updates")
	log.Println("   POST /chat             - Clinical assistant chat")
	log.Println("   GET  /mcp/servers      - MCP fleet status")
	log.Println("   GET  /transcripts      - List archived transcripts")
	log.Println("   GET  /health           - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		if wsApp != nil {
			wsApp.Shutdown()
		}
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// corsConfig allows everything in development and restricts to the
// ALLOWED_ORIGINS list in production.
func corsConfig(env string) cors.Config {
	if env == "production" {
		if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
			return cors.Config{
				AllowOrigins:     origins,
				AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
				AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
				AllowCredentials: true,
			}
		}
	}
	return cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}
}

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}

// loadConfig loads configuration from YAML file and applies environment
// overrides used by the deployment platform.
func loadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	if port, ok := getenvInt("PORT"); ok {
		config.Server.Port = port
	}
	if port, ok := getenvInt("WEBSOCKET_PORT"); ok {
		config.WebSocket.Port = port
	}
	if size, ok := getenvInt("MAX_FILE_SIZE_MB"); ok {
		config.Limits.MaxFileSizeMB = size
	}

	return &config, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
