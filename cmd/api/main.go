// main.go - The entry point and router setup.

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bosocmputer/display_audit_gemini/configs"
	"github.com/bosocmputer/display_audit_gemini/internal/ai"
	"github.com/bosocmputer/display_audit_gemini/internal/api"
	"github.com/bosocmputer/display_audit_gemini/internal/audit"
	"github.com/bosocmputer/display_audit_gemini/internal/imagestore"
	"github.com/bosocmputer/display_audit_gemini/internal/storage"
	"github.com/gin-gonic/gin"
)

func main() {
	// Step 0: Load configuration from environment variables
	configs.LoadConfig()

	if ginMode := os.Getenv("GIN_MODE"); ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Step 1: Image storage (creates UPLOAD_DIR if needed)
	images, err := imagestore.New(configs.UPLOAD_DIR, configs.MAX_UPLOAD_MB)
	if err != nil {
		log.Fatalf("Failed to initialize image storage: %v", err)
	}

	// Step 2: MongoDB connection and indexes
	if err := storage.InitMongoDB(); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer storage.CloseMongoDB()
	repo := storage.NewRepository(storage.GetMongoDB())

	// Step 3: Gemini client
	aiClient, err := ai.NewClient(context.Background())
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	defer aiClient.Close()

	service := audit.NewService(repo, images, aiClient)

	// Step 4: Initialize the Gin router
	router := gin.Default()

	// CORS middleware - configure allowed origins for production
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", configs.ALLOWED_ORIGINS)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Root endpoint for SSL verification
	router.GET("/", func(c *gin.Context) {
		c.String(200, "ok")
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "display-audit",
			"version": "1.0.0",
		})
	})

	// Stored images are served back at the same locations handed out on upload
	router.Static(imagestore.LocationPrefix, images.Dir())

	// Step 5: API routes
	handler := api.NewHandler(repo, images, service)
	handler.RegisterRoutes(router)

	// Step 6: HTTP server with timeouts
	srv := &http.Server{
		Addr:           ":" + configs.PORT,
		Handler:        router,
		ReadTimeout:    30 * time.Second, // batch uploads can be large
		WriteTimeout:   3 * time.Minute,  // allow up to 3 minutes for AI processing
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("Starting server on :%s", configs.PORT)
		log.Println("API Endpoints:")
		log.Println("  GET/POST      /api/stores")
		log.Println("  GET/POST      /api/categories")
		log.Println("  GET/POST      /api/tasks")
		log.Println("  GET/POST      /api/audit-results")
		log.Println("  POST          /api/audit-results/batch")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
