package main

import (
	"flag"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/Nikigner/Personal-Book-Library/internal/api"
	"github.com/Nikigner/Personal-Book-Library/internal/config"
	"github.com/Nikigner/Personal-Book-Library/internal/importer"
	"github.com/Nikigner/Personal-Book-Library/internal/library"
	"github.com/Nikigner/Personal-Book-Library/internal/storage"
)

func main() {
	addrFlag := flag.String("addr", "", "Bind address for the local API (overrides config)")
	dataFlag := flag.String("data", "", "Data directory (overrides config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *addrFlag != "" {
		cfg.ListenAddr = *addrFlag
	}
	if *dataFlag != "" {
		cfg.DataDir = *dataFlag
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	db, err := storage.NewDatabase(cfg.DatabasePath())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	files, err := storage.NewFileStorage(cfg.LibraryDir())
	if err != nil {
		log.Fatalf("Failed to initialize managed storage: %v", err)
	}

	svc := library.NewService(db, files)
	imp := importer.New(db, files)
	handler := api.NewHandler(svc, imp)

	r := gin.Default()

	r.GET("/health", handler.HealthCheck)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/books", handler.ListBooks)
		apiGroup.GET("/books/:id", handler.GetBook)
		apiGroup.PATCH("/books/:id", handler.UpdateBook)
		apiGroup.DELETE("/books/:id", handler.DeleteBook)

		apiGroup.POST("/imports", handler.StartImport)
		apiGroup.GET("/imports/latest", handler.GetImportReport)
	}

	log.Printf("Book library API starting on %s", cfg.ListenAddr)
	log.Printf("Data directory: %s", cfg.DataDir)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
