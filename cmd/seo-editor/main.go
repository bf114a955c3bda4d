package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/edgecomet/seoeditor/internal/common/logger"
	"github.com/edgecomet/seoeditor/internal/editor/app"
)

func main() {
	configPath := flag.String("c", "configs/seo-editor.yaml", "path to seo-editor configuration file")
	flag.Parse()

	// Console logger until the configured one is built
	initialLogger, err := logger.NewDefaultLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	initialLogger.Info("Starting SEO editor",
		zap.String("config_path", *configPath))

	if err := app.Run(*configPath, initialLogger.Logger); err != nil {
		initialLogger.Fatal("SEO editor failed", zap.Error(err))
	}
}
