package main

import (
	"os"

	"github.com/biblioteka/backend/internal/bootstrap"
	"github.com/biblioteka/backend/internal/pkg/logger"
	"github.com/biblioteka/backend/internal/server"
)

// @title Library API
// @version 1.0
// @description Staff API for the university library network: catalog, circulation, reading rooms, fines and waitlists.

// @contact.name Library IT
// @contact.email library-it@example.org

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token issued by the identity provider

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = bootstrap.DefaultConfigPath
	}

	srv, err := server.NewServer(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
