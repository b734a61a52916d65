package main

import (
	"os"

	"reggie/internal/cli"
)

// @title Reggie API
// @version 1.0
// @description Publishes registered message types to pub/sub topics and stores scenarios and message samples
// @host localhost:8080
// @BasePath /
// @schemes http

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
