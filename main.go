package main

import (
	"log"

	_ "drug-risk-service/docs"
	"drug-risk-service/internal/app"
)

// @title Drug Risk Service API
// @version 1.0
// @description Enriches the upstream drug catalog with per-batch risk assessments.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
