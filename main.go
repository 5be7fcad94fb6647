package main

import (
	"context"
	"log"

	"guest_tracker/app"
	"guest_tracker/config"
	"guest_tracker/routes"
)

func main() {
	config.LoadEnv()
	cfg := config.MustLoad()

	application := app.MustNew(cfg)
	defer application.Close()

	if _, err := app.BootstrapFirstAdmin(context.Background(), cfg, application.Repo); err != nil {
		log.Printf("[BOOTSTRAP] %v", err)
	}

	routes.RegisterRoutes(application.Router, application)

	log.Printf("listening on :%s", cfg.Port)
	if err := application.Router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
