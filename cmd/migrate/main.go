package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"ip-tracking-api/config"
	"ip-tracking-api/repository"
	"ip-tracking-api/services"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var (
		seed     bool
		seedPath string
	)
	flag.BoolVar(&seed, "seed", false, "seed stage graphs and document requirements after migrating")
	flag.StringVar(&seedPath, "seed-file", config.DefaultStageSeedPath, "YAML stage seed file")
	flag.Parse()

	config.InitDB()

	if err := repository.AutoMigrate(config.DB); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}
	fmt.Println("Tables migrated")

	if !seed {
		return
	}

	stageSeed, err := config.LoadStageSeed(seedPath)
	if err != nil {
		log.Fatalf("load stage seed: %v", err)
	}

	engine := services.NewEngine(services.EngineConfig{Store: repository.NewGormStore(config.DB)})
	summary, err := engine.Stages.ApplySeed(context.Background(), stageSeed, "migrate")
	engine.Bus.Wait()
	if err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	fmt.Printf("Stages created: %d, requirements created: %d, skipped: %d\n",
		summary.Stages,
		summary.Requirements,
		summary.Skipped,
	)
}
