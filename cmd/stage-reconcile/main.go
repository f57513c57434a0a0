package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"ip-tracking-api/config"
	"ip-tracking-api/repository"
	"ip-tracking-api/services"

	"github.com/joho/godotenv"
)

// stage-reconcile drains the pending stage reconciliation queue once.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config.InitDB()

	engine := services.NewEngine(services.EngineConfig{Store: repository.NewGormStore(config.DB)})
	summary, err := engine.Reconciler.RunPending(context.Background())
	engine.Bus.Wait()
	if err != nil {
		log.Fatalf("stage reconcile failed: %v", err)
	}

	fmt.Printf("Jobs processed: %d (failed: %d)\n", summary.Processed, summary.Failed)
	fmt.Printf("Ledger rows written: %d\n", summary.Rows)

	if summary.Failed > 0 {
		os.Exit(2)
	}
}
