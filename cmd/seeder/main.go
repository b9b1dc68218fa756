//cmd/seeder/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/unclebandit/dmvprep-mailer/internal/config"
	"github.com/unclebandit/dmvprep-mailer/internal/db"
)

func main() {
	cfg := config.Load()
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	database, err := db.Connect(context.Background(), cfg.Database, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	seedFiles := []string{
		"seed/users.sql",
		"seed/campaigns.sql",
	}

	for _, file := range seedFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("failed to read %s: %v", file, err)
		}

		_, err = database.Exec(string(content))
		if err != nil {
			log.Fatalf("failed to execute %s: %v", file, err)
		}
		fmt.Printf("Seeded: %s\n", file)
	}

	fmt.Println("Database seeding completed successfully!")
}
