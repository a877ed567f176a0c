package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/config"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/database"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/migration"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/repository"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "configs/config.local.yaml", "config file path")
	verify := flag.Bool("verify", false, "report friend pairs whose two records disagree")
	repair := flag.Bool("repair", false, "move inconsistent friend pairs to their resolved state")
	verbose := flag.Bool("verbose", false, "verbose SQL logging")
	flag.Parse()

	loaded, err := config.LoadDotEnv()
	if err != nil {
		log.Printf("Warning: %v", err)
	} else if len(loaded) == 0 {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logLevel := gormlogger.Warn
	if *verbose {
		logLevel = gormlogger.Info
	}

	db, err := database.Open(cfg.Database, logLevel)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get underlying DB: %v", err)
	}
	defer sqlDB.Close()

	start := time.Now()
	if err := migration.Run(db, cfg.Social.OrganizerIDs); err != nil {
		log.Fatalf("[migrate] Failed: %v", err)
	}
	log.Printf("[migrate] Schema ready, %d organizer(s) seeded (%s)", len(cfg.Social.OrganizerIDs), time.Since(start))

	if *verify || *repair {
		runVerify(db, *repair)
	}
}

// --- Verify ---

func runVerify(db *gorm.DB, repair bool) {
	ctx := context.Background()

	issues, err := migration.AuditPairs(ctx, db)
	if err != nil {
		log.Fatalf("[verify] Failed: %v", err)
	}

	fmt.Println()
	fmt.Println("╔══════════════════════╦══════════════════════╦════════════════╗")
	fmt.Println("║ Account A            ║ Account B            ║ Resolved       ║")
	fmt.Println("╠══════════════════════╬══════════════════════╬════════════════╣")
	for _, issue := range issues {
		resolved := issue.Resolved.String()
		if issue.Dangling {
			resolved = "missing B"
		}
		fmt.Printf("║ %-20s ║ %-20s ║ %-14s ║\n", issue.AID, issue.BID, resolved)
	}
	fmt.Println("╚══════════════════════╩══════════════════════╩════════════════╝")
	fmt.Printf("%d inconsistent pair(s)\n\n", len(issues))

	if !repair || len(issues) == 0 {
		return
	}

	repaired, err := migration.RepairPairs(ctx, repository.NewAccountRepository(db, nil), issues)
	if err != nil {
		log.Fatalf("[repair] Stopped after %d pair(s): %v", repaired, err)
	}
	log.Printf("[repair] %d pair(s) repaired", repaired)
}
