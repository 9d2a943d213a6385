package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bikeservice/internal/config"
	"bikeservice/internal/database"
	"bikeservice/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type BikesConfig struct {
	Bikes []models.Bike `yaml:"bikes"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run upserts the catalog from YAML, matching existing bikes by name and model.
func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		bikesPath = flag.String("bikes", "configs/bikes.yaml", "path to bikes.yaml")
		dbPath    = flag.String("db", "./data/bikeservice.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*bikesPath)
	if err != nil {
		return fmt.Errorf("read bikes: %w", err)
	}
	var cfg BikesConfig
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse bikes: %w", err)
	}
	if len(cfg.Bikes) == 0 {
		return fmt.Errorf("no bikes in yaml")
	}
	if err = config.ValidateBikes(cfg.Bikes); err != nil {
		return err
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created := 0
	updated := 0
	for i := range cfg.Bikes {
		bike := &cfg.Bikes[i]
		existing, err := db.GetBikesByName(ctx, bike.Name)
		if err != nil {
			return fmt.Errorf("get %s: %w", bike.Name, err)
		}

		if match := findModel(existing, bike.Model); match != nil {
			bike.ID = match.ID
			if err = db.UpdateBike(ctx, bike); err != nil {
				return fmt.Errorf("update %s %s: %w", bike.Name, bike.Model, err)
			}
			updated++
			continue
		}
		if err = db.CreateBike(ctx, bike); err != nil {
			return fmt.Errorf("create %s %s: %w", bike.Name, bike.Model, err)
		}
		created++
	}

	fmt.Printf("done: created=%d updated=%d\n", created, updated)
	return nil
}

func findModel(bikes []*models.Bike, model string) *models.Bike {
	for _, b := range bikes {
		if strings.EqualFold(b.Model, model) {
			return b
		}
	}
	return nil
}
