// Package main provides the seed command that loads area polygons from a
// GeoJSON file into the destination store. Listings are assigned to these
// areas during the load phase.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/magicmaxmagic/ScrappingBot/internal/config"
	"github.com/magicmaxmagic/ScrappingBot/internal/loader"
	"github.com/magicmaxmagic/ScrappingBot/internal/models"
	"github.com/magicmaxmagic/ScrappingBot/pkg/geo"
	"github.com/magicmaxmagic/ScrappingBot/pkg/metadata"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
)

func logInfo(msg string) {
	fmt.Printf("%s[SEED]%s %s\n", colorGreen, colorReset, msg)
}

func logWarn(msg string) {
	fmt.Printf("%s[SEED]%s %s\n", colorYellow, colorReset, msg)
}

func logError(msg string) {
	fmt.Printf("%s[SEED]%s %s\n", colorRed, colorReset, msg)
}

func main() {
	geojsonPath := flag.String("geojson", "", "GeoJSON FeatureCollection of area polygons")
	dsn := flag.String("dsn", "", "PostgreSQL connection string (overrides config and environment)")
	city := flag.String("city", "Montreal", "City assigned to areas without a city property")
	nameProperty := flag.String("name-property", "", "Feature property holding the area name (auto-detected when empty)")
	flag.Parse()

	if *geojsonPath == "" {
		logError("Please provide a GeoJSON file with -geojson")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		logError(fmt.Sprintf("Configuration error: %v", err))
		os.Exit(1)
	}

	if *dsn != "" {
		cfg.Database.URL = *dsn
	}

	data, err := os.ReadFile(*geojsonPath)
	if err != nil {
		logError(fmt.Sprintf("Failed to read %s: %v", *geojsonPath, err))
		os.Exit(1)
	}

	logInfo(fmt.Sprintf("Input fingerprint: %s", metadata.Fingerprint(data)))

	features, err := geo.ParseFeatureCollection(data)
	if err != nil {
		logError(fmt.Sprintf("Failed to parse %s: %v", *geojsonPath, err))
		os.Exit(1)
	}

	if len(features) == 0 {
		logWarn("No polygonal features found, nothing to seed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := loader.NewPostgresStore(ctx, cfg.Database.DSN())
	if err != nil {
		logError(fmt.Sprintf("Failed to connect to destination store: %v", err))
		os.Exit(1)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logError(fmt.Sprintf("Failed to ensure schema: %v", err))
		os.Exit(1)
	}

	seeded, skipped := 0, 0

	for i, feature := range features {
		area, ok := buildArea(feature, *nameProperty, *city)
		if !ok {
			logWarn(fmt.Sprintf("Feature %d has no usable name property, skipping", i))
			skipped++

			continue
		}

		if len(feature.Polygons) > 1 {
			logWarn(fmt.Sprintf("Area %q has %d polygons, keeping the largest", area.Name, len(feature.Polygons)))
		}

		id, err := store.UpsertArea(ctx, area)
		if err != nil {
			logError(fmt.Sprintf("Failed to upsert area %q: %v", area.Name, err))
			os.Exit(1)
		}

		logInfo(fmt.Sprintf("Seeded area %q (id=%d)", area.Name, id))
		seeded++
	}

	logInfo("===========================================")
	logInfo(fmt.Sprintf("Seeding complete: %d areas, %d skipped", seeded, skipped))
	logInfo("===========================================")
}

// buildArea maps a GeoJSON feature onto an area row. Multi-polygon
// features keep their largest polygon, which matches how boroughs with
// islands are assigned.
func buildArea(feature geo.Feature, nameProperty, fallbackCity string) (*models.Area, bool) {
	nameKeys := []string{"name", "NOM", "Name", "NAME", "nom"}
	if nameProperty != "" {
		nameKeys = []string{nameProperty}
	}

	name := feature.Property(nameKeys...)
	if name == "" {
		return nil, false
	}

	city := feature.Property("city", "VILLE", "ville")
	if city == "" {
		city = fallbackCity
	}

	poly, ok := feature.LargestPolygon()
	if !ok {
		return nil, false
	}

	return &models.Area{Name: name, City: city, Polygon: poly}, true
}
