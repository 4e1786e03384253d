package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"wayfarer/internal/domain"
	"wayfarer/internal/models/db_models"
	"wayfarer/internal/repositories"
	"wayfarer/internal/services"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.yaml>",
	Short: "Load curated places and guide passages into Postgres",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

type ingestFile struct {
	Destination string        `yaml:"destination"`
	Places      []ingestPlace `yaml:"places"`
	Guides      []ingestGuide `yaml:"guides"`
}

type ingestPlace struct {
	Name            string   `yaml:"name"`
	Lat             float64  `yaml:"lat"`
	Lng             float64  `yaml:"lng"`
	Category        string   `yaml:"category"`
	Tags            []string `yaml:"tags"`
	OpeningHours    string   `yaml:"opening_hours"`
	DurationMinutes int      `yaml:"duration_minutes"`
	Rating          *float64 `yaml:"rating"`
	Description     string   `yaml:"description"`
	Indoor          *bool    `yaml:"indoor"`
}

type ingestGuide struct {
	Title   string   `yaml:"title"`
	Text    string   `yaml:"text"`
	Locator string   `yaml:"locator"`
	URL     string   `yaml:"url"`
	Tags    []string `yaml:"tags"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var file ingestFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	if file.Destination == "" {
		return fmt.Errorf("%s: destination is required", args[0])
	}

	var (
		catalog   repositories.CatalogRepository
		retrieval services.RetrievalServiceInterface
	)
	app := fx.New(coreModules(), fx.NopLogger, fx.Populate(&catalog, &retrieval))
	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = app.Stop(context.Background()) }()

	if catalog == nil {
		return fmt.Errorf("ingest needs POSTGRES_URL")
	}
	for _, p := range file.Places {
		id, err := catalog.Create(ctx, &db_models.CatalogPOI{
			Destination:     file.Destination,
			Name:            p.Name,
			Latitude:        p.Lat,
			Longitude:       p.Lng,
			Category:        p.Category,
			Tags:            pq.StringArray(p.Tags),
			OpeningHours:    p.OpeningHours,
			DurationMinutes: p.DurationMinutes,
			Rating:          p.Rating,
			Description:     p.Description,
			Indoor:          p.Indoor,
		})
		if err != nil {
			return fmt.Errorf("place %q: %w", p.Name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "place catalog:%s %s\n", id, p.Name)
	}
	for _, g := range file.Guides {
		snippet := domain.Snippet{Title: g.Title, Text: g.Text, Locator: g.Locator, URL: g.URL}
		if err := retrieval.Index(ctx, file.Destination, snippet, g.Tags); err != nil {
			return fmt.Errorf("guide %q: %w", g.Locator, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "guide %s %s\n", g.Locator, g.Title)
	}
	return nil
}
