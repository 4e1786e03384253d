package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"wayfarer/cmd/fx/config_fx"
	"wayfarer/cmd/fx/conversation_fx"
	"wayfarer/cmd/fx/db_fx"
	"wayfarer/cmd/fx/distance_matrix_fx"
	"wayfarer/cmd/fx/journey_fx"
	"wayfarer/cmd/fx/logger_fx"
	"wayfarer/cmd/fx/mail_fx"
	"wayfarer/cmd/fx/memcache_fx"
	"wayfarer/cmd/fx/metrics_fx"
	"wayfarer/cmd/fx/poi_embedded_fx"
	poisfx "wayfarer/cmd/fx/pois_fx"
	"wayfarer/cmd/fx/prompt_fx"
)

var rootCmd = &cobra.Command{
	Use:   "wayfarer",
	Short: "Conversational trip planner",
	Long: `Wayfarer collects trip preferences in conversation, builds a day-by-day
itinerary from real places, and applies natural-language edits to it.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// coreModules wires everything except the HTTP surface.
func coreModules() fx.Option {
	return fx.Options(
		config_fx.Module,
		logger_fx.Module,
		metrics_fx.Module,
		db_fx.Module,
		memcache_fx.Module,
		distance_matrix_fx.Module,
		prompt_fx.Module,
		poisfx.Module,
		poi_embedded_fx.Module,
		journey_fx.Module,
		mail_fx.Module,
		conversation_fx.Module,
	)
}
