package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"wayfarer/internal/domain"
	"wayfarer/internal/models/response_models"
	"wayfarer/internal/services"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Plan a trip from the terminal",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	var (
		conversation services.ConversationServiceInterface
		exporter     services.ExportServiceInterface
	)
	app := fx.New(
		coreModules(),
		fx.Decorate(func(log *zap.Logger) *zap.Logger {
			return log.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))
		}),
		fx.NopLogger,
		fx.Populate(&conversation, &exporter),
	)
	ctx := cmd.Context()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = app.Stop(context.Background()) }()

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Where would you like to go? (type \"quit\" to leave)")
	scanner := bufio.NewScanner(os.Stdin)
	sessionID := ""
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		res, err := conversation.Chat(ctx, sessionID, line)
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			sessionID = ""
			continue
		}
		sessionID = res.SessionID
		if res.State == domain.StateReset {
			sessionID = ""
		}

		fmt.Fprintln(out, res.Message)
		if res.Itinerary != nil && res.Status == response_models.StatusSuccess {
			md := exporter.Markdown(*res.Itinerary, res.Sources)
			rendered, err := renderer.Render(md)
			if err != nil {
				rendered = md
			}
			fmt.Fprint(out, rendered)
		}
	}
}
