package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/config"
	"github.com/huntworks/hunt/internal/logger"
	"github.com/huntworks/hunt/internal/model"
)

const (
	PromptApprove = "Approve (queue for intake)"
	PromptReject  = "Reject (skip)"
	PromptSkip    = "Decide later"
	PromptQuit    = "Quit"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Interactively review discovery queue items flagged for manual review",
	Run: func(_ *cobra.Command, _ []string) {
		review()
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func review() {
	ctx := context.Background()

	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal("loading config", zap.Error(err))
	}

	a, err := buildApp(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("wiring application", zap.Error(err))
	}
	defer a.close()

	items, err := a.st.Queue.List(ctx, model.QueueStatusReview, 100)
	if err != nil {
		zlog.Fatal("listing review items", zap.Error(err))
	}
	if len(items) == 0 {
		fmt.Println("nothing awaiting review")
		return
	}

	prompt := promptui.Select{
		Label: "Decision",
		Items: []string{PromptApprove, PromptReject, PromptSkip, PromptQuit},
	}

	for _, item := range items {
		fmt.Printf("\n%s (%s)\n  source: %s  industry: %s  country: %s\n",
			item.Name, item.Domain, item.Source, item.Industry, item.Country)

		_, decision, err := prompt.Run()
		if err != nil {
			zlog.Fatal("prompt failed", zap.Error(err))
		}

		switch decision {
		case PromptApprove:
			if err := a.st.Queue.SetStatus(ctx, item.ID, model.QueueStatusPending); err != nil {
				zlog.Fatal("approving item", zap.Error(err))
			}
		case PromptReject:
			if err := a.st.Queue.SetStatus(ctx, item.ID, model.QueueStatusSkipped); err != nil {
				zlog.Fatal("rejecting item", zap.Error(err))
			}
		case PromptQuit:
			return
		}
	}
}
