package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/config"
	"github.com/huntworks/hunt/internal/logger"
	"github.com/huntworks/hunt/internal/match"
	"github.com/huntworks/hunt/internal/model"
	"github.com/huntworks/hunt/internal/pipeline"
)

var pipelineCmd = &cobra.Command{
	Use:       "pipeline [full|discovery|crawl|enrich|embeddings|maintenance|match|digest]",
	Short:     "Run one pipeline stage (or a full run) and exit",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"full", "discovery", "crawl", "enrich", "embeddings", "maintenance", "match", "digest"},
	Run: func(cmd *cobra.Command, args []string) {
		runPipeline(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(pipelineCmd)

	pipelineCmd.Flags().String("ats-type", "", "limit crawl to one ATS type")
	pipelineCmd.Flags().Int("limit", 0, "stage-specific batch limit")
	pipelineCmd.Flags().Bool("skip-discovery", false, "full run: skip the discovery stage")
	pipelineCmd.Flags().Bool("skip-crawl", false, "full run: skip the crawl stage")
	pipelineCmd.Flags().Bool("skip-enrichment", false, "full run: skip the enrichment stage")
	pipelineCmd.Flags().Bool("skip-embeddings", false, "full run: skip the embeddings stage")
}

func runPipeline(cmd *cobra.Command, stage string) {
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

	if err := a.orchestrator.Reconcile(ctx); err != nil {
		zlog.Fatal("reconciling pipeline runs", zap.Error(err))
	}

	limit, _ := cmd.Flags().GetInt("limit")
	o := a.orchestrator

	switch stage {
	case "full":
		skip := pipeline.SkipFlags{}
		skip.Discovery, _ = cmd.Flags().GetBool("skip-discovery")
		skip.Crawl, _ = cmd.Flags().GetBool("skip-crawl")
		skip.Enrichment, _ = cmd.Flags().GetBool("skip-enrichment")
		skip.Embeddings, _ = cmd.Flags().GetBool("skip-embeddings")

		_, err = o.RunOperation(ctx, pipeline.OpFullPipeline, "full_pipeline", true, o.FullPipeline(skip))

	case "discovery":
		_, err = o.RunOperation(ctx, pipeline.OpDiscovery, "discovery", false, o.DiscoveryStage(nil))

	case "crawl":
		atsType, _ := cmd.Flags().GetString("ats-type")
		opType := pipeline.OpCrawlAll
		runStage := "crawl"
		if atsType != "" {
			valid := false
			for _, t := range model.SupportedATS {
				if t == atsType {
					valid = true
					break
				}
			}
			if !valid {
				zlog.Fatal("unsupported ats type", zap.String("ats_type", atsType))
			}
			opType = pipeline.OpCrawl(atsType)
			runStage = "crawl_" + atsType
		}
		_, err = o.RunOperation(ctx, opType, runStage, false, o.CrawlStage(atsType, limit))

	case "enrich":
		_, err = o.RunOperation(ctx, pipeline.OpEnrich, "enrich", false, o.EnrichStage(limit))

	case "embeddings":
		_, err = o.RunOperation(ctx, pipeline.OpEmbeddings, "embeddings", false, o.EmbeddingsStage(limit))

	case "maintenance":
		_, err = o.RunOperation(ctx, pipeline.OpMaintenance, "maintenance", false, o.MaintenanceStage(limit))

	case "match":
		matched, merr := a.matcher.MatchAll(ctx, match.Options{})
		if merr != nil {
			zlog.Fatal("matching", zap.Error(merr))
		}
		fmt.Printf("matched %d candidates\n", matched)
		return

	case "digest":
		sent, derr := a.notifier.DigestAll(ctx)
		if derr != nil {
			zlog.Fatal("sending digests", zap.Error(derr))
		}
		fmt.Printf("sent %d digests\n", sent)
		return
	}

	if err != nil {
		zlog.Fatal("running stage", zap.String("stage", stage), zap.Error(err))
	}
}
