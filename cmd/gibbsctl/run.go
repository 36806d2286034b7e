package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jihwankim/gibbsfg/pkg/config"
	"github.com/jihwankim/gibbsfg/pkg/core/orchestrator"
	"github.com/jihwankim/gibbsfg/pkg/fixtures"
	"github.com/jihwankim/gibbsfg/pkg/graph"
	"github.com/jihwankim/gibbsfg/pkg/graph/compact"
	"github.com/jihwankim/gibbsfg/pkg/metrics"
	"github.com/jihwankim/gibbsfg/pkg/model"
	"github.com/jihwankim/gibbsfg/pkg/reporting"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Args:  cobra.NoArgs,
	Short: "Compile a built-in factor graph and run learning + inference",
	Long: `Builds one of the seed-test factor graphs in memory, compiles it, and
runs the configured learning and inference loops through the orchestrator.
There is no --graph-file flag: this engine never parses the on-disk binary
format, only a RawFactorGraph a collaborator has already populated.`,
	RunE: runEngine,
}

func init() {
	runCmd.Flags().String("fixture", "biased-coin", "built-in graph: biased-coin, biased-coin-fixed, categorical3")
	runCmd.Flags().String("format", "text", "output format of the final run report (text, json)")
}

func runEngine(cmd *cobra.Command, args []string) error {
	fixtureName, _ := cmd.Flags().GetString("fixture")
	outputFormat, _ := cmd.Flags().GetString("format")

	opts, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logLevel := reporting.LogLevel(opts.Logging.Level)
	if verbose {
		logLevel = reporting.LogLevelDebug
	}
	if opts.ShouldBeQuiet {
		logLevel = reporting.LogLevelWarn
	}
	logger := reporting.NewLogger(reporting.LoggerConfig{
		Level:  logLevel,
		Format: reporting.LogFormat(opts.Logging.Format),
		Output: os.Stdout,
	})

	logger.Info("gibbsctl starting", "version", version, "fixture", fixtureName)

	raw, err := buildFixture(fixtureName)
	if err != nil {
		return fmt.Errorf("failed to build fixture %q: %w", fixtureName, err)
	}
	logger.Info("fixture built", "variables", raw.NumVariables(), "factors", raw.NumFactors(), "weights", raw.NumWeights())

	cfg, err := compact.Compile(raw)
	if err != nil {
		return fmt.Errorf("failed to compile factor graph: %w", err)
	}
	logger.Info("factor graph compiled", "descriptor", cfg.Describe().String())

	var reg *metrics.Registry
	if opts.Metrics.Enabled {
		reg = metrics.New(fixtureName)
		go func() {
			if err := reg.Serve(cmd.Context(), opts.Metrics.Addr); err != nil {
				logger.Error("metrics server stopped", "error", err.Error())
			}
		}()
	}

	orch := orchestrator.New(opts, logger, reg)

	ctx := context.Background()
	replica, summary, err := orch.Run(ctx, cfg)

	progressReporter := reporting.NewProgressReporter(reporting.OutputFormat(outputFormat), logger)
	if summary != nil {
		progressReporter.ReportRunCompleted(summary)
		progressReporter.ReportWeightSnippet(summary.FinalWeights, 10)
	}

	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if replica != nil {
		reportMarginals(progressReporter, replica)
		replica.Result.LogSnippet(logger, replica.Graph.Variables, 10)
		replica.Result.LogHistogram(logger, replica.Graph.Variables)
	}
	return nil
}

func buildFixture(name string) (*graph.RawFactorGraph, error) {
	switch name {
	case "biased-coin":
		return fixtures.BiasedCoin()
	case "biased-coin-fixed":
		return fixtures.BiasedCoinFixedWeight()
	case "categorical3":
		return fixtures.Categorical3Way()
	default:
		return nil, fmt.Errorf("unknown fixture %q", name)
	}
}

func reportMarginals(pr *reporting.ProgressReporter, replica *orchestrator.Replica) {
	snapshots := make([]reporting.MarginalSnapshot, 0, len(replica.Graph.Variables))
	for _, v := range replica.Graph.Variables {
		card := 1
		if v.DomainType == model.Categorical {
			card = int(v.Cardinality)
		}
		margs := make([]float64, card)
		for k := 0; k < card; k++ {
			p, err := replica.Result.Marginal(v, k)
			if err != nil {
				continue
			}
			margs[k] = p
		}
		snapshots = append(snapshots, reporting.MarginalSnapshot{
			VariableID: uint64(v.ID),
			NSamples:   replica.Result.AggNSamples[v.ID],
			Marginals:  margs,
		})
	}
	pr.ReportMarginalSnippet(snapshots, 10)
}
