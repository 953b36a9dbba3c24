package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/nodecast/internal/config"
	"github.com/san-kum/nodecast/internal/dataset"
	"github.com/san-kum/nodecast/internal/dynamo"
	"github.com/san-kum/nodecast/internal/experiment"
	"github.com/san-kum/nodecast/internal/models"
	"github.com/san-kum/nodecast/internal/store"
	"github.com/san-kum/nodecast/internal/tui"
	"github.com/san-kum/nodecast/internal/viz"
)

var (
	dataDir    string
	resultsDir string
	verbose    bool

	datasetName string
	solver      string
	modelsCSV   string
	runName     string
	configFile  string
	presetName  string
	live        bool

	batchSize    int
	epochs       int
	seed         int64
	runTimes     int
	learningRate float64
	weightDecay  float64
	patience     int
	clipNorm     float64

	trajectories int
	observeSteps int
	extrapolate  bool
	normalize    bool
	noiseStd     float64
	missing      float64
	avgTerms     int
	windowWidth  int
	outOfDist    bool
	external     bool

	hiddenUnits int
	latentDim   int
	augmentDim  int
	tol         float64

	plotModel string
	plotSeed  int64
	plotIndex int
	pngDir    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nodecast",
		Short: "continuous-time forecasting benchmark",
		Long:  "nodecast trains neural ODE and baseline forecasters on synthetic and real time series and compares them across seeds.",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "datasets", "directory with CSV source data")
	rootCmd.PersistentFlags().StringVar(&resultsDir, "results", "results", "directory for run checkpoints")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "train and score the configured models",
		RunE:  runBenchmark,
	}
	runCmd.Flags().StringVar(&datasetName, "dataset", "sine", "dataset (sine, mfred, nrel)")
	runCmd.Flags().StringVar(&solver, "solver", "euler", "ODE solver (euler, rk4, dopri5)")
	runCmd.Flags().StringVar(&modelsCSV, "models", "node,persistence", "comma-separated models to run")
	runCmd.Flags().StringVar(&runName, "name", "", "run name (defaults to the dataset)")
	runCmd.Flags().StringVar(&configFile, "config", "", "YAML config file")
	runCmd.Flags().StringVar(&presetName, "preset", "", "named preset for the dataset")
	runCmd.Flags().BoolVar(&live, "live", false, "live terminal monitor")

	runCmd.Flags().IntVar(&batchSize, "batch-size", config.DefaultBatchSize, "training batch size")
	runCmd.Flags().IntVar(&epochs, "epochs", config.DefaultEpochs, "training epochs")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "base random seed")
	runCmd.Flags().IntVar(&runTimes, "run-times", config.DefaultRunTimes, "seeds to repeat the run over")
	runCmd.Flags().Float64Var(&learningRate, "lr", config.DefaultLearningRate, "Adam learning rate")
	runCmd.Flags().Float64Var(&weightDecay, "weight-decay", 0, "Adam weight decay")
	runCmd.Flags().IntVar(&patience, "patience", config.DefaultPatience, "early stopping patience in epochs")
	runCmd.Flags().Float64Var(&clipNorm, "clip", 0, "gradient norm clip (0 disables)")

	runCmd.Flags().IntVar(&trajectories, "trajectories", config.DefaultTrajectories, "trajectories to sample")
	runCmd.Flags().IntVar(&observeSteps, "observe-steps", config.DefaultObserveSteps, "observed steps per trajectory")
	runCmd.Flags().BoolVar(&extrapolate, "extrap", true, "forecast the suffix; false interpolates masked values")
	runCmd.Flags().BoolVar(&normalize, "normalize", true, "standardize channels with train statistics")
	runCmd.Flags().Float64Var(&noiseStd, "noise-std", 0, "observation noise std")
	runCmd.Flags().Float64Var(&missing, "missing", 0, "fraction of masked entries (interpolation only)")
	runCmd.Flags().IntVar(&avgTerms, "avg-terms", 1, "block-average window over time")
	runCmd.Flags().IntVar(&windowWidth, "window-width", 0, "rows per CSV trajectory window")
	runCmd.Flags().BoolVar(&outOfDist, "ood", true, "chronological split instead of a random permutation")
	runCmd.Flags().BoolVar(&external, "external", false, "keep exogenous forecast channels")

	runCmd.Flags().IntVar(&hiddenUnits, "hidden", config.DefaultHiddenUnits, "hidden units")
	runCmd.Flags().IntVar(&latentDim, "latent-dim", config.DefaultLatentDim, "latent ODE state dimension")
	runCmd.Flags().IntVar(&augmentDim, "augment", 0, "augmented ODE channels")
	runCmd.Flags().Float64Var(&tol, "tol", config.DefaultTol, "adaptive solver tolerance")

	datasetsCmd := &cobra.Command{
		Use:   "datasets",
		Short: "list datasets and their presets",
		RunE:  listDatasets,
	}

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list saved run checkpoints",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run]",
		Short: "plot a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotModel, "model", "", "model label to plot (empty lists the models)")
	plotCmd.Flags().Int64Var(&plotSeed, "seed", 0, "seed of the checkpoint")
	plotCmd.Flags().IntVar(&plotIndex, "index", 0, "test trajectory index for the forecast plot")
	plotCmd.Flags().StringVar(&pngDir, "png", "", "also write PNG plots to this directory")

	exportCmd := &cobra.Command{
		Use:   "export [run]",
		Short: "export a run checkpoint as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().Int64Var(&plotSeed, "seed", 0, "seed of the checkpoint")

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "write the default config to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Save(args[0], config.DefaultConfig())
		},
	}

	rootCmd.AddCommand(runCmd, datasetsCmd, runsCmd, plotCmd, exportCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()

	if presetName != "" {
		p := config.GetPreset(datasetName, presetName)
		if p == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", presetName, config.ListPresets(datasetName))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	applyFlags(cmd, cfg)

	specs, err := specsFromConfig(cfg)
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		return fmt.Errorf("no models selected")
	}

	st := store.New(cfg.ResultsDir)
	if err := st.Init(); err != nil {
		return err
	}

	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	name := runName
	if name == "" {
		name = cfg.Dataset
	}

	run := &experiment.Run{
		Name:    name,
		Dataset: cfg.Dataset,
		DatasetOpts: dataset.Options{
			BatchSize:            cfg.BatchSize,
			Extrap:               cfg.Extrapolate,
			TrajectoriesToSample: cfg.Trajectories,
			PercentMissing:       cfg.Missing,
			Normalize:            cfg.Normalize,
			OutOfDistribution:    cfg.OutOfDist,
			NoiseStd:             cfg.NoiseStd,
			ObserveSteps:         cfg.ObserveSteps,
			AvgTerms:             cfg.AvgTerms,
			WindowWidth:          cfg.WindowWidth,
			ExternalFeature:      cfg.External,
			DataDir:              cfg.DataDir,
		},
		Specs:        specs,
		Seed:         cfg.Seed,
		RunTimes:     cfg.RunTimes,
		LearningRate: cfg.LearningRate,
		WeightDecay:  cfg.WeightDecay,
		Train: experiment.TrainOptions{
			Epochs:   cfg.Epochs,
			Patience: cfg.Patience,
			ClipNorm: cfg.ClipNorm,
		},
		Store: st,
		Log:   log,
	}

	fmt.Printf("running %s benchmark (%d seeds)...\n", cfg.Dataset, cfg.RunTimes)
	start := time.Now()

	var summary *experiment.Summary
	if live {
		summary, err = runLive(run)
	} else {
		summary, err = experiment.RunAll(run)
	}
	if err != nil && summary == nil {
		return err
	}

	fmt.Printf("completed in %v\n", time.Since(start))
	printSummary(summary)
	if err != nil {
		fmt.Printf("\nsome models failed:\n%v\n", err)
	}
	return nil
}

// runLive drives the run in the background and feeds each validated epoch
// to the terminal monitor. Logging is silenced so it does not fight the
// redraw loop.
func runLive(run *experiment.Run) (*experiment.Summary, error) {
	run.Log.SetOutput(io.Discard)

	updates := make(chan tui.EpochUpdate, 64)
	run.Train.OnEpoch = func(model string, epoch int, trainLoss, valLoss float64, nfe int) {
		updates <- tui.EpochUpdate{
			Model:     model,
			Epoch:     epoch,
			TrainLoss: trainLoss,
			ValLoss:   valLoss,
			NFE:       nfe,
		}
	}

	var summary *experiment.Summary
	var runErr error
	go func() {
		summary, runErr = experiment.RunAll(run)
		close(updates)
	}()

	prog := tea.NewProgram(tui.NewMonitor(updates))
	if _, err := prog.Run(); err != nil {
		return nil, err
	}
	// Drain so the runner never blocks on a quit monitor.
	for range updates {
	}
	return summary, runErr
}

func printSummary(summary *experiment.Summary) {
	labels := summary.Labels()
	if len(labels) == 0 {
		fmt.Println("no results")
		return
	}
	means := make(map[string]float64, len(labels))
	stds := make(map[string]float64, len(labels))
	for _, label := range labels {
		means[label], stds[label] = summary.MeanStd(label)
	}
	fmt.Println()
	fmt.Println(viz.SummaryTable(labels, means, stds))
}

// applyFlags lets explicit CLI flags override preset and config file values.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("dataset") {
		cfg.Dataset = datasetName
	}
	if f.Changed("solver") {
		cfg.Solver = solver
	}
	if f.Changed("models") {
		cfg.Models = modelsCSV
	}
	if f.Changed("batch-size") {
		cfg.BatchSize = batchSize
	}
	if f.Changed("epochs") {
		cfg.Epochs = epochs
	}
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("run-times") {
		cfg.RunTimes = runTimes
	}
	if f.Changed("lr") {
		cfg.LearningRate = learningRate
	}
	if f.Changed("weight-decay") {
		cfg.WeightDecay = weightDecay
	}
	if f.Changed("patience") {
		cfg.Patience = patience
	}
	if f.Changed("clip") {
		cfg.ClipNorm = clipNorm
	}
	if f.Changed("trajectories") {
		cfg.Trajectories = trajectories
	}
	if f.Changed("observe-steps") {
		cfg.ObserveSteps = observeSteps
	}
	if f.Changed("extrap") {
		cfg.Extrapolate = extrapolate
	}
	if f.Changed("normalize") {
		cfg.Normalize = normalize
	}
	if f.Changed("noise-std") {
		cfg.NoiseStd = noiseStd
	}
	if f.Changed("missing") {
		cfg.Missing = missing
	}
	if f.Changed("avg-terms") {
		cfg.AvgTerms = avgTerms
	}
	if f.Changed("window-width") {
		cfg.WindowWidth = windowWidth
	}
	if f.Changed("ood") {
		cfg.OutOfDist = outOfDist
	}
	if f.Changed("external") {
		cfg.External = external
	}
	if f.Changed("hidden") {
		cfg.HiddenUnits = hiddenUnits
	}
	if f.Changed("latent-dim") {
		cfg.LatentDim = latentDim
	}
	if f.Changed("augment") {
		cfg.AugmentDim = augmentDim
	}
	if f.Changed("tol") {
		cfg.Tol = tol
	}
	if f.Changed("data") {
		cfg.DataDir = dataDir
	}
	if f.Changed("results") {
		cfg.ResultsDir = resultsDir
	}
}

func specsFromConfig(cfg *config.Config) ([]experiment.ModelSpec, error) {
	method, err := dynamo.ParseMethod(cfg.Solver)
	if err != nil {
		return nil, err
	}

	var specs []experiment.ModelSpec
	for _, name := range strings.Split(cfg.Models, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		spec := experiment.ModelSpec{
			Hidden:    cfg.HiddenUnits,
			LatentDim: cfg.LatentDim,
			Method:    method,
			Tol:       cfg.Tol,
		}

		if strings.HasPrefix(name, "persistence_") {
			kind, err := models.ParsePersistenceKind(strings.TrimPrefix(name, "persistence_"))
			if err != nil {
				return nil, err
			}
			spec.Kind = experiment.KindPersistence
			spec.Persistence = kind
			specs = append(specs, spec)
			continue
		}

		kind, err := experiment.ParseModelKind(name)
		if err != nil {
			return nil, err
		}
		spec.Kind = kind
		if kind == experiment.KindNODE || kind == experiment.KindLatentNODE {
			spec.AugmentDim = cfg.AugmentDim
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func listDatasets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATASET\tPRESETS")
	for _, name := range dataset.Names() {
		presets := config.ListPresets(name)
		if len(presets) == 0 {
			fmt.Fprintf(w, "%s\t-\n", name)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", name, strings.Join(presets, ", "))
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := store.New(resultsDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	for _, run := range runs {
		fmt.Println(run)
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := store.New(resultsDir)
	cp, err := st.Load(args[0], plotSeed)
	if err != nil {
		return err
	}

	if plotModel == "" {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tTEST RMSE\tEPOCHS")
		for name, mr := range cp.Models {
			fmt.Fprintf(w, "%s\t%.6f\t%d\n", name, mr.TestRMSE, len(mr.TrainLosses))
		}
		return w.Flush()
	}

	mr, ok := cp.Models[plotModel]
	if !ok {
		return fmt.Errorf("no model %q in run %s (seed %d)", plotModel, args[0], plotSeed)
	}

	fmt.Printf("run: %s\ndataset: %s\nmodel: %s\ntest rmse: %.6f\n\n",
		args[0], cp.Dataset, plotModel, mr.TestRMSE)
	fmt.Println(viz.LossPanel(mr.TrainLosses, mr.ValLosses))
	fmt.Println(viz.NFEPanel(mr.TrainNFEs))

	if pngDir != "" {
		if err := os.MkdirAll(pngDir, 0755); err != nil {
			return err
		}
		lossPath := filepath.Join(pngDir, plotModel+"_loss.png")
		if err := viz.SaveLossPlot(lossPath, mr.TrainLosses, mr.ValLosses); err != nil {
			return err
		}
		fcPath := filepath.Join(pngDir, plotModel+"_forecast.png")
		err := viz.SaveForecastPlot(fcPath, plotModel,
			mr.TestTrajs.Trajectories(), mr.TestPreds.Trajectories(), plotIndex)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %s and %s\n", lossPath, fcPath)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := store.New(resultsDir)
	cp, err := st.Load(args[0], plotSeed)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cp)
}
