package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"stormfit/internal/models"
	"stormfit/pkg/buffers"
	"stormfit/pkg/config"
	"stormfit/pkg/definitions"
	"stormfit/pkg/launch"
	"stormfit/pkg/visualization"
	"stormfit/pkg/window"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "stormfit.yaml", "Path to the YAML configuration file")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	format := flag.String("format", "text", "Output format for the constants table (text or yaml)")
	numFits := flag.Int("fits", 0, "Print the kernel launch plan for this many fits")
	imagePath := flag.String("image", "", "Frame (JPEG or PNG) to cut fitting windows from")
	candidateList := flag.String("candidates", "", "Window centres as x,y pairs separated by ';'")
	frame := flag.Int("frame", 0, "Frame index assigned to the candidates")
	psfSigma := flag.Float64("sigma", 1.0, "Initial PSF width in pixels for the sigma models")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := printTable(*format); err != nil {
		log.Fatalf("Failed to print constants: %v", err)
	}

	if *numFits > 0 {
		plan, err := launch.NewPlan(cfg.LaunchConfig(), *numFits)
		if err != nil {
			log.Fatalf("Failed to plan launch: %v", err)
		}
		printPlan(plan)
	}

	if *imagePath == "" {
		return
	}

	candidates, err := models.ParseCandidates(*candidateList, *frame)
	if err != nil {
		log.Fatalf("Failed to parse candidates: %v", err)
	}
	if len(candidates) == 0 {
		log.Fatal("No candidates given; use -candidates x,y;x,y")
	}

	if err := fitFrame(cfg, *imagePath, candidates, *psfSigma); err != nil {
		log.Fatalf("Window processing failed: %v", err)
	}
}

// printTable writes the constants table to stdout
func printTable(format string) error {
	table := definitions.Table()

	switch format {
	case "yaml":
		data, err := yaml.Marshal(table)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	case "text":
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tLEGACY\tVALUE\tDESCRIPTION")
		for _, e := range table {
			fmt.Fprintf(w, "%s\t%s\t%v\t%s\n", e.Name, e.Legacy, e.Value, e.Description)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown format %q (must be text or yaml)", format)
	}
}

// printPlan describes every kernel invocation of a plan
func printPlan(plan *launch.Plan) {
	fmt.Printf("\nLaunch plan for %d fits (%d threads x %d blocks per kernel):\n",
		plan.NumFits, plan.Config.ThreadsPerBlock, plan.Config.BlocksPerKernel)
	for _, inv := range plan.Invocations {
		fmt.Printf("- invocation %d: fits %d-%d, %d blocks\n",
			inv.Index, inv.Offset, inv.Offset+inv.Count-1, inv.Blocks)
	}
}

// fitFrame cuts windows around the candidates, computes initial parameter
// estimates through the launch executor and prints them
func fitFrame(cfg *config.Config, imagePath string, candidates []models.Candidate, psfSigma float64) error {
	model, err := cfg.Model()
	if err != nil {
		return err
	}

	buf, err := buffers.NewFitBuffers(model, cfg.Fitting.WindowSize, len(candidates))
	if err != nil {
		return err
	}

	startTime := time.Now()
	if err := window.ExtractFile(imagePath, candidates, buf); err != nil {
		return err
	}
	if cfg.Output.Verbose {
		log.Printf("Extracted %d windows of %dx%d pixels from %s",
			buf.NumFits, buf.WindowSize, buf.WindowSize, imagePath)
	}

	plan, err := launch.NewPlan(cfg.LaunchConfig(), buf.NumFits)
	if err != nil {
		return err
	}

	err = plan.Run(func(th launch.Thread) error {
		w, err := buf.Window(th.Fit)
		if err != nil {
			return err
		}
		guess, err := window.InitialGuess(w, buf.WindowSize, model, psfSigma)
		if err != nil {
			return err
		}
		return buf.SetParams(th.Fit, guess)
	})
	if err != nil {
		return err
	}
	if cfg.Output.Verbose {
		log.Printf("Computed %s initial estimates in %v", model, time.Since(startTime))
	}

	printEstimates(buf, candidates)

	if cfg.Output.SaveWindows {
		viewer := visualization.NewViewer(buf)
		if err := viewer.SaveWindowSequence(cfg.Output.WindowDir); err != nil {
			return fmt.Errorf("failed to save windows: %w", err)
		}
		if err := viewer.SaveMontage(filepath.Join(cfg.Output.WindowDir, "montage.jpg"), 8); err != nil {
			return fmt.Errorf("failed to save montage: %w", err)
		}
		fmt.Printf("\nWindows saved to: %s\n", cfg.Output.WindowDir)
	}

	return nil
}

// printEstimates prints one row of parameters per candidate
func printEstimates(buf *buffers.FitBuffers, candidates []models.Candidate) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "\nFRAME\tX\tY")
	for _, name := range buf.Model.ParameterNames() {
		fmt.Fprintf(w, "\t%s", name)
	}
	fmt.Fprintln(w)

	for i, c := range candidates {
		params, err := buf.ParamsAt(i)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%d\t%d\t%d", c.Frame, c.X, c.Y)
		for _, p := range params {
			fmt.Fprintf(w, "\t%.3f", p)
		}
		fmt.Fprintln(w)
	}
	w.Flush()
}
