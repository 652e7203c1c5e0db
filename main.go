package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bob-anderson-ok/FresnelVolume/fresnel"
	"github.com/bob-anderson-ok/FresnelVolume/preview"
)

const version = "1_0_0"

// Exit codes reported by the command line driver.
const (
	exitUsage         = 1
	exitReadFile      = 2
	exitFormat        = 3
	exitValidation    = 4
	exitGrid          = 5
	exitAperture      = 6
	exitMemory        = 7
	exitScan          = 8
	exitExport        = 9
	exitDarkVolume    = 10
	exitPreview       = 11
	exitMissingOutput = 12
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, format string, args ...interface{}) error {
	return &exitError{code: code, err: fmt.Errorf(format, args...)}
}

type commandOptions struct {
	workers int
	output  string
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	cmd := newRootCommand(&logger)
	if err := cmd.Execute(); err != nil {
		code := exitUsage
		var ee *exitError
		if errors.As(err, &ee) {
			code = ee.code
		}
		logger.Error().Err(err).Int("exit_code", code).Msg("run failed")
		os.Exit(code)
	}
}

func newRootCommand(logger *zerolog.Logger) *cobra.Command {
	opts := &commandOptions{}

	cmd := &cobra.Command{
		Use:           "fresnelvolume <parameter-file>",
		Short:         "Scalar Fresnel diffraction volumes behind an aperture",
		Long:          "Propagates a monochromatic plane wave through an aperture over a range of distances and writes the normalized intensity volume.",
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runSimulation(ctx, args[0], opts, logger)
		},
	}

	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "number of distances propagated in parallel (overrides the parameter file)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output path for the raw volume (overrides output_path)")

	return cmd
}

func runSimulation(ctx context.Context, path string, opts *commandOptions, logger *zerolog.Logger) error {
	programStart := time.Now()

	// Read the json5 (or yaml) parameter file
	data, err := os.ReadFile(path)
	if err != nil {
		return exitWith(exitReadFile, "attempt to read input file %q failed: %w", path, err)
	}

	table, err := parseParameterFile(path, data)
	if err != nil {
		return exitWith(exitFormat, "format error in file %q: %w", path, err)
	}

	var run RunParameters
	msg, ok := validateParameterTableAndFillRun(table, &run)
	if !ok {
		return exitWith(exitValidation, "%s", msg)
	}

	// Check for user wanting printout of complete parameter file
	if run.ShowInput {
		fmt.Printf("%s", "\nPrintout of complete parameter file contents...\n")
		fmt.Println(string(data))
	}

	if opts.workers > 0 {
		run.Workers = opts.workers
	}
	if run.Workers <= 0 {
		run.Workers = runtime.NumCPU()
	}
	if opts.output != "" {
		run.OutputPath = opts.output
	}
	if strings.TrimSpace(run.OutputPath) == "" {
		return exitWith(exitMissingOutput, "output_path: is empty")
	}

	logger.Info().Str("version", version).Str("title", run.Title).Msg("starting")

	g, err := fresnel.NewGrid(run.GridPoints, run.windowSize())
	if err != nil {
		return exitWith(exitGrid, "grid: %w", err)
	}
	logger.Info().
		Int("grid_points", g.N).
		Float64("window_m", g.L).
		Float64("dx_m", g.Dx).
		Msg("sampling grid")

	start := time.Now()
	aperture, halfSize, err := buildAperture(&run, g)
	if err != nil {
		return exitWith(exitAperture, "aperture: %w", err)
	}
	logger.Info().
		Str("shape", run.Aperture.Shape).
		Bool("occulter", run.Aperture.Occulter).
		Float64("open_fraction", aperture.OpenFraction()).
		Dur("elapsed", time.Since(start)).
		Msg("aperture generated")

	zValues := fresnel.ZValues(run.ZMinM, run.ZMaxM, run.NumZ)
	if run.ZMaxM > 0 {
		fresnelScale := fresnel.FresnelScale(run.WavelengthM, run.ZMaxM)
		logger.Info().
			Float64("fresnel_scale_m", fresnelScale).
			Float64("samples_per_fresnel_scale", fresnelScale/g.Dx).
			Float64("critical_distance_m", fresnel.CriticalDistance(g, run.WavelengthM)).
			Msg("sampling at z_max")
	}
	for _, w := range fresnel.Diagnose(g, run.WavelengthM, halfSize, zValues) {
		logger.Warn().Str("kind", string(w.Kind)).Msg(w.Message)
	}

	need, err := checkMemory(g.N, len(zValues))
	if err != nil {
		return exitWith(exitMemory, "memory: %w", err)
	}
	logger.Info().Str("volume_size", formatBytes(need)).Msg("memory check passed")

	newTransform, _ := fresnel.TransformByName(run.Transform)

	start = time.Now()
	vol, err := fresnel.Scan(ctx, aperture.Field(), zValues, run.WavelengthM, g.Dx, fresnel.ScanOptions{
		Workers:      run.Workers,
		NewTransform: newTransform,
	})
	if err != nil {
		return exitWith(exitScan, "%w", err)
	}
	logger.Info().
		Int("num_z", len(zValues)).
		Int("workers", run.Workers).
		Str("transform", run.Transform).
		Dur("elapsed", time.Since(start)).
		Msg("volume scan complete")

	start = time.Now()
	runID := uuid.New().String()
	iv, paths, err := fresnel.NormalizeAndExport(vol, run.OutputPath, fresnel.ExportOptions{
		RunID:      runID,
		Title:      run.Title,
		Wavelength: run.WavelengthM,
		Dx:         g.Dx,
		WriteNPY:   run.WriteNPY,
	})
	if errors.Is(err, fresnel.ErrDarkVolume) {
		return exitWith(exitDarkVolume, "%w", err)
	}
	if err != nil {
		return exitWith(exitExport, "export: %w", err)
	}
	event := logger.Info().
		Str("run_id", runID).
		Str("raw", paths.Raw).
		Str("manifest", paths.Manifest).
		Dur("elapsed", time.Since(start))
	if paths.Npy != "" {
		event = event.Str("npy", paths.Npy)
	}
	event.Msg("volume exported")

	if run.Preview {
		base := strings.TrimSuffix(paths.Raw, filepath.Ext(paths.Raw))
		files, err := preview.WriteAll(iv, base, previewTitle(&run))
		if err != nil {
			return exitWith(exitPreview, "preview: %w", err)
		}
		logger.Info().
			Str("xz", files.SectionXZ).
			Str("xz16", files.SectionXZ16).
			Str("xy_first", files.FirstPlaneXY).
			Str("xy_mid", files.MidPlaneXY).
			Str("xy_last", files.LastPlaneXY).
			Str("axial", files.AxialPlot).
			Msg("previews written")
	}

	logger.Info().Dur("total", time.Since(programStart)).Msg("done")
	return nil
}

func previewTitle(run *RunParameters) string {
	if run.Title != "" {
		return run.Title
	}
	return fmt.Sprintf("On-axis intensity, %s aperture, lambda = %.1f nm", run.Aperture.Shape, run.WavelengthM*1e9)
}
