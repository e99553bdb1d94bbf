package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nmr-annotator/internal/shift"
	"nmr-annotator/internal/trace"
)

var (
	calibrateFlag string
	maxPeaksFlag  int
	jobsFlag      int
)

var parseCmd = &cobra.Command{
	Use:   "parse FILE",
	Short: "Show the metadata and sample range of a JCAMP-DX trace",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

var peaksCmd = &cobra.Command{
	Use:   "peaks FILE...",
	Short: "Normalize traces and pick their peaks",
	Long: `Normalizes each trace with the configured quantiles and runs peak
detection. Files are processed concurrently; output keeps argument order.

With --calibrate x1=t1,x2=t2 each peak is also given a chemical shift and
region from the two reference points.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPeaks,
}

var classifyCmd = &cobra.Command{
	Use:   "classify PPM...",
	Short: "Classify chemical shifts into spectral regions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

func init() {
	peaksCmd.Flags().StringVar(&calibrateFlag, "calibrate", "", "Two reference points as x1=ppm1,x2=ppm2")
	peaksCmd.Flags().IntVar(&maxPeaksFlag, "max-peaks", 0, "Override the configured peak limit")
	peaksCmd.Flags().IntVarP(&jobsFlag, "jobs", "j", 4, "Files parsed in parallel")
}

func runParse(cmd *cobra.Command, args []string) error {
	s, err := trace.ParseFile(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", titleStyle.Render(args[0]))
	fmt.Fprintf(out, "samples: %d\n", s.Len())
	if minX, maxX, minY, maxY, ok := s.Bounds(); ok {
		fmt.Fprintf(out, "x: %g .. %g\n", minX, maxX)
		fmt.Fprintf(out, "y: %g .. %g\n", minY, maxY)
	}

	keys := make([]string, 0, len(s.Meta))
	for k := range s.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	t := newTable("", "label", "value")
	for _, k := range keys {
		t.add(k, s.Meta[k])
	}
	return t.write(out)
}

// parseCalibration reads "x1=t1,x2=t2".
func parseCalibration(text string) (shift.Calibration, error) {
	var cal shift.Calibration
	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		return cal, fmt.Errorf("calibration %q: want x1=ppm1,x2=ppm2", text)
	}
	for _, part := range parts {
		xs, target, ok := strings.Cut(part, "=")
		if !ok {
			return cal, fmt.Errorf("calibration %q: missing '='", part)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
		if err != nil {
			return cal, fmt.Errorf("calibration %q: %w", part, err)
		}
		if _, ok := shift.ParseShift(target); !ok {
			return cal, fmt.Errorf("calibration %q: target is not a number", part)
		}
		cal.Point(cal.Pick(x)).Target = strings.TrimSpace(target)
	}
	if !cal.Complete() {
		return cal, fmt.Errorf("calibration %q: reference points must differ", text)
	}
	return cal, nil
}

type peakReport struct {
	path  string
	peaks []trace.Peak
}

func detectFiles(paths []string, jobs int) ([]peakReport, error) {
	opts := cfg.Peaks
	if maxPeaksFlag > 0 {
		opts.MaxPeaks = maxPeaksFlag
	}

	reports := make([]peakReport, len(paths))
	var g errgroup.Group
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, path := range paths {
		g.Go(func() error {
			raw, err := trace.ParseFile(path)
			if err != nil {
				return err
			}
			n := raw.Normalized(cfg.Normalize)
			peaks := trace.DetectPeaks(n.X, n.Y, opts)
			logger.Debug("peaks detected", zap.String("path", path), zap.Int("count", len(peaks)))
			reports[i] = peakReport{path: path, peaks: peaks}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func runPeaks(cmd *cobra.Command, args []string) error {
	var cal shift.Calibration
	if calibrateFlag != "" {
		var err error
		if cal, err = parseCalibration(calibrateFlag); err != nil {
			return err
		}
	}

	reports, err := detectFiles(args, jobsFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range reports {
		headers := []string{"#", "x", "height", "prominence"}
		if cal.Complete() {
			headers = append(headers, "ppm", "region")
		}
		t := newTable(r.path, headers...)
		for i, p := range r.peaks {
			row := []string{
				strconv.Itoa(i + 1),
				strconv.FormatFloat(p.X, 'f', 4, 64),
				strconv.FormatFloat(p.Y, 'f', 3, 64),
				strconv.FormatFloat(p.Prominence, 'f', 3, 64),
			}
			if cal.Complete() {
				ppm, _ := cal.ShiftAt(p.X)
				row = append(row, strconv.FormatFloat(ppm, 'f', 2, 64), shift.Classify(ppm).String())
			}
			t.add(row...)
		}
		if len(r.peaks) == 0 {
			fmt.Fprintf(out, "%s\n%s\n", titleStyle.Render(r.path), mutedStyle.Render("no peaks"))
			continue
		}
		if err := t.write(out); err != nil {
			return err
		}
	}
	return nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	t := newTable("", "ppm", "region")
	for _, a := range args {
		ppm, ok := shift.ParseShift(a)
		if !ok {
			t.add(a, shift.RegionUnknown.String())
			continue
		}
		t.add(strconv.FormatFloat(ppm, 'f', 2, 64), shift.Classify(ppm).String())
	}
	return t.write(cmd.OutOrStdout())
}
