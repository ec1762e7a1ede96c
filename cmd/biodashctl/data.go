package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	bioimage "biodash/internal/image"
	"biodash/internal/process"
	"biodash/internal/signal"
	"biodash/internal/tabular"
	"biodash/internal/volume"
)

func newVolumeCommand(e *env) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "volume <file>",
		Short: "Print the shape and metadata of a DICOM series or NIfTI file",
		Long: `Loads a volume the way the dashboard does. Any .dcm file loads every
.dcm file in its folder as one series.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vol, err := volume.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			shape := vol.Shape()
			fmt.Fprintf(out, "Shape (Z,Y,X): %d x %d x %d\n", shape[0], shape[1], shape[2])
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, kv := range vol.Meta.Fields() {
				fmt.Fprintf(tw, "%s\t%s\n", kv[0], kv[1])
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if !save {
				return nil
			}

			w := e.results()
			meta, err := w.WriteMetadata(args[0], vol.Meta)
			if err != nil {
				return err
			}
			if err := w.AppendStudy(args[0], vol.Meta); err != nil {
				return err
			}
			planes := make(map[volume.Axis]*bioimage.Plane, len(volume.Axes))
			for _, a := range volume.Axes {
				if planes[a], err = vol.Slice(a, vol.Midpoint(a)); err != nil {
					return err
				}
			}
			paths, err := w.SaveSlices(planes)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Wrote", meta)
			for _, p := range paths {
				fmt.Fprintln(out, "Wrote", p)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "write midpoint slices and metadata CSVs to the results folder")
	return cmd
}

func newImageCommand(e *env) *cobra.Command {
	var ops []string
	cmd := &cobra.Command{
		Use:   "image <file>",
		Short: "Apply processing operations to an image and save the result",
		Long: "Operations run in order, each on the previous result. Known operations: " +
			strings.Join(operationIDs(), ", ") + ".",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(ops) == 0 {
				return fmt.Errorf("at least one --op is required")
			}
			parsed := make([]process.Operation, len(ops))
			for i, name := range ops {
				op, err := process.ParseOperation(name)
				if err != nil {
					return err
				}
				parsed[i] = op
			}

			layer, err := bioimage.Load(args[0])
			if err != nil {
				return err
			}
			for _, op := range parsed {
				p, err := process.Apply(op, layer.Current)
				if err != nil {
					return fmt.Errorf("%s: %w", op.ID(), err)
				}
				layer.Replace(p, op.ID())
			}
			path, err := e.results().SaveProcessed(layer.Current)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\nWrote %s\n", strings.Join(layer.Applied, " > "), path)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&ops, "op", nil, "operation to apply (repeatable)")
	return cmd
}

func operationIDs() []string {
	ids := make([]string, len(process.All))
	for i, op := range process.All {
		ids[i] = op.ID()
	}
	return ids
}

func newSignalCommand(e *env) *cobra.Command {
	var channel int
	cmd := &cobra.Command{
		Use:   "signal <file.mat>",
		Short: "Print the dominant frequency of every channel and save the table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := signal.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fs := e.cfg.Signal.SampleRate
			fmt.Fprintf(out, "%s: %d channels x %d samples at %g Hz\n", set.Name, set.Channels(), set.Samples(), fs)
			for _, w := range set.Warnings {
				fmt.Fprintln(out, "warning:", w)
			}

			doms := set.DominantAll(fs)
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "channel\tdominant_hz\tmagnitude\t")
			for _, d := range doms {
				fmt.Fprintf(tw, "%d\t%.2f\t%.2f\t\n", d.Channel, d.Frequency, d.Magnitude)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if cmd.Flags().Changed("channel") {
				st, err := set.Stats(channel)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "channel %d: mean %.4f std %.4f\n", channel, st.Mean, st.Std)
			}

			path, err := e.results().WriteFFT(args[0], doms)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Wrote", path)
			return nil
		},
	}
	cmd.Flags().IntVar(&channel, "channel", 0, "print statistics for this channel")
	return cmd
}

func newTableCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "table <file.csv>",
		Short: "List the columns of a CSV file and how they would be charted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := tabular.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d rows\n", filepath.Base(ds.Path), ds.Len())
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "COLUMN\tKIND\tDISTINCT")
			for _, col := range ds.Columns {
				_, numeric, err := ds.Numeric(col)
				if err != nil {
					return err
				}
				counts, err := ds.ValueCounts(col)
				if err != nil {
					return err
				}
				kind := "categorical"
				if numeric {
					kind = "numeric"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\n", col, kind, len(counts))
			}
			return tw.Flush()
		},
	}
}
