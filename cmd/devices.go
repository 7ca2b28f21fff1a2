package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/smazurov/mxcamera/internal/capture"
	"github.com/spf13/cobra"
)

// CreateDevicesCmd lists V4L2 capture devices.
func CreateDevicesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List V4L2 capture devices",
		Long:  "Lists capture devices with their pixel formats and frame sizes, to pick --camera-device and the sensor resolution.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			devs, err := capture.ListDevices()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(devs)
			}
			if len(devs) == 0 {
				fmt.Fprintln(out, "No capture devices found")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DEVICE\tNAME\tDRIVER\tFORMAT\tSIZES")
			for _, d := range devs {
				if len(d.Formats) == 0 {
					fmt.Fprintf(tw, "%s\t%s\t%s\t-\t-\n", d.Path, d.Name, d.Driver)
					continue
				}
				for i, f := range d.Formats {
					path, name, driver := d.Path, d.Name, d.Driver
					if i > 0 {
						path, name, driver = "", "", ""
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", path, name, driver, f.FourCC, formatSizes(f.Sizes))
				}
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func formatSizes(sizes []capture.FrameSize) string {
	if len(sizes) == 0 {
		return "-"
	}
	parts := make([]string, len(sizes))
	for i, s := range sizes {
		parts[i] = fmt.Sprintf("%dx%d", s.Width, s.Height)
	}
	return strings.Join(parts, " ")
}
