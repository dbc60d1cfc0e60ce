package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/camnode/camnode/internal/catalog"
	"github.com/camnode/camnode/internal/logging"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	var asTOML bool
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List capture devices and compressors",
		Long:  `Probes the host for capture devices and compressors and prints what the driver would see, without starting the API server.`,
		Run: func(_ *cobra.Command, _ []string) {
			loggingConfig := logging.Config{
				Level:  "warn",
				Format: "text",
			}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)

			cat := catalog.New(catalog.NewSysProber(), logging.GetLogger("catalog"))
			devices := cat.EnumerateCaptureDevices()
			compressors := cat.EnumerateCompressors()

			if asTOML {
				out := struct {
					Devices     []catalog.CaptureDevice   `toml:"devices"`
					Compressors []catalog.CompressorEntry `toml:"compressors"`
				}{devices, compressors}
				encoded, err := toml.Marshal(out)
				if err != nil {
					fmt.Fprintln(os.Stderr, "Failed to encode catalog:", err)
					os.Exit(1)
				}
				os.Stdout.Write(encoded)
				return
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

			fmt.Fprintln(w, "DEVICE\tPATH\tID")
			if len(devices) == 0 {
				fmt.Fprintln(w, "(none)\t\t")
			}
			for _, device := range devices {
				fmt.Fprintf(w, "%s\t%s\t%s\n", device.Name, device.Path, device.ID)
			}

			fmt.Fprintln(w, "\nCOMPRESSOR\tKIND\tFOURCC\tINSTALLED")
			for _, entry := range compressors {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", entry.Name, entry.Kind, entry.FourCC, entry.Installed)
			}

			w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asTOML, "toml", false, "Output the catalog as TOML")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Output logs in JSON format")
	return cmd
}
