package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/icvial/internal/config"
	"github.com/example/icvial/internal/version"
	"github.com/example/icvial/internal/wire"
)

// ConfigFlag is the persistent flag naming the config file.
const ConfigFlag = "config"

// NewRootCmd builds the icvial command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "icvial",
		Short:   "icvial - assign IC vials to CFA fraction pulses",
		Version: version.String(),
		Long: `icvial reconciles the fraction pulses logged by a continuous flow analysis
run with the ion chromatography vials that were actually filled, merging
pulses whose vials were missed and numbering the rest.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: LoadConfig,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			wire.Close()
		},
	}

	rootCmd.PersistentFlags().String(ConfigFlag, "", "Config file (default ./"+config.FileName+")")

	rootCmd.AddCommand(AssignCmd())
	rootCmd.AddCommand(RunsCmd())
	rootCmd.AddCommand(ConfigCmd())

	return rootCmd
}

// LoadConfig reads the config named by --config (or the default file) and
// hands it to the wiring layer. Use as the root PersistentPreRunE.
func LoadConfig(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString(ConfigFlag)
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	wire.Configure(cfg)
	return nil
}

// confirmPrompt asks a y/N question on the command's streams.
func confirmPrompt(in io.Reader, out io.Writer, msg string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", msg)
	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
