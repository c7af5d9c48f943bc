// Command pdfthumb renders PDF thumbnails from the command line and runs the
// thumbnail pipeline against configured storage.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weiawesome/pdf-thumbnail/internal/config"
	pkglog "github.com/weiawesome/pdf-thumbnail/pkg/log"
)

type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "pdfthumb",
		Short:         "Render PNG thumbnails of the first page of PDF documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			pkglog.Init(pkglog.Config{
				Level:       opts.logLevel,
				Pretty:      true,
				ServiceName: "pdfthumb",
				Output:      cmd.ErrOrStderr(),
			})
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default is ./config/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug/info/warn/error)")

	cmd.AddCommand(newConvertCmd(), newResolveCmd(opts), newGenerateCmd(opts))

	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	if o.configFile != "" {
		return config.LoadFile(o.configFile)
	}
	return config.Load()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
