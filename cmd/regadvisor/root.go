package main

import (
	"github.com/spf13/cobra"

	"github.com/Strob0t/RegAdvisor/internal/config"
)

// globalFlags are bound to persistent flags on the root command.
type globalFlags struct {
	configPath string
	port       string
	logLevel   string
	natsURL    string
	litellmURL string
}

// cliFlags forwards only the flags the user actually set, so unset flags
// never override YAML or environment values.
func (g *globalFlags) cliFlags(cmd *cobra.Command) config.CLIFlags {
	var f config.CLIFlags
	set := func(name string, v *string) *string {
		if cmd.Flags().Changed(name) {
			return v
		}
		return nil
	}
	f.ConfigPath = set("config", &g.configPath)
	f.Port = set("port", &g.port)
	f.LogLevel = set("log-level", &g.logLevel)
	f.NatsURL = set("nats-url", &g.natsURL)
	f.LiteLLMURL = set("litellm-url", &g.litellmURL)
	return f
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "regadvisor",
		Short:         "Multi-agent regulatory compliance advisory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", config.DefaultConfigFile, "Path to the YAML config file")
	pf.StringVar(&g.port, "port", "", "HTTP port for serve")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&g.natsURL, "nats-url", "", "NATS URL for the shared recommendation cache")
	pf.StringVar(&g.litellmURL, "litellm-url", "", "LiteLLM proxy URL for evidence retrieval")

	root.AddCommand(
		serveCmd(g),
		adviseCmd(g),
		strategiesCmd(),
	)
	return root
}
