package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"fhvclean/internal/config"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "fhvclean",
		Short:         "Clean raw for-hire-vehicle trips into the silver table",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "pipeline config path (.json, .yaml); empty uses built-in defaults")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logs")

	root.AddCommand(newRunCommand(opts))
	root.AddCommand(newValidateCommand(opts))
	root.AddCommand(newHistoryCommand(opts))
	return root
}

// loadPipeline loads the config and prints every validation issue to w. It
// fails when any issue is an error.
func loadPipeline(opts *rootOptions, w io.Writer, override func(*config.Pipeline)) (config.Pipeline, error) {
	p, err := config.Load(opts.configPath)
	if err != nil {
		return config.Pipeline{}, err
	}
	if override != nil {
		override(&p)
	}
	if opts.verbose {
		p.Log.Level = "debug"
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return config.Pipeline{}, fmt.Errorf("configuration is invalid: %s", describe(opts.configPath))
	}
	return p, nil
}

func describe(path string) string {
	if path == "" {
		return "built-in defaults"
	}
	return path
}
