package main

import (
	"github.com/spf13/cobra"

	"github.com/patiponrmutl/thaimilitary/config"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "thaimilitary",
		Short:         "Thai Military Online appointment service",
		Long:          "Appointment request intake for citizens and a live triage dashboard for officers.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (yaml, json or json with comments)")
	pf.String("port", "", "HTTP port (app.port)")
	pf.String("db-driver", "", "postgres or sqlite (db.driver)")
	pf.String("db-path", "", "sqlite database file (db.path)")
	pf.String("log-level", "", "debug, info, warn or error (log.level)")

	load := func(cmd *cobra.Command) (*config.Config, error) {
		v := config.New()
		if err := config.BindFlags(v, cmd.Flags()); err != nil {
			return nil, err
		}
		if cfgFile != "" {
			if err := config.ReadFile(v, cfgFile); err != nil {
				return nil, err
			}
		}
		return config.Load(v)
	}

	root.AddCommand(newServeCmd(load))
	root.AddCommand(newExportCmd(load))
	return root
}

type loadFunc func(cmd *cobra.Command) (*config.Config, error)
