// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

// Command tbm answers longest-prefix-match queries on route files.
//
//	tbm --routes rib.txt.gz lookup 10.1.2.3 2001:db8::1
//	tbm --routes rib.txt.gz serve --listen :8080
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/optionfactory/treebitmap"
	"github.com/optionfactory/treebitmap/internal/routes"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	envPrefix          = "TBM"
	defaultCfgFileName = ".tbm"
)

// options, set by flags, config file and environment
type options struct {
	cfgFile  string
	logLevel string
	routes   []string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "tbm",
		Short:         "Longest-prefix-match lookups in route files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initConfig(cmd, opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", fmt.Sprintf("config file (default is $HOME/%s.yaml)", defaultCfgFileName))
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "error", "Log level: debug, info, warning, error")
	rootCmd.PersistentFlags().StringSliceVar(&opts.routes, "routes", nil, "route files, CIDR and value per line, .gz is gunzipped (repeatable)")

	rootCmd.AddCommand(
		newLookupCmd(opts),
		newMatchesCmd(opts),
		newOverlapsCmd(opts),
		newDumpCmd(opts),
		newStatsCmd(opts),
		newVerifyCmd(opts),
		newServeCmd(opts),
	)

	return rootCmd
}

// initConfig use config file and ENV variables if set.
func initConfig(cmd *cobra.Command, opts *options) {
	v := viper.New()

	if opts.cfgFile != "" {
		// Use config file from the flag.
		v.SetConfigFile(opts.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		// Search config in home directory with name ".tbm" (without extension).
		v.AddConfigPath(home)
		v.SetConfigName(defaultCfgFileName)
	}

	// Read environment variables that match prefix
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// If a config file is found, read it in.
	cfgErr := v.ReadInConfig()

	bindFlags(cmd, v)

	// initialize logger
	initLogger(opts.logLevel)

	var notFound viper.ConfigFileNotFoundError
	switch {
	case cfgErr == nil:
		log.Debugf("using config file %s", v.ConfigFileUsed())
	case errors.As(cfgErr, &notFound):
		log.Debug("no config file")
	default:
		log.Errorf("Read config error: %v", cfgErr)
	}
}

func initLogger(logLevel string) {
	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		ll = log.ErrorLevel
	}
	log.SetLevel(ll)
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{DisableColors: false, FullTimestamp: true, PadLevelText: true, DisableQuote: true})
}

// bindFlags applies the viper config value to every flag of cmd
// not set on the command line.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(f.Name) {
			return
		}

		switch val := v.Get(f.Name).(type) {
		case []any:
			for _, elem := range val {
				_ = cmd.Flags().Set(f.Name, fmt.Sprintf("%v", elem))
			}
		case []string:
			for _, elem := range val {
				_ = cmd.Flags().Set(f.Name, elem)
			}
		case bool, uint, string, int32, int16, int8, int, uint32, uint64, int64, float64, float32:
			_ = cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val))
		default:
			var jsonNew = jsoniter.ConfigCompatibleWithStandardLibrary
			b, err := jsonNew.Marshal(&val)
			if err != nil {
				log.Fatalf("can't parse flag %s into json with value %v got error %s", f.Name, val, err)
				return
			}
			_ = cmd.Flags().Set(f.Name, string(b))
		}
	})
}

// loadTable reads the route files into a new table.
func loadTable(ctx context.Context, opts *options) (*treebitmap.Table[string], error) {
	if len(opts.routes) == 0 {
		return nil, errors.New("no route files, use --routes or the config file")
	}

	rs, err := routes.LoadFiles(ctx, opts.routes...)
	if err != nil {
		return nil, err
	}

	tbl := new(treebitmap.Table[string])
	replaced, err := routes.Fill(tbl, rs)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"ipv4":     tbl.Len4(),
		"ipv6":     tbl.Len6(),
		"replaced": replaced,
	}).Info("table loaded")

	return tbl, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
