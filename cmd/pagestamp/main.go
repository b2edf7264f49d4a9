// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pagestamp CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the pagestamp CLI.
var rootCmd = &cobra.Command{
	Use:   "pagestamp",
	Short: "Stamp sequential page numbers onto batches of PDF files",
	Long: `pagestamp reads every PDF in an input directory, adds a "Página N"
footer to each page, and writes the result to an output directory as
<name>-PROCESADO.pdf. Files whose output already exists are skipped, so
repeated runs only process new inputs.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pagestamp.yaml or ~/.config/pagestamp/pagestamp.yaml)")
}

func initConfig() {
	// .env values become process environment; real environment wins.
	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "Loaded environment from .env")
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if err := configureViper(viper.GetViper(), cfgFile); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// configureViper points v at the config file and the PAGESTAMP_ environment,
// then reads the file. The returned error is only informational: running
// without a config file is normal.
func configureViper(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("pagestamp")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "pagestamp"))
		}
	}

	v.SetEnvPrefix("PAGESTAMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v.ReadInConfig()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
