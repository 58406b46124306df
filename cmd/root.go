// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/bootkit/config"
)

const serviceName = "bootkit"

var (
	configFile string
	profiles   []string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bootkit",
	Short: "Application support runtime",
	Long:  `Serve the audit and account API with configuration, logging, caching, async execution and schema migrations.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the application YAML configuration file")
	rootCmd.PersistentFlags().StringSliceVarP(&profiles, "profile", "p", nil, "Additional active profiles (comma separated)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newLoader() *config.Loader {
	opts := []config.Option{config.WithProfiles(profiles...)}
	if configFile != "" {
		opts = append(opts, config.WithFile(configFile))
	}
	return config.NewLoader(opts...)
}
