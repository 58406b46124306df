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
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cardinalhq/bootkit/config"
)

func init() {
	rootCmd.AddCommand(ConfigCmd)
}

var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  "Print the configuration tree after defaults, the config file, profiles and environment are applied. Secrets are masked.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		props, err := newLoader().Load()
		if err != nil {
			return err
		}
		return printConfig(cmd.OutOrStdout(), props)
	},
}

func printConfig(w io.Writer, props *config.Properties) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]*config.Properties{config.Prefix: props.Redacted()}); err != nil {
		return err
	}
	return enc.Close()
}
