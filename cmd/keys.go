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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/bootkit/internal/security"
)

func init() {
	rootCmd.AddCommand(KeysCmd)
}

var KeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate a password, an activation key and a reset key",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rnd := security.NewRandomSource()
		out := cmd.OutOrStdout()
		if _, err := fmt.Fprintf(out, "password:       %s\n", rnd.GeneratePassword()); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "activation key: %s\n", rnd.GenerateActivationKey()); err != nil {
			return err
		}
		_, err := fmt.Fprintf(out, "reset key:      %s\n", rnd.GenerateResetKey())
		return err
	},
}
