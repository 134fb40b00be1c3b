// Copyright 2023 The Gistviz Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package main

import (
	"log"
	"os"

	"github.com/pgindex/gistviz/tool"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gistviz [command] (flags)",
	Short: "gistviz GiST index introspection tool",
	Long: `
gistviz inspects the on-disk physical structure of a GiST index file. It is
strictly read-only: commands dump the tree topology or report occupancy
statistics, never modifying the index.
`,
}

func main() {
	log.SetFlags(0)

	cobra.EnableCommandSorting = false
	t := tool.New()
	rootCmd.AddCommand(t.Commands...)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
