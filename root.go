package main

import (
	"github.com/spf13/cobra"
)

var output string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "maze-swarm",
	Short: "Perfect maze generation and swarm navigation",
	Long: `maze-swarm generates perfect mazes and lets a swarm of agents find the exit
using only local information and the pheromone trail they leave on the grid.

Commands:
  generate   Print a maze and its analysis
  simulate   Run a swarm locally and print the report
  serve      Start the HTTP API`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (json, table)")
}
