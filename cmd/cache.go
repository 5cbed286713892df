package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethanolivertroy/sap-compass/internal/cache"
	"github.com/ethanolivertroy/sap-compass/internal/pipeline"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the EPSS, KEV and OSV fetch cache",
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the cache database location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		defer c.Close()
		fmt.Fprintln(cmd.OutOrStdout(), c.Path())
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached response",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		defer c.Close()
		if err := c.Clear(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", c.Path())
		return nil
	},
}

func openCache() (*cache.Cache, error) {
	dir := flagCacheDir
	if dir == "" {
		d, err := cache.DefaultDir(pipeline.AppName)
		if err != nil {
			return nil, err
		}
		dir = d
	}
	return cache.New(dir, 0)
}

func init() {
	cacheCmd.AddCommand(cachePathCmd, cacheClearCmd)
}
