package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the product cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop cached catalogue results",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	switch a.settings.Cache.Backend {
	case domain.CacheNone:
		cmd.Println("Caching is disabled.")
		return nil
	case domain.CacheMemory:
		cmd.Println("The memory cache lasts one process; there is nothing on disk to clear.")
		return nil
	}

	cache, closeCache, err := a.openCache()
	if err != nil {
		return err
	}
	if closeCache != nil {
		defer closeCache() //nolint:errcheck
	}
	if err := cache.Clear(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("Product cache cleared.")
	return nil
}
