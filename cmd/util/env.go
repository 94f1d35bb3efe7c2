package util

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// GetEnvWithDefault returns the value of an environment variable or a default value if not set
func GetEnvWithDefault(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	return defaultValue
}

// PreRunEWithManifest creates a PreRunE function that resolves the manifest path.
// It checks PGVIEWS_MANIFEST if the --manifest flag wasn't explicitly set.
func PreRunEWithManifest(manifestPtr *string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if value := GetEnvWithDefault("PGVIEWS_MANIFEST", ""); value != "" && !cmd.Flags().Changed("manifest") {
			*manifestPtr = value
		}
		if *manifestPtr == "" {
			return fmt.Errorf("manifest path is required (use --manifest flag or PGVIEWS_MANIFEST environment variable)")
		}
		return nil
	}
}
