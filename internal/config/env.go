// Package config resolves settings from flags and DBMLSQLITE_* environment
// variables. An explicitly set flag wins over the environment, which wins
// over the flag default.
package config

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// Environment variables read by the CLI
const (
	EnvEmulation        = "DBMLSQLITE_EMULATION"
	EnvTableIfNotExists = "DBMLSQLITE_TABLE_IF_NOT_EXISTS"
	EnvIndexIfNotExists = "DBMLSQLITE_INDEX_IF_NOT_EXISTS"
	EnvNamer            = "DBMLSQLITE_NAMER"
	EnvJobs             = "DBMLSQLITE_JOBS"
	EnvExtCaseSensitive = "DBMLSQLITE_EXT_CASE_SENSITIVE"
)

// GetEnvWithDefault returns the value of an environment variable or a default value if not set
func GetEnvWithDefault(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvIntWithDefault returns the value of an environment variable as int or a default value if not set
func GetEnvIntWithDefault(envVar string, defaultValue int) int {
	if value := os.Getenv(envVar); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvBoolWithDefault returns the value of an environment variable as bool
// (1, t, true, 0, f, false, any case) or a default value if unset or invalid
func GetEnvBoolWithDefault(envVar string, defaultValue bool) bool {
	if value := os.Getenv(envVar); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// StringFromEnv overrides *target with envVar unless the flag was set
func StringFromEnv(cmd *cobra.Command, flag, envVar string, target *string) {
	if !cmd.Flags().Changed(flag) {
		*target = GetEnvWithDefault(envVar, *target)
	}
}

// IntFromEnv overrides *target with envVar unless the flag was set
func IntFromEnv(cmd *cobra.Command, flag, envVar string, target *int) {
	if !cmd.Flags().Changed(flag) {
		*target = GetEnvIntWithDefault(envVar, *target)
	}
}

// BoolFromEnv overrides *target with envVar unless the flag was set
func BoolFromEnv(cmd *cobra.Command, flag, envVar string, target *bool) {
	if !cmd.Flags().Changed(flag) {
		*target = GetEnvBoolWithDefault(envVar, *target)
	}
}
