// Package envcfg reads the small set of environment variables the core
// recognizes. Configuration persistence proper belongs to the frontends,
// not this core.
package envcfg

import (
	"os"

	"github.com/NaughtyChas/GitMC/internal/logx"
)

const (
	defaultCoreDirName = "GitMC"
	coreDirEnvVar      = "GITMC_CORE_DIR"
	logLevelEnvVar     = "GITMC_LOG_LEVEL"
)

// CoreDirName returns the name of the core directory under a save,
// honoring GITMC_CORE_DIR if set.
func CoreDirName() string {
	if v := os.Getenv(coreDirEnvVar); v != "" {
		return v
	}
	return defaultCoreDirName
}

// LogLevel returns the logging level selected by GITMC_LOG_LEVEL.
func LogLevel() logx.Level {
	return logx.ParseLevel(os.Getenv(logLevelEnvVar))
}
