package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/ironsheep/contour-count/internal/config"
	"github.com/ironsheep/contour-count/internal/logging"
	"github.com/ironsheep/contour-count/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// envConfig names the environment variable pointing at a YAML or JSON
// parameter file.
const envConfig = "CONTOUR_CONFIG"

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("contour-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("contour-mcp - MCP server for contour-based object counting")
			fmt.Println()
			fmt.Println("Usage: contour-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Printf("  %s=debug      Log level (debug, info, warn, error)\n", logging.EnvLevel)
			fmt.Printf("  %s=json      Emit JSON log lines instead of console text\n", logging.EnvFormat)
			fmt.Printf("  %s=path.yaml     Default detection parameters\n", envConfig)
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Logs are written to stderr.")
			return
		}
	}

	// stdout is reserved for the MCP protocol
	logging.Setup("contour-mcp")

	cfg, err := config.Load(os.Getenv(envConfig))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	server.Version = Version
	log.Debug().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Msg("contour MCP server starting")

	srv := server.New(cfg)
	if err := srv.Run(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
