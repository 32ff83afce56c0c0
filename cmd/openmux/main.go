// Command openmux is the terminal multiplexer's entry point: it parses
// the command line, then either runs the local event loop (internal/app)
// or attaches a passthrough terminal to an already-running one.
//
// Grounded on elleryfamilia-thicc/cmd/thicc/micro.go's InitFlags/Usage
// shape, trimmed to the flags this program actually has: no plugin
// system, no dashboard, no update/uninstall/report-bug machinery.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/openmux/openmux/internal/app"
)

// version has no util.Version/CommitHash/CompileDate to draw on: the
// original's build-stamped internal/util package wasn't part of the
// retrieval pack this program was built from.
const version = "0.1.0-dev"

func main() {
	var (
		flagVersion = flag.Bool("version", false, "Show the version number and exit")
		flagConfig  = flag.String("config", "", "Path to the TOML configuration file")
		flagAttach  = flag.String("attach", "", "Attach a passthrough terminal to the session id's focused pane")
		flagSession = flag.String("session-name", "", "Name to advertise for remote attach (enables the attach socket when set)")
	)
	flag.Usage = func() {
		fmt.Println("Usage: openmux [OPTIONS]")
		fmt.Println("")
		fmt.Println("  openmux                     Start (or resume) the local session")
		fmt.Println("  openmux -attach <id>        Attach a passthrough terminal to a running session")
		fmt.Println("")
		fmt.Println("Options:")
		fmt.Println("  -version             Show version and exit")
		fmt.Println("  -config <path>       Use a specific configuration file")
		fmt.Println("  -session-name <name> Advertise this name and accept remote attaches")
		fmt.Println("  -attach <id>         Attach to a running session's focused pane instead of hosting one")
	}
	flag.Parse()

	if *flagVersion {
		fmt.Println("openmux version", version)
		os.Exit(app.ExitClean)
	}

	if *flagAttach != "" {
		os.Exit(runAttach(*flagAttach))
	}

	os.Exit(app.Run(app.Options{
		ConfigPath:  *flagConfig,
		SessionName: *flagSession,
	}))
}
