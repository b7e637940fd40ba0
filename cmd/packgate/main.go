package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// main hands straight off to Run so the process exit code is the
// dispatch result and nothing else lives here.
func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run dispatches to the subcommand named by args[1] and returns its
// exit code. Taking args and the output streams as parameters keeps the
// whole CLI drivable from tests without spawning a process.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "resolve":
		return runResolveCmd(args[2:], stdout, stderr)
	case "admit":
		return runAdmitCmd(args[2:], stdout, stderr)
	case "inspect":
		return runInspectCmd(args[2:], stdout, stderr)
	case "policy":
		if len(args) < 3 {
			_, _ = fmt.Fprintln(stderr, "Usage: packgate policy <lint|show>")
			return 2
		}
		return runPolicyCmd(args[2:], stdout, stderr)
	case "version":
		_, _ = fmt.Fprintf(stdout, "packgate %s\n", buildVersion)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

// buildVersion is stamped by the release pipeline via -ldflags.
var buildVersion = "dev"

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "packgate - multi-tenant pack admission core")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  packgate resolve --index <file> --pack <id> [--constraint <expr>] [--pin]")
	fmt.Fprintln(w, "  packgate admit   --pack <id> --version <ver> --hash <sha256:..> [flags]")
	fmt.Fprintln(w, "  packgate inspect --run <run-id> [--tenant <id>] [--policies <file,file>] [--profiles <dir>]")
	fmt.Fprintln(w, "  packgate policy  lint|show --file <file>")
	fmt.Fprintln(w, "  packgate version")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Exit codes: 0 = ok, 1 = denied/violation found, 2 = runtime error")
	fmt.Fprintln(w, "")
}

// newLogger builds the slog logger every subcommand shares. Diagnostics
// go to stderr; stdout is reserved for command output.
func newLogger(stderr io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: lvl}))
}
