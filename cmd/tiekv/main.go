// Package main implements the tiekv shell, a small interactive command
// interpreter whose hash variables can be tied to database files on disk.
//
// The shell is the host for the tie machinery: ordinary variables live in
// memory, tied variables read and write through to a bbolt file, and both
// kinds answer the same commands.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│                Shell                     │
//	├─────────────────────────────────────────┤
//	│  Commands:                              │
//	│    tie / untie    - Lifecycle           │
//	│    set / get      - Element access      │
//	│    unset / keys   - Removal, listing    │
//	│    dump / copy    - Bulk content        │
//	│    clear / sync   - Bulk content        │
//	│    vars / ties    - Introspection       │
//	│    stat           - Backend statistics  │
//	├─────────────────────────────────────────┤
//	│  Components:                            │
//	│    host.Table     - Variable system     │
//	│    host.FileTable - Open backend files  │
//	│    binding        - Tie machinery       │
//	│    logging        - Session log file    │
//	└─────────────────────────────────────────┘
//
// Concurrency model:
//
// One control thread drives everything. Signals are accepted at any time
// but only polled between commands, so a command in flight, a bulk
// replacement draining a file for example, is never interrupted halfway.
//
// Configuration:
//   - TIEKV_CONFIG: config file path (default: ~/.tiekv/config.yaml)
//   - TIEKV_PROMPT: prompt override
//   - TIEKV_LOG_DIR: session log directory override
//
// The config file is YAML and may pre-tie variables for the session:
//
//	prompt: "kv> "
//	log_dir: /tmp/tiekv-logs
//	ties:
//	  - name: prefs
//	    path: /var/db/prefs.db
//	  - name: baseline
//	    path: /var/db/baseline.db
//	    read_only: true
//
// Example usage:
//
//	# Interactive session
//	./tiekv
//	tiekv> tie -d db/bolt -f /tmp/sample.db db
//	tiekv> set db greeting hello
//	tiekv> get db greeting
//	hello
//	tiekv> untie db
//
//	# One-shot command string
//	./tiekv -c 'tie -d db/bolt -f /tmp/sample.db db; set db greeting hello'
//
//	# Script file
//	./tiekv setup.tk
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dreamware/tiekv/internal/binding"
	"github.com/dreamware/tiekv/internal/host"
	"github.com/dreamware/tiekv/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is the testable body of main, returning the process exit code
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tiekv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file path")
	command := fs.String("c", "", "run the given commands and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "tiekv: %v\n", err)
		return 1
	}

	// The session log lives next to nothing the user sees, a broken log
	// directory downgrades to stderr inside New and the shell goes on
	logger, _ := logging.New(cfg.LogDir, "shell")
	defer logger.Close()

	sh := NewShell(cfg, logger, stdout, stderr)
	defer sh.Close()

	sh.autoTie()

	switch {
	case *command != "":
		return sh.Run(strings.NewReader(*command), false)
	case fs.NArg() > 0:
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(stderr, "tiekv: %v\n", err)
			return 1
		}
		defer f.Close()
		return sh.Run(f, false)
	default:
		sh.WatchSignals()
		return sh.Run(stdin, true)
	}
}

// Shell is one interpreter session: a variable table, the files it holds
// open, the session log and the status of the last command
type Shell struct {
	tbl      *host.Table     // Variable system
	files    *host.FileTable // Open backend files
	cfg      Config          // Session configuration
	log      *logging.Logger // Session log
	out      io.Writer       // Command output
	errOut   io.Writer       // Diagnostics
	sigs     chan os.Signal  // Pending signals, polled between commands
	status   int             // Exit status of the last command
	failed   bool            // Whether any command failed, fails batch runs
	exitCode int             // Code to leave the process with
	done     bool            // Exit requested
}

// NewShell creates a session over fresh interpreter state
func NewShell(cfg Config, logger *logging.Logger, out, errOut io.Writer) *Shell {
	return &Shell{
		tbl:    host.NewTable(),
		files:  host.NewFileTable(),
		cfg:    cfg,
		log:    logger,
		out:    out,
		errOut: errOut,
	}
}

// WatchSignals starts collecting interrupt and termination signals
// They queue in a buffered channel and take effect between commands only
func (sh *Shell) WatchSignals() {
	sh.sigs = make(chan os.Signal, 8)
	signal.Notify(sh.sigs, os.Interrupt, syscall.SIGTERM)
}

// Close releases every tie the session still holds
// Read-only ties are forced writable for the release, a session that ends
// must not leave files locked
func (sh *Shell) Close() {
	for _, info := range binding.List(sh.tbl) {
		if err := binding.UntieName(sh.tbl, info.Name, true); err != nil {
			sh.log.Errorf("shutdown untie %s: %v", info.Name, err)
		} else {
			sh.log.Infof("shutdown untie %s (%s)", info.Name, info.Path)
		}
	}
	if sh.sigs != nil {
		signal.Stop(sh.sigs)
	}
}

// autoTie brings up the ties listed in the config before the first prompt
func (sh *Shell) autoTie() {
	for _, spec := range sh.cfg.Ties {
		_, err := binding.Tie(sh.tbl, sh.files, binding.TieOptions{
			Name:     spec.Name,
			Backend:  binding.Backend,
			Path:     spec.Path,
			ReadOnly: spec.ReadOnly,
		})
		if err != nil {
			fmt.Fprintf(sh.errOut, "tiekv: config tie %s: %v\n", spec.Name, err)
			sh.log.Errorf("config tie %s: %v", spec.Name, err)
			continue
		}
		sh.log.Infof("config tie %s -> %s", spec.Name, spec.Path)
	}
}

// Run feeds lines from r through the interpreter until EOF or exit
//
// Returns the exit code. An explicit exit's argument always wins. A batch
// run, a script or a -c string, fails when any of its commands failed. An
// interactive session carries the status of the last command out at EOF.
func (sh *Shell) Run(r io.Reader, interactive bool) int {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if !sh.poll(interactive) {
			break
		}
		if interactive {
			fmt.Fprint(sh.out, sh.cfg.Prompt)
		}
		if !scanner.Scan() {
			break
		}
		sh.Exec(scanner.Text())
		if sh.done {
			break
		}
	}
	if sh.done {
		return sh.exitCode
	}
	if !interactive && sh.failed {
		return 1
	}
	return sh.status
}

// poll applies signals that arrived since the last command
// Interrupts are acknowledged and dropped, termination ends the session.
// Reports whether the session keeps going.
func (sh *Shell) poll(interactive bool) bool {
	for {
		select {
		case sig := <-sh.sigs:
			if sig == syscall.SIGTERM {
				sh.done = true
				sh.exitCode = 1
				sh.log.Infof("terminated by signal")
				return false
			}
			if interactive {
				fmt.Fprintln(sh.out)
			}
		default:
			return true
		}
	}
}

