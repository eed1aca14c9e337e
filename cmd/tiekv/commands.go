package main

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/dreamware/tiekv/internal/binding"
	"github.com/dreamware/tiekv/internal/host"
)

// Exec runs one command line
//
// Blank lines are skipped. A line may chain several commands with
// semicolons, and a comment introduced by # runs to the end of the line.
// Each command's result lands in the shell's status field, 0 for success
// and 1 for any failure
func (sh *Shell) Exec(line string) {
	for _, cmd := range splitCommands(line) {
		trimmed := strings.TrimSpace(cmd)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			return
		}
		sh.exec1(trimmed)
		if sh.done {
			return
		}
	}
}

// exec1 runs a single command
func (sh *Shell) exec1(line string) {
	args, err := splitFields(line)
	if err != nil {
		sh.errorf("tiekv: %v", err)
		return
	}
	if len(args) == 0 {
		return
	}

	prev := sh.status
	sh.status = 0
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "tie":
		sh.cmdTie(rest)
	case "untie":
		sh.cmdUntie(rest)
	case "set":
		sh.cmdSet(rest)
	case "get":
		sh.cmdGet(rest)
	case "unset":
		sh.cmdUnset(rest)
	case "keys":
		sh.cmdKeys(rest)
	case "dump":
		sh.cmdDump(rest)
	case "copy":
		sh.cmdCopy(rest)
	case "clear":
		sh.cmdClear(rest)
	case "vars":
		sh.cmdVars(rest)
	case "ties":
		sh.cmdTies(rest)
	case "sync":
		sh.cmdSync(rest)
	case "stat":
		sh.cmdStat(rest)
	case "help":
		sh.cmdHelp()
	case "exit":
		sh.cmdExit(rest, prev)
	default:
		sh.errorf("unknown command: %s", cmd)
	}
	sh.log.Debugf("command %s status %d", cmd, sh.status)
}

// errorf reports a command failure on the diagnostic stream
func (sh *Shell) errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(sh.errOut, msg)
	sh.log.Errorf("%s", msg)
	sh.fail()
}

// fail marks the current command failed
func (sh *Shell) fail() {
	sh.status = 1
	sh.failed = true
}

// tieOf resolves name to its tie, reporting failures under cmd's name
func (sh *Shell) tieOf(name, cmd string) (*binding.Binding, bool) {
	v, ok := sh.tbl.Get(name)
	if !ok {
		sh.errorf("%s: %s: %v", cmd, name, host.ErrNotFound)
		return nil, false
	}
	b, ok := binding.BindingOf(v)
	if !ok {
		sh.errorf("%s: %v: %s", cmd, binding.ErrNotTied, name)
		return nil, false
	}
	return b, true
}

// cmdTie ties a variable to a database file
//
// Usage:
//
//	tie -d db/bolt -f <path> [-r] <name>
//
// The backend tag and the filename are both mandatory. -r opens the file
// read-only and marks the variable read-only, element writes then stay in
// the session and never reach the file.
func (sh *Shell) cmdTie(args []string) {
	fs := flag.NewFlagSet("tie", flag.ContinueOnError)
	fs.SetOutput(sh.errOut)
	backend := fs.String("d", "", "backend tag")
	path := fs.String("f", "", "database file")
	readOnly := fs.Bool("r", false, "tie read-only")
	if err := fs.Parse(args); err != nil {
		sh.fail()
		return
	}

	if *backend == "" {
		sh.errorf("tie: you must pass `-d %s'", binding.Backend)
		return
	}
	if *path == "" {
		sh.errorf("tie: you must pass `-f' with a filename")
		return
	}
	if fs.NArg() != 1 {
		sh.errorf("tie: expected one variable name")
		return
	}

	name := fs.Arg(0)
	b, err := binding.Tie(sh.tbl, sh.files, binding.TieOptions{
		Name:     name,
		Backend:  *backend,
		Path:     *path,
		ReadOnly: *readOnly,
	})
	if err != nil {
		sh.errorf("tie: %v", err)
		return
	}
	sh.log.Infof("tie %s -> %s (%s)", name, b.Path(), b.Mode())
}

// cmdUntie detaches tied variables and removes them
//
// Usage:
//
//	untie [-u] <name>...
//
// -u allows untying a read-only tie. Failures are reported per name and
// the remaining names are still processed.
func (sh *Shell) cmdUntie(args []string) {
	fs := flag.NewFlagSet("untie", flag.ContinueOnError)
	fs.SetOutput(sh.errOut)
	force := fs.Bool("u", false, "allow untying a read-only variable")
	if err := fs.Parse(args); err != nil {
		sh.fail()
		return
	}
	if fs.NArg() == 0 {
		sh.errorf("untie: variable name required")
		return
	}

	for _, name := range fs.Args() {
		if err := binding.UntieName(sh.tbl, name, *force); err != nil {
			sh.errorf("untie: %v", err)
			continue
		}
		sh.log.Infof("untie %s", name)
	}
}

// cmdSet assigns one element, creating the variable when missing
//
// Usage:
//
//	set <name> <key> <value>
func (sh *Shell) cmdSet(args []string) {
	if len(args) != 3 {
		sh.errorf("usage: set <name> <key> <value>")
		return
	}
	v, err := sh.tbl.Fetch(args[0])
	if err != nil {
		sh.errorf("set: %v", err)
		return
	}
	v.Hash.Fetch(args[1]).SetValue([]byte(args[2]))
}

// cmdGet prints one element's value
//
// Usage:
//
//	get <name> <key>
//
// A missing variable or key prints an empty line with success status, the
// way an interpolated missing element expands to the empty string
func (sh *Shell) cmdGet(args []string) {
	if len(args) != 2 {
		sh.errorf("usage: get <name> <key>")
		return
	}
	v, ok := sh.tbl.Get(args[0])
	if !ok {
		fmt.Fprintln(sh.out)
		return
	}
	c, ok := v.Hash.Lookup(args[1])
	if !ok {
		fmt.Fprintln(sh.out)
		return
	}
	fmt.Fprintf(sh.out, "%s\n", c.Value())
}

// cmdUnset removes a whole variable or a single element
//
// Usage:
//
//	unset <name>
//	unset <name> <key>
func (sh *Shell) cmdUnset(args []string) {
	switch len(args) {
	case 1:
		if err := sh.tbl.Unset(args[0]); err != nil {
			sh.errorf("unset: %s: %v", args[0], err)
		}
	case 2:
		v, ok := sh.tbl.Get(args[0])
		if !ok {
			sh.errorf("unset: %s: %v", args[0], host.ErrNotFound)
			return
		}
		if !v.Hash.Remove(args[1]) {
			sh.errorf("unset: %s: no such element: %s", args[0], args[1])
		}
	default:
		sh.errorf("usage: unset <name> [<key>]")
	}
}

// cmdKeys lists a variable's keys in sorted order
//
// Usage:
//
//	keys <name> [<pattern>]
//
// With a pattern only matching keys are listed. Patterns use glob syntax,
// `*` and `?` wildcards, `[a-z]` ranges and `{a,b}` alternatives.
func (sh *Shell) cmdKeys(args []string) {
	if len(args) < 1 || len(args) > 2 {
		sh.errorf("usage: keys <name> [<pattern>]")
		return
	}
	v, ok := sh.tbl.Get(args[0])
	if !ok {
		sh.errorf("keys: %s: %v", args[0], host.ErrNotFound)
		return
	}

	match := func(string) bool { return true }
	if len(args) == 2 {
		g, err := glob.Compile(args[1])
		if err != nil {
			sh.errorf("keys: bad pattern %q: %v", args[1], err)
			return
		}
		match = g.Match
	}

	var keys []string
	v.Hash.Enumerate(func(c *host.Cell) bool {
		if match(c.Key()) {
			keys = append(keys, c.Key())
		}
		return true
	})
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintln(sh.out, k)
	}
}

// cmdDump prints every key=value pair of a variable in key order
//
// Usage:
//
//	dump <name>
func (sh *Shell) cmdDump(args []string) {
	if len(args) != 1 {
		sh.errorf("usage: dump <name>")
		return
	}
	v, ok := sh.tbl.Get(args[0])
	if !ok {
		sh.errorf("dump: %s: %v", args[0], host.ErrNotFound)
		return
	}

	snap := v.Hash.Snapshot()
	keys := maps.Keys(snap)
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(sh.out, "%s=%s\n", k, snap[k])
	}
}

// cmdCopy replaces dst's content with src's pairs, creating dst if needed
//
// Usage:
//
//	copy <src> <dst>
//
// When dst is tied the replacement writes through, the file is drained,
// compacted and refilled from src. Copying a variable onto itself is a
// no-op.
func (sh *Shell) cmdCopy(args []string) {
	if len(args) != 2 {
		sh.errorf("usage: copy <src> <dst>")
		return
	}
	src, ok := sh.tbl.Get(args[0])
	if !ok {
		sh.errorf("copy: %s: %v", args[0], host.ErrNotFound)
		return
	}
	dst, err := sh.tbl.Fetch(args[1])
	if err != nil {
		sh.errorf("copy: %v", err)
		return
	}
	if dst.ReadOnly() {
		sh.errorf("copy: %s: %v", args[1], host.ErrReadOnly)
		return
	}
	dst.Hash.Replace(src.Hash)
	sh.log.Infof("copy %s -> %s", args[0], args[1])
}

// cmdClear empties a variable
// On a tied variable this drains and compacts the backend file
//
// Usage:
//
//	clear <name>
func (sh *Shell) cmdClear(args []string) {
	if len(args) != 1 {
		sh.errorf("usage: clear <name>")
		return
	}
	v, ok := sh.tbl.Get(args[0])
	if !ok {
		sh.errorf("clear: %s: %v", args[0], host.ErrNotFound)
		return
	}
	if v.ReadOnly() {
		sh.errorf("clear: %s: %v", args[0], host.ErrReadOnly)
		return
	}
	v.Hash.Replace(nil)
}

// cmdVars lists every variable with its kind and materialized cell count
func (sh *Shell) cmdVars(args []string) {
	if len(args) != 0 {
		sh.errorf("usage: vars")
		return
	}
	for _, name := range sh.tbl.Names() {
		v, ok := sh.tbl.Get(name)
		if !ok {
			continue
		}
		kind := "hash"
		if binding.IsTied(v) {
			kind = "tied"
		}
		attr := ""
		if v.ReadOnly() {
			attr = " read-only"
		}
		fmt.Fprintf(sh.out, "%s\t%s%s\t%d\n", name, kind, attr, v.Hash.Len())
	}
}

// cmdTies lists the tied variables with their backend files
// Each line carries the name, path, mode, binding id and key count
func (sh *Shell) cmdTies(args []string) {
	if len(args) != 0 {
		sh.errorf("usage: ties")
		return
	}
	for _, info := range binding.List(sh.tbl) {
		fmt.Fprintf(sh.out, "%s\t%s\t%s\t%s\t%d keys\n", info.Name, info.Path, info.Mode, info.ID, info.Keys)
	}
}

// cmdSync flushes a tied variable's backend to stable storage
//
// Usage:
//
//	sync <name>
func (sh *Shell) cmdSync(args []string) {
	if len(args) != 1 {
		sh.errorf("usage: sync <name>")
		return
	}
	b, ok := sh.tieOf(args[0], "sync")
	if !ok {
		return
	}
	if err := b.Sync(); err != nil {
		sh.errorf("sync: %s: %v", args[0], err)
	}
}

// cmdStat prints backend statistics for a tied variable
//
// Usage:
//
//	stat <name>
func (sh *Shell) cmdStat(args []string) {
	if len(args) != 1 {
		sh.errorf("usage: stat <name>")
		return
	}
	b, ok := sh.tieOf(args[0], "stat")
	if !ok {
		return
	}
	db := b.DB()
	if db == nil {
		sh.errorf("stat: %s: %v", args[0], binding.ErrDetached)
		return
	}

	stats := db.Stats()
	v, _ := sh.tbl.Get(args[0])
	fmt.Fprintf(sh.out, "path:    %s\n", b.Path())
	fmt.Fprintf(sh.out, "mode:    %s\n", b.Mode())
	fmt.Fprintf(sh.out, "keys:    %d\n", stats.Keys)
	fmt.Fprintf(sh.out, "cells:   %d\n", v.Hash.Len())
	fmt.Fprintf(sh.out, "fetches: %d\n", stats.Fetches)
	fmt.Fprintf(sh.out, "stores:  %d\n", stats.Stores)
	fmt.Fprintf(sh.out, "deletes: %d\n", stats.Deletes)
}

// cmdHelp prints the command summary
func (sh *Shell) cmdHelp() {
	fmt.Fprint(sh.out, helpText)
}

const helpText = `Commands:
  tie -d db/bolt -f <path> [-r] <name>   tie a variable to a database file
  untie [-u] <name>...                   release tied variables
  set <name> <key> <value>               assign one element
  get <name> <key>                       print one element
  unset <name> [<key>]                   remove a variable or one element
  keys <name> [<pattern>]                list keys, optionally filtered
  dump <name>                            print every key=value pair
  copy <src> <dst>                       replace dst's content with src's
  clear <name>                           empty a variable
  vars                                   list variables
  ties                                   list tied variables
  sync <name>                            flush a tie to stable storage
  stat <name>                            print backend statistics
  help                                   this text
  exit [<code>]                          leave the shell
`

// cmdExit ends the session
// Without an argument the session leaves with the last command's status
func (sh *Shell) cmdExit(args []string, last int) {
	code := last
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			sh.errorf("exit: bad status %q", args[0])
			return
		}
		code = n
	}
	sh.done = true
	sh.exitCode = code
}

// splitCommands breaks a line into commands at unquoted semicolons
//
// Quoting follows the field rules, so a quoted or escaped semicolon stays
// inside its field. An unterminated quote leaves the remainder as one
// command for the field splitter to report.
func splitCommands(line string) []string {
	var (
		cmds  []string
		start int
	)
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case ';':
			cmds = append(cmds, line[start:i])
			start = i + 1
		case '\'':
			end := strings.IndexByte(line[i+1:], '\'')
			if end < 0 {
				return append(cmds, line[start:])
			}
			i += end + 1
		case '"':
			for i++; i < len(line) && line[i] != '"'; i++ {
				if line[i] == '\\' && i+1 < len(line) {
					i++
				}
			}
			if i >= len(line) {
				return append(cmds, line[start:])
			}
		case '\\':
			if i+1 < len(line) {
				i++
			}
		}
	}
	return append(cmds, line[start:])
}

// splitFields breaks a command line into fields
//
// Fields separate on unquoted whitespace. Single quotes keep their content
// literal, double quotes allow backslash escapes for the quote and the
// backslash itself, and a bare backslash escapes the next character. A
// trailing backslash stands for itself.
func splitFields(line string) ([]string, error) {
	var (
		fields  []string
		current strings.Builder
		open    bool // A field is being built, keeps quoted empties
	)

	for i := 0; i < len(line); i++ {
		switch ch := line[i]; ch {
		case ' ', '\t':
			if open {
				fields = append(fields, current.String())
				current.Reset()
				open = false
			}
		case '\'':
			open = true
			end := strings.IndexByte(line[i+1:], '\'')
			if end < 0 {
				return nil, errors.New("unterminated quote")
			}
			current.WriteString(line[i+1 : i+1+end])
			i += end + 1
		case '"':
			open = true
			i++
			for ; i < len(line) && line[i] != '"'; i++ {
				if line[i] == '\\' && i+1 < len(line) {
					i++
				}
				current.WriteByte(line[i])
			}
			if i >= len(line) {
				return nil, errors.New("unterminated quote")
			}
		case '\\':
			open = true
			if i+1 < len(line) {
				i++
				current.WriteByte(line[i])
			} else {
				current.WriteByte(ch)
			}
		default:
			open = true
			current.WriteByte(ch)
		}
	}
	if open {
		fields = append(fields, current.String())
	}
	return fields, nil
}
