// Package main implements tiekv-dump, the offline companion tool for tiekv
// database files.
//
// Two subcommands move a whole database through a plain text stream:
//
//	tiekv-dump export -f <db> [-o <file>]   database to key/value lines
//	tiekv-dump import -f <db> [-i <file>]   key/value lines to database
//
// The stream holds one pair per line, key and value separated by a tab.
// Tabs, newlines, carriage returns and backslashes inside keys or values
// are backslash-escaped, so arbitrary binary content round-trips through
// the text form.
//
// Export opens the database read-only and may run while a shell session
// holds the same file read-only too. Import needs the writer lock and
// creates the file when it doesn't exist.
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dreamware/tiekv/internal/engine"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the CLI and returns an exit code.
// This is separated from main() to facilitate testing.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	switch args[0] {
	case "export":
		return exportCmd(args[1:], stdout, stderr)
	case "import":
		return importCmd(args[1:], stdin, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, "Run 'tiekv-dump help' for usage.")
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: tiekv-dump <command> [options]

Commands:
  export -f <db> [-o <file>]   write the database as key/value lines
  import -f <db> [-i <file>]   load key/value lines into the database
  help                         this text
`)
}

// exportCmd handles the export command
func exportCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("f", "", "Database file path")
	output := fs.String("o", "", "Output file path, defaults to stdout")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *file == "" {
		fmt.Fprintln(stderr, "Error: -f is required")
		return 1
	}

	h, err := engine.Open(*file, engine.Reader)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening database file: %v\n", err)
		return 1
	}
	defer h.Close()

	out := io.Writer(stdout)
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(stderr, "Error creating output file: %v\n", err)
			return 1
		}
		defer f.Close()
		out = f
	}

	n, err := export(h, out)
	if err != nil {
		fmt.Fprintf(stderr, "Export failed: %v\n", err)
		return 1
	}

	// The summary goes to stderr, the data stream may own stdout
	fmt.Fprintf(stderr, "Exported %d pairs\n", n)
	return 0
}

// importCmd handles the import command
func importCmd(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("f", "", "Database file path")
	input := fs.String("i", "", "Input file path, defaults to stdin")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *file == "" {
		fmt.Fprintln(stderr, "Error: -f is required")
		return 1
	}

	h, err := engine.Open(*file, engine.Writer)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening database file: %v\n", err)
		return 1
	}
	defer h.Close()

	in := stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			fmt.Fprintf(stderr, "Error opening input file: %v\n", err)
			return 1
		}
		defer f.Close()
		in = f
	}

	n, err := importPairs(h, in)
	if err != nil {
		fmt.Fprintf(stderr, "Import failed: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Imported %d pairs\n", n)
	return 0
}

// export writes every pair of the database to w, one escaped line per pair
// Returns the number of pairs written
func export(h *engine.Handle, w io.Writer) (int, error) {
	bw := bufio.NewWriter(w)
	n := 0

	key, ok, err := h.FirstKey()
	for err == nil && ok {
		var value []byte
		value, _, err = h.Fetch(key)
		if err != nil {
			break
		}

		bw.Write(escape(key))
		bw.WriteByte('\t')
		bw.Write(escape(value))
		bw.WriteByte('\n')
		n++

		key, ok, err = h.NextKey(key)
	}
	if err != nil {
		return n, err
	}
	return n, bw.Flush()
}

// importPairs stores every line of r into the database, overwriting
// existing keys. Returns the number of pairs stored.
func importPairs(h *engine.Handle, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	n := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		sep := bytes.IndexByte(line, '\t')
		if sep < 0 {
			return n, fmt.Errorf("line %d: missing separator", lineNo)
		}
		key, err := unescape(line[:sep])
		if err != nil {
			return n, fmt.Errorf("line %d: %v", lineNo, err)
		}
		value, err := unescape(line[sep+1:])
		if err != nil {
			return n, fmt.Errorf("line %d: %v", lineNo, err)
		}

		if err := h.Store(key, value, true); err != nil {
			return n, fmt.Errorf("line %d: %v", lineNo, err)
		}
		n++
	}
	return n, scanner.Err()
}

// escape makes b safe for the line format
// Tabs, newlines, carriage returns and backslashes turn into two-byte
// escapes, everything else passes through
func escape(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		switch c {
		case '\\':
			out = append(out, '\\', '\\')
		case '\t':
			out = append(out, '\\', 't')
		case '\n':
			out = append(out, '\\', 'n')
		case '\r':
			out = append(out, '\\', 'r')
		default:
			out = append(out, c)
		}
	}
	return out
}

// unescape reverses escape
func unescape(b []byte) ([]byte, error) {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' {
			out = append(out, b[i])
			continue
		}

		i++
		if i >= len(b) {
			return nil, fmt.Errorf("dangling escape")
		}
		switch b[i] {
		case '\\':
			out = append(out, '\\')
		case 't':
			out = append(out, '\t')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		default:
			return nil, fmt.Errorf("unknown escape \\%c", b[i])
		}
	}
	return out, nil
}
