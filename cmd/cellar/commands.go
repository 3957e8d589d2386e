package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"cellar/internal/store"
)

var errUsage = errors.New("usage")

// errNotFound makes get exit non-zero without printing a value.
var errNotFound = errors.New("not found")

func runGet(e *env, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	cat, err := store.ParseCategory(args[0])
	if err != nil {
		return err
	}
	v, err := e.st.Get(cat, []byte(args[1]))
	if err != nil {
		return err
	}
	if v == nil {
		return fmt.Errorf("%s/%s: %w", cat, args[1], errNotFound)
	}
	_, _ = fmt.Fprintf(e.out, "%s\n", v)
	return nil
}

func runPut(e *env, args []string) error {
	if len(args) != 3 {
		return errUsage
	}
	cat, err := store.ParseCategory(args[0])
	if err != nil {
		return err
	}
	return e.st.Insert(cat, []byte(args[1]), []byte(args[2]))
}

func runDel(e *env, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	cat, err := store.ParseCategory(args[0])
	if err != nil {
		return err
	}
	return e.st.Remove(cat, []byte(args[1]))
}

func runScan(e *env, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(e.errw)
	limit := fs.Int("limit", 0, "stop after n entries (0 = all)")
	asHex := fs.Bool("hex", false, "print keys and values hex-encoded")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	cat, err := store.ParseCategory(fs.Arg(0))
	if err != nil {
		return err
	}

	it, err := e.st.Iterate(cat)
	if err != nil {
		return err
	}
	defer it.Close()

	format := func(b []byte) string {
		if *asHex {
			return hex.EncodeToString(b)
		}
		return string(b)
	}
	n := 0
	for it.Next() {
		_, _ = fmt.Fprintf(e.out, "%s = %s\n", format(it.Key()), format(it.Value()))
		n++
		if *limit > 0 && n >= *limit {
			break
		}
	}
	return it.Err()
}

// dropper is implemented by backends that can discard a whole category.
type dropper interface {
	DropCategory(cat store.Category) error
}

func runDrop(e *env, args []string) error {
	fs := flag.NewFlagSet("drop", flag.ContinueOnError)
	fs.SetOutput(e.errw)
	confirm := fs.Bool("yes", false, "confirm the drop (required)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	cat, err := store.ParseCategory(fs.Arg(0))
	if err != nil {
		return err
	}
	if !*confirm {
		return errors.New("the --yes flag is required to confirm this destructive operation")
	}
	d, ok := e.st.(dropper)
	if !ok {
		return fmt.Errorf("backend %q cannot drop categories", e.cfg.Store.Backend)
	}
	if err := d.DropCategory(cat); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(e.out, "Dropped %s\n", cat)
	return nil
}

func runRestore(e *env, args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	fs.SetOutput(e.errw)
	confirm := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	src := fs.Arg(0)

	if !*confirm {
		if !e.isTTY() {
			return errors.New("not a terminal: pass --yes to confirm the restore")
		}
		ok, err := prompt(e.in, e.out, fmt.Sprintf("Replace the dataset at %s with %s? [y/N] ", e.cfg.Store.Path, src))
		if err != nil {
			return err
		}
		if !ok {
			_, _ = fmt.Fprintln(e.out, "Restore cancelled")
			return nil
		}
	}

	if err := e.st.Restore(src); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(e.out, "Restored from %s\n", src)
	return nil
}

func prompt(in io.Reader, out io.Writer, question string) (bool, error) {
	_, _ = fmt.Fprint(out, question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
