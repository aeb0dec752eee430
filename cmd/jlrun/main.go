package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	gcbridge "github.com/wippyai/gc-bridge"
	"github.com/wippyai/gc-bridge/errors"
	"github.com/wippyai/gc-bridge/memrt"
	"github.com/wippyai/gc-bridge/rooting"
	"github.com/wippyai/gc-bridge/runtime"
	"github.com/wippyai/gc-bridge/value"
)

func main() {
	var (
		funcName    = flag.String("func", "", "Base function to call, e.g. div")
		argStr      = flag.String("args", "", "Comma-separated arguments (ints, floats or strings)")
		list        = flag.Bool("list", false, "List available functions and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		stackCap    = flag.Int("stack", runtime.DefaultStackCapacity, "Root stack capacity hint")
		minVersion  = flag.String("min-version", "", "Minimum runtime version to accept")
	)
	flag.Parse()

	if !*list && !*interactive && *funcName == "" {
		fmt.Fprintln(os.Stderr, "Usage: jlrun -func <name> [-args v1,v2,...]")
		fmt.Fprintln(os.Stderr, "       jlrun -list")
		fmt.Fprintln(os.Stderr, "       jlrun -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive && !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(*stackCap, *minVersion); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*funcName, *argStr, *stackCap, *minVersion, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(funcName, argStr string, stackCap int, minVersion string, listOnly bool) error {
	mem := memrt.New()
	rt, err := runtime.Init(mem, &runtime.Options{
		StackCapacity: stackCap,
		MinVersion:    minVersion,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Printf("Runtime: memrt %s\n", mem.Version())

	if listOnly {
		fmt.Printf("\nAvailable functions:\n")
		for _, name := range mem.Globals() {
			fmt.Printf("  %s\n", name)
		}
		return nil
	}

	args := parseArgs(argStr)
	return rt.Scope(func(s rooting.Scope) error {
		fn, err := value.Global(s, "Base", funcName)
		if err != nil {
			return err
		}

		vals := make([]value.Value, len(args))
		for i, a := range args {
			v, err := value.New(s, a)
			if err != nil {
				return err
			}
			vals[i] = v
		}

		fmt.Printf("\nCalling Base.%s(%s)...\n", funcName, argStr)
		res, err := fn.Call(s, vals...)
		if err != nil {
			if exc, ok := value.AsException(err); ok {
				return fmt.Errorf("%s: %s", exc.TypeName(), value.ExceptionMessage(s, exc))
			}
			return err
		}

		text, err := render(s, res)
		if err != nil {
			return err
		}
		fmt.Printf("Result: %s\n", text)
		return nil
	})
}

// parseArgs splits a comma-separated list, taking each token as int64, then
// float64, then a bare string.
func parseArgs(s string) []any {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	args := make([]any, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if n, err := strconv.ParseInt(p, 10, 64); err == nil {
			args = append(args, n)
			continue
		}
		if f, err := strconv.ParseFloat(p, 64); err == nil {
			args = append(args, f)
			continue
		}
		args = append(args, p)
	}
	return args
}

// render unboxes a result for display based on its runtime kind.
func render(s rooting.Scope, v value.Value) (string, error) {
	switch v.Kind() {
	case gcbridge.KindNothing:
		return "nothing", nil
	case gcbridge.KindBool:
		b, err := value.Unbox[bool](v)
		return fmt.Sprintf("%v", b), err
	case gcbridge.KindInt64:
		n, err := value.Unbox[int64](v)
		return fmt.Sprintf("%d", n), err
	case gcbridge.KindFloat64:
		f, err := value.Unbox[float64](v)
		return fmt.Sprintf("%g", f), err
	case gcbridge.KindString:
		t, err := value.Unbox[string](v)
		return strconv.Quote(t), err
	case gcbridge.KindException:
		return v.TypeName() + ": " + value.ExceptionMessage(s, v), nil
	}
	return "", errors.Unsupported(errors.PhaseConvert, "cannot display "+v.TypeName())
}
