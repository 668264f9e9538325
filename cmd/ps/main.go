// Command ps is the ProtoScript CLI front door: it loads pre-built IR
// JSON and runs it. The lexer/parser/front end that turns source text
// into IR is out of scope, so `run`/`-e`/`repl` are stubbed reporting
// that no front end is available in this build.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/protoscript/ps/diag"
	"github.com/protoscript/ps/interp"
	"github.com/protoscript/ps/ir"
	"github.com/protoscript/ps/value"

	_ "github.com/protoscript/ps/modules/psfs"
	_ "github.com/protoscript/ps/modules/psmath"
)

// exit codes: 0 success; 1 runtime exception / IO / internal / OOM;
// 2 static failure or usage error.
const (
	exitOK            = 0
	exitRuntime       = 1
	exitUsageOrStatic = 2
)

var (
	flagTrace   bool
	flagTraceIR bool
	flagTime    bool
)

func main() {
	root := &cobra.Command{
		Use:     "ps",
		Short:   "ProtoScript runtime core CLI",
		Version: "0.1.0",
	}
	root.PersistentFlags().BoolVar(&flagTrace, "trace", false, "trace interpreter execution")
	root.PersistentFlags().BoolVar(&flagTraceIR, "trace-ir", false, "trace IR instruction dispatch")
	root.PersistentFlags().BoolVar(&flagTime, "time", false, "print elapsed execution time")

	root.AddCommand(irCmd(), checkCmd(), stubCmd("run"), stubCmd("repl"))
	root.AddCommand(exprCmdStub())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsageOrStatic)
	}
}

func irCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ir <file.json> [args...]",
		Short: "Load and execute a compiled IR module",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			os.Exit(runIR(args[0], args[1:]))
			return nil
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file.json>",
		Short: "Load an IR module and report diagnostics without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			os.Exit(runCheck(args[0]))
			return nil
		},
	}
}

func stubCmd(name string) *cobra.Command {
	return &cobra.Command{
		Use:    name,
		Hidden: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(os.Stderr, "ps %s: front end not available in this build\n", name)
			os.Exit(exitUsageOrStatic)
			return nil
		},
	}
}

func exprCmdStub() *cobra.Command {
	return &cobra.Command{
		Use:                "-e",
		Short:              "evaluate an inline expression (unavailable)",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(os.Stderr, "ps -e: front end not available in this build")
			os.Exit(exitUsageOrStatic)
			return nil
		},
	}
}

func loadModule(path string) (*ir.Module, int) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ps: cannot read %s: %s\n", path, err)
		return nil, exitUsageOrStatic
	}
	mod, diags, err := ir.Load(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ps: %s\n", err)
		return nil, exitUsageOrStatic
	}
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, d.String())
	}
	if len(diags) > 0 {
		return nil, exitUsageOrStatic
	}
	return mod, exitOK
}

func runCheck(path string) int {
	_, code := loadModule(path)
	return code
}

func runIR(path string, args []string) int {
	mod, code := loadModule(path)
	if mod == nil {
		return code
	}

	ctx := interp.NewContext(mod)
	defer ctx.Destroy()
	ctx.Trace = flagTrace
	ctx.TraceIR = flagTraceIR

	argv := make([]value.Value, len(args))
	for i, a := range args {
		s, err := value.NewStringFromGo(a)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ps: invalid argument %d: %s\n", i, err)
			return exitUsageOrStatic
		}
		argv[i] = s
	}

	start := time.Now()
	vm := interp.New()
	_, err := vm.Run(ctx, "main", argv)
	if flagTime {
		fmt.Fprintf(os.Stderr, "ps: elapsed %s\n", time.Since(start))
	}
	if err == nil {
		return exitOK
	}

	uw, ok := err.(*interp.Unwind)
	if !ok {
		fmt.Fprintf(os.Stderr, "ps: %s\n", err)
		return exitRuntime
	}
	reportUnhandled(uw.Exception)
	return exitRuntime
}

// reportUnhandled prints an escaped exception on stderr as
// "path:line:col Rxxxx CATEGORY: message (TypeName)", with R1011 UNHANDLED_EXCEPTION
// substituted when the exception carries no code of its own (a
// user-defined exception that was never classified against the runtime
// table).
func reportUnhandled(e value.Value) {
	code, category := value.ExceptionCode(e), value.ExceptionCategory(e)
	if code == "" {
		code, category = diag.UnhandledExceptionCode, diag.UnhandledExceptionCategory
	}
	fmt.Fprintf(os.Stderr, "%s:%d:%d %s %s: %s (%s)\n",
		value.ExceptionFile(e), value.ExceptionLine(e), value.ExceptionCol(e),
		code, category, value.ExceptionMessage(e), value.ExceptionTypeName(e))
}
