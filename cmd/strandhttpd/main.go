// Command strandhttpd is the example server binary: it loads a manifest
// of HTTP servers, starts them all on a shared executor, and waits for
// SIGINT/SIGTERM to stop them.
//
// Grounded on the cobra+pflag+viper CLI construction idiom in
// sa6mwa-lockd/cmd/lockd/app.go (root command, persistent flags bound
// through viper for an environment-variable overlay).
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:]))
}

// run executes the CLI and returns the process exit code: 0 success;
// 1 unknown sub-command/argument error; -1 unknown unwind; -2 generic
// error; -3 domain error (typed).
func run(ctx context.Context, args []string) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "strandhttpd: unhandled panic: %v\n", r)
			code = -1
		}
	}()

	cmd := newRootCommand()
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case isUsageError(err):
		return 1
	default:
		var derr *domainError
		if asDomainError(err, &derr) {
			fmt.Fprintf(os.Stderr, "strandhttpd: %v\n", derr)
			return -3
		}
		fmt.Fprintf(os.Stderr, "strandhttpd: %v\n", err)
		return -2
	}
}
