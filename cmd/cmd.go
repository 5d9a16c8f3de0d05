package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	easy "github.com/t-tomalak/logrus-easy-formatter"
	"loxvm/vm"
)

// usageExitCode is the exit status for "more than one argument", per the
// CLI contract: 64 on usage error, 0 on success, nonzero (unspecified) on
// compile or runtime error.
const usageExitCode = 64

func App() (app *cobra.Command) {
	app = &cobra.Command{
		Use:   "loxvm [path]",
		Short: "Launch the `loxvm` bytecode interpreter",
		Args:  cobra.ArbitraryArgs,
	}

	app.Flags().SortFlags = true
	defaultVerbosityStr := "INFO"
	verbosity := app.Flags().StringP("verbosity", "v", defaultVerbosityStr, "Logging verbosity")

	app.Run = func(_ *cobra.Command, args []string) {
		verbosityLvl, err := logrus.ParseLevel(*verbosity)
		if err != nil {
			verbosityLvl, _ = logrus.ParseLevel(defaultVerbosityStr)
		}
		logrus.SetLevel(verbosityLvl)
		logrus.SetFormatter(&easy.Formatter{LogFormat: "//DBG// %msg%\n"})

		if err := appMain(args); err != nil {
			logrus.Fatal(err)
			os.Exit(1)
		}
	}
	return
}

// appMain implements spec.md §6: zero args enters the REPL, one arg runs a
// file, more than one is a usage error.
func appMain(args []string) error {
	switch len(args) {
	case 0:
		return vm.NewVM().REPL()
	case 1:
		return vm.NewVM().InterpretFile(args[0])
	default:
		fmt.Fprintln(os.Stderr, "usage: loxvm [path]")
		os.Exit(usageExitCode)
		return nil
	}
}
