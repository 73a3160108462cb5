// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"

	"basalt/internal/accounts"
	"basalt/internal/bundle"
	"basalt/internal/cfg"
	"basalt/internal/diag"
	"basalt/internal/emit"
	"basalt/internal/emit/polkadot"
	"basalt/internal/emit/solana"
	"basalt/internal/emit/stylus"
)

var (
	targetName = flag.String("target", "solana", "execution environment: solana, polkadot or stylus")
	printCFG   = flag.Bool("print-cfg", false, "print each control flow graph before lowering")
	verbose    = flag.Bool("v", false, "enable debug logging")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: basalt [flags] <unit.json>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logLevel := 0
	if *verbose {
		logLevel = 1
	}
	commonlog.Configure(logLevel, nil)
	log := commonlog.GetLogger("basalt")

	startTime := time.Now()
	path := flag.Arg(0)

	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
		os.Exit(1)
	}

	listing, err := compile(log, path, source, *targetName, *printCFG)
	duration := formatDuration(time.Since(startTime))

	if err != nil {
		reporter := diag.NewReporter(path)
		fmt.Print(reporter.FormatError(err))
		color.Red("Compilation failed after %s", duration)
		os.Exit(1)
	}

	fmt.Print(listing)
	color.Green("Successfully compiled %s for %s in %s", path, *targetName, duration)
}

func compile(log commonlog.Logger, path string, source []byte, targetName string, printCFG bool) (listing string, err error) {
	defer diag.Recover(&err)

	ns, graphs, err := bundle.Load(source)
	if err != nil {
		return "", &diag.CompilerError{Code: diag.ErrorBadInput, Message: err.Error()}
	}
	log.Debugf("loaded %d functions, %d contracts from %s", len(ns.Functions), len(ns.Contracts), path)

	rt, addressLength, err := selectTarget(targetName)
	if err != nil {
		return "", err
	}
	ns.AddressLength = addressLength

	// Account-based targets need the account metadata pass before any
	// lowering happens.
	if targetName == "solana" {
		for contractNo := range ns.Contracts {
			accounts.ManageContractAccounts(ns, contractNo, graphs)
		}
		log.Debug("account metadata pass complete")
	}

	var out string
	for _, g := range graphs {
		if len(g.Blocks) == 0 {
			continue
		}
		if printCFG {
			out += cfg.PrintCFG(g)
		}

		bin := emit.NewBinary(targetName, addressLength)
		emit.EmitFunction(rt, bin, g, ns)
		out += fmt.Sprintf("; function %s\n%s\n", g.Name, bin.Dump())
	}
	return out, nil
}

func selectTarget(name string) (emit.TargetRuntime, int, error) {
	switch name {
	case "solana":
		return solana.New(), solana.AddressLength, nil
	case "polkadot":
		return polkadot.New(), polkadot.AddressLength, nil
	case "stylus":
		return stylus.New(), stylus.AddressLength, nil
	default:
		return nil, 0, &diag.CompilerError{
			Code:    diag.ErrorUnknownTarget,
			Message: fmt.Sprintf("unknown target %q", name),
		}
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
