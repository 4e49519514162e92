// bankrecon reconciles external bank statement files against a stored
// account ledger and verifies ledger integrity.
package main

import (
	"os"

	"github.com/micromata/bankrecon/cmd/bankrecon/cmd"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
