// Command ledger operates the bankledger account ledger: schema migrations,
// account provisioning, balance operations, ledger queries, reconciliation
// and the ops server with the outbox publisher.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
