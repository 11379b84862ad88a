package main

import (
    "log"

    "github.com/spf13/cobra"

    consolecli "github.com/amirimatin/queue-console/pkg/cli"
)

func main() {
    if err := newRoot().Execute(); err != nil {
        log.Fatal(err)
    }
}

func newRoot() *cobra.Command {
    root := &cobra.Command{
        Use:           "queuectl",
        Short:         "operator console for a Raft queue/blob service",
        SilenceUsage:  true,
        SilenceErrors: true,
    }
    consolecli.AddAll(root)
    return root
}
