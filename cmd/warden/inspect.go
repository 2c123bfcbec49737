package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirkobrombin/go-warden/v1/lock"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [key]",
	Short: "Show the owner, count and remaining lease of a lock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := lock.Open(cmd.Context(), env.endpoint, handleOptions()...)
		if err != nil {
			return err
		}
		defer h.Close()

		rec, ttl, ok, err := h.Inspect(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("held=false")
			return nil
		}
		fmt.Printf("held=true, owner=%s, count=%d, legacy=%v, ttl=%s\n", rec.Owner, rec.Count, rec.Legacy, ttl)
		return nil
	},
}
