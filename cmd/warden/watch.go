package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mirkobrombin/go-warden/v1/syncbus"
)

var watchCmd = &cobra.Command{
	Use:   "watch [key]",
	Short: "Print lock and unlock events for a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if env.bus == nil {
			return errors.New("watch needs --bus=redis or --bus=nats")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		key := args[0]
		locked, err := env.bus.Subscribe(ctx, syncbus.LockTopic(key))
		if err != nil {
			return err
		}
		unlocked, err := env.bus.Subscribe(ctx, syncbus.UnlockTopic(key))
		if err != nil {
			return err
		}
		for {
			select {
			case _, ok := <-locked:
				if !ok {
					return nil
				}
				fmt.Printf("%s locked\n", key)
			case _, ok := <-unlocked:
				if !ok {
					return nil
				}
				fmt.Printf("%s unlocked\n", key)
			case <-ctx.Done():
				return nil
			}
		}
	},
}
