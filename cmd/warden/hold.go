package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mirkobrombin/go-warden/v1/lock"
)

var holdCmd = &cobra.Command{
	Use:   "hold [key]",
	Short: "Acquire a lock and keep it until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE:  runHold,
}

func init() {
	f := holdCmd.Flags()
	f.String("owner", "", "Owner token (a new one is generated when empty)")
	f.Duration("lease", 30*time.Second, "Lock lease")
	f.Duration("acquire-timeout", 10*time.Second, "How long to wait for the lock")
	f.Duration("poll", 200*time.Millisecond, "Poll interval while waiting")
	f.Duration("for", 0, "Release after this long (0 waits for a signal)")
}

func runHold(cmd *cobra.Command, args []string) error {
	key := args[0]
	owner := viper.GetString("owner")
	if owner == "" {
		owner = lock.NewOwner()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h, err := lock.Open(ctx, env.endpoint, handleOptions()...)
	if err != nil {
		return err
	}
	defer h.Close()

	ok, err := h.Acquire(ctx, key, owner, viper.GetDuration("lease"), viper.GetDuration("acquire-timeout"), viper.GetDuration("poll"))
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		fmt.Printf("acquired=false\n")
		return nil
	}
	fmt.Printf("acquired=true, owner=%s\n", owner)

	if d := viper.GetDuration("for"); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
	} else {
		<-ctx.Done()
	}

	rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	released, err := h.Release(rctx, key, owner)
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	fmt.Printf("released=%v\n", released)
	return nil
}
