package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/mirkobrombin/go-warden/v1/lock"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Race several workers for one lock",
	Long: `Each worker opens its own handle, waits for the lock, reenters it once,
holds it longer than the TTL while the watchdog renews it, then releases
twice to match the reentrant count.`,
	RunE: runDemo,
}

func init() {
	f := demoCmd.Flags()
	f.String("key", "demo:lock", "Lock key")
	f.Int("workers", 2, "Number of competing workers")
	f.Duration("ttl", 3*time.Second, "Lock lease")
	f.Duration("wait", 10*time.Second, "How long a worker waits for the lock")
	f.Duration("retry", 200*time.Millisecond, "Poll interval while waiting")
	f.Duration("hold", 8*time.Second, "How long a worker keeps the lock")
	f.Duration("stagger", 300*time.Millisecond, "Delay between worker starts")
}

func runDemo(cmd *cobra.Command, _ []string) error {
	key := viper.GetString("key")
	ttl := viper.GetDuration("ttl")
	wait := viper.GetDuration("wait")
	retry := viper.GetDuration("retry")
	hold := viper.GetDuration("hold")

	g, ctx := errgroup.WithContext(cmd.Context())
	for i := 0; i < viper.GetInt("workers"); i++ {
		name := fmt.Sprintf("worker-%c", 'A'+i%26)
		g.Go(func() error {
			return demoWorker(ctx, name, key, ttl, wait, retry, hold)
		})
		time.Sleep(viper.GetDuration("stagger"))
	}
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Println("demo finished")
	return nil
}

func demoWorker(ctx context.Context, name, key string, ttl, wait, retry, hold time.Duration) error {
	owner := lock.NewOwner()
	h, err := lock.Open(ctx, env.endpoint, handleOptions()...)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer h.Close()

	ok, err := h.Acquire(ctx, key, owner, ttl, wait, retry)
	if err != nil {
		return fmt.Errorf("%s: acquire: %w", name, err)
	}
	if !ok {
		fmt.Printf("%s failed to acquire lock (timeout)\n", name)
		return nil
	}
	fmt.Printf("%s acquired lock\n", name)

	re, err := h.TryAcquire(ctx, key, owner, ttl)
	fmt.Printf("%s reentered lock: %v\n", name, re)

	// Release on a fresh context so a cancelled run still gives the lock back.
	defer func() {
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := 1; i <= 2; i++ {
			released, rerr := h.Release(rctx, key, owner)
			fmt.Printf("%s unlock %d result: %v\n", name, i, released)
			if rerr != nil {
				env.logger.Warn("release failed", "worker", name, "error", rerr)
			}
		}
	}()
	if err != nil {
		return fmt.Errorf("%s: reenter: %w", name, err)
	}

	select {
	case <-time.After(hold):
		fmt.Printf("%s finished business\n", name)
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
