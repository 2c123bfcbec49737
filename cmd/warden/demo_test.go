package main

import "testing"

func TestDemoEmbedded(t *testing.T) {
	rootCmd.SetArgs([]string{
		"demo", "--embedded",
		"--workers", "3",
		"--ttl", "300ms",
		"--hold", "150ms",
		"--wait", "5s",
		"--retry", "20ms",
		"--stagger", "10ms",
		"--log-level", "warn",
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("demo: %v", err)
	}
}
