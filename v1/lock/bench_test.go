package lock

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newBenchHandle(b *testing.B) *Handle {
	b.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		b.Fatalf("miniredis run: %v", err)
	}
	h, err := Open(context.Background(), mr.Addr(), WithoutWatchdog())
	if err != nil {
		b.Fatalf("open: %v", err)
	}
	b.Cleanup(func() {
		_ = h.Close()
		mr.Close()
	})
	return h
}

func BenchmarkTryAcquireRelease(b *testing.B) {
	h := newBenchHandle(b)
	ctx := context.Background()
	owner := NewOwner()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := strconv.Itoa(i % 64)
		if ok, err := h.TryAcquire(ctx, key, owner, time.Minute); err != nil || !ok {
			b.Fatalf("trylock failed: %v ok=%v", err, ok)
		}
		if ok, err := h.Release(ctx, key, owner); err != nil || !ok {
			b.Fatalf("release failed: %v ok=%v", err, ok)
		}
	}
}

func BenchmarkTryAcquireContended(b *testing.B) {
	h := newBenchHandle(b)
	ctx := context.Background()
	if ok, _ := h.TryAcquire(ctx, "k", NewOwner(), time.Minute); !ok {
		b.Fatal("setup failed")
	}
	other := NewOwner()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if ok, err := h.TryAcquire(ctx, "k", other, time.Minute); err != nil || ok {
			b.Fatalf("contended trylock: %v ok=%v", err, ok)
		}
	}
}

func BenchmarkParseRecord(b *testing.B) {
	v := Record{Owner: NewOwner(), Count: 3}.String()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = ParseRecord(v)
	}
}
