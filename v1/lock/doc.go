// Package lock implements a reentrant distributed lock on top of a key-value
// store that runs atomic scripts.
//
// A lock is one string value per key, "<owner>:<count>". Acquiring a free
// key creates it with count 1 and an expiry; the same owner acquiring again
// bumps the count; any other owner is refused. Releasing decrements the
// count and deletes the key when it reaches zero. A value without a numeric
// suffix is read as a legacy record held once by the whole value.
//
// A Handle binds a business connection to a watchdog that renews the
// expiry of the held lock every max(floor, ttl/3) on its own connection,
// so a live holder keeps its lease while a dead one loses it after ttl.
//
//	h, err := lock.Open(ctx, "localhost:6379")
//	if err != nil {
//		return err
//	}
//	defer h.Close()
//
//	owner := lock.NewOwner()
//	ok, err := h.Acquire(ctx, "jobs:reindex", owner, 3*time.Second, 10*time.Second, 200*time.Millisecond)
//	if err != nil || !ok {
//		return err
//	}
//	defer h.Release(ctx, "jobs:reindex", owner)
package lock
