/*
Package workers sizes and bounds the decode worker pool.

# Sizing

Count and its helpers derive worker counts from GOMAXPROCS, which follows
the container CPU limit rather than the host core count:

	workers.ForCPU(8)    // 1 per CPU, at most 8
	workers.ForMixed(12) // 1.5 per CPU, at most 12

Resolve applies the STREAM_WORKERS override from the startup config.

# Pool

Pool is a weighted semaphore (golang.org/x/sync/semaphore) that bounds how
many image and video decodes run at once. Pass-through streaming does not
take a slot. An optional Gate, normally a memory.Monitor, is waited on
before a slot is granted:

	pool := workers.NewPool(memory.DecodeSlots(limit, workers.ForMixed(16)), monitor)
	err := pool.Do(ctx, func() error {
	    bitmap, err = model.Decode(ctx, opts)
	    return err
	})
*/
package workers
