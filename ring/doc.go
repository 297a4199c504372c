// Package ring implements a bounded multi-producer, single-consumer ring
// buffer with sequence-based slot ownership.
//
// Producers claim a sequence number with a CAS on the claim cursor, fill the
// slot that sequence maps to, and publish it by storing the sequence into the
// slot's marker. The consumer polls strictly contiguous sequences, processes
// them, and releases them so the slots can be claimed again. No mutex is taken
// on the publish path.
//
//	buf, err := ring.New[Event](1024)
//	buf.Start()
//
//	// producer
//	c, err := buf.TryClaim()
//	*c.Value() = ev
//	buf.Publish(c)
//
//	// consumer
//	for {
//		seq, v, ok := buf.Poll()
//		if !ok {
//			buf.WaitPublished(done)
//			continue
//		}
//		process(v)
//		buf.Release(seq)
//	}
//
// Sequence n may be claimed only once n-Capacity() <= Consumed(), so a
// producer never overwrites a slot the consumer has not released. Poll never
// skips an unpublished sequence: events become visible to the consumer in
// claim order even when producers publish out of order.
//
// Exactly one goroutine may call Poll, Release and WaitPublished. This is not
// checked at runtime.
package ring
