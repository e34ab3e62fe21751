package scan

import "context"

// transmit hands at most one queued byte to the transmitter. It only runs
// while the scanner is quiet: something is pending, the last edge produced no
// message and the decoder is not waiting for sync. Sending can take many loop
// iterations per byte, so it must never hold up the sampler.
func (d *Decoder) transmit() {
	if !d.event || !d.idle || d.position == SyncPosition {
		return
	}
	if !d.tx.Ready() {
		return
	}
	c, ok := d.queue.Dequeue()
	if !ok {
		d.event = false
		return
	}
	if err := d.tx.WriteByte(c); err != nil {
		d.stats.TxErrors++
		return
	}
	d.stats.Sent++
}

// Flush writes every queued byte to the transmitter, waiting for it to become
// ready. It gives up when ctx is done and leaves the unsent bytes queued. It
// is meant for shutting down a host-side decoder, never for the scan loop.
func (d *Decoder) Flush(ctx context.Context) error {
	done := ctx.Done()
	for d.queue.Len() > 0 {
		for !d.tx.Ready() {
			select {
			case <-done:
				return ctx.Err()
			default:
			}
		}
		c, _ := d.queue.Dequeue()
		if err := d.tx.WriteByte(c); err != nil {
			d.stats.TxErrors++
			return err
		}
		d.stats.Sent++
	}
	d.event = false
	return nil
}
