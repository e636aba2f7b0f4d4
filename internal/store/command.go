package store

// createCommand is the two-phase optimistic create. Phase 1 applies the
// record to local state, synchronously visible to readers. Phase 2
// propagates to remote; only the create path carries a compensating action
// executed on failure (update and delete keep their optimistic result).
type createCommand struct {
	apply      func()
	propagate  func() error
	compensate func()
}

// run executes the command. A nil propagate means local-only mode: the
// local application stands and no error is returned.
func (c createCommand) run() error {
	c.apply()
	if c.propagate == nil {
		return nil
	}
	if err := c.propagate(); err != nil {
		c.compensate()
		return err
	}
	return nil
}
