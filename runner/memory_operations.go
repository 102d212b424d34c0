package runner

import (
	"fmt"
)

// prepareArgs performs the host to device transfers a submission needs.
// DiscardWrite never transfers: the kernel must not depend on prior contents.
func (q *Queue) prepareArgs(args []Arg) error {
	for _, arg := range args {
		buf := arg.Buffer
		if buf.mem == nil {
			return fmt.Errorf("no device memory allocated for %s", buf.Name)
		}
		if !arg.Mode.NeedsCopyTo() || buf.deviceValid {
			continue
		}
		if err := q.upload(buf); err != nil {
			return fmt.Errorf("failed to copy %s to device: %w", buf.Name, err)
		}
	}
	return nil
}

// commitArgs records that written buffers now live on the device
func (q *Queue) commitArgs(args []Arg) {
	for _, arg := range args {
		if !arg.Mode.Writes() {
			continue
		}
		arg.Buffer.deviceValid = true
		arg.Buffer.hostStale = true
		arg.Buffer.err = nil
	}
}

func (q *Queue) upload(buf *Buffer) error {
	if err := q.backend.Upload(buf); err != nil {
		return err
	}
	buf.deviceValid = true
	return nil
}

// mapForRead runs on the worker after every earlier submission, so all
// writes to buf have completed when it copies back
func (q *Queue) mapForRead(buf *Buffer) error {
	if buf.err != nil {
		return buf.err
	}
	if !buf.hostStale {
		return nil
	}
	if buf.mem == nil {
		return fmt.Errorf("no device memory allocated for %s", buf.Name)
	}
	if err := q.backend.Download(buf); err != nil {
		return fmt.Errorf("failed to copy %s from device: %w", buf.Name, err)
	}
	buf.hostStale = false
	return nil
}
