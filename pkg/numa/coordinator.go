package numa

import (
	"fmt"
	"time"

	"github.com/jihwankim/gibbsfg/pkg/reporting"
)

// AuditEntry is one step (bind or unbind) of a replica's NUMA lifecycle.
type AuditEntry struct {
	Timestamp time.Time
	Action    string
	Replica   int
	Success   bool
	Err       error
	Details   string
}

// Coordinator tracks every replica's NUMA lifecycle so a run can be
// reconstructed after the fact: which domain each replica bound to, whether
// the bind succeeded, and when it released.
type Coordinator struct {
	logger *reporting.Logger
	audit  []AuditEntry
}

// NewCoordinator returns a Coordinator logging through logger.
func NewCoordinator(logger *reporting.Logger) *Coordinator {
	return &Coordinator{logger: logger}
}

// BindReplica binds domain d for replica i, recording the outcome.
func (c *Coordinator) BindReplica(i int, d Domain) error {
	err := Bind(d)
	c.log("bind", i, err, fmt.Sprintf("cpus=%v", d.CPUs))
	return err
}

// UnbindReplica releases replica i's OS-thread pin.
func (c *Coordinator) UnbindReplica(i int) {
	Unbind()
	c.log("unbind", i, nil, "")
}

func (c *Coordinator) log(action string, replica int, err error, details string) {
	entry := AuditEntry{
		Timestamp: time.Now(),
		Action:    action,
		Replica:   replica,
		Success:   err == nil,
		Err:       err,
		Details:   details,
	}
	c.audit = append(c.audit, entry)
	if c.logger == nil {
		return
	}
	rl := c.logger.WithReplica(replica)
	if err != nil {
		rl.Error("numa lifecycle action failed", "action", action, "error", err.Error(), "details", details)
		return
	}
	rl.Debug("numa lifecycle action", "action", action, "details", details)
}

// AuditLog returns every recorded lifecycle entry in order.
func (c *Coordinator) AuditLog() []AuditEntry {
	return c.audit
}

// Summary reports how many lifecycle actions succeeded vs. failed.
func (c *Coordinator) Summary() (succeeded, failed int) {
	for _, e := range c.audit {
		if e.Success {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
