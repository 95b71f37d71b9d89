// Package interactive drives an interactive render session: the session status
// polled by the render loop, deferred camera updates and texture file watching.
package interactive

import "sync"

// Status is the state of an interactive render session.
type Status uint8

const (
	NotStarted Status = iota
	Rendering
	Ended
	Aborted
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Rendering:
		return "rendering"
	case Ended:
		return "ended"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// CameraUpdater applies a camera change to the scene being rendered.
type CameraUpdater interface {
	UpdateCamera()
}

// CameraUpdaterFunc adapts a function to [CameraUpdater].
type CameraUpdaterFunc func()

func (f CameraUpdaterFunc) UpdateCamera() { f() }

// Controller holds the status of an interactive session. The host UI sets the
// status and schedules camera updates while the render loop polls the status
// and applies updates between frames. It is safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	status  Status
	pending CameraUpdater
}

// OnRenderingBegin marks the session as rendering.
func (c *Controller) OnRenderingBegin() {
	c.SetStatus(Rendering)
}

// OnFrameBegin applies the scheduled camera update, if any, on the calling
// goroutine and reports whether one was applied. Each update is applied once.
func (c *Controller) OnFrameBegin() bool {
	c.mu.Lock()
	u := c.pending
	c.pending = nil
	c.mu.Unlock()
	if u == nil {
		return false
	}
	u.UpdateCamera()
	return true
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) SetStatus(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = s
}

// ScheduleUpdate replaces any pending camera update with u.
func (c *Controller) ScheduleUpdate(u CameraUpdater) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = u
}

// Pending reports whether a camera update is scheduled.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}
