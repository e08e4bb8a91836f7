package monitoring

import "medrelay/internal/core/ports"

// NoopRecorder discards all metrics; used in tests.
type NoopRecorder struct{}

func NewNoopRecorder() ports.MetricsRecorder { return NoopRecorder{} }

func (NoopRecorder) ConnectionOpened()          {}
func (NoopRecorder) ConnectionClosed()          {}
func (NoopRecorder) RoomCreated()               {}
func (NoopRecorder) RoomDestroyed()             {}
func (NoopRecorder) MemberJoined()              {}
func (NoopRecorder) MemberLeft()                {}
func (NoopRecorder) MessageRelayed(string, int) {}
func (NoopRecorder) ErrorReported(string)       {}
