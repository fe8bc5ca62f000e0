package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies which half of a WorkerEvent is populated.
type Kind int

const (
	KindStat Kind = iota + 1
	KindStatus
)

var kindNames = [...]string{
	KindStat:   "Stat",
	KindStatus: "Status",
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// StatKind identifies a statistics change.
type StatKind int

const (
	FilesDone StatKind = iota + 1
	FilesTotal
	BytesTotal
	Current
)

var statNames = [...]string{
	FilesDone:  "FilesDone",
	FilesTotal: "FilesTotal",
	BytesTotal: "BytesTotal",
	Current:    "Current",
}

func (k StatKind) String() string {
	if k > 0 && int(k) < len(statNames) {
		return statNames[k]
	}
	return "Unknown"
}

// StatChange is a single counter update from the engine.
type StatChange struct {
	Kind  StatKind
	Path  string // Current: file being transferred
	Bytes uint64 // BytesTotal: amount to add; Current: chunk length
	Done  uint64 // Current: bytes moved of this file so far
	Total uint64 // Current: size of this file
}

// StatusKind classifies an OperationStatus.
type StatusKind int

const (
	StatusInfo StatusKind = iota + 1
	StatusWarning
	StatusError
)

var statusNames = [...]string{
	StatusInfo:    "Info",
	StatusWarning: "Warning",
	StatusError:   "Error",
}

func (k StatusKind) String() string {
	if k > 0 && int(k) < len(statusNames) {
		return statusNames[k]
	}
	return "Unknown"
}

// OperationStatus reports engine state. Only StatusError requires a reply.
type OperationStatus struct {
	Kind    StatusKind
	Message string
	Path    string // StatusError: source file that failed, if any
	Attempt int    // StatusError: 1 for the first failure of Path, 2 after one retry, ...
}

// WorkerEvent is what the engine sends to the coordinator.
type WorkerEvent struct {
	Kind      Kind
	Engine    uuid.UUID
	Timestamp time.Time
	Stat      StatChange
	Status    OperationStatus
}

// IsError reports whether the event demands an OperationControl reply.
func (e WorkerEvent) IsError() bool {
	return e.Kind == KindStatus && e.Status.Kind == StatusError
}

func (e WorkerEvent) String() string {
	switch e.Kind {
	case KindStat:
		if e.Stat.Kind == Current {
			return fmt.Sprintf("Stat(Current %s %d %d/%d)", e.Stat.Path, e.Stat.Bytes, e.Stat.Done, e.Stat.Total)
		}
		if e.Stat.Kind == BytesTotal {
			return fmt.Sprintf("Stat(BytesTotal %d)", e.Stat.Bytes)
		}
		return fmt.Sprintf("Stat(%s)", e.Stat.Kind)
	case KindStatus:
		if e.Status.Attempt > 0 {
			return fmt.Sprintf("Status(%s %q attempt %d)", e.Status.Kind, e.Status.Message, e.Status.Attempt)
		}
		return fmt.Sprintf("Status(%s %q)", e.Status.Kind, e.Status.Message)
	default:
		return "Unknown"
	}
}

func stat(c StatChange) WorkerEvent {
	return WorkerEvent{Kind: KindStat, Timestamp: time.Now(), Stat: c}
}

// NewFilesDone signals one more file finished.
func NewFilesDone() WorkerEvent { return stat(StatChange{Kind: FilesDone}) }

// NewFilesTotal signals one more file discovered.
func NewFilesTotal() WorkerEvent { return stat(StatChange{Kind: FilesTotal}) }

// NewBytesTotal adds n to the expected byte total.
func NewBytesTotal(n uint64) WorkerEvent { return stat(StatChange{Kind: BytesTotal, Bytes: n}) }

// NewCurrent reports a chunk of progress on path.
func NewCurrent(path string, chunk, done, total uint64) WorkerEvent {
	return stat(StatChange{Kind: Current, Path: path, Bytes: chunk, Done: done, Total: total})
}

// NewStatus wraps an arbitrary status.
func NewStatus(kind StatusKind, msg string) WorkerEvent {
	return WorkerEvent{
		Kind:      KindStatus,
		Timestamp: time.Now(),
		Status:    OperationStatus{Kind: kind, Message: msg},
	}
}

// NewError reports a recoverable transfer failure.
func NewError(msg string) WorkerEvent { return NewStatus(StatusError, msg) }

// NewFailure reports the attempt-th failure to transfer path.
func NewFailure(path string, attempt int, msg string) WorkerEvent {
	ev := NewError(msg)
	ev.Status.Path = path
	ev.Status.Attempt = attempt
	return ev
}

// From stamps the event with the id of the engine that produced it.
func (e WorkerEvent) From(id uuid.UUID) WorkerEvent {
	e.Engine = id
	return e
}

// OperationControl is the coordinator's answer to a StatusError event.
type OperationControl int

const (
	Retry OperationControl = iota + 1
	Skip
	Abort
)

var controlNames = [...]string{
	Retry: "retry",
	Skip:  "skip",
	Abort: "abort",
}

func (c OperationControl) String() string {
	if c > 0 && int(c) < len(controlNames) {
		return controlNames[c]
	}
	return "unknown"
}

// ParseControl parses "retry", "skip" or "abort" (case-insensitive).
func ParseControl(s string) (OperationControl, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range controlNames {
		if i > 0 && name == s {
			return OperationControl(i), nil
		}
	}
	return 0, fmt.Errorf("unknown error action %q (want retry, skip or abort)", s)
}
