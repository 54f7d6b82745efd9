// Package events carries the asynchronous half of the edit protocol between
// the state authority and the timeline service.
//
// Operation lifecycle:
//  1. RequestSplit / RequestDelete - intent emitted by the state authority
//     after its guards pass.
//  2. SplitComplete / DeleteComplete - result computed by the timeline
//     service, folded back into the snapshot by the authority.
//  3. OperationFailed - terminal failure for either request kind.
//
// The set is closed: the authority matches completions exhaustively and an
// unknown event kind is a programming error, not a runtime branch.
package events

import "github.com/cutroom/cutroom-agent/internal/timeline"

type Kind string

const (
	KindRequestSplit    Kind = "request_split"
	KindRequestDelete   Kind = "request_delete"
	KindSplitComplete   Kind = "split_complete"
	KindDeleteComplete  Kind = "delete_complete"
	KindOperationFailed Kind = "operation_failed"
)

// Event is one message on the bus. Implementations are the five concrete
// types in this package and nothing else.
type Event interface {
	Kind() Kind
}

// RequestSplit asks the service to split a clip at an absolute timeline
// position. The clip travels by value: the service never reads business
// state, it works only from what the request carries.
type RequestSplit struct {
	Clip      timeline.Clip
	SplitTime float64
}

func (RequestSplit) Kind() Kind { return KindRequestSplit }

// RequestDelete asks the service to release technical resources held for a
// clip that is being removed.
type RequestDelete struct {
	ClipID string
}

func (RequestDelete) Kind() Kind { return KindRequestDelete }

// SplitComplete carries the two clips that replace the original.
type SplitComplete struct {
	OriginalID string
	First      timeline.Clip
	Second     timeline.Clip
}

func (SplitComplete) Kind() Kind { return KindSplitComplete }

// DeleteComplete confirms resource cleanup for a removed clip.
type DeleteComplete struct {
	ClipID string
}

func (DeleteComplete) Kind() Kind { return KindDeleteComplete }

// OperationFailed is the terminal event for a request the service could not
// complete. Operation names the request kind, ClipID the subject.
type OperationFailed struct {
	Operation string
	ClipID    string
	Message   string
}

func (OperationFailed) Kind() Kind { return KindOperationFailed }
