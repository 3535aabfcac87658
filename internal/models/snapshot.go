package models

import (
	"slices"
	"time"
)

// Node names a step of the agent graph.
type Node string

const (
	NodeAgent          Node = "agent"
	NodeSafeTools      Node = "safe_tools"
	NodeSensitiveTools Node = "sensitive_tools"
	NodeEnd            Node = "end"
)

// Snapshot is the persisted state of one conversation thread.
//
// Next lists the nodes that will run when the thread resumes; an empty Next
// means the thread is quiescent. Pending holds the tool calls of the last
// assistant turn while they wait to be executed or confirmed.
type Snapshot struct {
	ThreadID     string     `json:"thread_id"`
	Version      int64      `json:"version"`
	Step         int        `json:"step"`
	Conversation []Turn     `json:"conversation"`
	Pending      []ToolCall `json:"pending,omitempty"`
	Next         []Node     `json:"next,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Paused reports whether the thread is suspended waiting for the user to
// confirm sensitive tool calls.
func (s Snapshot) Paused() bool {
	return slices.Contains(s.Next, NodeSensitiveTools)
}

// Quiescent reports whether nothing is scheduled to run.
func (s Snapshot) Quiescent() bool {
	return len(s.Next) == 0
}

// NextNode returns the first scheduled node, or NodeEnd.
func (s Snapshot) NextNode() Node {
	if len(s.Next) == 0 {
		return NodeEnd
	}
	return s.Next[0]
}

// LastTurn returns the most recent turn of the conversation.
func (s Snapshot) LastTurn() (Turn, bool) {
	if len(s.Conversation) == 0 {
		return Turn{}, false
	}
	return s.Conversation[len(s.Conversation)-1], true
}

// Clone returns a deep copy so callers can mutate it freely.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Conversation != nil {
		out.Conversation = make([]Turn, len(s.Conversation))
		for i, t := range s.Conversation {
			out.Conversation[i] = t.Clone()
		}
	}
	if s.Pending != nil {
		out.Pending = make([]ToolCall, len(s.Pending))
		for i, c := range s.Pending {
			out.Pending[i] = c.Clone()
		}
	}
	out.Next = slices.Clone(s.Next)
	return out
}
