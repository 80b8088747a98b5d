package engine

import (
	"sync"
	"time"

	"github.com/csml-dev/csml-engine/internal/interpreter"
)

// EventKind is the inbound event's dispatch tag (spec §4.7 step 2).
type EventKind string

const (
	KindFlowTrigger EventKind = "flow_trigger"
	KindStepTrigger EventKind = "step_trigger"
	KindText        EventKind = "text"
	KindPayload     EventKind = "payload"
)

// Decision records why the router resolved an event to a given
// (flow, step): RequestID/RulesEvaluated/RulesMatched/Reasoning shape,
// scoring "which (flow, step) does this event resolve to".
type Decision struct {
	RequestID      string    `json:"request_id"`
	Timestamp      time.Time `json:"timestamp"`
	Kind           EventKind `json:"kind"`
	RulesEvaluated []string  `json:"rules_evaluated"`
	RulesMatched   []string  `json:"rules_matched"`
	Target         interpreter.GotoTarget
	Reasoning      string `json:"reasoning"`
}

// Stats tracks routing volume per event kind.
type Stats struct {
	TotalRequests int64           `json:"total_requests"`
	KindCounts    map[string]int64 `json:"kind_counts"`
}

// Router resolves an inbound event to a starting (flow, step), keeping
// an in-memory audit log (auditLog/Stats/GetAuditLog/Explain) for
// debugging, scored by CSML's event routing rule (spec §4.7 step 2).
type Router struct {
	maxAuditLog int

	mu       sync.RWMutex
	auditLog []Decision
	stats    Stats
}

// NewRouter builds a Router. maxAuditLog <= 0 defaults to 1000.
func NewRouter(maxAuditLog int) *Router {
	if maxAuditLog <= 0 {
		maxAuditLog = 1000
	}
	return &Router{
		maxAuditLog: maxAuditLog,
		auditLog:    make([]Decision, 0, maxAuditLog),
		stats:       Stats{KindCounts: make(map[string]int64)},
	}
}

// Route resolves event to a GotoTarget per spec §4.7 step 2: flow_trigger
// switches flow to the named one at step "start"; step_trigger jumps to
// the named step in the conversation's current flow; text/payload leave
// the flow unchanged and resume the conversation's current step (the
// hold-frame override, if any, is applied by the caller before Route is
// consulted).
func (r *Router) Route(requestID string, kind EventKind, currentFlow, currentStep, targetFlow, targetStep string) *Decision {
	d := &Decision{RequestID: requestID, Timestamp: time.Now(), Kind: kind}

	switch kind {
	case KindFlowTrigger:
		d.RulesEvaluated = append(d.RulesEvaluated, "flow_trigger")
		d.Target = interpreter.GotoTarget{Flow: targetFlow, Step: "start"}
		d.RulesMatched = append(d.RulesMatched, "switch_flow")
		d.Reasoning = "flow_trigger: starting flow " + targetFlow
	case KindStepTrigger:
		d.RulesEvaluated = append(d.RulesEvaluated, "step_trigger")
		d.Target = interpreter.GotoTarget{Flow: currentFlow, Step: targetStep}
		d.RulesMatched = append(d.RulesMatched, "jump_step")
		d.Reasoning = "step_trigger: jumping to step " + targetStep + " in " + currentFlow
	default:
		d.RulesEvaluated = append(d.RulesEvaluated, "resume")
		d.Target = interpreter.GotoTarget{Flow: currentFlow, Step: currentStep}
		d.RulesMatched = append(d.RulesMatched, "resume_current")
		d.Reasoning = "text/payload: resuming " + currentFlow + "/" + currentStep
	}

	r.record(*d)
	return d
}

func (r *Router) record(d Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.auditLog) >= r.maxAuditLog {
		r.auditLog = r.auditLog[1:]
	}
	r.auditLog = append(r.auditLog, d)
	r.stats.TotalRequests++
	r.stats.KindCounts[string(d.Kind)]++
}

// GetAuditLog returns the most recent limit decisions (all, if limit<=0).
func (r *Router) GetAuditLog(limit int) []Decision {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 || limit > len(r.auditLog) {
		limit = len(r.auditLog)
	}
	start := len(r.auditLog) - limit
	out := make([]Decision, limit)
	copy(out, r.auditLog[start:])
	return out
}

// Stats returns current routing statistics.
func (r *Router) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// Explain returns the decision made for requestID, or nil.
func (r *Router) Explain(requestID string) *Decision {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.auditLog) - 1; i >= 0; i-- {
		if r.auditLog[i].RequestID == requestID {
			d := r.auditLog[i]
			return &d
		}
	}
	return nil
}
