// Package engine implements C7: the per-event conversation loop that
// resolves an inbound event to a (flow, step), drives C5 through
// transitions until it halts, and commits the result through C8 (spec
// §4.7). Event routing is a dedicated Router (see router.go);
// observability is published on internal/events.Bus.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/csml-dev/csml-engine/internal/events"
	"github.com/csml-dev/csml-engine/internal/interpreter"
	"github.com/csml-dev/csml-engine/internal/primitive"
	"github.com/csml-dev/csml-engine/internal/rerr"
	"github.com/csml-dev/csml-engine/internal/source"
	"github.com/csml-dev/csml-engine/internal/storage"
)

// maxTransitions bounds goto transitions within the same flow without an
// intervening say/hold (spec §4.7 step 4, spec §8 S5).
const maxTransitions = 100

// Engine runs inbound events against a compiled bot, persisting results
// through a storage.Store.
type Engine struct {
	Store    storage.Store
	Bus      *events.Bus
	Router   *Router
	Builtins map[string]interpreter.BuiltinFunc
}

// New builds an Engine. bus may be nil (events.Bus.Publish is nil-safe).
func New(store storage.Store, bus *events.Bus, builtins map[string]interpreter.BuiltinFunc) *Engine {
	return &Engine{Store: store, Bus: bus, Router: NewRouter(0), Builtins: builtins}
}

// stepResult carries the step loop's outcome plus where execution ended
// up, so commit can persist the right (flow, step).
type stepResult struct {
	outcome  interpreter.Outcome
	flowName string
	stepName string
}

// Run executes spec §4.7 end to end for a single inbound event against
// program.
func (e *Engine) Run(program *interpreter.Program, req Request) (*Response, error) {
	start := time.Now()
	client := req.Client

	e.publish(events.KindInteractionStart, map[string]any{
		"request_id": req.RequestID, "bot_id": client.BotID,
		"channel_id": client.ChannelID, "user_id": client.UserID,
	})

	conv, err := e.Store.GetLatestOpen(client)
	if errors.Is(err, storage.ErrNotFound) {
		conv, err = e.Store.CreateConversation(client, program.DefaultFlow, "start", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("engine: lookup/create conversation: %w", err)
	}

	eventMap := map[string]any{
		"request_id":   req.RequestID,
		"content_type": req.Payload.ContentType,
		"text":         req.Payload.Content.Text,
		"payload":      req.Payload.Content.Payload,
		"flow_id":      req.Payload.Content.FlowID,
		"step_id":      req.Payload.Content.StepID,
	}
	interaction, err := e.Store.AddInteraction(client, eventMap)
	if err != nil {
		return nil, fmt.Errorf("engine: add interaction: %w", err)
	}

	kind := EventKind(req.Payload.ContentType)

	var holdFrame *storage.HoldFrame
	if kind == KindText || kind == KindPayload {
		v, err := e.Store.GetHoldFrame(client)
		switch {
		case err == nil:
			if hf, convErr := storage.HoldFrameFromValue(v); convErr == nil {
				holdFrame = &hf
			}
		case errors.Is(err, storage.ErrNotFound):
			// no hold frame, resume at conversation's current step
		default:
			return nil, fmt.Errorf("engine: load hold frame: %w", err)
		}
	}

	decision := e.Router.Route(req.RequestID, kind, conv.FlowID, conv.StepID,
		req.Payload.Content.FlowID, req.Payload.Content.StepID)
	flowName, stepName := decision.Target.Flow, decision.Target.Step
	resumeIndex := 0
	resuming := false
	if holdFrame != nil {
		flowName, stepName, resumeIndex = holdFrame.FlowID, holdFrame.StepID, holdFrame.StatementIdx
		resuming = true
	}

	memories, err := e.Store.GetMemories(client)
	if err != nil {
		return nil, fmt.Errorf("engine: load memories: %w", err)
	}
	memScope := primitive.NewObject()
	for _, m := range memories {
		memScope.Set(m.Key, m.Value)
	}

	outer := primitive.Scope{
		"event":    mapToObject(eventMap),
		"metadata": mapToObject(req.Metadata),
		"_memory":  memScope,
		"_env":     primitive.NewObject(),
	}
	if holdFrame != nil {
		for k, v := range holdFrame.Scope {
			outer[k] = v
		}
	}

	it := interpreter.New(program, flowName, outer)
	it.Builtins = e.Builtins

	result := e.stepLoop(req, it, flowName, stepName, resuming, resumeIndex)

	return e.commit(req, conv, interaction, it, result, start)
}

// stepLoop drives C5 through Goto transitions until a non-Goto outcome
// (spec §4.7 step 4).
func (e *Engine) stepLoop(req Request, it *interpreter.Interpreter, flowName, stepName string, resuming bool, resumeIndex int) stepResult {
	transitions := 0
	for {
		flow := it.Program.Flows[flowName]
		if flow == nil {
			return stepResult{outcome: interpreter.Outcome{Kind: interpreter.OutcomeError,
				Err: fmt.Errorf("unknown flow %q", flowName)}, flowName: flowName, stepName: stepName}
		}
		step := flow.StepByName(stepName)
		if step == nil {
			return stepResult{outcome: interpreter.Outcome{Kind: interpreter.OutcomeError,
				Err: fmt.Errorf("unknown step %q in flow %q", stepName, flowName)}, flowName: flowName, stepName: stepName}
		}
		it.FlowName = flowName

		var out interpreter.Outcome
		messagesBefore := len(it.Messages)
		if resuming {
			out = it.RunFromStatement(step.Body, resumeIndex)
			resuming = false
		} else {
			out = it.RunStep(step)
		}
		e.publish(events.KindStepExecuted, map[string]any{
			"request_id": req.RequestID, "flow": flowName, "step": stepName,
			"outcome": out.Kind.String(),
		})

		if out.Kind != interpreter.OutcomeGoto {
			return stepResult{outcome: out, flowName: flowName, stepName: stepName}
		}

		if len(it.Messages) > messagesBefore {
			transitions = 0
		}
		sameFlow := out.Goto.Flow == "" || out.Goto.Flow == flowName
		if sameFlow {
			transitions++
			if transitions > maxTransitions {
				e.publish(events.KindInfiniteLoop, map[string]any{
					"request_id": req.RequestID, "flow": flowName, "step": stepName, "transitions": transitions,
				})
				err := rerr.New(source.Interval{}, rerr.CategoryInfiniteLoop,
					"exceeded %d transitions without emitting a message or holding", maxTransitions)
				return stepResult{outcome: interpreter.Outcome{Kind: interpreter.OutcomeError, Err: err},
					flowName: flowName, stepName: stepName}
			}
			stepName = out.Goto.Step
			continue
		}
		transitions = 0
		flowName, stepName = out.Goto.Flow, out.Goto.Step
	}
}

func (e *Engine) commit(req Request, conv *storage.Conversation, interaction *storage.Interaction,
	it *interpreter.Interpreter, result stepResult, start time.Time) (*Response, error) {

	client := req.Client
	messages := make([]storage.Message, len(it.Messages))
	for i, m := range it.Messages {
		messages[i] = storage.Message{FlowID: result.flowName, StepID: result.stepName,
			ContentType: m.ContentType, Payload: m.Payload}
	}

	success := true
	status := storage.StatusClosed
	var holdValue primitive.Value

	switch result.outcome.Kind {
	case interpreter.OutcomeHold:
		hf := storage.HoldFrame{
			FlowID: result.flowName, StepID: result.stepName,
			StatementIdx: result.outcome.HoldIndex,
			Scope:        it.Scopes.Snapshot()[0],
		}
		holdValue = hf.ToValue()
		status = "" // leave conversation open
		e.publish(events.KindHold, map[string]any{
			"request_id": req.RequestID, "conversation_id": conv.ID,
			"flow": result.flowName, "step": result.stepName,
		})
	case interpreter.OutcomeError:
		success = false
		category := rerr.CategoryBadArgument
		msg := "runtime error"
		var rerrVal *rerr.Error
		if errors.As(result.outcome.Err, &rerrVal) {
			category = rerrVal.Category
			msg = rerrVal.Message
		} else if result.outcome.Err != nil {
			msg = result.outcome.Err.Error()
		}
		errObj := primitive.NewObject()
		errObj.Set("content_type", primitive.Str("error"))
		errObj.Set("category", primitive.Str(string(category)))
		errObj.Set("message", primitive.Str(msg))
		messages = append(messages, storage.Message{
			FlowID: result.flowName, StepID: result.stepName, ContentType: "error", Payload: errObj,
		})
	}

	memWrites := make([]storage.Memory, len(it.MemoryWrites))
	for i, w := range it.MemoryWrites {
		memWrites[i] = storage.Memory{Client: client, Key: w.Key, Value: w.Value}
	}

	out, err := e.Store.CommitInteraction(storage.CommitParams{
		Client:         client,
		ConversationID: conv.ID,
		InteractionID:  interaction.ID,
		FlowID:         result.flowName,
		StepID:         result.stepName,
		Status:         status,
		Success:        success,
		Messages:       messages,
		MemoryWrites:   memWrites,
		HoldFrame:      holdValue,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: commit interaction: %w", err)
	}

	e.publish(events.KindInteractionComplete, map[string]any{
		"request_id": req.RequestID, "conversation_id": conv.ID,
		"interaction_id": interaction.ID, "success": success,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	return &Response{
		Messages:       out,
		ConversationID: conv.ID,
		InteractionID:  interaction.ID,
		Success:        success,
	}, nil
}

func (e *Engine) publish(kind string, data map[string]any) {
	e.Bus.Publish(events.Event{Timestamp: time.Now(), Source: events.SourceEngine, Kind: kind, Data: data})
}

func mapToObject(m map[string]any) *primitive.Object {
	o := primitive.NewObject()
	for k, v := range m {
		o.Set(k, primitive.Unmarshal(v))
	}
	return o
}
