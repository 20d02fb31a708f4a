// Package events defines the typed contract the orchestration core publishes
// to presentation layers.
//
// Event kinds are grouped by namespace:
//
//   - session.*
//   - tool_call.*
//
// session events
//
//   - ConnectionPhaseChanged (session.phase_changed): the session state
//     machine moved between disconnected, connecting, connected idle, and
//     connected studying.
//   - CardChanged (session.card_changed): a new current card was bound, or
//     the current card was cleared.
//   - VerdictSet (session.verdict_set): the agent graded the just-answered
//     card.
//   - VerdictCleared (session.verdict_cleared): the verdict display window
//     elapsed.
//   - TranscriptAppended (session.transcript_appended): one line was added
//     to the append-only debug transcript.
//
// tool_call events
//
//   - ToolCallStarted (tool_call.started): servicing of an agent tool call
//     began.
//   - ToolCallCompleted (tool_call.completed): the call's output was sent
//     back to the agent.
//   - ToolCallFailed (tool_call.failed): the call was answered with an
//     error-shaped output or could not be answered.
package events
