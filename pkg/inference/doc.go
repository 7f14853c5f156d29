/*
Package inference classifies raw events into labeled activity windows.

Windows groups a timestamp-sorted event stream using a gap threshold;
Analyze then fills in each window's task label, confidence, and key
subjects via a fixed table of task patterns (coding, research,
git_workflow, terminal_work, file_organization) scored against the
window's event types and process names. ContextSwitches and Stalls
operate on already-analyzed windows to surface task changes and
abandoned work, and Activity summarizes a full analyzed set.

Every function is a pure transformation of its input slice with no I/O,
which is why this package has no third-party dependency: the scoring
heuristics are closed-set arithmetic over values already in types.Event,
and nothing in the module's dependency set does that better than slices
and maps.
*/
package inference
