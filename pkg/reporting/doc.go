/*
Package reporting renders Markdown activity narratives, grounded on
narrative.py's NarrativeGenerator: ExplainWindow/ExplainLast mirror
explain_time_window/explain_last, TraceSubject mirrors trace_subject,
and ExplainStalls/ExplainContextSwitches mirror their namesakes. The
LLM enhancement hook in the original is deliberately not ported —
Chronicle's narratives stay fully local and deterministic.
*/
package reporting
