// Package analyzer turns a batch of records into a verdict using a locally
// hosted LLM.
//
// Two backends are provided: OllamaClient talks to /api/generate and
// ChatClient talks to any OpenAI-compatible chat completions endpoint. Both
// run in either blocking mode (one JSON response) or stream mode, where the
// body is a sequence of line-delimited fragments stitched back together by
// Reassemble. Fragments that fail to decode are skipped so one corrupt line
// does not cost the whole verdict.
//
// Analysis failures never abort a cycle: callers substitute ErrorVerdict,
// whose Text is ErrorMarker, and carry on. Escalation decides which verdicts
// should page someone.
package analyzer
