package llm

import "context"

// StubTranslator is a canned-output Translator for tests and local runs.
type StubTranslator struct {
	Output string
	Err    error
	Calls  int
}

func (s *StubTranslator) Translate(_ context.Context, _ string, _ string) (string, error) {
	s.Calls++
	return s.Output, s.Err
}

// StubSummarizer is a canned-output Summarizer for tests and local runs.
type StubSummarizer struct {
	Result Result
	Err    error
	Calls  int
}

func (s *StubSummarizer) Summarize(_ context.Context, _ string, _ string) (Result, error) {
	s.Calls++
	return s.Result, s.Err
}
