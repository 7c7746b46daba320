package llm

import "context"

// FakeClient is a scripted Client for tests: each call to Complete pops
// the next response off Responses, or returns Err if set. Calls records
// every (systemPrompt, userPrompt) pair seen, for assertions.
type FakeClient struct {
	Responses []string
	Err       error
	Calls     []Call
}

// Call records one Complete invocation.
type Call struct {
	SystemPrompt string
	UserPrompt   string
}

func (f *FakeClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.Calls = append(f.Calls, Call{SystemPrompt: systemPrompt, UserPrompt: userPrompt})
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Responses) == 0 {
		return "", nil
	}
	resp := f.Responses[0]
	f.Responses = f.Responses[1:]
	return resp, nil
}
