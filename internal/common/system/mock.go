package system

import "context"

// Call records one invocation made against a MockRunner.
type Call struct {
	Name  string
	Args  []string
	Input []byte
}

// MockRunner implements Executor for testing.
// RunFunc controls the result of every call; all calls are recorded.
type MockRunner struct {
	RunFunc func(name string, args []string, input []byte) (string, error)
	Calls   []Call
}

// NewMockRunner creates a MockRunner that answers every command with output
func NewMockRunner(output string) *MockRunner {
	return &MockRunner{
		RunFunc: func(string, []string, []byte) (string, error) {
			return output, nil
		},
	}
}

// Run records the call and returns the configured result
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	return m.RunWithInput(ctx, nil, name, args...)
}

// RunWithInput records the call and returns the configured result
func (m *MockRunner) RunWithInput(ctx context.Context, input []byte, name string, args ...string) (string, error) {
	m.Calls = append(m.Calls, Call{Name: name, Args: args, Input: input})
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.RunFunc != nil {
		return m.RunFunc(name, args, input)
	}
	return "", nil
}

// Ensure MockRunner implements Executor interface
var _ Executor = (*MockRunner)(nil)
