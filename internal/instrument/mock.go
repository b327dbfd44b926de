package instrument

import "fmt"

// MockHandle implements Handle for testing. Written and queried commands are
// recorded in order; query responses come from the scripted Responses queues
// unless QueryFunc is set. WriteFunc and QueryFunc allow failure injection.
type MockHandle struct {
	Commands  []string            // every command sent, write and query, in order
	Responses map[string][]string // FIFO of responses per query command

	WriteFunc func(command string) error
	QueryFunc func(command string) (string, error)

	Closed bool
}

func (m *MockHandle) Write(command string) error {
	m.Commands = append(m.Commands, command)
	if m.WriteFunc != nil {
		return m.WriteFunc(command)
	}
	return nil
}

func (m *MockHandle) Query(command string) (string, error) {
	m.Commands = append(m.Commands, command)
	if m.QueryFunc != nil {
		return m.QueryFunc(command)
	}

	queue := m.Responses[command]
	if len(queue) == 0 {
		return "", fmt.Errorf("no scripted response for %q", command)
	}
	resp := queue[0]
	m.Responses[command] = queue[1:]
	return resp, nil
}

func (m *MockHandle) Close() error {
	m.Closed = true
	return nil
}
