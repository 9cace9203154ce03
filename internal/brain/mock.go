package brain

import "context"

// MockAdapter returns a canned response and records requests.
type MockAdapter struct {
	Text     string
	Err      error
	Requests []Request
}

func (m *MockAdapter) Generate(_ context.Context, req Request) (Response, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return Response{}, m.Err
	}
	return Response{Text: m.Text}, nil
}
