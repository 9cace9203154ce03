package voice

import "context"

// MockSynthesizer is a canned synthesizer for tests and offline runs.
type MockSynthesizer struct {
	AudioURL string
	Err      error
	Calls    int
	LastText string
}

func (m *MockSynthesizer) Synthesize(_ context.Context, text string) (string, error) {
	m.Calls++
	m.LastText = text
	if m.Err != nil {
		return "", m.Err
	}
	if m.AudioURL == "" {
		return "/audio/mock.wav", nil
	}
	return m.AudioURL, nil
}

// MockTranscriber returns a fixed transcript.
type MockTranscriber struct {
	Text string
	Err  error
}

func (m *MockTranscriber) Transcribe(_ context.Context, _ string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}

func (m *MockTranscriber) TranscribeBytes(_ context.Context, _ []byte) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}
