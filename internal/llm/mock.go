package llm

import "context"

// MockClient permite tests sin llamar a un LLM real.
// Responses se consume en orden, una entrada por llamada a Chat.
type MockClient struct {
	Responses    []ChatResult
	Embedding    []float32
	Err          error
	EmbeddingErr error
	Unavailable  bool

	Calls int
}

func (m *MockClient) Chat(ctx context.Context, messages []Message, tools []ToolDef) (ChatResult, error) {
	m.Calls++
	if m.Err != nil {
		return ChatResult{}, m.Err
	}
	if len(m.Responses) == 0 {
		return ChatResult{}, nil
	}
	resp := m.Responses[0]
	if len(m.Responses) > 1 {
		m.Responses = m.Responses[1:]
	}
	return resp, nil
}

func (m *MockClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if m.EmbeddingErr != nil {
		return nil, m.EmbeddingErr
	}
	return m.Embedding, nil
}

func (m *MockClient) Available() bool {
	return !m.Unavailable
}
