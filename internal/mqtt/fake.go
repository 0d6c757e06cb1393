package mqtt

import "sync"

// Message is one publish captured by FakeClient.
type Message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// FakeClient records publishes for test assertions.
type FakeClient struct {
	mu sync.Mutex

	Messages []Message
	// PublishError, if set, is returned by Publish.
	PublishError error
	// Block, if set, makes Publish wait until it is closed.
	Block        chan struct{}
	Disconnected bool
	Closed       bool
}

var _ Client = (*FakeClient)(nil)

func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

func (f *FakeClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if f.Block != nil {
		<-f.Block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Messages = append(f.Messages, Message{Topic: topic, QoS: qos, Retained: retained, Payload: payload})
	return nil
}

func (f *FakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.Disconnected && !f.Closed
}

func (f *FakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Published returns a copy of the captured messages.
func (f *FakeClient) Published() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.Messages...)
}
