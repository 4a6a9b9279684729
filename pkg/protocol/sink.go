package protocol

// Sink delivers outbound messages to one client connection.
// Send accepts any of the message structs in this package, encodes it as
// JSON, and queues it for the connection's write pump. Send returns an
// error once the connection is gone; senders must stop streaming frames
// and suppress the completion message when that happens.
type Sink interface {
	Send(msg any) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(msg any) error

// Send calls f(msg).
func (f SinkFunc) Send(msg any) error {
	return f(msg)
}
