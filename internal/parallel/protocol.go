package parallel

import "fmt"

// Worker processes speak newline-delimited JSON. The child first writes a
// helloMessage, then answers every taskMessage read from stdin with exactly
// one resultMessage on stdout, in order. Closing stdin asks it to exit.
// Payloads and results are gob bytes, base64 in the JSON line.

type helloMessage struct {
	PID      int    `json:"pid"`
	Workload string `json:"workload"`
	Error    string `json:"error,omitempty"`
}

type taskMessage struct {
	Index   int    `json:"index"`
	Payload []byte `json:"payload"`
}

type resultMessage struct {
	Index  int    `json:"index"`
	Result []byte `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RemoteError is a workload error reported by a worker process.
type RemoteError struct {
	Worker  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("worker %d: %s", e.Worker, e.Message)
}

// maxMessageSize bounds one protocol line.
const maxMessageSize = 64 << 20
