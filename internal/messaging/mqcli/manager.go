// Package mqcli implements the messaging capability interface by driving the
// IBM MQ command-line tools: runmqsc for administration and the amqsput /
// amqsget samples for message transfer. The tools expose none of the wire
// headers, so received messages carry synthesized default properties, and
// browsing is emulated with a destructive get followed by a put-back. The
// put-back re-enqueues at the tail and is not atomic; a concurrent consumer
// can observe or take the message in between.
package mqcli

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zosbridge/commongo/internal/clirunner"
	"github.com/zosbridge/commongo/pkg/logger"
	"github.com/zosbridge/commongo/pkg/manager"
	"github.com/zosbridge/commongo/pkg/rescapabilities"
)

const kind = rescapabilities.IBMMQ

var curdepthRe = regexp.MustCompile(`CURDEPTH\(\s*(-?\d+)\s*\)`)

// Manager is the command-line messaging backend.
type Manager struct {
	cfg    manager.ResourceConfig
	log    *logger.Logger
	runner clirunner.Runner

	// tool paths, substitutable by tests.
	shellTool string
	putTool   string
	getTool   string

	connected bool
}

// New creates a command-line messaging backend. No process is spawned until
// Connect.
func New(cfg manager.ResourceConfig, log *logger.Logger) *Manager {
	tools := rescapabilities.MustGet(kind).CLITools
	return &Manager{
		cfg:       cfg,
		log:       log,
		runner:    clirunner.Runner{Kind: kind, Timeout: cfg.TimeoutDuration()},
		shellTool: tools["shell"],
		putTool:   tools["put"],
		getTool:   tools["get"],
	}
}

func (m *Manager) queueManagerName() string {
	if m.cfg.QueueManager == "" {
		return "QM1"
	}
	return m.cfg.QueueManager
}

// runMQSC feeds an MQSC command to the administration shell over stdin.
func (m *Manager) runMQSC(ctx context.Context, command string) (clirunner.Result, error) {
	return m.runner.Run(ctx, m.shellTool, command+"\n", m.queueManagerName())
}

// Connect verifies the queue manager answers a DISPLAY QMGR command and
// remembers the result.
func (m *Manager) Connect(ctx context.Context) error {
	res, err := m.runMQSC(ctx, "DISPLAY QMGR")
	if err != nil {
		m.log.Error("queue manager connection error: %v", err)
		return manager.NewConnectionError(kind, m.cfg.HostOrDefault(), m.cfg.PortOrDefault(kind), err)
	}
	if !res.Succeeded() {
		m.log.Error("failed to connect to queue manager %s: %s", m.queueManagerName(), res.ErrorText())
		return manager.NewConnectionError(kind, m.cfg.HostOrDefault(), m.cfg.PortOrDefault(kind),
			fmt.Errorf("%w: %s", manager.ErrConnectionFailed, res.ErrorText()))
	}

	m.connected = true
	m.log.Info("connected to queue manager %s", m.queueManagerName())
	return nil
}

// Disconnect drops the emulated session flag. The tools hold no standing
// connection, so there is nothing to tear down.
func (m *Manager) Disconnect(ctx context.Context) error {
	if m.connected {
		m.connected = false
		m.log.Info("queue manager connection closed")
	}
	return nil
}

// IsConnected reports the emulated session flag.
func (m *Manager) IsConnected() bool {
	return m.connected
}

// PutMessage encodes the payload and feeds it to the put sample on stdin.
// The sample treats each input line as one message, so payloads containing
// newlines would be split; they are rejected up front.
func (m *Manager) PutMessage(ctx context.Context, queue string, payload interface{}, props *manager.MessageProperties) error {
	if !m.connected {
		return manager.NotConnected(kind, "put_message")
	}

	start := time.Now()

	data, err := manager.EncodePayload(payload)
	if err != nil {
		return manager.WrapError(kind, "put_message", err)
	}
	if strings.ContainsRune(string(data), '\n') {
		return manager.NewResourceError(kind, "put_message",
			fmt.Errorf("payload contains a newline, which the command-line transfer tool would split into multiple messages"))
	}

	res, err := m.runner.Run(ctx, m.putTool, string(data)+"\n", queue, m.queueManagerName())
	if err != nil {
		m.log.Error("error putting message to queue %s: %v", queue, err)
		return manager.WrapError(kind, "put_message", err)
	}
	if !res.Succeeded() {
		m.log.Error("error putting message to queue %s: %s", queue, res.ErrorText())
		return manager.NewResourceError(kind, "put_message",
			fmt.Errorf("put failed: %s", res.ErrorText()))
	}

	messageID := ""
	if props != nil {
		messageID = props.MessageID
	}
	m.log.LogMessagingOperation("PUT", queue, messageID, len(data), time.Since(start))
	return nil
}

// GetMessage destructively receives one message. An empty queue is not an
// error: the result is (nil, nil). The tools surface no header fields, so the
// envelope carries synthesized defaults and a generated message ID.
func (m *Manager) GetMessage(ctx context.Context, queue string, wait time.Duration) (*manager.MessageEnvelope, error) {
	if !m.connected {
		return nil, manager.NotConnected(kind, "get_message")
	}

	start := time.Now()

	runner := m.runner
	if wait > 0 {
		runner.Timeout = wait
	}
	res, err := runner.Run(ctx, m.getTool, "", queue, m.queueManagerName())
	if err != nil {
		m.log.Error("error getting message from queue %s: %v", queue, err)
		return nil, manager.WrapError(kind, "get_message", err)
	}
	if !res.Succeeded() {
		m.log.Error("error getting message from queue %s: %s", queue, res.ErrorText())
		return nil, manager.NewResourceError(kind, "get_message",
			fmt.Errorf("get failed: %s", res.ErrorText()))
	}

	body := parseGetOutput(res.Stdout)
	if body == "" {
		return nil, nil
	}

	env := manager.NewMessageEnvelope([]byte(body), synthesizedProperties())
	m.log.LogMessagingOperation("GET", queue, env.Properties.MessageID, len(body), time.Since(start))
	return env, nil
}

// BrowseMessage emulates browsing with a get followed by a put-back. The
// messageID filter is a library-mode feature the tools cannot honor; a
// non-empty value is rejected rather than silently browsing a different
// message.
func (m *Manager) BrowseMessage(ctx context.Context, queue, messageID string) (*manager.MessageEnvelope, error) {
	if !m.connected {
		return nil, manager.NotConnected(kind, "browse_message")
	}
	if messageID != "" {
		return nil, manager.NewResourceError(kind, "browse_message",
			fmt.Errorf("browsing by message ID is not supported by the command-line backend"))
	}

	start := time.Now()

	env, err := m.GetMessage(ctx, queue, 0)
	if err != nil {
		return nil, manager.WrapError(kind, "browse_message", err)
	}
	if env == nil {
		return nil, nil
	}

	if err := m.PutMessage(ctx, queue, env.Data, &env.Properties); err != nil {
		m.log.Error("browse put-back failed, message removed from queue %s: %v", queue, err)
		return nil, manager.WrapError(kind, "browse_message", err)
	}

	m.log.LogMessagingOperation("BROWSE", queue, env.Properties.MessageID, len(env.RawBytes), time.Since(start))
	return env, nil
}

// GetQueueDepth reports the queue's current depth. It never returns an
// error: a failed invocation yields -1, a successful one whose output carries
// no parsable depth yields 0.
func (m *Manager) GetQueueDepth(ctx context.Context, queue string) int {
	if !m.connected {
		m.log.Error("queue depth requested without a connection")
		return -1
	}

	res, err := m.runMQSC(ctx, fmt.Sprintf("DISPLAY QUEUE(%s) CURDEPTH", queue))
	if err != nil {
		m.log.Error("error getting queue depth for %s: %v", queue, err)
		return -1
	}
	if !res.Succeeded() {
		m.log.Error("error getting queue depth for %s: %s", queue, res.ErrorText())
		return -1
	}

	if match := curdepthRe.FindStringSubmatch(res.Stdout); match != nil {
		if n, perr := strconv.Atoi(match[1]); perr == nil {
			return n
		}
	}
	return 0
}

// PurgeQueue clears the queue and reports how many messages the snapshot
// taken just before held. A message arriving between snapshot and clear is
// purged but not counted.
func (m *Manager) PurgeQueue(ctx context.Context, queue string) (int, error) {
	if !m.connected {
		return 0, manager.NotConnected(kind, "purge_queue")
	}

	start := time.Now()
	depth := m.GetQueueDepth(ctx, queue)

	res, err := m.runMQSC(ctx, fmt.Sprintf("CLEAR QLOCAL(%s)", queue))
	if err != nil {
		m.log.Error("error purging queue %s: %v", queue, err)
		return 0, manager.WrapError(kind, "purge_queue", err)
	}
	if !res.Succeeded() {
		m.log.Error("error purging queue %s: %s", queue, res.ErrorText())
		return 0, manager.NewResourceError(kind, "purge_queue",
			fmt.Errorf("clear failed: %s", res.ErrorText()))
	}

	if depth < 0 {
		depth = 0
	}
	m.log.LogMessagingOperation("PURGE", queue, "", 0, time.Since(start))
	return depth, nil
}

// TestConnection probes the queue manager. Never returns an error.
func (m *Manager) TestConnection(ctx context.Context) bool {
	res, err := m.runMQSC(ctx, "DISPLAY QMGR")
	if err != nil {
		m.log.Error("queue manager connection test failed: %v", err)
		return false
	}
	return res.Succeeded()
}

// parseGetOutput extracts the message body from the get sample's chatter.
// The sample prints each message as `message <body>`; banner and prompt
// lines are discarded. The first message line wins.
func parseGetOutput(stdout string) string {
	for _, line := range strings.Split(stdout, "\n") {
		trimmed := strings.TrimSpace(line)
		if body, ok := strings.CutPrefix(trimmed, "message <"); ok {
			return strings.TrimSuffix(body, ">")
		}
	}
	return ""
}

// synthesizedProperties fills the header fields the command-line tools do not
// expose with the queue manager's datagram defaults.
func synthesizedProperties() manager.MessageProperties {
	now := time.Now().UTC()
	return manager.MessageProperties{
		MessageID:   "cli-" + uuid.NewString(),
		Format:      "MQSTR",
		MessageType: 8, // MQMT_DATAGRAM
		Priority:    4,
		Persistence: 0,
		Expiry:      -1,
		PutDate:     now.Format("20060102"),
		PutTime:     now.Format("15040500"),
	}
}
