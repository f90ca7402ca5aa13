//go:build enterprise
// +build enterprise

// Package mqnative implements the messaging capability interface on the
// native MQ client bindings. Unlike the command-line backend it holds a real
// connection handle, surfaces genuine message descriptors, and supports
// non-destructive browsing and browse-by-ID. Compiled only under the
// enterprise tag because the bindings need the MQ client SDK at build time.
package mqnative

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ibm-messaging/mq-golang/v5/ibmmq"

	"github.com/zosbridge/commongo/pkg/logger"
	"github.com/zosbridge/commongo/pkg/manager"
	"github.com/zosbridge/commongo/pkg/rescapabilities"
)

const kind = rescapabilities.IBMMQ

const defaultChannel = "SYSTEM.DEF.SVRCONN"

// initialBufferSize is the starting get buffer; it doubles on truncation.
const initialBufferSize = 32 * 1024

// Manager is the native messaging backend.
type Manager struct {
	cfg  manager.ResourceConfig
	log  *logger.Logger
	qmgr *ibmmq.MQQueueManager
}

// New creates a native messaging backend. The connection is made by Connect.
func New(cfg manager.ResourceConfig, log *logger.Logger) *Manager {
	return &Manager{cfg: cfg, log: log}
}

func (m *Manager) queueManagerName() string {
	if m.cfg.QueueManager == "" {
		return "QM1"
	}
	return m.cfg.QueueManager
}

func (m *Manager) channelName() string {
	if m.cfg.Channel == "" {
		return defaultChannel
	}
	return m.cfg.Channel
}

// Connect establishes a client-binding connection to the queue manager.
func (m *Manager) Connect(ctx context.Context) error {
	cd := ibmmq.NewMQCD()
	cd.ChannelName = m.channelName()
	cd.ConnectionName = fmt.Sprintf("%s(%d)", m.cfg.HostOrDefault(), m.cfg.PortOrDefault(kind))

	cno := ibmmq.NewMQCNO()
	cno.ClientConn = cd
	cno.Options = ibmmq.MQCNO_CLIENT_BINDING

	if m.cfg.User != "" {
		csp := ibmmq.NewMQCSP()
		csp.AuthenticationType = ibmmq.MQCSP_AUTH_USER_ID_AND_PWD
		csp.UserId = m.cfg.User
		csp.Password = m.cfg.Password
		cno.SecurityParms = csp
	}

	qmgr, err := ibmmq.Connx(m.queueManagerName(), cno)
	if err != nil {
		m.log.Error("failed to connect to queue manager %s: %v", m.queueManagerName(), err)
		return manager.NewConnectionError(kind, m.cfg.HostOrDefault(), m.cfg.PortOrDefault(kind), err)
	}

	m.qmgr = &qmgr
	m.log.Info("connected to queue manager %s", m.queueManagerName())
	return nil
}

// Disconnect closes the queue manager connection. Idempotent.
func (m *Manager) Disconnect(ctx context.Context) error {
	if m.qmgr == nil {
		return nil
	}
	if err := m.qmgr.Disc(); err != nil {
		m.log.Error("error closing queue manager connection: %v", err)
	}
	m.qmgr = nil
	m.log.Info("queue manager connection closed")
	return nil
}

// IsConnected reports whether a connection handle is held.
func (m *Manager) IsConnected() bool {
	return m.qmgr != nil
}

func (m *Manager) openQueue(queue string, options int32) (ibmmq.MQObject, error) {
	od := ibmmq.NewMQOD()
	od.ObjectType = ibmmq.MQOT_Q
	od.ObjectName = queue
	return m.qmgr.Open(od, options|ibmmq.MQOO_FAIL_IF_QUIESCING)
}

// PutMessage sends the encoded payload with the descriptor fields taken from
// props; unset fields keep the queue manager defaults.
func (m *Manager) PutMessage(ctx context.Context, queue string, payload interface{}, props *manager.MessageProperties) error {
	if m.qmgr == nil {
		return manager.NotConnected(kind, "put_message")
	}

	start := time.Now()

	data, err := manager.EncodePayload(payload)
	if err != nil {
		return manager.WrapError(kind, "put_message", err)
	}

	qObj, err := m.openQueue(queue, ibmmq.MQOO_OUTPUT)
	if err != nil {
		m.log.Error("error opening queue %s for put: %v", queue, err)
		return manager.NewResourceError(kind, "put_message", err)
	}
	defer qObj.Close(0)

	md := ibmmq.NewMQMD()
	md.Format = ibmmq.MQFMT_STRING
	pmo := ibmmq.NewMQPMO()
	pmo.Options = ibmmq.MQPMO_NO_SYNCPOINT | ibmmq.MQPMO_NEW_MSG_ID
	applyProperties(md, props)

	if err := qObj.Put(md, pmo, data); err != nil {
		m.log.Error("error putting message to queue %s: %v", queue, err)
		return manager.NewResourceError(kind, "put_message", err)
	}

	m.log.LogMessagingOperation("PUT", queue, hex.EncodeToString(md.MsgId), len(data), time.Since(start))
	return nil
}

// GetMessage destructively receives one message, waiting up to wait for one
// to arrive. An empty queue yields (nil, nil).
func (m *Manager) GetMessage(ctx context.Context, queue string, wait time.Duration) (*manager.MessageEnvelope, error) {
	if m.qmgr == nil {
		return nil, manager.NotConnected(kind, "get_message")
	}

	start := time.Now()

	qObj, err := m.openQueue(queue, ibmmq.MQOO_INPUT_AS_Q_DEF)
	if err != nil {
		m.log.Error("error opening queue %s for get: %v", queue, err)
		return nil, manager.NewResourceError(kind, "get_message", err)
	}
	defer qObj.Close(0)

	gmo := ibmmq.NewMQGMO()
	gmo.Options = ibmmq.MQGMO_NO_SYNCPOINT | ibmmq.MQGMO_FAIL_IF_QUIESCING
	if wait > 0 {
		gmo.Options |= ibmmq.MQGMO_WAIT
		gmo.WaitInterval = int32(wait / time.Millisecond)
	}

	md, data, err := m.getWithResize(&qObj, gmo)
	if err != nil {
		if isNoMessage(err) {
			return nil, nil
		}
		m.log.Error("error getting message from queue %s: %v", queue, err)
		return nil, manager.NewResourceError(kind, "get_message", err)
	}

	env := manager.NewMessageEnvelope(data, propertiesFromMD(md))
	m.log.LogMessagingOperation("GET", queue, env.Properties.MessageID, len(data), time.Since(start))
	return env, nil
}

// getWithResize retrieves one message, doubling the buffer (bounded by the
// reported data length) when the queue manager reports truncation.
func (m *Manager) getWithResize(qObj *ibmmq.MQObject, gmo *ibmmq.MQGMO) (*ibmmq.MQMD, []byte, error) {
	buffer := make([]byte, initialBufferSize)
	for {
		md := ibmmq.NewMQMD()
		datalen, err := qObj.Get(md, gmo, buffer)
		if err == nil {
			return md, append([]byte(nil), buffer[:datalen]...), nil
		}
		mqret, ok := err.(*ibmmq.MQReturn)
		if ok && mqret.MQRC == ibmmq.MQRC_TRUNCATED_MSG_FAILED && datalen > len(buffer) {
			buffer = make([]byte, datalen)
			continue
		}
		return nil, nil, err
	}
}

// BrowseMessage inspects a message without removing it. With a messageID it
// matches that message's ID; otherwise it browses the first message on the
// queue. No match or an empty queue yields (nil, nil).
func (m *Manager) BrowseMessage(ctx context.Context, queue, messageID string) (*manager.MessageEnvelope, error) {
	if m.qmgr == nil {
		return nil, manager.NotConnected(kind, "browse_message")
	}

	start := time.Now()

	qObj, err := m.openQueue(queue, ibmmq.MQOO_BROWSE)
	if err != nil {
		m.log.Error("error opening queue %s for browse: %v", queue, err)
		return nil, manager.NewResourceError(kind, "browse_message", err)
	}
	defer qObj.Close(0)

	gmo := ibmmq.NewMQGMO()
	gmo.Options = ibmmq.MQGMO_NO_SYNCPOINT | ibmmq.MQGMO_BROWSE_FIRST | ibmmq.MQGMO_FAIL_IF_QUIESCING

	if messageID != "" {
		msgID, err := hex.DecodeString(messageID)
		if err != nil {
			return nil, manager.NewResourceError(kind, "browse_message",
				fmt.Errorf("message ID %q is not valid hex: %w", messageID, err))
		}
		gmo.MatchOptions = ibmmq.MQMO_MATCH_MSG_ID
		md, data, err := m.browseWith(&qObj, gmo, msgID)
		if err != nil {
			if isNoMessage(err) {
				return nil, nil
			}
			m.log.Error("error browsing message from queue %s: %v", queue, err)
			return nil, manager.NewResourceError(kind, "browse_message", err)
		}
		env := manager.NewMessageEnvelope(data, propertiesFromMD(md))
		m.log.LogMessagingOperation("BROWSE", queue, env.Properties.MessageID, len(data), time.Since(start))
		return env, nil
	}

	md, data, err := m.getWithResize(&qObj, gmo)
	if err != nil {
		if isNoMessage(err) {
			return nil, nil
		}
		m.log.Error("error browsing message from queue %s: %v", queue, err)
		return nil, manager.NewResourceError(kind, "browse_message", err)
	}

	env := manager.NewMessageEnvelope(data, propertiesFromMD(md))
	m.log.LogMessagingOperation("BROWSE", queue, env.Properties.MessageID, len(data), time.Since(start))
	return env, nil
}

func (m *Manager) browseWith(qObj *ibmmq.MQObject, gmo *ibmmq.MQGMO, msgID []byte) (*ibmmq.MQMD, []byte, error) {
	buffer := make([]byte, initialBufferSize)
	for {
		md := ibmmq.NewMQMD()
		copy(md.MsgId, msgID)
		datalen, err := qObj.Get(md, gmo, buffer)
		if err == nil {
			return md, append([]byte(nil), buffer[:datalen]...), nil
		}
		mqret, ok := err.(*ibmmq.MQReturn)
		if ok && mqret.MQRC == ibmmq.MQRC_TRUNCATED_MSG_FAILED && datalen > len(buffer) {
			buffer = make([]byte, datalen)
			continue
		}
		return nil, nil, err
	}
}

// GetQueueDepth reports the queue's current depth via an inquiry. Never
// returns an error; any failure yields -1.
func (m *Manager) GetQueueDepth(ctx context.Context, queue string) int {
	if m.qmgr == nil {
		m.log.Error("queue depth requested without a connection")
		return -1
	}

	qObj, err := m.openQueue(queue, ibmmq.MQOO_INQUIRE)
	if err != nil {
		m.log.Error("error getting queue depth for %s: %v", queue, err)
		return -1
	}
	defer qObj.Close(0)

	values, err := qObj.Inq([]int32{ibmmq.MQIA_CURRENT_Q_DEPTH})
	if err != nil {
		m.log.Error("error getting queue depth for %s: %v", queue, err)
		return -1
	}
	if depth, ok := values[ibmmq.MQIA_CURRENT_Q_DEPTH].(int32); ok {
		return int(depth)
	}
	return 0
}

// PurgeQueue drains the queue with destructive no-wait gets and reports how
// many messages were removed.
func (m *Manager) PurgeQueue(ctx context.Context, queue string) (int, error) {
	if m.qmgr == nil {
		return 0, manager.NotConnected(kind, "purge_queue")
	}

	start := time.Now()

	qObj, err := m.openQueue(queue, ibmmq.MQOO_INPUT_AS_Q_DEF)
	if err != nil {
		m.log.Error("error opening queue %s for purge: %v", queue, err)
		return 0, manager.NewResourceError(kind, "purge_queue", err)
	}
	defer qObj.Close(0)

	purged := 0
	buffer := make([]byte, initialBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return purged, manager.WrapError(kind, "purge_queue", err)
		}

		md := ibmmq.NewMQMD()
		gmo := ibmmq.NewMQGMO()
		gmo.Options = ibmmq.MQGMO_NO_SYNCPOINT | ibmmq.MQGMO_FAIL_IF_QUIESCING | ibmmq.MQGMO_ACCEPT_TRUNCATED_MSG
		if _, err := qObj.Get(md, gmo, buffer); err != nil {
			if isNoMessage(err) {
				break
			}
			m.log.Error("error purging queue %s: %v", queue, err)
			return purged, manager.NewResourceError(kind, "purge_queue", err)
		}
		purged++
	}

	m.log.LogMessagingOperation("PURGE", queue, "", 0, time.Since(start))
	return purged, nil
}

// TestConnection probes the held connection with a queue manager inquiry.
// Never returns an error.
func (m *Manager) TestConnection(ctx context.Context) bool {
	if m.qmgr == nil {
		return false
	}
	od := ibmmq.NewMQOD()
	od.ObjectType = ibmmq.MQOT_Q_MGR
	qObj, err := m.qmgr.Open(od, ibmmq.MQOO_INQUIRE|ibmmq.MQOO_FAIL_IF_QUIESCING)
	if err != nil {
		m.log.Error("queue manager connection test failed: %v", err)
		return false
	}
	qObj.Close(0)
	return true
}

func isNoMessage(err error) bool {
	mqret, ok := err.(*ibmmq.MQReturn)
	return ok && mqret.MQRC == ibmmq.MQRC_NO_MSG_AVAILABLE
}

// applyProperties copies the settable fields of props onto the descriptor.
func applyProperties(md *ibmmq.MQMD, props *manager.MessageProperties) {
	if props == nil {
		return
	}
	if props.Format != "" {
		md.Format = props.Format
	}
	if props.CorrelationID != "" {
		if correlID, err := hex.DecodeString(props.CorrelationID); err == nil {
			copy(md.CorrelId, correlID)
		}
	}
	if props.ReplyToQueue != "" {
		md.ReplyToQ = props.ReplyToQueue
	}
	if props.ReplyToQueueManager != "" {
		md.ReplyToQMgr = props.ReplyToQueueManager
	}
	if props.MessageType != 0 {
		md.MsgType = props.MessageType
	}
	if props.Priority != 0 {
		md.Priority = props.Priority
	}
	if props.Persistence != 0 {
		md.Persistence = props.Persistence
	}
	if props.Expiry != 0 {
		md.Expiry = props.Expiry
	}
}

// propertiesFromMD lifts the received descriptor into transport-neutral
// properties. Binary IDs are hex-encoded.
func propertiesFromMD(md *ibmmq.MQMD) manager.MessageProperties {
	return manager.MessageProperties{
		MessageID:           hex.EncodeToString(md.MsgId),
		CorrelationID:       hex.EncodeToString(md.CorrelId),
		ReplyToQueue:        strings.TrimSpace(md.ReplyToQ),
		ReplyToQueueManager: strings.TrimSpace(md.ReplyToQMgr),
		Format:              strings.TrimSpace(md.Format),
		MessageType:         md.MsgType,
		Priority:            md.Priority,
		Persistence:         md.Persistence,
		Expiry:              md.Expiry,
		PutDate:             strings.TrimSpace(md.PutDate),
		PutTime:             strings.TrimSpace(md.PutTime),
	}
}
