// -----------------------------------------------------------------------
// Push channel messages - tagged union over the five message kinds
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType discriminates push-channel messages.
type MessageType string

const (
	MessageRunStatus    MessageType = "run_status"
	MessageRunProgress  MessageType = "run_progress"
	MessageQueueStats   MessageType = "queue_stats"
	MessageInitialState MessageType = "initial_state"
	MessagePong         MessageType = "pong"
)

// PushMessage is the wire envelope for push-channel messages.
type PushMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Message is the decoded form of a push-channel message. Exactly one concrete
// type exists per MessageType; new kinds are added by extending this union.
type Message interface {
	MessageType() MessageType
}

// RunStatusMessage carries one run's full status.
type RunStatusMessage struct {
	RunID          string          `json:"run_id"`
	RunType        string          `json:"run_type"`
	DisplayName    string          `json:"display_name,omitempty"`
	ResourceType   string          `json:"resource_type,omitempty"`
	ResourceID     string          `json:"resource_id,omitempty"`
	GroupID        string          `json:"group_id,omitempty"`
	Status         JobStatus       `json:"status"`
	Progress       *JobProgress    `json:"progress,omitempty"`
	ResultsSummary json.RawMessage `json:"results_summary,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	ConfigID       string          `json:"config_id,omitempty"`
	ConfigType     string          `json:"config_type,omitempty"`
	CreatedAt      *time.Time      `json:"created_at,omitempty"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

func (m *RunStatusMessage) MessageType() MessageType { return MessageRunStatus }

// RunProgressMessage is a partial update carrying only progress fields for a
// known run.
type RunProgressMessage struct {
	RunID    string       `json:"run_id"`
	Progress *JobProgress `json:"progress"`
}

func (m *RunProgressMessage) MessageType() MessageType { return MessageRunProgress }

// QueueStatsMessage carries a full queue statistics snapshot.
type QueueStatsMessage struct {
	Stats QueueStats `json:"stats"`
}

func (m *QueueStatsMessage) MessageType() MessageType { return MessageQueueStats }

// InitialStateMessage is sent once per successful (re)connection and is the
// reconciliation anchor: the complete server-side list of currently-active
// runs plus a stats snapshot.
type InitialStateMessage struct {
	ServerInstanceID string             `json:"server_instance_id,omitempty"`
	ActiveRuns       []RunStatusMessage `json:"active_runs"`
	Stats            *QueueStats        `json:"stats,omitempty"`
}

func (m *InitialStateMessage) MessageType() MessageType { return MessageInitialState }

// PongMessage is a heartbeat ack. It is consumed by the transport and never
// reaches the reconciliation engine.
type PongMessage struct {
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func (m *PongMessage) MessageType() MessageType { return MessagePong }

// ParseMessage decodes a raw push-channel frame into its concrete message type.
func ParseMessage(data []byte) (Message, error) {
	var envelope PushMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push message envelope: %w", err)
	}

	switch envelope.Type {
	case MessageRunStatus:
		var msg RunStatusMessage
		if err := json.Unmarshal(envelope.Payload, &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run_status payload: %w", err)
		}
		return &msg, nil
	case MessageRunProgress:
		var msg RunProgressMessage
		if err := json.Unmarshal(envelope.Payload, &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run_progress payload: %w", err)
		}
		return &msg, nil
	case MessageQueueStats:
		var msg QueueStatsMessage
		if err := json.Unmarshal(envelope.Payload, &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal queue_stats payload: %w", err)
		}
		return &msg, nil
	case MessageInitialState:
		var msg InitialStateMessage
		if err := json.Unmarshal(envelope.Payload, &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal initial_state payload: %w", err)
		}
		return &msg, nil
	case MessagePong:
		var msg PongMessage
		if len(envelope.Payload) > 0 {
			if err := json.Unmarshal(envelope.Payload, &msg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal pong payload: %w", err)
			}
		}
		return &msg, nil
	default:
		return nil, fmt.Errorf("unknown push message type: %q", envelope.Type)
	}
}

// ToTrackedJob converts a server-reported run into a tracked job. StartedAt
// falls back to the server's created_at when started_at is absent.
func (m *RunStatusMessage) ToTrackedJob() *TrackedJob {
	job := &TrackedJob{
		RunID:        m.RunID,
		JobType:      m.RunType,
		DisplayName:  m.DisplayName,
		ResourceType: m.ResourceType,
		ResourceID:   m.ResourceID,
		GroupID:      m.GroupID,
		Status:       m.Status,
		ErrorMessage: m.ErrorMessage,
		ConfigID:     m.ConfigID,
		ConfigType:   m.ConfigType,
	}
	if m.DisplayName == "" {
		job.DisplayName = m.RunType
	}
	if m.StartedAt != nil {
		job.StartedAt = *m.StartedAt
	} else if m.CreatedAt != nil {
		job.StartedAt = *m.CreatedAt
	}
	if m.Progress != nil {
		progress := *m.Progress
		job.Progress = &progress
	}
	return job
}
