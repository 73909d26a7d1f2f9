package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	MessageTypePrediction   MessageType = "prediction"
	MessageTypeMDRAlert     MessageType = "mdr_alert"
	MessageTypeFailure      MessageType = "prediction_failed"
	MessageTypeModel        MessageType = "model"
	MessageTypeSubscription MessageType = "subscription_update"
)

type OutgoingMessage struct {
	Type      MessageType `json:"type"`
	Pathogen  string      `json:"pathogen,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Severity  string      `json:"severity,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func NewMessage(msgType MessageType, pathogen string, data interface{}) *OutgoingMessage {
	return &OutgoingMessage{
		Type:      msgType,
		Pathogen:  pathogen,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func (m *OutgoingMessage) JSON() []byte {
	data, _ := json.Marshal(m)
	return data
}
