package models

import (
	"encoding/json"
	"strings"
)

// Evolution API event names, in both the dotted and the enum spelling.
const (
	EventMessagesUpsert   = "messages.upsert"
	EventConnectionUpdate = "connection.update"
)

// WebhookEvent is the subset of an Evolution API push notification the
// service reads. Data is kept raw since its shape differs per event.
type WebhookEvent struct {
	Event        string          `json:"event"`
	Type         string          `json:"type,omitempty"`
	Instance     string          `json:"instance"`
	InstanceName string          `json:"instanceName,omitempty"`
	Data         json.RawMessage `json:"data"`

	// Some gateway versions push connection.update without a data object.
	State      string `json:"state,omitempty"`
	Connection string `json:"connection,omitempty"`
}

// Kind normalizes the event name ("MESSAGES_UPSERT" -> "messages.upsert").
func (e *WebhookEvent) Kind() string {
	name := e.Event
	if name == "" {
		name = e.Type
	}
	return strings.ToLower(strings.ReplaceAll(name, "_", "."))
}

func (e *WebhookEvent) InstanceKey() string {
	if e.Instance != "" {
		return e.Instance
	}
	return e.InstanceName
}

type WebhookMessageKey struct {
	FromMe    bool   `json:"fromMe"`
	RemoteJID string `json:"remoteJid"`
}

type WebhookMessageData struct {
	Key       *WebhookMessageKey `json:"key,omitempty"`
	FromMe    bool               `json:"fromMe,omitempty"`
	RemoteJID string             `json:"remoteJid,omitempty"`
}

func (d *WebhookMessageData) IsFromMe() bool {
	if d.Key != nil && d.Key.FromMe {
		return true
	}
	return d.FromMe
}

// SenderNumber strips the WhatsApp JID suffix from the remote party.
func (d *WebhookMessageData) SenderNumber() string {
	jid := d.RemoteJID
	if d.Key != nil && d.Key.RemoteJID != "" {
		jid = d.Key.RemoteJID
	}
	jid = strings.TrimSuffix(jid, "@s.whatsapp.net")
	return strings.TrimSuffix(jid, "@g.us")
}

// ConnectionData returns the connection payload, falling back to the
// top-level fields when data carries no state.
func (e *WebhookEvent) ConnectionData() (WebhookConnectionData, error) {
	var data WebhookConnectionData
	if len(e.Data) > 0 {
		if err := json.Unmarshal(e.Data, &data); err != nil {
			return data, err
		}
	}
	if data.State == "" && data.Connection == "" {
		data.State = e.State
		data.Connection = e.Connection
	}
	return data, nil
}

type WebhookConnectionData struct {
	State      string `json:"state"`
	Connection string `json:"connection"`
}

// MappedStatus maps a pushed connection state onto InstanceStatus.
func (d *WebhookConnectionData) MappedStatus() (InstanceStatus, string) {
	state := d.State
	if state == "" {
		state = d.Connection
	}
	if state == "" {
		state = "unknown"
	}
	if state == "open" || state == "connected" {
		return InstanceConnected, state
	}
	return InstanceDisconnected, state
}

type WebhookAck struct {
	Received  bool   `json:"received"`
	Processed bool   `json:"processed"`
	Queued    bool   `json:"queued,omitempty"`
	Error     string `json:"error,omitempty"`
}
