package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/GriffinCanCode/TabSuspender/internal/domain/command"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"github.com/bytedance/sonic"
)

// Command types sent to the extension
const (
	CmdListTabs = "list_tabs"
	CmdNavigate = "navigate"
	CmdContent  = "content"
)

// Content actions carried by a CmdContent command
const (
	ActionCheckSafety   = "check_safety"
	ActionScrollPos     = "get_scroll_position"
	ActionRestoreScroll = "restore_scroll"
)

// Event names pushed by the extension
const (
	EventTabActivated = "tab_activated"
	EventTabCreated   = "tab_created"
	EventTabUpdated   = "tab_updated"
	EventTabRemoved   = "tab_removed"
	EventUserActive   = "user_active"
	EventActivity     = "activity"
	EventRestore      = "restore"

	EventGetMemoryStats  = "get_memory_stats"
	EventResetStats      = "reset_stats"
	EventGetExemptions   = "get_exemptions"
	EventAddExemption    = "add_exemption"
	EventRemoveExemption = "remove_exemption"
	EventResetExemptions = "reset_exemptions"
	EventGetSettings     = "get_settings"
	EventUpdateSettings  = "update_settings"
	EventRecommend       = "recommend"
	EventScan            = "scan"
)

// Command is a daemon-to-extension call. The extension answers with a
// Message carrying the same ID.
type Command struct {
	ID     string              `json:"id"`
	Type   string              `json:"type"`
	TabID  types.TabID         `json:"tabId,omitempty"`
	URL    string              `json:"url,omitempty"`
	Action string              `json:"action,omitempty"`
	Scroll *types.ScrollOffset `json:"scroll,omitempty"`
}

// Message is anything the extension sends: a reply when Event is empty,
// otherwise an event. An event with an ID expects a Reply.
type Message struct {
	ID string `json:"id,omitempty"`

	// reply fields
	OK          bool            `json:"ok"`
	Unreachable bool            `json:"unreachable,omitempty"`
	Missing     bool            `json:"missing,omitempty"`
	Error       string          `json:"error,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`

	// event fields
	Event    string              `json:"event,omitempty"`
	TabID    types.TabID         `json:"tabId,omitempty"`
	URL      string              `json:"url,omitempty"`
	Status   string              `json:"status,omitempty"`
	Domain   string              `json:"domain,omitempty"`
	Settings *types.SettingsBody `json:"settings,omitempty"`
}

// IsEvent reports whether m was pushed by the extension rather than
// answering a command
func (m Message) IsEvent() bool {
	return m.Event != ""
}

// Reply answers an event that carried an ID
type Reply struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// DecodeEvent maps an event onto a command request. Events that need no
// handling yield a nil request and no error.
func DecodeEvent(m Message) (command.Request, error) {
	switch m.Event {
	case EventTabActivated, EventTabCreated, EventUserActive, EventActivity:
		return command.ActivityRequest{TabID: m.TabID}, nil
	case EventTabUpdated:
		// only a finished load counts as activity
		if m.Status != "complete" {
			return nil, nil
		}
		return command.ActivityRequest{TabID: m.TabID}, nil
	case EventTabRemoved:
		return command.TabClosedRequest{TabID: m.TabID}, nil
	case EventRestore:
		return command.RestoreRequest{TabID: m.TabID, URL: m.URL}, nil
	case EventRecommend:
		return command.RecommendRequest{TabID: m.TabID}, nil
	case EventScan:
		return command.ScanRequest{}, nil
	case EventGetMemoryStats:
		return command.MemoryStatsRequest{}, nil
	case EventResetStats:
		return command.ResetStatsRequest{}, nil
	case EventGetExemptions:
		return command.ListExemptionsRequest{}, nil
	case EventAddExemption:
		return command.AddExemptionRequest{Domain: m.Domain}, nil
	case EventRemoveExemption:
		return command.RemoveExemptionRequest{Domain: m.Domain}, nil
	case EventResetExemptions:
		return command.ResetExemptionsRequest{}, nil
	case EventGetSettings:
		return command.GetSettingsRequest{}, nil
	case EventUpdateSettings:
		if m.Settings == nil {
			return nil, fmt.Errorf("%w: %s without settings", command.ErrUnknownRequest, m.Event)
		}
		return command.UpdateSettingsRequest{Body: *m.Settings}, nil
	default:
		return nil, fmt.Errorf("%w: event %q", command.ErrUnknownRequest, m.Event)
	}
}

// decodeData unmarshals a reply payload
func decodeData(m Message, out any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("reply %s carries no data", m.ID)
	}
	if err := sonic.Unmarshal(m.Data, out); err != nil {
		return fmt.Errorf("decode reply %s: %w", m.ID, err)
	}
	return nil
}
