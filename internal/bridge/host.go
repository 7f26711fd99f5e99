package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/GriffinCanCode/TabSuspender/internal/domain/suspension"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
)

var (
	_ suspension.TabHost          = (*Hub)(nil)
	_ suspension.ContentMessenger = (*Hub)(nil)
)

// ListTabs asks the extension for every open tab
func (h *Hub) ListTabs(ctx context.Context) ([]types.Tab, error) {
	reply, err := h.call(ctx, Command{Type: CmdListTabs})
	if err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}
	if err := replyError(reply); err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}

	var tabs []types.Tab
	if err := decodeData(reply, &tabs); err != nil {
		return nil, err
	}
	return tabs, nil
}

// Navigate points tab id at url
func (h *Hub) Navigate(ctx context.Context, tabID types.TabID, url string) error {
	reply, err := h.call(ctx, Command{Type: CmdNavigate, TabID: tabID, URL: url})
	if err != nil {
		return fmt.Errorf("navigate tab %d: %w", tabID, err)
	}
	if reply.Missing {
		return fmt.Errorf("navigate tab %d: %w", tabID, suspension.ErrTabNotFound)
	}
	if err := replyError(reply); err != nil {
		return fmt.Errorf("navigate tab %d: %w", tabID, err)
	}
	return nil
}

// CheckSafety asks the tab's content script whether it holds transient state
func (h *Hub) CheckSafety(ctx context.Context, tabID types.TabID) (types.SafetyReport, error) {
	var report types.SafetyReport
	err := h.content(ctx, Command{Type: CmdContent, TabID: tabID, Action: ActionCheckSafety}, &report)
	return report, err
}

// ScrollPosition reads the tab's scroll offset
func (h *Hub) ScrollPosition(ctx context.Context, tabID types.TabID) (types.ScrollOffset, error) {
	var offset types.ScrollOffset
	err := h.content(ctx, Command{Type: CmdContent, TabID: tabID, Action: ActionScrollPos}, &offset)
	return offset, err
}

// RestoreScroll asks the tab's content script to scroll to offset
func (h *Hub) RestoreScroll(ctx context.Context, tabID types.TabID, offset types.ScrollOffset) error {
	return h.content(ctx, Command{Type: CmdContent, TabID: tabID, Action: ActionRestoreScroll, Scroll: &offset}, nil)
}

// content runs a content-script round trip. Every failure other than the
// caller's own deadline is reported as unreachable.
func (h *Hub) content(ctx context.Context, cmd Command, out any) error {
	reply, err := h.call(ctx, cmd)
	switch {
	case errors.Is(err, ErrDisconnected):
		return fmt.Errorf("%w: %w", types.ErrUnreachable, err)
	case err != nil:
		return err
	case reply.Unreachable || reply.Missing:
		return fmt.Errorf("%w: tab %d %s", types.ErrUnreachable, cmd.TabID, cmd.Action)
	}
	if err := replyError(reply); err != nil {
		return fmt.Errorf("%w: %v", types.ErrUnreachable, err)
	}
	if out == nil {
		return nil
	}
	if err := decodeData(reply, out); err != nil {
		return fmt.Errorf("%w: %v", types.ErrUnreachable, err)
	}
	return nil
}

func replyError(reply Message) error {
	if reply.OK {
		return nil
	}
	if reply.Error != "" {
		return errors.New(reply.Error)
	}
	return errors.New("extension refused the command")
}
