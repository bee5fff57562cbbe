package views

import (
	"time"

	"github.com/rivo/tview"

	"github.com/tgrandin/locachat/internal/chat"
)

// ConversationList is the main conversation table.
type ConversationList struct {
	*tview.Table
	conversations []chat.Conversation
	onSelect      func(id string)
	selectedFn    func() (int, int)
}

// NewConversationList creates a new conversation list table.
func NewConversationList() *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true).SetTitle(" Conversations ")

	cl := &ConversationList{Table: table}
	cl.selectedFn = table.GetSelection

	table.SetSelectedFunc(func(row, col int) {
		if cl.onSelect == nil {
			return
		}
		if id := cl.SelectedConversation(); id != "" {
			cl.onSelect(id)
		}
	})
	return cl
}

// SetOnSelect sets the callback when a conversation is opened.
func (cl *ConversationList) SetOnSelect(fn func(id string)) {
	cl.onSelect = fn
}

// Update refreshes the table with new data.
func (cl *ConversationList) Update(conversations []chat.Conversation, activeID string) {
	cl.conversations = conversations
	cl.Clear()

	cl.SetCell(0, 0, tview.NewTableCell(" Title").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	cl.SetCell(0, 1, tview.NewTableCell(" Type").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	cl.SetCell(0, 2, tview.NewTableCell(" Updated").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))

	for i, conv := range conversations {
		row := i + 1
		title := conv.Title
		if title == "" {
			title = conv.ID
		}
		if conv.ID == activeID {
			title = "* " + title
		}
		cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(title))).SetMaxWidth(40).SetExpansion(2))
		cl.SetCell(row, 1, tview.NewTableCell(" "+string(conv.Type)).SetMaxWidth(10))
		cl.SetCell(row, 2, tview.NewTableCell(" "+formatTime(conv.UpdatedAt)).SetMaxWidth(12))
	}
}

// SelectedConversation returns the id of the currently selected conversation.
func (cl *ConversationList) SelectedConversation() string {
	row, _ := cl.selectedFn()
	idx := row - 1 // account for header
	if idx >= 0 && idx < len(cl.conversations) {
		return cl.conversations[idx].ID
	}
	return ""
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
