package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/tgrandin/locachat/internal/chat"
)

// Thread displays the messages of the active conversation as a selectable
// table. Failed messages render with a marker and can be retried by
// selecting their row.
type Thread struct {
	*tview.Table
	entries    []chat.Entry
	selfID     string
	selectedFn func() (int, int)
}

// NewThread creates a new message thread view.
func NewThread(selfID string) *Thread {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true).SetTitle(" Messages ")

	t := &Thread{Table: table, selfID: selfID}
	t.selectedFn = table.GetSelection
	return t
}

// SetConversationTitle updates the view title.
func (t *Thread) SetConversationTitle(title string) {
	if title == "" {
		title = "Messages"
	}
	t.SetTitle(fmt.Sprintf(" %s ", tview.Escape(sanitizeForTerminal(title))))
}

// Update refreshes the thread with new entries. Entries arrive oldest first.
func (t *Thread) Update(entries []chat.Entry) {
	t.entries = entries
	t.Clear()

	for i, e := range entries {
		sender := e.SenderID
		if sender == t.selfID {
			sender = "You"
		}
		marker := ""
		if e.Failed {
			marker = "[red]! failed (r to retry)[-] "
		}
		t.SetCell(i, 0, tview.NewTableCell(" "+e.SendDate.Local().Format("15:04")).SetMaxWidth(7))
		t.SetCell(i, 1, tview.NewTableCell(" [::b]"+tview.Escape(sanitizeForTerminal(sender))+"[-:-:-]").SetMaxWidth(20))
		t.SetCell(i, 2, tview.NewTableCell(" "+marker+tview.Escape(sanitizeForTerminal(e.Content))).SetExpansion(1))
	}

	if len(entries) > 0 {
		t.Select(len(entries)-1, 0)
		t.ScrollToEnd()
	}
}

// SelectedEntry returns the currently selected entry, if any.
func (t *Thread) SelectedEntry() (chat.Entry, bool) {
	row, _ := t.selectedFn()
	if row >= 0 && row < len(t.entries) {
		return t.entries[row], true
	}
	return chat.Entry{}, false
}
