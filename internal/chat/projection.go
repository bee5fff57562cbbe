package chat

import "sort"

// Entry is one row of the rendered message view. Failed entries carry a
// retry affordance in the UI.
type Entry struct {
	Message
	Failed bool
}

// Project merges a conversation's confirmed and optimistic messages with
// its failed messages into one sequence ordered by send date ascending. A
// retried message therefore keeps its original chronological position even
// though the retry happens later in wall-clock time.
//
// At most one entry exists per nonce: should a failed entry share a nonce
// with a store entry, the store entry wins.
func Project(conv *Conversation, failed []Message) []Entry {
	if conv == nil {
		return nil
	}

	entries := make([]Entry, 0, len(conv.Messages)+len(failed))
	seen := make(map[int32]bool, len(conv.Messages))
	for _, m := range conv.Messages {
		entries = append(entries, Entry{Message: m})
		if m.Nonce != 0 {
			seen[m.Nonce] = true
		}
	}
	for _, m := range failed {
		if m.ConversationID != conv.ID || seen[m.Nonce] {
			continue
		}
		entries = append(entries, Entry{Message: m, Failed: true})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SendDate.Before(entries[j].SendDate)
	})
	return entries
}
