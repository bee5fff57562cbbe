package store

import (
	"time"

	"github.com/tgrandin/locachat/internal/chat"
)

// SaveFailed mirrors a failed message to disk. Writing the same nonce twice
// is a no-op, matching the queue's idempotent insertion.
func (db *DB) SaveFailed(msg chat.Message) error {
	_, err := db.Exec(`
		INSERT INTO failed_messages (nonce, conversation_id, sender_id, content, send_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(nonce) DO NOTHING`,
		msg.Nonce, msg.ConversationID, msg.SenderID, msg.Content,
		msg.SendDate.UTC().Format(time.RFC3339Nano), time.Now().UnixMilli())
	return err
}

// DeleteFailed removes the persisted row for a nonce, called once the
// message is confirmed by a successful retry.
func (db *DB) DeleteFailed(nonce int32) error {
	_, err := db.Exec(`DELETE FROM failed_messages WHERE nonce = ?`, nonce)
	return err
}

// ListFailed returns all persisted failed messages, oldest first.
func (db *DB) ListFailed() ([]chat.Message, error) {
	rows, err := db.Query(`
		SELECT nonce, conversation_id, sender_id, content, send_date
		FROM failed_messages ORDER BY send_date ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []chat.Message
	for rows.Next() {
		var m chat.Message
		var sendDate string
		if err := rows.Scan(&m.Nonce, &m.ConversationID, &m.SenderID, &m.Content, &sendDate); err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339Nano, sendDate)
		if err != nil {
			return nil, err
		}
		m.SendDate = ts
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
