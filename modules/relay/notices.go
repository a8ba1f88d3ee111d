package relay

import (
	"fmt"
	"time"

	"github.com/jaevor/go-nanoid"

	"github.com/poornimasewak/nook/domain/message"
	"github.com/poornimasewak/nook/domain/user"
)

// noticeID generates short collision-resistant ids for system notices.
// Notices are broadcast-only so these ids never hit the database.
var noticeID = mustNanoID(12)

func mustNanoID(length int) func() string {
	gen, err := nanoid.Standard(length)
	if err != nil {
		panic(fmt.Sprintf("nanoid generator: %v", err))
	}
	return gen
}

// systemNotice builds a transient system message for a room. It carries the
// synthetic system sender and is never persisted.
func systemNotice(nookID, text string) message.Message {
	return message.Message{
		ID:          "system-" + noticeID(),
		NookID:      nookID,
		SenderID:    message.SystemSenderID,
		Content:     text,
		MessageType: message.TypeSystem,
		Timestamp:   time.Now().UTC(),
		Sender: user.Profile{
			ID:   message.SystemSenderID,
			Name: "System",
		},
	}
}

func joinedNotice(nookID, name string) message.Message {
	return systemNotice(nookID, fmt.Sprintf("%s joined the chat", name))
}

func leftNotice(nookID, name string) message.Message {
	return systemNotice(nookID, fmt.Sprintf("%s left the chat", name))
}

func offlineNotice(nookID, name string) message.Message {
	return systemNotice(nookID, fmt.Sprintf("%s went offline", name))
}

func addedNotice(nookID, name string) message.Message {
	return systemNotice(nookID, fmt.Sprintf("%s was added to the chat", name))
}
