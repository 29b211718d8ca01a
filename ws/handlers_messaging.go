package ws

import (
	"encoding/json"
	"time"

	"ppchat/module/account"
)

// handleLookupFriend is grounded on server_manager.cpp's lookup_friend:
// allocate a chatID, push a Contact entry into both accounts, insert a
// chats document seeded with a server-authored first message (whose
// "sender" field is the chatID itself, a detail preserved verbatim from the
// original rather than smoothed away), then notify the target if online and
// reply to the caller.
func handleLookupFriend(ctx *HandlerContext, raw []byte) {
	var p lookupFriendPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}

	c, cancel := withTimeout()
	defer cancel()

	target, err := ctx.Server.Store.FindAccount(c, p.PhoneNumber)
	if err != nil {
		_ = ctx.Session.Send(map[string]interface{}{
			"type":    TypeLookupFriend,
			"status":  "failed",
			"message": "User not found",
		})
		return
	}

	chatID, err := ctx.Server.Store.NewChat(c, account.Message{
		Message: "Server: New Conversation",
		Time:    time.Now().Format("15:04"),
	})
	if err != nil {
		_ = ctx.Session.Send(map[string]interface{}{
			"type":    TypeLookupFriend,
			"status":  "failed",
			"message": "Could not start conversation",
		})
		return
	}

	_ = ctx.Server.Store.PushContact(c, ctx.Phone, account.Contact{ContactID: p.PhoneNumber, ChatID: chatID})
	_ = ctx.Server.Store.PushContact(c, p.PhoneNumber, account.Contact{ContactID: ctx.Phone, ChatID: chatID})

	caller, err := ctx.Server.Store.FindAccount(c, ctx.Phone)
	callerInfo := account.ContactInfo{ID: ctx.Phone}
	if err == nil {
		callerInfo = account.ContactInfo{
			ID:        caller.ID,
			FirstName: caller.FirstName,
			LastName:  caller.LastName,
			Status:    caller.Status,
			ImageURL:  caller.ImageURL,
		}
	}
	targetInfo := account.ContactInfo{
		ID:        target.ID,
		FirstName: target.FirstName,
		LastName:  target.LastName,
		Status:    target.Status,
		ImageURL:  target.ImageURL,
	}

	ctx.Server.Registry.SendIfOnline(p.PhoneNumber, map[string]interface{}{
		"type": TypeAddedYou,
		"json_array": []map[string]interface{}{
			{"contactInfo": callerInfo, "chatID": chatID},
		},
	})

	_ = ctx.Session.Send(map[string]interface{}{
		"type":   TypeLookupFriend,
		"status": "succeeded",
		"json_array": []map[string]interface{}{
			{"contactInfo": targetInfo, "chatID": chatID},
		},
	})
}

// handleText delivers a 1:1 text message: echoed back to the sender, relayed
// live to the receiver if online, and always persisted onto the shared chat
// document (server_manager.cpp's text_received, extended with the sender
// echo spec §4.7 requires and scenario S4 asserts).
func handleText(ctx *HandlerContext, raw []byte) {
	var p textPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}

	frame := map[string]interface{}{
		"type":    TypeText,
		"message": p.Message,
		"chatID":  p.ChatID,
		"time":    p.Time,
	}
	_ = ctx.Session.Send(frame)
	ctx.Server.Registry.SendIfOnline(p.Receiver, frame)

	c, cancel := withTimeout()
	defer cancel()
	_ = ctx.Server.Store.AppendChatMessage(c, p.ChatID, account.Message{
		Sender:  ctx.Phone,
		Time:    p.Time,
		Message: p.Message,
	})
	_ = ctx.Server.Store.IncContactUnread(c, p.Receiver, p.ChatID, 1)
}

// handleFile stores an uploaded file through the BlobStore and relays its
// fetch URL exactly like handleText relays message text.
func handleFile(ctx *HandlerContext, raw []byte) {
	var p fileOrAudioPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	deliverBlobMessage(ctx, p.Receiver, p.ChatID, p.Time, p.FileName, p.FileData, TypeFile, "file_name", "file_url", true)
}

// handleAudio is handleFile's counterpart for voice notes.
func handleAudio(ctx *HandlerContext, raw []byte) {
	var p fileOrAudioPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	deliverBlobMessage(ctx, p.Receiver, p.ChatID, p.Time, p.AudioName, p.AudioData, TypeAudio, "audio_name", "audio_url", false)
}

func deliverBlobMessage(ctx *HandlerContext, receiver int64, chatID int32, t, name, b64Data, wireType, nameField, urlField string, isFile bool) {
	data, err := decodeBase64(b64Data)
	if err != nil {
		return
	}

	c, cancel := withTimeout()
	defer cancel()
	url, err := ctx.Server.Blobs.Put(c, name, data)
	if err != nil {
		return
	}

	frame := map[string]interface{}{
		"type":    wireType,
		"chatID":  chatID,
		"time":    t,
		nameField: name,
		urlField:  url,
	}
	_ = ctx.Session.Send(frame)
	ctx.Server.Registry.SendIfOnline(receiver, frame)

	m := account.Message{Sender: ctx.Phone, Time: t}
	if isFile {
		m.FileURL = url
	} else {
		m.AudioURL = url
	}
	_ = ctx.Server.Store.AppendChatMessage(c, chatID, m)
	_ = ctx.Server.Store.IncContactUnread(c, receiver, chatID, 1)
}

// handleIsTyping relays a typing indicator live; it has no persisted state.
func handleIsTyping(ctx *HandlerContext, raw []byte) {
	var p isTypingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	ctx.Server.Registry.SendIfOnline(p.Receiver, map[string]interface{}{
		"type":         TypeIsTyping,
		"phone_number": ctx.Phone,
	})
}

// handleDeleteMessage removes one message from a shared chat by its
// full_time key and, if the counterparty is online, tells it to drop the
// message from its own view too.
func handleDeleteMessage(ctx *HandlerContext, raw []byte) {
	var p deleteMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}

	c, cancel := withTimeout()
	defer cancel()
	_ = ctx.Server.Store.DeleteChatMessage(c, p.ChatID, p.FullTime)

	ctx.Server.Registry.SendIfOnline(p.Receiver, map[string]interface{}{
		"type":      TypeDeleteMessage,
		"chatID":    p.ChatID,
		"full_time": p.FullTime,
	})
}

// handleUpdateUnreadMessage resets a chat's unread counter to zero, the
// effect of the caller having opened that conversation.
func handleUpdateUnreadMessage(ctx *HandlerContext, raw []byte) {
	var p chatIDPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	c, cancel := withTimeout()
	defer cancel()
	_ = ctx.Server.Store.ResetContactUnread(c, ctx.Phone, p.ChatID)
}
