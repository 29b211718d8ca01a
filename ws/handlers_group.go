package ws

import (
	"encoding/json"

	"ppchat/module/account"
)

// handleNewGroup allocates a groupID and inserts the group document with a
// flat group_members array. server_manager.cpp's new_group wraps this array
// an extra level (QJsonArray{group_members}); that bug is not replicated
// here per the documented decision to store the flat array.
func handleNewGroup(ctx *HandlerContext, raw []byte) {
	var p newGroupPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}

	members := p.GroupMembers
	hasAdmin := false
	for _, m := range members {
		if m == ctx.Phone {
			hasAdmin = true
			break
		}
	}
	if !hasAdmin {
		members = append(members, ctx.Phone)
	}

	c, cancel := withTimeout()
	defer cancel()

	g := &account.Group{
		GroupName:     p.GroupName,
		GroupImageURL: ctx.Server.DefaultGroupImageURL,
		GroupAdmin:    ctx.Phone,
		GroupMembers:  members,
		GroupMessages: []account.GroupMessage{},
	}
	groupID, err := ctx.Server.Store.NewGroup(c, g)
	if err != nil {
		_ = ctx.Session.Send(map[string]interface{}{
			"type":   TypeNewGroup,
			"status": "failed",
		})
		return
	}

	for _, m := range members {
		_ = ctx.Server.Store.PushGroupRef(c, m, account.GroupRef{GroupID: groupID, GroupUnreadMessages: 1})
	}

	groupView := account.GroupChat{
		ID:                  groupID,
		GroupName:           g.GroupName,
		GroupUnreadMessages: 1,
		GroupImageURL:       g.GroupImageURL,
		GroupAdmin:          g.GroupAdmin,
		GroupMembers:        members,
		GroupMessages:       []account.GroupMessage{},
	}
	for _, m := range members {
		if m == ctx.Phone {
			continue
		}
		ctx.Server.Registry.SendIfOnline(m, map[string]interface{}{
			"type":   TypeAddedToGroup,
			"groups": []account.GroupChat{groupView},
		})
	}

	_ = ctx.Session.Send(map[string]interface{}{
		"type":    TypeNewGroup,
		"status":  "succeeded",
		"groupID": groupID,
	})
}

// handleGroupText fans a text message out to every other currently-online
// member and persists it onto the group document.
func handleGroupText(ctx *HandlerContext, raw []byte) {
	var p groupMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	fanOutGroupMessage(ctx, p.GroupID, account.GroupMessage{
		SenderID: ctx.Phone,
		Time:     p.Time,
		Message:  p.Message,
	}, map[string]interface{}{
		"type":    TypeGroupText,
		"groupID": p.GroupID,
		"message": p.Message,
		"time":    p.Time,
	})
}

func handleGroupFile(ctx *HandlerContext, raw []byte) {
	var p groupMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	deliverGroupBlobMessage(ctx, p.GroupID, p.Time, p.FileName, p.FileData, TypeGroupFile, "file_name", "file_url", true)
}

func handleGroupAudio(ctx *HandlerContext, raw []byte) {
	var p groupMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	deliverGroupBlobMessage(ctx, p.GroupID, p.Time, p.AudioName, p.AudioData, TypeGroupAudio, "audio_name", "audio_url", false)
}

func deliverGroupBlobMessage(ctx *HandlerContext, groupID int32, t, name, b64Data, wireType, nameField, urlField string, isFile bool) {
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

	m := account.GroupMessage{SenderID: ctx.Phone, Time: t}
	if isFile {
		m.FileURL = url
	} else {
		m.AudioURL = url
	}

	fanOutGroupMessage(ctx, groupID, m, map[string]interface{}{
		"type":    wireType,
		"groupID": groupID,
		"time":    t,
		nameField: name,
		urlField:  url,
	})
}

// fanOutGroupMessage persists m onto the group, bumps every other member's
// unread counter and relays frame to whichever of them are currently online.
func fanOutGroupMessage(ctx *HandlerContext, groupID int32, m account.GroupMessage, frame map[string]interface{}) {
	c, cancel := withTimeout()
	defer cancel()

	_ = ctx.Server.Store.AppendGroupMessage(c, groupID, m)

	g, err := ctx.Server.Store.FindGroup(c, groupID)
	if err != nil {
		return
	}
	for _, member := range g.GroupMembers {
		if member == ctx.Phone {
			continue
		}
		_ = ctx.Server.Store.IncGroupUnread(c, member, groupID, 1)
		ctx.Server.Registry.SendIfOnline(member, frame)
	}
}

// handleGroupIsTyping relays a typing indicator to every other online group
// member.
func handleGroupIsTyping(ctx *HandlerContext, raw []byte) {
	var p groupIsTypingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	c, cancel := withTimeout()
	defer cancel()
	g, err := ctx.Server.Store.FindGroup(c, p.GroupID)
	if err != nil {
		return
	}
	for _, member := range g.GroupMembers {
		if member == ctx.Phone {
			continue
		}
		ctx.Server.Registry.SendIfOnline(member, map[string]interface{}{
			"type":        TypeGroupIsTyping,
			"groupID":     p.GroupID,
			"sender_name": p.SenderName,
		})
	}
}

// handleAddGroupMember adds members to an existing group and notifies any
// that are currently online.
func handleAddGroupMember(ctx *HandlerContext, raw []byte) {
	var p groupMemberListPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	c, cancel := withTimeout()
	defer cancel()

	if err := ctx.Server.Store.AddGroupMembers(c, p.GroupID, p.Members); err != nil {
		return
	}
	g, err := ctx.Server.Store.FindGroup(c, p.GroupID)
	if err != nil {
		return
	}
	for _, m := range p.Members {
		_ = ctx.Server.Store.PushGroupRef(c, m, account.GroupRef{GroupID: p.GroupID})
		ctx.Server.Registry.SendIfOnline(m, map[string]interface{}{
			"type": TypeAddedToGroup,
			"groups": []account.GroupChat{{
				ID:            g.ID,
				GroupName:     g.GroupName,
				GroupImageURL: g.GroupImageURL,
				GroupAdmin:    g.GroupAdmin,
				GroupMembers:  g.GroupMembers,
				GroupMessages: []account.GroupMessage{},
			}},
		})
	}
}

// handleRemoveGroupMember removes members from a group and notifies any
// that are currently online that they have been removed.
func handleRemoveGroupMember(ctx *HandlerContext, raw []byte) {
	var p groupMemberListPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	c, cancel := withTimeout()
	defer cancel()

	if err := ctx.Server.Store.RemoveGroupMembers(c, p.GroupID, p.Members); err != nil {
		return
	}
	for _, m := range p.Members {
		_ = ctx.Server.Store.RemoveGroupRef(c, m, p.GroupID)
		ctx.Server.Registry.SendIfOnline(m, map[string]interface{}{
			"type":    TypeRemovedFromGroup,
			"groupID": p.GroupID,
		})
	}
}

// handleDeleteGroupMessage removes one message from a group by its
// full_time key and relays the deletion to every other online member.
func handleDeleteGroupMessage(ctx *HandlerContext, raw []byte) {
	var p deleteGroupMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	c, cancel := withTimeout()
	defer cancel()
	_ = ctx.Server.Store.DeleteGroupMessage(c, p.GroupID, p.FullTime)

	g, err := ctx.Server.Store.FindGroup(c, p.GroupID)
	if err != nil {
		return
	}
	for _, member := range g.GroupMembers {
		if member == ctx.Phone {
			continue
		}
		ctx.Server.Registry.SendIfOnline(member, map[string]interface{}{
			"type":      TypeDeleteGroupMessage,
			"groupID":   p.GroupID,
			"full_time": p.FullTime,
		})
	}
}

// handleUpdateGroupUnreadMessage resets a group's unread counter for the
// caller, the effect of having opened that group's conversation.
func handleUpdateGroupUnreadMessage(ctx *HandlerContext, raw []byte) {
	var p groupIDPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	c, cancel := withTimeout()
	defer cancel()
	_ = ctx.Server.Store.ResetGroupUnread(c, ctx.Phone, p.GroupID)
}
