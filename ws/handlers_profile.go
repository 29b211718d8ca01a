package ws

import "encoding/json"

// handleProfileImage uploads a new profile image, echoes it back to the
// caller and fans client_profile_image out to every online contact
// (server_manager.cpp's profile_image).
func handleProfileImage(ctx *HandlerContext, raw []byte) {
	var p profileImagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	data, err := decodeBase64(p.FileData)
	if err != nil {
		return
	}

	c, cancel := withTimeout()
	defer cancel()
	url, err := ctx.Server.Blobs.Put(c, p.FileName, data)
	if err != nil {
		return
	}
	if err := ctx.Server.Store.SetAccountImage(c, ctx.Phone, url); err != nil {
		return
	}

	_ = ctx.Session.Send(map[string]interface{}{
		"type":      TypeProfileImage,
		"image_url": url,
	})
	fanOutProfileImage(ctx, url)
}

// handleProfileImageDeleted resets the caller's image to the deployment
// default and fans the change out the same way handleProfileImage does;
// the original reuses client_profile_image for this notification too
// rather than a distinct outbound type, preserved here.
func handleProfileImageDeleted(ctx *HandlerContext, raw []byte) {
	c, cancel := withTimeout()
	defer cancel()
	if err := ctx.Server.Store.SetAccountImage(c, ctx.Phone, ctx.Server.DefaultImageURL); err != nil {
		return
	}
	fanOutProfileImage(ctx, ctx.Server.DefaultImageURL)
}

func fanOutProfileImage(ctx *HandlerContext, imageURL string) {
	c, cancel := withTimeout()
	defer cancel()
	contactIDs, err := ctx.Server.Store.FetchContactIDs(c, ctx.Phone)
	if err != nil {
		return
	}
	for _, contactID := range contactIDs {
		ctx.Server.Registry.SendIfOnline(contactID, map[string]interface{}{
			"type":         TypeClientProfileImage,
			"phone_number": ctx.Phone,
			"image_url":    imageURL,
		})
	}
}

// handleGroupProfileImage uploads a new image for a group and fans it out
// to every other online member.
func handleGroupProfileImage(ctx *HandlerContext, raw []byte) {
	var p groupProfileImagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	data, err := decodeBase64(p.FileData)
	if err != nil {
		return
	}

	c, cancel := withTimeout()
	defer cancel()
	url, err := ctx.Server.Blobs.Put(c, p.FileName, data)
	if err != nil {
		return
	}
	if err := ctx.Server.Store.SetGroupImage(c, p.GroupID, url); err != nil {
		return
	}
	g, err := ctx.Server.Store.FindGroup(c, p.GroupID)
	if err != nil {
		return
	}

	for _, member := range g.GroupMembers {
		if member == ctx.Phone {
			continue
		}
		ctx.Server.Registry.SendIfOnline(member, map[string]interface{}{
			"type":            TypeGroupProfileImage,
			"groupID":         p.GroupID,
			"group_image_url": url,
		})
	}
	_ = ctx.Session.Send(map[string]interface{}{
		"type":            TypeGroupProfileImage,
		"groupID":         p.GroupID,
		"group_image_url": url,
	})
}
