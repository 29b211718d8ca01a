package ws

import (
	"encoding/json"

	"ppchat/module/account"
)

// handleSignUp grounds its reply shape on server_manager.cpp's sign_up
// handler: a fresh account with empty contacts/groups and the deployment
// default profile image, replying with a boolean status and a
// human-readable message.
func handleSignUp(ctx *HandlerContext, raw []byte) {
	var p signUpPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}

	hashed, err := ctx.Server.Hasher.Hash(p.Password)
	if err != nil {
		replySignUp(ctx.Session, false, "Failed to Create Account, try again")
		return
	}

	acc := &account.Account{
		ID:             p.PhoneNumber,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		ImageURL:       ctx.Server.DefaultImageURL,
		Status:         false,
		HashedPassword: hashed,
		SecretQuestion: p.SecretQuestion,
		SecretAnswer:   p.SecretAnswer,
		Contacts:       []account.Contact{},
		Groups:         []account.GroupRef{},
	}

	c, cancel := withTimeout()
	defer cancel()
	if err := ctx.Server.Store.InsertAccount(c, acc); err != nil {
		replySignUp(ctx.Session, false, "Failed to Create Account, try again")
		return
	}
	replySignUp(ctx.Session, true, "Account Created Successfully")
}

// replySignUp uses a boolean status, per the documented exception list:
// sign_up and login_request are the two reply kinds that keep the
// original's boolean status field rather than the succeeded/failed string
// lookup_friend uses.
func replySignUp(s *Session, ok bool, message string) {
	_ = s.Send(map[string]interface{}{
		"type":    TypeSignUp,
		"status":  ok,
		"message": message,
	})
}

// handleLoginRequest authenticates the session, then registers it in the
// Registry and replies with the caller's own profile, contacts and groups,
// finally fanning out client_connected to every contact currently online
// (server_manager.cpp's login_request).
func handleLoginRequest(ctx *HandlerContext, raw []byte) {
	var p loginRequestPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}

	c, cancel := withTimeout()
	defer cancel()

	if !allowLogin(c, ctx.Server, p.PhoneNumber) {
		replyLoginFailed(ctx.Session, "Too many attempts, try again later")
		return
	}

	acc, err := ctx.Server.Store.FindAccount(c, p.PhoneNumber)
	if err != nil {
		replyLoginFailed(ctx.Session, "Account Doesn't exist in our Database, verify and try again")
		return
	}

	match, err := ctx.Server.Hasher.Verify(p.Password, acc.HashedPassword)
	if err != nil || !match {
		replyLoginFailed(ctx.Session, "Password Incorrect")
		return
	}

	ctx.Session.authenticate(p.PhoneNumber)
	ctx.Server.Registry.Insert(p.PhoneNumber, ctx.Session, p.TimeZone)

	// the socket is already registered; a failed status flip here is
	// ignored, consistent with the no-rollback posture the rest of this
	// handler set takes on store writes.
	_ = ctx.Server.Store.SetAccountStatus(c, p.PhoneNumber, true)

	contactsAndChats, err := ctx.Server.Store.FetchContactsAndChats(c, p.PhoneNumber)
	if err != nil {
		contactsAndChats = nil
	}
	groupsAndChats, err := ctx.Server.Store.FetchGroupsAndChats(c, p.PhoneNumber)
	if err != nil {
		groupsAndChats = nil
	}

	_ = ctx.Session.Send(map[string]interface{}{
		"type":     TypeLoginRequest,
		"status":   true,
		"my_info":  acc,
		"contacts": contactsAndChats,
		"groups":   groupsAndChats,
	})

	for _, cc := range contactsAndChats {
		ctx.Server.Registry.SendIfOnline(cc.ContactInfo.ID, map[string]interface{}{
			"type":         TypeClientConnected,
			"phone_number": p.PhoneNumber,
		})
	}
}

func replyLoginFailed(s *Session, message string) {
	_ = s.Send(map[string]interface{}{
		"type":    TypeLoginRequest,
		"status":  false,
		"message": message,
	})
}

// handleUpdateInfo updates first/last name and, optionally, password.
func handleUpdateInfo(ctx *HandlerContext, raw []byte) {
	var p updateInfoPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}

	hashed := ""
	if p.Password != "" {
		h, err := ctx.Server.Hasher.Hash(p.Password)
		if err != nil {
			return
		}
		hashed = h
	}

	c, cancel := withTimeout()
	defer cancel()
	status := "succeeded"
	if err := ctx.Server.Store.SetAccountProfile(c, ctx.Phone, p.FirstName, p.LastName, hashed); err != nil {
		status = "failed"
	}
	_ = ctx.Session.Send(map[string]interface{}{
		"type":   TypeContactInfoUpdated,
		"status": status,
	})
}

// handleUpdatePassword sets a new password for an account identified by
// phone number, reachable both pre- and post-auth (spec §4.6's unauth
// whitelist includes update_password for the forgot-password flow).
func handleUpdatePassword(ctx *HandlerContext, raw []byte) {
	var p updatePasswordPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}

	hashed, err := ctx.Server.Hasher.Hash(p.Password)
	if err != nil {
		replyUpdatePassword(ctx.Session, false)
		return
	}

	c, cancel := withTimeout()
	defer cancel()
	if err := ctx.Server.Store.SetAccountPassword(c, p.PhoneNumber, hashed); err != nil {
		replyUpdatePassword(ctx.Session, false)
		return
	}
	replyUpdatePassword(ctx.Session, true)
}

func replyUpdatePassword(s *Session, ok bool) {
	status := "failed"
	if ok {
		status = "succeeded"
	}
	_ = s.Send(map[string]interface{}{
		"type":   TypeUpdatePassword,
		"status": status,
	})
}

// handleRetrieveQuestion looks up the secret question for a phone number so
// the client can prompt for the matching answer before allowing a password
// reset; also the entry point new_password_request is aliased to.
func handleRetrieveQuestion(ctx *HandlerContext, raw []byte) {
	var p phonePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}

	c, cancel := withTimeout()
	defer cancel()
	acc, err := ctx.Server.Store.FindAccount(c, p.PhoneNumber)
	if err != nil {
		_ = ctx.Session.Send(map[string]interface{}{
			"type":   TypeQuestionAnswer,
			"status": "failed",
		})
		return
	}
	_ = ctx.Session.Send(map[string]interface{}{
		"type":            TypeQuestionAnswer,
		"status":          "succeeded",
		"secret_question": acc.SecretQuestion,
		"secret_answer":   acc.SecretAnswer,
	})
}

// handleDeleteAccount runs the best-effort cascade (spec §4.3's
// delete_account) and tears down the session's own registration.
func handleDeleteAccount(ctx *HandlerContext, raw []byte) {
	c, cancel := withTimeout()
	defer cancel()

	status := "succeeded"
	if err := ctx.Server.Store.DeleteAccountCascade(c, ctx.Phone); err != nil {
		status = "failed"
	}
	ctx.Server.Registry.Remove(ctx.Phone, ctx.Session)
	_ = ctx.Session.Send(map[string]interface{}{
		"type":   TypeDeleteAccount,
		"status": status,
	})
}
