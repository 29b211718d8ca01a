package ws

// dispatchTable is the static type->handler table built once at package
// init (spec §4.7: "dispatch is keyed by the string value of the type
// field ... using a static table built once at start").
var dispatchTable = map[string]handlerFunc{
	TypeSignUp:                   handleSignUp,
	TypeLoginRequest:             handleLoginRequest,
	TypeLookupFriend:             handleLookupFriend,
	TypeProfileImage:             handleProfileImage,
	TypeGroupProfileImage:        handleGroupProfileImage,
	TypeProfileImageDeleted:      handleProfileImageDeleted,
	TypeText:                     handleText,
	TypeNewGroup:                 handleNewGroup,
	TypeGroupText:                handleGroupText,
	TypeFile:                     handleFile,
	TypeGroupFile:                handleGroupFile,
	TypeAudio:                    handleAudio,
	TypeGroupAudio:               handleGroupAudio,
	TypeIsTyping:                 handleIsTyping,
	TypeGroupIsTyping:            handleGroupIsTyping,
	TypeContactInfoUpdated:       handleUpdateInfo,
	TypeUpdatePassword:           handleUpdatePassword,
	TypeRetrieveQuestion:         handleRetrieveQuestion,
	TypeRemoveGroupMember:        handleRemoveGroupMember,
	TypeAddGroupMember:           handleAddGroupMember,
	TypeDeleteMessage:            handleDeleteMessage,
	TypeDeleteGroupMessage:       handleDeleteGroupMessage,
	TypeUpdateUnreadMessage:      handleUpdateUnreadMessage,
	TypeUpdateGroupUnreadMessage: handleUpdateGroupUnreadMessage,
	TypeDeleteAccount:            handleDeleteAccount,

	// new_password_request is accepted pre-auth (spec §4.6) as the
	// client's entry point into password recovery; it carries the same
	// phone_number payload as retrieve_question and gets the same reply.
	TypeNewPasswordRequest: handleRetrieveQuestion,
}
