// Package ws is the connection-and-dispatch engine: one Session per
// socket, a static type-keyed dispatch table, and the handler set that
// mutates persistent state and fans out notifications through the
// registry. Grounded on the teacher's service/chat package (ws_server.go,
// dispatcher.go, frames.go, handlers/*), generalized from its protobuf
// envelope to the plain-JSON frame this protocol actually uses (spec §6),
// and on original_source/server_manager.cpp / GOserver/message_handler.go
// for the exact inbound/outbound field shapes of each message type.
package ws

// Inbound frame type discriminators (spec §6, exhaustive).
const (
	TypeSignUp                   = "sign_up"
	TypeLoginRequest             = "login_request"
	TypeLookupFriend             = "lookup_friend"
	TypeProfileImage             = "profile_image"
	TypeGroupProfileImage        = "group_profile_image"
	TypeProfileImageDeleted      = "profile_image_deleted"
	TypeText                     = "text"
	TypeNewGroup                 = "new_group"
	TypeGroupText                = "group_text"
	TypeFile                     = "file"
	TypeGroupFile                = "group_file"
	TypeAudio                    = "audio"
	TypeGroupAudio               = "group_audio"
	TypeIsTyping                 = "is_typing"
	TypeGroupIsTyping            = "group_is_typing"
	TypeContactInfoUpdated       = "contact_info_updated" // aka update_info
	TypeUpdatePassword           = "update_password"
	TypeRetrieveQuestion         = "retrieve_question"
	TypeRemoveGroupMember        = "remove_group_member"
	TypeAddGroupMember           = "add_group_member"
	TypeDeleteMessage            = "delete_message"
	TypeDeleteGroupMessage       = "delete_group_message"
	TypeUpdateUnreadMessage      = "update_unread_message"
	TypeUpdateGroupUnreadMessage = "update_group_unread_message"
	TypeDeleteAccount            = "delete_account"
	TypeNewPasswordRequest       = "new_password_request"
)

// Outbound-only frame type discriminators.
const (
	TypeClientConnected    = "client_connected"
	TypeClientDisconnected = "client_disconnected"
	TypeAddedYou           = "added_you"
	TypeAddedToGroup       = "added_to_group"
	TypeRemovedFromGroup   = "removed_from_group"
	TypeClientProfileImage = "client_profile_image"
	TypeQuestionAnswer     = "question_answer"
)

// Envelope is decoded first to read the discriminator; the handler then
// re-decodes the raw bytes into its own typed payload.
type Envelope struct {
	Type string `json:"type"`
}

type signUpPayload struct {
	PhoneNumber    int64  `json:"phone_number"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Password       string `json:"password"`
	SecretQuestion string `json:"secret_question"`
	SecretAnswer   string `json:"secret_answer"`
}

type loginRequestPayload struct {
	PhoneNumber int64  `json:"phone_number"`
	Password    string `json:"password"`
	TimeZone    string `json:"time_zone"`
}

type lookupFriendPayload struct {
	PhoneNumber int64 `json:"phone_number"`
}

type profileImagePayload struct {
	FileName string `json:"file_name"`
	FileData string `json:"file_data"`
}

type groupProfileImagePayload struct {
	GroupID  int32  `json:"groupID"`
	FileName string `json:"file_name"`
	FileData string `json:"file_data"`
}

type textPayload struct {
	Receiver int64  `json:"receiver"`
	Message  string `json:"message"`
	Time     string `json:"time"`
	ChatID   int32  `json:"chatID"`
}

type fileOrAudioPayload struct {
	ChatID    int32  `json:"chatID"`
	Receiver  int64  `json:"receiver"`
	Time      string `json:"time"`
	FileName  string `json:"file_name"`
	FileData  string `json:"file_data"`
	AudioName string `json:"audio_name"`
	AudioData string `json:"audio_data"`
}

type newGroupPayload struct {
	GroupName    string  `json:"group_name"`
	GroupMembers []int64 `json:"group_members"`
}

type groupMessagePayload struct {
	GroupID   int32  `json:"groupID"`
	Time      string `json:"time"`
	Message   string `json:"message"`
	FileName  string `json:"file_name"`
	FileData  string `json:"file_data"`
	AudioName string `json:"audio_name"`
	AudioData string `json:"audio_data"`
}

type isTypingPayload struct {
	Receiver int64 `json:"receiver"`
}

type groupIsTypingPayload struct {
	GroupID    int32  `json:"groupID"`
	SenderName string `json:"sender_name"`
}

type groupMemberListPayload struct {
	GroupID int32   `json:"groupID"`
	Members []int64 `json:"member_list"`
}

type deleteMessagePayload struct {
	Receiver int64  `json:"receiver"`
	ChatID   int32  `json:"chatID"`
	FullTime string `json:"full_time"`
}

type deleteGroupMessagePayload struct {
	GroupID  int32  `json:"groupID"`
	FullTime string `json:"full_time"`
}

type chatIDPayload struct {
	ChatID int32 `json:"chatID"`
}

type groupIDPayload struct {
	GroupID int32 `json:"groupID"`
}

type updateInfoPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

type updatePasswordPayload struct {
	PhoneNumber int64  `json:"phone_number"`
	Password    string `json:"password"`
}

type phonePayload struct {
	PhoneNumber int64 `json:"phone_number"`
}
