package account

import (
	"context"

	"ppchat/tools/errs"
)

// ErrNotFound is returned by Store lookups that find no matching document;
// handlers translate it into the typed failure replies spec §7 describes.
var ErrNotFound = errs.NewCodeError(errs.CodeNotFound, "account: not found")

// Store is the persistence abstraction over the three logical collections
// (accounts, chats, groups): CRUD plus the composite aggregations that join
// a user's contacts/groups with their transcripts. Every method that
// mutates a sub-array maps to one of the spec's update operators
// ($set/$push/$pull/$inc with positional filters); see the Mongo
// implementation in mongo_store.go for the exact operator used at each
// call site.
type Store interface {
	// accounts
	InsertAccount(ctx context.Context, acc *Account) error
	FindAccount(ctx context.Context, id int64) (*Account, error)
	SetAccountStatus(ctx context.Context, id int64, status bool) error
	SetAccountImage(ctx context.Context, id int64, imageURL string) error
	SetAccountProfile(ctx context.Context, id int64, firstName, lastName, hashedPassword string) error
	SetAccountPassword(ctx context.Context, id int64, hashedPassword string) error
	DeleteAccountCascade(ctx context.Context, id int64) error

	PushContact(ctx context.Context, id int64, c Contact) error
	IncContactUnread(ctx context.Context, id int64, chatID int32, delta int) error
	ResetContactUnread(ctx context.Context, id int64, chatID int32) error

	PushGroupRef(ctx context.Context, id int64, g GroupRef) error
	RemoveGroupRef(ctx context.Context, id int64, groupID int32) error
	IncGroupUnread(ctx context.Context, id int64, groupID int32, delta int) error
	ResetGroupUnread(ctx context.Context, id int64, groupID int32) error

	FetchContactsAndChats(ctx context.Context, accountID int64) ([]ContactChat, error)
	FetchGroupsAndChats(ctx context.Context, accountID int64) ([]GroupChat, error)
	FetchContactIDs(ctx context.Context, accountID int64) ([]int64, error)

	// chats
	NewChat(ctx context.Context, firstMessage Message) (int32, error)
	AppendChatMessage(ctx context.Context, chatID int32, m Message) error
	DeleteChatMessage(ctx context.Context, chatID int32, fullTime string) error

	// groups
	NewGroup(ctx context.Context, g *Group) (int32, error)
	FindGroup(ctx context.Context, groupID int32) (*Group, error)
	SetGroupImage(ctx context.Context, groupID int32, imageURL string) error
	AddGroupMembers(ctx context.Context, groupID int32, members []int64) error
	RemoveGroupMembers(ctx context.Context, groupID int32, members []int64) error
	AppendGroupMessage(ctx context.Context, groupID int32, m GroupMessage) error
	DeleteGroupMessage(ctx context.Context, groupID int32, fullTime string) error
}
