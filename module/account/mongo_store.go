package account

import (
	"context"

	"ppchat/data/database"
	"ppchat/logger"
	"ppchat/tools/decode"
	"ppchat/tools/errs"
	"ppchat/tools/ids"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collAccounts = "accounts"
	collChats    = "chats"
	collGroups   = "groups"
)

// mongoTable is the smallest thing that satisfies database.Table: a
// collection name plus the database handle needed to resolve it. Account,
// Chat and Group are plain documents with no natural place to hang a
// Collection() method of their own, so MongoStore owns one descriptor per
// collection instead.
type mongoTable struct {
	db   *mongo.Database
	name string
}

func (t mongoTable) GetTableName() string        { return t.name }
func (t mongoTable) Collection() *mongo.Collection { return t.db.Collection(t.name) }

var _ database.Table = mongoTable{}

// MongoStore is the Store implementation backed by the document store.
// Aggregations are grounded on the original server's FetchContactAndChats
// and fetchGroupsAndChats pipelines: $match -> $unwind contacts/groups ->
// $lookup the joined collection -> reshape. Per spec §9's documented
// inconsistency, the contacts pipeline here is written so a contact with
// zero shared messages still surfaces (left-outer via $lookup without the
// exploding second $unwind on chatMessages.messages), rather than silently
// dropping the contact the way an $unwind-heavy pipeline would.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) accounts() *mongo.Collection {
	return mongoTable{db: s.db, name: collAccounts}.Collection()
}
func (s *MongoStore) chats() *mongo.Collection {
	return mongoTable{db: s.db, name: collChats}.Collection()
}
func (s *MongoStore) groups() *mongo.Collection {
	return mongoTable{db: s.db, name: collGroups}.Collection()
}

func (s *MongoStore) InsertAccount(ctx context.Context, acc *Account) error {
	if acc.Contacts == nil {
		acc.Contacts = []Contact{}
	}
	if acc.Groups == nil {
		acc.Groups = []GroupRef{}
	}
	_, err := s.accounts().InsertOne(ctx, acc)
	if mongo.IsDuplicateKeyError(err) {
		return errs.NewCodeError(errs.CodeValidation, "account already exists")
	}
	return errs.WrapMsg(err, "insert account")
}

func (s *MongoStore) FindAccount(ctx context.Context, id int64) (*Account, error) {
	var acc Account
	err := s.accounts().FindOne(ctx, bson.M{"_id": id}).Decode(&acc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find account")
	}
	return &acc, nil
}

func (s *MongoStore) SetAccountStatus(ctx context.Context, id int64, status bool) error {
	_, err := s.accounts().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	return errs.WrapMsg(err, "set account status")
}

func (s *MongoStore) SetAccountImage(ctx context.Context, id int64, imageURL string) error {
	_, err := s.accounts().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"image_url": imageURL}})
	return errs.WrapMsg(err, "set account image")
}

func (s *MongoStore) SetAccountProfile(ctx context.Context, id int64, firstName, lastName, hashedPassword string) error {
	set := bson.M{"first_name": firstName, "last_name": lastName}
	if hashedPassword != "" {
		set["hashed_password"] = hashedPassword
	}
	_, err := s.accounts().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return errs.WrapMsg(err, "set account profile")
}

func (s *MongoStore) SetAccountPassword(ctx context.Context, id int64, hashedPassword string) error {
	_, err := s.accounts().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"hashed_password": hashedPassword}})
	return errs.WrapMsg(err, "set account password")
}

func (s *MongoStore) PushContact(ctx context.Context, id int64, c Contact) error {
	_, err := s.accounts().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{"contacts": c}})
	return errs.WrapMsg(err, "push contact")
}

func (s *MongoStore) IncContactUnread(ctx context.Context, id int64, chatID int32, delta int) error {
	_, err := s.accounts().UpdateOne(ctx,
		bson.M{"_id": id, "contacts.chatID": chatID},
		bson.M{"$inc": bson.M{"contacts.$.unread_messages": delta}},
	)
	return errs.WrapMsg(err, "inc contact unread")
}

func (s *MongoStore) ResetContactUnread(ctx context.Context, id int64, chatID int32) error {
	_, err := s.accounts().UpdateOne(ctx,
		bson.M{"_id": id, "contacts.chatID": chatID},
		bson.M{"$set": bson.M{"contacts.$.unread_messages": 0}},
	)
	return errs.WrapMsg(err, "reset contact unread")
}

func (s *MongoStore) PushGroupRef(ctx context.Context, id int64, g GroupRef) error {
	_, err := s.accounts().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{"groups": g}})
	return errs.WrapMsg(err, "push group ref")
}

func (s *MongoStore) RemoveGroupRef(ctx context.Context, id int64, groupID int32) error {
	_, err := s.accounts().UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$pull": bson.M{"groups": bson.M{"groupID": groupID}}},
	)
	return errs.WrapMsg(err, "remove group ref")
}

func (s *MongoStore) IncGroupUnread(ctx context.Context, id int64, groupID int32, delta int) error {
	_, err := s.accounts().UpdateOne(ctx,
		bson.M{"_id": id, "groups.groupID": groupID},
		bson.M{"$inc": bson.M{"groups.$.group_unread_messages": delta}},
	)
	return errs.WrapMsg(err, "inc group unread")
}

func (s *MongoStore) ResetGroupUnread(ctx context.Context, id int64, groupID int32) error {
	_, err := s.accounts().UpdateOne(ctx,
		bson.M{"_id": id, "groups.groupID": groupID},
		bson.M{"$set": bson.M{"groups.$.group_unread_messages": 0}},
	)
	return errs.WrapMsg(err, "reset group unread")
}

// FetchContactsAndChats joins accounts.contacts -> accounts (contactInfo)
// and accounts.contacts -> chats (chatMessages), returning one record per
// contact. Grounded on the original FetchContactAndChats pipeline, with
// the $unwind-on-messages stage dropped so a contact whose chat is empty
// still appears (spec §9).
func (s *MongoStore) FetchContactsAndChats(ctx context.Context, accountID int64) ([]ContactChat, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": accountID}}},
		{{Key: "$unwind", Value: "$contacts"}},
		{{Key: "$lookup", Value: bson.M{
			"from":         collAccounts,
			"localField":   "contacts.contactID",
			"foreignField": "_id",
			"as":           "contactInfo",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$contactInfo", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         collChats,
			"localField":   "contacts.chatID",
			"foreignField": "_id",
			"as":           "chat",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$chat", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$project", Value: bson.M{
			"_id": 0,
			"contactInfo": bson.M{
				"_id":        "$contactInfo._id",
				"first_name": "$contactInfo.first_name",
				"last_name":  "$contactInfo.last_name",
				"status":     "$contactInfo.status",
				"image_url":  "$contactInfo.image_url",
			},
			"chatID":          "$contacts.chatID",
			"unread_messages": "$contacts.unread_messages",
			"chatMessages":     bson.M{"$ifNull": bson.A{"$chat.messages", bson.A{}}},
		}}},
	}

	cursor, err := s.accounts().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errs.WrapMsg(err, "fetch contacts and chats")
	}
	defer cursor.Close(ctx)

	var raw []map[string]interface{}
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, errs.WrapMsg(err, "decode contacts and chats")
	}
	out, err := decode.DecodeSlice[ContactChat](raw)
	if err != nil {
		return nil, errs.WrapMsg(err, "decode contacts and chats")
	}
	return out, nil
}

// FetchGroupsAndChats joins accounts.groups -> groups, returning one full
// group record per membership, grounded on fetchGroupsAndChats.
func (s *MongoStore) FetchGroupsAndChats(ctx context.Context, accountID int64) ([]GroupChat, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": accountID}}},
		{{Key: "$unwind", Value: "$groups"}},
		{{Key: "$lookup", Value: bson.M{
			"from":         collGroups,
			"localField":   "groups.groupID",
			"foreignField": "_id",
			"as":           "groupInfo",
		}}},
		{{Key: "$unwind", Value: "$groupInfo"}},
		{{Key: "$project", Value: bson.M{
			"_id":                   "$groupInfo._id",
			"group_name":            "$groupInfo.group_name",
			"group_unread_messages": "$groups.group_unread_messages",
			"group_image_url":       "$groupInfo.group_image_url",
			"group_admin":           "$groupInfo.group_admin",
			"group_members":         "$groupInfo.group_members",
			"group_messages":        "$groupInfo.group_messages",
		}}},
	}

	cursor, err := s.accounts().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errs.WrapMsg(err, "fetch groups and chats")
	}
	defer cursor.Close(ctx)

	var raw []map[string]interface{}
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, errs.WrapMsg(err, "decode groups and chats")
	}
	out, err := decode.DecodeSlice[GroupChat](raw)
	if err != nil {
		return nil, errs.WrapMsg(err, "decode groups and chats")
	}
	return out, nil
}

func (s *MongoStore) FetchContactIDs(ctx context.Context, accountID int64) ([]int64, error) {
	var doc struct {
		Contacts []Contact `bson:"contacts"`
	}
	opts := options.FindOne().SetProjection(bson.M{"contacts.contactID": 1})
	err := s.accounts().FindOne(ctx, bson.M{"_id": accountID}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "fetch contact ids")
	}
	seen := make(map[int64]struct{}, len(doc.Contacts))
	out := make([]int64, 0, len(doc.Contacts))
	for _, c := range doc.Contacts {
		if _, ok := seen[c.ContactID]; ok {
			continue
		}
		seen[c.ContactID] = struct{}{}
		out = append(out, c.ContactID)
	}
	return out, nil
}

// NewChat allocates a fresh chatID from the 32-bit uniform range and
// inserts the chat document with its server-authored first message,
// retrying on a duplicate-key collision per spec invariant 6.
func (s *MongoStore) NewChat(ctx context.Context, firstMessage Message) (int32, error) {
	for attempt := 0; attempt < 8; attempt++ {
		chatID := ids.Generate()
		// the original server stamps this seed message's sender with the
		// chatID itself rather than a real phone number; preserved here
		// rather than smoothed into something more "correct".
		firstMessage.Sender = int64(chatID)
		_, err := s.chats().InsertOne(ctx, Chat{ID: chatID, Messages: []Message{firstMessage}})
		if err == nil {
			return chatID, nil
		}
		if mongo.IsDuplicateKeyError(err) {
			logger.Warn("chatID collision, retrying")
			continue
		}
		return 0, errs.WrapMsg(err, "insert chat")
	}
	return 0, errs.NewCodeError(errs.CodeStore, "exhausted chatID retries")
}

func (s *MongoStore) AppendChatMessage(ctx context.Context, chatID int32, m Message) error {
	_, err := s.chats().UpdateOne(ctx, bson.M{"_id": chatID}, bson.M{"$push": bson.M{"messages": m}})
	return errs.WrapMsg(err, "append chat message")
}

func (s *MongoStore) DeleteChatMessage(ctx context.Context, chatID int32, fullTime string) error {
	_, err := s.chats().UpdateOne(ctx, bson.M{"_id": chatID},
		bson.M{"$pull": bson.M{"messages": bson.M{"time": fullTime}}},
	)
	return errs.WrapMsg(err, "delete chat message")
}

// NewGroup allocates a fresh groupID and inserts the group document,
// retrying on collision like NewChat.
func (s *MongoStore) NewGroup(ctx context.Context, g *Group) (int32, error) {
	if g.GroupMessages == nil {
		g.GroupMessages = []GroupMessage{}
	}
	for attempt := 0; attempt < 8; attempt++ {
		groupID := ids.Generate()
		g.ID = groupID
		_, err := s.groups().InsertOne(ctx, g)
		if err == nil {
			return groupID, nil
		}
		if mongo.IsDuplicateKeyError(err) {
			logger.Warn("groupID collision, retrying")
			continue
		}
		return 0, errs.WrapMsg(err, "insert group")
	}
	return 0, errs.NewCodeError(errs.CodeStore, "exhausted groupID retries")
}

func (s *MongoStore) FindGroup(ctx context.Context, groupID int32) (*Group, error) {
	var g Group
	err := s.groups().FindOne(ctx, bson.M{"_id": groupID}).Decode(&g)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find group")
	}
	return &g, nil
}

func (s *MongoStore) SetGroupImage(ctx context.Context, groupID int32, imageURL string) error {
	_, err := s.groups().UpdateOne(ctx, bson.M{"_id": groupID}, bson.M{"$set": bson.M{"group_image_url": imageURL}})
	return errs.WrapMsg(err, "set group image")
}

func (s *MongoStore) AddGroupMembers(ctx context.Context, groupID int32, members []int64) error {
	_, err := s.groups().UpdateOne(ctx, bson.M{"_id": groupID},
		bson.M{"$push": bson.M{"group_members": bson.M{"$each": members}}},
	)
	return errs.WrapMsg(err, "add group members")
}

func (s *MongoStore) RemoveGroupMembers(ctx context.Context, groupID int32, members []int64) error {
	_, err := s.groups().UpdateOne(ctx, bson.M{"_id": groupID},
		bson.M{"$pull": bson.M{"group_members": bson.M{"$in": members}}},
	)
	return errs.WrapMsg(err, "remove group members")
}

func (s *MongoStore) AppendGroupMessage(ctx context.Context, groupID int32, m GroupMessage) error {
	_, err := s.groups().UpdateOne(ctx, bson.M{"_id": groupID}, bson.M{"$push": bson.M{"group_messages": m}})
	return errs.WrapMsg(err, "append group message")
}

func (s *MongoStore) DeleteGroupMessage(ctx context.Context, groupID int32, fullTime string) error {
	_, err := s.groups().UpdateOne(ctx, bson.M{"_id": groupID},
		bson.M{"$pull": bson.M{"group_messages": bson.M{"time": fullTime}}},
	)
	return errs.WrapMsg(err, "delete group message")
}

// DeleteAccountCascade mirrors the original deleteAccount: pull the
// account from every group it belongs to, pull every shared-chat contact
// entry from the counterparty and drop the chat, then delete the account
// document. Each step is best-effort; a failure partway through is logged
// and the cascade continues (spec §4.3, §9).
func (s *MongoStore) DeleteAccountCascade(ctx context.Context, accountID int64) error {
	acc, err := s.FindAccount(ctx, accountID)
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	for _, g := range acc.Groups {
		if _, err := s.groups().UpdateOne(ctx, bson.M{"_id": g.GroupID},
			bson.M{"$pull": bson.M{"group_members": accountID}}); err != nil {
			logger.Errorf("delete_account: pull from group %d failed: %v", g.GroupID, err)
		}
	}

	for _, c := range acc.Contacts {
		if _, err := s.accounts().UpdateMany(ctx,
			bson.M{"contacts.chatID": c.ChatID},
			bson.M{"$pull": bson.M{"contacts": bson.M{"chatID": c.ChatID}}}); err != nil {
			logger.Errorf("delete_account: pull contacts for chat %d failed: %v", c.ChatID, err)
		}
		if _, err := s.chats().DeleteOne(ctx, bson.M{"_id": c.ChatID}); err != nil {
			logger.Errorf("delete_account: delete chat %d failed: %v", c.ChatID, err)
		}
	}

	if _, err := s.accounts().DeleteOne(ctx, bson.M{"_id": accountID}); err != nil {
		return errs.WrapMsg(err, "delete account document")
	}
	return nil
}
