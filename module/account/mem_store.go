package account

import (
	"context"
	"sync"

	"ppchat/tools/errs"
	"ppchat/tools/ids"
)

// MemStore is an in-memory Store used by handler/session tests (spec §8:
// "use mock BlobStore and in-memory AccountStore"). It mirrors MongoStore's
// update operators ($push/$pull/$inc/$set) against plain Go maps instead of
// collections, with three differences: unread counters are clamped at zero
// (MongoStore's $inc is not), AddGroupMembers skips phones already in the
// group (MongoStore's $push $each does not), and FetchContactsAndChats
// leaves ChatMessages nil for a missing chat (MongoStore yields an empty
// array).
type MemStore struct {
	mu       sync.Mutex
	accounts map[int64]*Account
	chats    map[int32]*Chat
	groups   map[int32]*Group
}

func NewMemStore() *MemStore {
	return &MemStore{
		accounts: make(map[int64]*Account),
		chats:    make(map[int32]*Chat),
		groups:   make(map[int32]*Group),
	}
}

func cloneAccount(a *Account) *Account {
	cp := *a
	cp.Contacts = append(make([]Contact, 0, len(a.Contacts)), a.Contacts...)
	cp.Groups = append(make([]GroupRef, 0, len(a.Groups)), a.Groups...)
	return &cp
}

func (s *MemStore) InsertAccount(ctx context.Context, acc *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[acc.ID]; exists {
		return errs.NewCodeError(errs.CodeValidation, "account already exists")
	}
	if acc.Contacts == nil {
		acc.Contacts = []Contact{}
	}
	if acc.Groups == nil {
		acc.Groups = []GroupRef{}
	}
	s.accounts[acc.ID] = cloneAccount(acc)
	return nil
}

func (s *MemStore) FindAccount(ctx context.Context, id int64) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAccount(acc), nil
}

func (s *MemStore) SetAccountStatus(ctx context.Context, id int64, status bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.Status = status
	return nil
}

func (s *MemStore) SetAccountImage(ctx context.Context, id int64, imageURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.ImageURL = imageURL
	return nil
}

func (s *MemStore) SetAccountProfile(ctx context.Context, id int64, firstName, lastName, hashedPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.FirstName, acc.LastName = firstName, lastName
	if hashedPassword != "" {
		acc.HashedPassword = hashedPassword
	}
	return nil
}

func (s *MemStore) SetAccountPassword(ctx context.Context, id int64, hashedPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.HashedPassword = hashedPassword
	return nil
}

func (s *MemStore) PushContact(ctx context.Context, id int64, c Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.Contacts = append(acc.Contacts, c)
	return nil
}

func (s *MemStore) IncContactUnread(ctx context.Context, id int64, chatID int32, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	for i := range acc.Contacts {
		if acc.Contacts[i].ChatID == chatID {
			acc.Contacts[i].UnreadMessages += delta
			if acc.Contacts[i].UnreadMessages < 0 {
				acc.Contacts[i].UnreadMessages = 0
			}
			return nil
		}
	}
	return nil
}

func (s *MemStore) ResetContactUnread(ctx context.Context, id int64, chatID int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	for i := range acc.Contacts {
		if acc.Contacts[i].ChatID == chatID {
			acc.Contacts[i].UnreadMessages = 0
			return nil
		}
	}
	return nil
}

func (s *MemStore) PushGroupRef(ctx context.Context, id int64, g GroupRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.Groups = append(acc.Groups, g)
	return nil
}

func (s *MemStore) RemoveGroupRef(ctx context.Context, id int64, groupID int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	out := acc.Groups[:0]
	for _, g := range acc.Groups {
		if g.GroupID != groupID {
			out = append(out, g)
		}
	}
	acc.Groups = out
	return nil
}

func (s *MemStore) IncGroupUnread(ctx context.Context, id int64, groupID int32, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	for i := range acc.Groups {
		if acc.Groups[i].GroupID == groupID {
			acc.Groups[i].GroupUnreadMessages += delta
			if acc.Groups[i].GroupUnreadMessages < 0 {
				acc.Groups[i].GroupUnreadMessages = 0
			}
			return nil
		}
	}
	return nil
}

func (s *MemStore) ResetGroupUnread(ctx context.Context, id int64, groupID int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	for i := range acc.Groups {
		if acc.Groups[i].GroupID == groupID {
			acc.Groups[i].GroupUnreadMessages = 0
			return nil
		}
	}
	return nil
}

func (s *MemStore) FetchContactsAndChats(ctx context.Context, accountID int64) ([]ContactChat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]ContactChat, 0, len(acc.Contacts))
	for _, c := range acc.Contacts {
		var info ContactInfo
		if peer, ok := s.accounts[c.ContactID]; ok {
			info = ContactInfo{ID: peer.ID, FirstName: peer.FirstName, LastName: peer.LastName, Status: peer.Status, ImageURL: peer.ImageURL}
		}
		var msgs []Message
		if chat, ok := s.chats[c.ChatID]; ok {
			msgs = append(msgs, chat.Messages...)
		}
		out = append(out, ContactChat{
			ContactInfo:    info,
			ChatID:         c.ChatID,
			UnreadMessages: c.UnreadMessages,
			ChatMessages:   msgs,
		})
	}
	return out, nil
}

func (s *MemStore) FetchGroupsAndChats(ctx context.Context, accountID int64) ([]GroupChat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]GroupChat, 0, len(acc.Groups))
	for _, gref := range acc.Groups {
		g, ok := s.groups[gref.GroupID]
		if !ok {
			continue
		}
		out = append(out, GroupChat{
			ID:                  g.ID,
			GroupName:           g.GroupName,
			GroupUnreadMessages: gref.GroupUnreadMessages,
			GroupImageURL:       g.GroupImageURL,
			GroupAdmin:          g.GroupAdmin,
			GroupMembers:        append([]int64(nil), g.GroupMembers...),
			GroupMessages:       append([]GroupMessage(nil), g.GroupMessages...),
		})
	}
	return out, nil
}

func (s *MemStore) FetchContactIDs(ctx context.Context, accountID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, nil
	}
	seen := make(map[int64]struct{}, len(acc.Contacts))
	out := make([]int64, 0, len(acc.Contacts))
	for _, c := range acc.Contacts {
		if _, ok := seen[c.ContactID]; ok {
			continue
		}
		seen[c.ContactID] = struct{}{}
		out = append(out, c.ContactID)
	}
	return out, nil
}

func (s *MemStore) NewChat(ctx context.Context, firstMessage Message) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; attempt < 8; attempt++ {
		chatID := ids.Generate()
		if _, exists := s.chats[chatID]; exists {
			continue
		}
		firstMessage.Sender = int64(chatID)
		s.chats[chatID] = &Chat{ID: chatID, Messages: []Message{firstMessage}}
		return chatID, nil
	}
	return 0, errs.NewCodeError(errs.CodeStore, "exhausted chatID retries")
}

func (s *MemStore) AppendChatMessage(ctx context.Context, chatID int32, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[chatID]
	if !ok {
		return ErrNotFound
	}
	chat.Messages = append(chat.Messages, m)
	return nil
}

func (s *MemStore) DeleteChatMessage(ctx context.Context, chatID int32, fullTime string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[chatID]
	if !ok {
		return nil
	}
	out := chat.Messages[:0]
	for _, m := range chat.Messages {
		if m.Time != fullTime {
			out = append(out, m)
		}
	}
	chat.Messages = out
	return nil
}

func (s *MemStore) NewGroup(ctx context.Context, g *Group) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.GroupMessages == nil {
		g.GroupMessages = []GroupMessage{}
	}
	for attempt := 0; attempt < 8; attempt++ {
		groupID := ids.Generate()
		if _, exists := s.groups[groupID]; exists {
			continue
		}
		g.ID = groupID
		cp := *g
		cp.GroupMembers = append([]int64(nil), g.GroupMembers...)
		cp.GroupMessages = append([]GroupMessage(nil), g.GroupMessages...)
		s.groups[groupID] = &cp
		return groupID, nil
	}
	return 0, errs.NewCodeError(errs.CodeStore, "exhausted groupID retries")
}

func (s *MemStore) FindGroup(ctx context.Context, groupID int32) (*Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	cp.GroupMembers = append([]int64(nil), g.GroupMembers...)
	cp.GroupMessages = append([]GroupMessage(nil), g.GroupMessages...)
	return &cp, nil
}

func (s *MemStore) SetGroupImage(ctx context.Context, groupID int32, imageURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return ErrNotFound
	}
	g.GroupImageURL = imageURL
	return nil
}

func (s *MemStore) AddGroupMembers(ctx context.Context, groupID int32, members []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return ErrNotFound
	}
	existing := make(map[int64]struct{}, len(g.GroupMembers))
	for _, m := range g.GroupMembers {
		existing[m] = struct{}{}
	}
	for _, m := range members {
		if _, ok := existing[m]; !ok {
			g.GroupMembers = append(g.GroupMembers, m)
			existing[m] = struct{}{}
		}
	}
	return nil
}

func (s *MemStore) RemoveGroupMembers(ctx context.Context, groupID int32, members []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return ErrNotFound
	}
	drop := make(map[int64]struct{}, len(members))
	for _, m := range members {
		drop[m] = struct{}{}
	}
	out := g.GroupMembers[:0]
	for _, m := range g.GroupMembers {
		if _, ok := drop[m]; !ok {
			out = append(out, m)
		}
	}
	g.GroupMembers = out
	return nil
}

func (s *MemStore) AppendGroupMessage(ctx context.Context, groupID int32, m GroupMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return ErrNotFound
	}
	g.GroupMessages = append(g.GroupMessages, m)
	return nil
}

func (s *MemStore) DeleteGroupMessage(ctx context.Context, groupID int32, fullTime string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil
	}
	out := g.GroupMessages[:0]
	for _, m := range g.GroupMessages {
		if m.Time != fullTime {
			out = append(out, m)
		}
	}
	g.GroupMessages = out
	return nil
}

func (s *MemStore) DeleteAccountCascade(ctx context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return nil
	}

	for _, gref := range acc.Groups {
		if g, ok := s.groups[gref.GroupID]; ok {
			out := g.GroupMembers[:0]
			for _, m := range g.GroupMembers {
				if m != accountID {
					out = append(out, m)
				}
			}
			g.GroupMembers = out
		}
	}

	for _, c := range acc.Contacts {
		for _, other := range s.accounts {
			out := other.Contacts[:0]
			for _, oc := range other.Contacts {
				if oc.ChatID != c.ChatID {
					out = append(out, oc)
				}
			}
			other.Contacts = out
		}
		delete(s.chats, c.ChatID)
	}

	delete(s.accounts, accountID)
	return nil
}
