package account

import (
	"context"
	"testing"
)

func TestMemStoreInsertAndFindAccount(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	acc := &Account{ID: 15550001, FirstName: "Ada", LastName: "Lovelace"}
	if err := s.InsertAccount(ctx, acc); err != nil {
		t.Fatalf("InsertAccount: %v", err)
	}

	if err := s.InsertAccount(ctx, acc); err == nil {
		t.Fatalf("InsertAccount: expected duplicate id to fail")
	}

	got, err := s.FindAccount(ctx, 15550001)
	if err != nil {
		t.Fatalf("FindAccount: %v", err)
	}
	if got.FirstName != "Ada" {
		t.Errorf("FirstName = %q, want Ada", got.FirstName)
	}
	if got.Contacts == nil || got.Groups == nil {
		t.Errorf("Contacts/Groups should default to empty slices, not nil")
	}

	if _, err := s.FindAccount(ctx, 99999999); err != ErrNotFound {
		t.Errorf("FindAccount(missing): got %v, want ErrNotFound", err)
	}
}

func TestMemStoreFindAccountReturnsACopy(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	_ = s.InsertAccount(ctx, &Account{ID: 1, FirstName: "Grace"})

	got, _ := s.FindAccount(ctx, 1)
	got.FirstName = "Mutated"

	again, _ := s.FindAccount(ctx, 1)
	if again.FirstName != "Grace" {
		t.Errorf("FindAccount leaked a mutable reference to internal state")
	}
}

func TestMemStoreContactUnreadCounters(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	_ = s.InsertAccount(ctx, &Account{ID: 1})
	_ = s.PushContact(ctx, 1, Contact{ContactID: 2, ChatID: 100})

	_ = s.IncContactUnread(ctx, 1, 100, 1)
	_ = s.IncContactUnread(ctx, 1, 100, 1)
	acc, _ := s.FindAccount(ctx, 1)
	if acc.Contacts[0].UnreadMessages != 2 {
		t.Fatalf("UnreadMessages = %d, want 2", acc.Contacts[0].UnreadMessages)
	}

	_ = s.ResetContactUnread(ctx, 1, 100)
	acc, _ = s.FindAccount(ctx, 1)
	if acc.Contacts[0].UnreadMessages != 0 {
		t.Errorf("UnreadMessages after reset = %d, want 0", acc.Contacts[0].UnreadMessages)
	}

	// a decrement below zero must clamp, never go negative.
	_ = s.IncContactUnread(ctx, 1, 100, -5)
	acc, _ = s.FindAccount(ctx, 1)
	if acc.Contacts[0].UnreadMessages != 0 {
		t.Errorf("UnreadMessages went negative: %d", acc.Contacts[0].UnreadMessages)
	}
}

func TestMemStoreNewChatStampsSenderWithChatID(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	chatID, err := s.NewChat(ctx, Message{Message: "Server: New Conversation", Time: "10:00"})
	if err != nil {
		t.Fatalf("NewChat: %v", err)
	}

	chat, ok := s.chats[chatID]
	if !ok {
		t.Fatalf("chat %d not stored", chatID)
	}
	if len(chat.Messages) != 1 {
		t.Fatalf("seed chat has %d messages, want 1", len(chat.Messages))
	}
	if chat.Messages[0].Sender != int64(chatID) {
		t.Errorf("seed message Sender = %d, want chatID %d", chat.Messages[0].Sender, chatID)
	}
}

func TestMemStoreGroupMembershipAndMessages(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	groupID, err := s.NewGroup(ctx, &Group{GroupName: "Team", GroupAdmin: 1, GroupMembers: []int64{1}})
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}

	if err := s.AddGroupMembers(ctx, groupID, []int64{2, 3, 2}); err != nil {
		t.Fatalf("AddGroupMembers: %v", err)
	}
	g, err := s.FindGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("FindGroup: %v", err)
	}
	if len(g.GroupMembers) != 3 {
		t.Fatalf("GroupMembers = %v, want 3 unique members", g.GroupMembers)
	}

	if err := s.RemoveGroupMembers(ctx, groupID, []int64{2}); err != nil {
		t.Fatalf("RemoveGroupMembers: %v", err)
	}
	g, _ = s.FindGroup(ctx, groupID)
	for _, m := range g.GroupMembers {
		if m == 2 {
			t.Errorf("member 2 still present after RemoveGroupMembers")
		}
	}

	if err := s.AppendGroupMessage(ctx, groupID, GroupMessage{SenderID: 1, Time: "09:00", Message: "hi"}); err != nil {
		t.Fatalf("AppendGroupMessage: %v", err)
	}
	g, _ = s.FindGroup(ctx, groupID)
	if len(g.GroupMessages) != 1 {
		t.Fatalf("GroupMessages = %d, want 1", len(g.GroupMessages))
	}

	if err := s.DeleteGroupMessage(ctx, groupID, "09:00"); err != nil {
		t.Fatalf("DeleteGroupMessage: %v", err)
	}
	g, _ = s.FindGroup(ctx, groupID)
	if len(g.GroupMessages) != 0 {
		t.Errorf("GroupMessages after delete = %d, want 0", len(g.GroupMessages))
	}
}

func TestMemStoreDeleteAccountCascade(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	_ = s.InsertAccount(ctx, &Account{ID: 1})
	_ = s.InsertAccount(ctx, &Account{ID: 2})
	chatID, _ := s.NewChat(ctx, Message{Message: "seed"})
	_ = s.PushContact(ctx, 1, Contact{ContactID: 2, ChatID: chatID})
	_ = s.PushContact(ctx, 2, Contact{ContactID: 1, ChatID: chatID})

	groupID, _ := s.NewGroup(ctx, &Group{GroupMembers: []int64{1, 2}})
	_ = s.PushGroupRef(ctx, 1, GroupRef{GroupID: groupID})

	if err := s.DeleteAccountCascade(ctx, 1); err != nil {
		t.Fatalf("DeleteAccountCascade: %v", err)
	}

	if _, err := s.FindAccount(ctx, 1); err != ErrNotFound {
		t.Errorf("account 1 should be gone, got err=%v", err)
	}

	peer, err := s.FindAccount(ctx, 2)
	if err != nil {
		t.Fatalf("FindAccount(2): %v", err)
	}
	if len(peer.Contacts) != 0 {
		t.Errorf("peer still has the shared contact entry: %v", peer.Contacts)
	}

	if _, ok := s.chats[chatID]; ok {
		t.Errorf("shared chat %d should have been deleted", chatID)
	}

	g, err := s.FindGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("FindGroup: %v", err)
	}
	for _, m := range g.GroupMembers {
		if m == 1 {
			t.Errorf("deleted account 1 still listed as a group member")
		}
	}

	// deleting again must be a harmless no-op, not an error.
	if err := s.DeleteAccountCascade(ctx, 1); err != nil {
		t.Errorf("DeleteAccountCascade on an already-deleted account: %v", err)
	}
}

func TestMemStoreFetchContactsAndChatsIncludesChatlessContact(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	_ = s.InsertAccount(ctx, &Account{ID: 1})
	_ = s.InsertAccount(ctx, &Account{ID: 2, FirstName: "Bob"})
	// a contact pointing at a chatID that was never created (or already
	// deleted) must still surface in the join, not be silently dropped.
	_ = s.PushContact(ctx, 1, Contact{ContactID: 2, ChatID: 404})

	out, err := s.FetchContactsAndChats(ctx, 1)
	if err != nil {
		t.Fatalf("FetchContactsAndChats: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d contacts, want 1", len(out))
	}
	if out[0].ContactInfo.FirstName != "Bob" {
		t.Errorf("ContactInfo.FirstName = %q, want Bob", out[0].ContactInfo.FirstName)
	}
	if out[0].ChatMessages != nil {
		t.Errorf("ChatMessages = %v, want nil for a chat that doesn't exist", out[0].ChatMessages)
	}
}
