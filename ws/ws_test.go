package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ppchat/data/blobstore"
	"ppchat/module/account"
	"ppchat/module/registry"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// testServer wires a real gin.Engine + Server around in-memory collaborators
// and serves it over httptest, so handlers run exactly as they do in
// production: through a live websocket connection, not a direct function
// call bypassing Session/dispatch.
func testServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := &Server{
		Store:                account.NewMemStore(),
		Registry:             registry.New(),
		Blobs:                blobstore.NewMemStore(""),
		Hasher:               account.NewArgon2Hasher(),
		DefaultImageURL:      account.DefaultImageURL,
		DefaultGroupImageURL: account.DefaultGroupImageURL,
	}

	r := gin.New()
	srv.Mount(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, srv
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal frame %s: %v", data, err)
	}
	return out
}

func TestSignUpAndLoginRequest(t *testing.T) {
	ts, _ := testServer(t)
	conn := dial(t, ts)

	send(t, conn, map[string]interface{}{
		"type":         TypeSignUp,
		"phone_number": 15550001,
		"first_name":   "Ada",
		"last_name":    "Lovelace",
		"password":     "hunter2",
	})
	reply := readFrame(t, conn)
	if reply["type"] != TypeSignUp {
		t.Fatalf("reply type = %v, want %s", reply["type"], TypeSignUp)
	}
	if status, ok := reply["status"].(bool); !ok || !status {
		t.Fatalf("sign_up status = %#v, want boolean true", reply["status"])
	}

	conn2 := dial(t, ts)
	send(t, conn2, map[string]interface{}{
		"type":         TypeLoginRequest,
		"phone_number": 15550001,
		"password":     "hunter2",
		"time_zone":    "UTC",
	})
	reply = readFrame(t, conn2)
	if reply["type"] != TypeLoginRequest {
		t.Fatalf("reply type = %v, want %s", reply["type"], TypeLoginRequest)
	}
	if status, ok := reply["status"].(bool); !ok || !status {
		t.Fatalf("login_request status = %#v, want boolean true", reply["status"])
	}
}

func TestLoginRequestWrongPasswordFails(t *testing.T) {
	ts, srv := testServer(t)
	mustSignUp(t, srv, 15550002, "wordpass")

	conn := dial(t, ts)
	send(t, conn, map[string]interface{}{
		"type":         TypeLoginRequest,
		"phone_number": 15550002,
		"password":     "not-the-password",
	})
	reply := readFrame(t, conn)
	if status, ok := reply["status"].(bool); !ok || status {
		t.Fatalf("login_request status = %#v, want boolean false", reply["status"])
	}
}

func TestUnauthenticatedSessionRejectsPrivilegedFrame(t *testing.T) {
	ts, _ := testServer(t)
	conn := dial(t, ts)

	// text is not in the pre-auth whitelist; the session must silently
	// drop it rather than dispatch, so no reply frame should arrive on
	// this channel. We confirm indirectly: a subsequent allowed frame
	// (sign_up) still gets its own, distinct reply.
	send(t, conn, map[string]interface{}{
		"type":     TypeText,
		"receiver": 1,
		"message":  "should be dropped",
	})
	send(t, conn, map[string]interface{}{
		"type":         TypeSignUp,
		"phone_number": 15550003,
		"password":     "pw",
	})
	reply := readFrame(t, conn)
	if reply["type"] != TypeSignUp {
		t.Fatalf("expected the sign_up reply to be the first frame received, got %v", reply["type"])
	}
}

func TestLookupFriendAndText(t *testing.T) {
	ts, srv := testServer(t)
	mustSignUp(t, srv, 15550010, "pw1")
	mustSignUp(t, srv, 15550011, "pw2")

	callerConn := loginAndDrain(t, ts, 15550010, "pw1")
	targetConn := loginAndDrain(t, ts, 15550011, "pw2")

	send(t, callerConn, map[string]interface{}{
		"type":         TypeLookupFriend,
		"phone_number": 15550011,
	})
	reply := readFrame(t, callerConn)
	if reply["type"] != TypeLookupFriend || reply["status"] != "succeeded" {
		t.Fatalf("lookup_friend reply = %#v", reply)
	}
	jsonArray, ok := reply["json_array"].([]interface{})
	if !ok || len(jsonArray) != 1 {
		t.Fatalf("lookup_friend json_array = %#v", reply["json_array"])
	}
	entry := jsonArray[0].(map[string]interface{})
	chatID := entry["chatID"].(float64)

	// the target, being online, should have received an added_you push.
	addedYou := readFrame(t, targetConn)
	if addedYou["type"] != TypeAddedYou {
		t.Fatalf("target got %#v, want added_you", addedYou)
	}

	send(t, callerConn, map[string]interface{}{
		"type":     TypeText,
		"receiver": 15550011,
		"message":  "hello there",
		"chatID":   chatID,
		"time":     "10:30",
	})

	echo := readFrame(t, callerConn)
	if echo["type"] != TypeText || echo["message"] != "hello there" {
		t.Fatalf("sender got %#v, want an echo of its own text (spec S4)", echo)
	}

	textFrame := readFrame(t, targetConn)
	if textFrame["type"] != TypeText || textFrame["message"] != "hello there" {
		t.Fatalf("target got %#v, want the relayed text", textFrame)
	}
}

func TestNewGroupFansOutToOnlineMembers(t *testing.T) {
	ts, srv := testServer(t)
	mustSignUp(t, srv, 1, "pw")
	mustSignUp(t, srv, 2, "pw")
	mustSignUp(t, srv, 3, "pw")

	adminConn := loginAndDrain(t, ts, 1, "pw")
	memberConn := loginAndDrain(t, ts, 2, "pw")

	send(t, adminConn, map[string]interface{}{
		"type":          TypeNewGroup,
		"group_name":    "Launch Team",
		"group_members": []int64{1, 2, 3},
	})
	reply := readFrame(t, adminConn)
	if reply["type"] != TypeNewGroup {
		t.Fatalf("new_group reply = %#v", reply)
	}

	pushed := readFrame(t, memberConn)
	if pushed["type"] != TypeAddedToGroup {
		t.Fatalf("member 2 got %#v, want added_to_group", pushed)
	}
}

func mustSignUp(t *testing.T, srv *Server, phone int64, password string) {
	t.Helper()
	hashed, err := srv.Hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	acc := &account.Account{
		ID:             phone,
		ImageURL:       srv.DefaultImageURL,
		HashedPassword: hashed,
		Contacts:       []account.Contact{},
		Groups:         []account.GroupRef{},
	}
	if err := srv.Store.InsertAccount(context.Background(), acc); err != nil {
		t.Fatalf("InsertAccount: %v", err)
	}
}

func loginAndDrain(t *testing.T, ts *httptest.Server, phone int64, password string) *websocket.Conn {
	t.Helper()
	conn := dial(t, ts)
	send(t, conn, map[string]interface{}{
		"type":         TypeLoginRequest,
		"phone_number": phone,
		"password":     password,
		"time_zone":    "UTC",
	})
	reply := readFrame(t, conn)
	if status, ok := reply["status"].(bool); !ok || !status {
		t.Fatalf("login_request for %d failed: %#v", phone, reply)
	}
	return conn
}
