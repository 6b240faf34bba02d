package data

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/go-test/deep"
	"gorm.io/gorm"
)

// Creates a database for testing. For the sake of simplicity, this only uses the
// SQLite engine and creates a new database on every invocation since it is
// relatively cheap to do so.
func setUpDatabase(t *testing.T) *gorm.DB {
	testDBFile := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(testDBFile))
	if err != nil {
		t.Fatalf("error initializing test database: %s", err)
	}

	if err = db.AutoMigrate(&Session{}, &Message{}); err != nil {
		t.Fatalf("error auto migrating db: %s", err)
	}
	return db
}

func TestCreateAndFindSession(t *testing.T) {
	db := setUpDatabase(t)

	session, err := CreateSession(db, "127.0.0.1:54321")
	if err != nil {
		t.Fatalf("CreateSession() returned error: %s", err)
	}
	if session.ID == 0 {
		t.Fatal("CreateSession() did not assign an ID")
	}

	found, err := FindSessionByID(db, session.ID)
	if err != nil {
		t.Fatalf("FindSessionByID() returned error: %s", err)
	}
	if found == nil {
		t.Fatal("FindSessionByID() did not find the created session")
	}

	if diff := deep.Equal(session.PeerAddress, found.PeerAddress); diff != nil {
		t.Error(diff)
	}
	if found.DisconnectedAt != nil {
		t.Error("expected a fresh session to have no disconnect time")
	}
}

func TestFindSessionByID_NoMatch(t *testing.T) {
	db := setUpDatabase(t)

	found, err := FindSessionByID(db, 42)
	if err != nil {
		t.Fatalf("FindSessionByID() returned error: %s", err)
	}
	if found != nil {
		t.Errorf("expected no session, found: %v", found)
	}
}

func TestCloseSession(t *testing.T) {
	db := setUpDatabase(t)

	session, err := CreateSession(db, "127.0.0.1:54321")
	if err != nil {
		t.Fatalf("CreateSession() returned error: %s", err)
	}

	if err := CloseSession(db, session.ID); err != nil {
		t.Fatalf("CloseSession() returned error: %s", err)
	}

	found, err := FindSessionByID(db, session.ID)
	if err != nil {
		t.Fatalf("FindSessionByID() returned error: %s", err)
	}
	if found.DisconnectedAt == nil {
		t.Error("expected a closed session to have a disconnect time")
	}
}

func TestRecordMessage(t *testing.T) {
	db := setUpDatabase(t)

	session, err := CreateSession(db, "127.0.0.1:54321")
	if err != nil {
		t.Fatalf("CreateSession() returned error: %s", err)
	}

	for _, body := range []string{"ping", "pong"} {
		if err := RecordMessage(db, session.ID, body); err != nil {
			t.Fatalf("RecordMessage(%q) returned error: %s", body, err)
		}
	}

	messages, err := FindMessagesBySession(db, session.ID)
	if err != nil {
		t.Fatalf("FindMessagesBySession() returned error: %s", err)
	}

	var bodies []string
	for _, m := range messages {
		bodies = append(bodies, m.Body)
	}
	if diff := deep.Equal([]string{"ping", "pong"}, bodies); diff != nil {
		t.Error(diff)
	}
}
