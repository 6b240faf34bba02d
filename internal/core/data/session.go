package data

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Session is one accepted client connection, from accept to disconnect.
type Session struct {
	ID             uint64 `gorm:"primaryKey"`
	PeerAddress    string `gorm:"not null"`
	ConnectedAt    time.Time
	DisconnectedAt *time.Time
}

// Message is one text payload received from a client during a Session.
type Message struct {
	ID         uint64 `gorm:"primaryKey"`
	SessionID  uint64 `gorm:"index; not null"`
	Body       string
	ReceivedAt time.Time
}

// CreateSession opens a session record for a newly accepted connection.
func CreateSession(db *gorm.DB, peerAddress string) (*Session, error) {
	session := &Session{
		PeerAddress: peerAddress,
		ConnectedAt: time.Now(),
	}
	if err := db.Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// CloseSession stamps the session's disconnect time.
func CloseSession(db *gorm.DB, id uint64) error {
	now := time.Now()
	return db.Model(&Session{}).Where("id = ?", id).Update("disconnected_at", &now).Error
}

// FindSessionByID returns the session with the specified ID, or nil if there
// is no match.
func FindSessionByID(db *gorm.DB, id uint64) (*Session, error) {
	var session Session
	err := db.First(&session, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &session, nil
}

// RecordMessage stores one received payload against its session.
func RecordMessage(db *gorm.DB, sessionID uint64, body string) error {
	return db.Create(&Message{
		SessionID:  sessionID,
		Body:       body,
		ReceivedAt: time.Now(),
	}).Error
}

// FindMessagesBySession returns every payload received during the specified
// session in the order it arrived.
func FindMessagesBySession(db *gorm.DB, sessionID uint64) ([]Message, error) {
	var messages []Message
	err := db.Where("session_id = ?", sessionID).Order("id").Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}
