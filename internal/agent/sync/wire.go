package sync

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/tracelight/agent/internal/agent/models"
	"github.com/tracelight/agent/internal/cryptox"
)

// maxBatchSize caps the number of events transmitted per sync.
const maxBatchSize = 100

// timestampTolerance is how far into the future an event timestamp may sit
// before it is replaced with the current time. Covers small clock skew
// between capture and sync.
const timestampTolerance = time.Minute

// wireEvent is the on-the-wire shape of one encrypted event. The GCM tag
// travels separately from the ciphertext; the nonce is hex, both ciphertext
// and tag are standard base64.
type wireEvent struct {
	ID            string `json:"id"`
	EventType     string `json:"event_type"`
	Timestamp     int64  `json:"timestamp"`
	Duration      int    `json:"duration"`
	EncryptedData string `json:"encrypted_data"`
	Nonce         string `json:"nonce"`
	Tag           string `json:"tag"`
	AppName       string `json:"app_name"`
	Category      string `json:"category,omitempty"`
}

type syncRequest struct {
	DeviceID string      `json:"device_id"`
	Events   []wireEvent `json:"events"`
}

type syncResponse struct {
	Synced   int    `json:"synced"`
	Failed   int    `json:"failed"`
	SyncTime string `json:"sync_time"`
}

// buildWireEvents encrypts each event's window title (falling back to the
// application name when no title was captured) and assembles the transport
// records. Timestamps are clamped against now before conversion to millis.
func buildWireEvents(c *cryptox.Cryptor, events []models.StoredEvent, now time.Time) ([]wireEvent, error) {
	out := make([]wireEvent, 0, len(events))
	for _, e := range events {
		plaintext := e.AppName
		if e.WindowTitle != nil {
			plaintext = *e.WindowTitle
		}

		sealed, nonce, err := c.Encrypt([]byte(plaintext))
		if err != nil {
			return nil, fmt.Errorf("%w: event %s: %v", ErrEncryption, e.ID, err)
		}
		if len(sealed) < cryptox.TagSize {
			return nil, fmt.Errorf("%w: event %s: sealed payload too short", ErrEncryption, e.ID)
		}
		body := sealed[:len(sealed)-cryptox.TagSize]
		tag := sealed[len(sealed)-cryptox.TagSize:]

		out = append(out, wireEvent{
			ID:            e.ID,
			EventType:     e.EventType,
			Timestamp:     clampTimestamp(e.Timestamp, now).UnixMilli(),
			Duration:      e.Duration,
			EncryptedData: base64.StdEncoding.EncodeToString(body),
			Nonce:         hex.EncodeToString(nonce),
			Tag:           base64.StdEncoding.EncodeToString(tag),
			AppName:       e.AppName,
			Category:      categorize(e.AppName),
		})
	}
	return out, nil
}

// clampTimestamp replaces timestamps more than timestampTolerance in the
// future with now. Past timestamps pass through untouched.
func clampTimestamp(ts, now time.Time) time.Time {
	if ts.After(now.Add(timestampTolerance)) {
		return now
	}
	return ts
}

var categoryRules = []struct {
	category string
	keywords []string
}{
	{"work", []string{"chrome", "firefox", "edge"}},
	{"development", []string{"code", "idea", "visual"}},
	{"communication", []string{"slack", "teams", "zoom"}},
	{"entertainment", []string{"spotify", "netflix", "vlc"}},
	{"productivity", []string{"word", "excel", "powerpoint"}},
	{"gaming", []string{"steam", "game"}},
}

// categorize maps an application name onto a coarse usage category by
// case-insensitive substring match. First matching rule wins.
func categorize(appName string) string {
	name := strings.ToLower(appName)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(name, kw) {
				return rule.category
			}
		}
	}
	return "other"
}
