package call

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"time"

	"courier/internal/config"
	"courier/internal/feed"
)

// GenerateTURNCredentials generates ephemeral TURN credentials using the
// TURN REST API (HMAC-SHA1) scheme compatible with coturn's use-auth-secret.
func GenerateTURNCredentials(secret, userID string, ttl time.Duration) (username, credential string) {
	expiry := time.Now().Add(ttl).Unix()
	username = fmt.Sprintf("%d:%s", expiry, userID)

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(username))
	credential = base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return
}

// BuildICEServers produces the ICE server list handed to a party of an
// accepted call. If TURN is configured (Host non-empty), it returns both a
// STUN and TURN entry. Otherwise it returns nil (the call UI will attempt
// direct connections only).
func BuildICEServers(cfg config.TURNConfig, userID string) []feed.ICEServer {
	if cfg.Host == "" {
		return nil
	}

	stunURL := fmt.Sprintf("stun:%s:%d", cfg.Host, cfg.Port)
	turnURL := fmt.Sprintf("turn:%s:%d", cfg.Host, cfg.Port)

	username, credential := GenerateTURNCredentials(cfg.Secret, userID, cfg.TTL)

	return []feed.ICEServer{
		{URLs: []string{stunURL}},
		{URLs: []string{turnURL}, Username: username, Credential: credential},
	}
}
