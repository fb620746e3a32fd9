package call

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"strconv"
	"strings"
	"testing"
	"time"

	"courier/internal/config"
)

func TestGenerateTURNCredentials(t *testing.T) {
	username, credential := GenerateTURNCredentials("secret", "usr_1", time.Hour)

	parts := strings.SplitN(username, ":", 2)
	if len(parts) != 2 {
		t.Fatalf("username = %q, want expiry:userID", username)
	}
	if parts[1] != "usr_1" {
		t.Fatalf("username user part = %q, want usr_1", parts[1])
	}

	expiry, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		t.Fatalf("username expiry part %q is not a unix timestamp: %v", parts[0], err)
	}
	if until := time.Until(time.Unix(expiry, 0)); until < 55*time.Minute || until > 65*time.Minute {
		t.Fatalf("expiry is %s away, want about 1h", until)
	}

	mac := hmac.New(sha1.New, []byte("secret"))
	mac.Write([]byte(username))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if credential != want {
		t.Fatalf("credential = %q, want HMAC-SHA1 of username", credential)
	}
}

func TestBuildICEServers(t *testing.T) {
	servers := BuildICEServers(config.TURNConfig{
		Host:   "turn.example.com",
		Port:   3478,
		Secret: "secret",
		TTL:    time.Hour,
	}, "usr_1")

	if len(servers) != 2 {
		t.Fatalf("BuildICEServers() returned %d servers, want 2", len(servers))
	}
	if servers[0].URLs[0] != "stun:turn.example.com:3478" {
		t.Fatalf("stun URL = %q", servers[0].URLs[0])
	}
	if servers[0].Username != "" || servers[0].Credential != "" {
		t.Fatal("stun entry must carry no credentials")
	}
	if servers[1].URLs[0] != "turn:turn.example.com:3478" {
		t.Fatalf("turn URL = %q", servers[1].URLs[0])
	}
	if servers[1].Username == "" || servers[1].Credential == "" {
		t.Fatal("turn entry must carry minted credentials")
	}
}

func TestBuildICEServersUnconfigured(t *testing.T) {
	if servers := BuildICEServers(config.TURNConfig{}, "usr_1"); servers != nil {
		t.Fatalf("BuildICEServers() with no host = %+v, want nil", servers)
	}
}
