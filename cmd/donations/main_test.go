package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"donations/internal/config"
	apphttp "donations/internal/http"
	"donations/internal/log"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testApp(out *bytes.Buffer) *app {
	return &app{
		cfg: &config.Config{
			Env:         "test",
			DataBackend: "memory",
			JWTSecret:   testSecret,
			JWTIssuer:   "donations",
		},
		logger: log.Discard(),
		stdout: out,
	}
}

func TestTokenCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := &TokenCmd{Subject: "manager-1", Role: apphttp.RoleManager, TTL: time.Hour}
	if err := cmd.Run(testApp(&out)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	actor, err := apphttp.NewAuthenticator(testSecret, "donations").Verify(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if actor.ID != "manager-1" || actor.Role != apphttp.RoleManager {
		t.Errorf("unexpected actor %+v", actor)
	}
}

func TestTokenCmd_RequiresSecret(t *testing.T) {
	var out bytes.Buffer
	a := testApp(&out)
	a.cfg.JWTSecret = ""
	if err := (&TokenCmd{Subject: "u"}).Run(a); err == nil {
		t.Error("expected error without secret")
	}
}

func TestReconcileCmd_Memory(t *testing.T) {
	var out bytes.Buffer
	if err := (&ReconcileCmd{}).Run(testApp(&out)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var report map[string]int
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("report is not JSON: %q", out.String())
	}
	if report["donorsChecked"] != 0 || report["campaignsChecked"] != 0 {
		t.Errorf("empty store report = %v", report)
	}
}

func TestReconcileCmd_PublishNeedsBroker(t *testing.T) {
	var out bytes.Buffer
	if err := (&ReconcileCmd{Publish: true}).Run(testApp(&out)); err == nil {
		t.Error("expected error without AMQP_URL")
	}
}

func TestMigrateCmd_RequiresSQLite(t *testing.T) {
	var out bytes.Buffer
	if err := (&MigrateCmd{}).Run(testApp(&out)); err == nil {
		t.Error("expected error for memory backend")
	}
}

func TestMigrateCmd_SQLite(t *testing.T) {
	var out bytes.Buffer
	a := testApp(&out)
	a.cfg.DataBackend = "sqlite"
	a.cfg.SQLiteDBPath = t.TempDir() + "/donations.db"
	if err := (&MigrateCmd{}).Run(a); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
