package server_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/momentics/wsreactor/api"
	"github.com/momentics/wsreactor/server"
	"github.com/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := server.DefaultConfig()
	if cfg.ListenAddr != "8088" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if !cfg.AutoPong {
		t.Error("AutoPong should default to true")
	}
	if cfg.PinCPU != -1 {
		t.Errorf("PinCPU = %d, want -1", cfg.PinCPU)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfigKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.json")
	body := `{"listen_addr":"127.0.0.1:9001","max_connections":3,"poll_timeout":"50ms"}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := server.LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != "127.0.0.1:9001" || cfg.MaxConnections != 3 {
		t.Errorf("decoded %+v", cfg)
	}
	if cfg.PollTimeout.Std() != 50*time.Millisecond {
		t.Errorf("poll timeout = %v", cfg.PollTimeout.Std())
	}
	def := server.DefaultConfig()
	if cfg.MaxMessageSize != def.MaxMessageSize || cfg.AutoPong != def.AutoPong {
		t.Error("unset fields lost their defaults")
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.json")
	if err := os.WriteFile(path, []byte(`{"max_connections":-1}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := server.LoadConfig(path); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestValidatePinCPU(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.PinCPU = -2
	if err := cfg.Validate(); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
	cfg.PinCPU = 0
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}
