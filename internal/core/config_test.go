package core

import (
	"testing"
)

func TestConfig_ServerAddress(t *testing.T) {
	cfg := &Config{Hostname: "127.0.0.1", Port: 12000}

	addr := cfg.ServerAddress()
	expected := "127.0.0.1:12000"
	if addr != expected {
		t.Errorf("ServerAddress() want = %s, got = %s", expected, addr)
	}
}

func TestConfig_DatabaseURL(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Engine = "postgres"
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.Name = "testdb"
	cfg.Database.Username = "testuser"
	cfg.Database.Password = "testpassword"

	url := cfg.DatabaseURL()
	expected := "host=localhost port=5432 dbname=testdb user=testuser password=testpassword sslmode="
	if url != expected {
		t.Errorf("DatabaseURL() want = %s, got = %s", expected, url)
	}
}
