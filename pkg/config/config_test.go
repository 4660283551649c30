package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCSV(t *testing.T) {
	require.Nil(t, CSV(""))
	require.Equal(t, []string{"a:9092", "b:9092"}, CSV(" a:9092 ,, b:9092 "))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FOODYY_API_URL", "http://backend:8080/")
	t.Setenv("API_TIMEOUT", "bogus")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := Load()
	require.Equal(t, "http://backend:8080", cfg.APIURL)
	require.Equal(t, 15*time.Second, cfg.APITimeout)
	require.Equal(t, "127.0.0.1:5173", cfg.ListenAddr)
	require.Equal(t, "storefront.db", cfg.SessionDSN)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "storefront_events", cfg.KafkaTopic)
}

func TestEnvIntDefault(t *testing.T) {
	t.Setenv("N", "12")
	require.Equal(t, 12, EnvIntDefault("N", 3))
	t.Setenv("N", "x")
	require.Equal(t, 3, EnvIntDefault("N", 3))
}
