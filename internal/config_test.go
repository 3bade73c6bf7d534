package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", t.TempDir())
	t.Setenv("JWT_SECRET", "s3cret")

	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))

	req.NoError(err)
	req.True(config.AuthEnabled)
	req.Equal(8000, config.HttpPort)
	req.Equal(5*time.Second, config.PersistTimeout)
	req.Equal("chat", config.NatsSubjectPrefix)
	req.Equal("0.0.0.0:9000", config.GrpcAddress())
}

func TestLoadConfig_FromEnvFile(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "test.env")
	req.NoError(os.WriteFile(path, []byte("BADGER_FILEPATH=/tmp/pair-chat\nAUTH_ENABLED=false\nROOM_SHARDS=4\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("BADGER_FILEPATH")
		_ = os.Unsetenv("AUTH_ENABLED")
		_ = os.Unsetenv("ROOM_SHARDS")
	})

	config, err := LoadConfig(path)

	req.NoError(err)
	req.False(config.AuthEnabled)
	req.Equal(4, config.RoomShards)
}

func TestLoadConfig_RequiresSecretWithAuth(t *testing.T) {
	t.Setenv("BADGER_FILEPATH", t.TempDir())
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))

	require.ErrorContains(t, err, "JWT_SECRET")
}

func TestCharacterRune(t *testing.T) {
	r, err := CharacterRune("#")
	require.NoError(t, err)
	require.Equal(t, '#', r)

	_, err = CharacterRune("ab")
	require.Error(t, err)
}
