package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersXML = `<?xml version="1.0" ?>
<users>
  <user>
    <id>1001</id>
    <usuario> ana </usuario>
    <nombre>Ana Ruiz</nombre>
    <contrasena>s3cret
    </contrasena>
  </user>
  <user>
    <usuario>luis</usuario>
    <contrasena>pw</contrasena>
  </user>
</users>
`

func writeUsers(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "usuarios.xml")
	require.NoError(t, os.WriteFile(path, []byte(usersXML), 0600))
	return path
}

func TestMissingFileHasNoCredentials(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.xml"))
	require.NoError(t, err)
	assert.Zero(t, s.Len())
	assert.False(t, s.Check("ana", "s3cret"))
	assert.False(t, s.Check("", ""))
}

func TestCheckTrimsAndMatchesExactly(t *testing.T) {
	s, err := Load(writeUsers(t))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	assert.True(t, s.Check("ana", "s3cret"))
	assert.True(t, s.Check("  ana", "s3cret  "))
	assert.False(t, s.Check("Ana", "s3cret"))
	assert.False(t, s.Check("ana", "pw"))
	assert.False(t, s.Check("nobody", "pw"))

	u, ok := s.Lookup("ana")
	require.True(t, ok)
	assert.Equal(t, "Ana Ruiz", u.Name)
}

func TestMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xml")
	require.NoError(t, os.WriteFile(path, []byte("<users><user>"), 0600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestAddAndSave(t *testing.T) {
	path := writeUsers(t)
	s, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, s.Add(User{Username: "marta", Password: "x1"}))
	assert.ErrorIs(t, s.Add(User{Username: "luis", Password: "other"}), ErrDuplicateUser)
	require.NoError(t, s.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Len())
	assert.True(t, reloaded.Check("marta", "x1"))
	assert.True(t, reloaded.Check("ana", "s3cret"))
}
