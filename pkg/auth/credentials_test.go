package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCookie = "SESSDATA=abcdef1234567890%2C1700000000; bili_jct=0123456789abcdef; buvid3=ABCDEFGH"

func TestCredentialManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	account := &Account{
		Name:      "main",
		Cookie:    "  " + testCookie + "  ",
		UserAgent: "TestAgent/1.0",
	}
	require.NoError(t, manager.Store(account))
	assert.False(t, account.LastModified.IsZero())

	retrieved, err := manager.Retrieve("main")
	require.NoError(t, err)
	assert.Equal(t, "main", retrieved.Name)
	assert.Equal(t, testCookie, retrieved.Cookie)
	assert.Equal(t, "TestAgent/1.0", retrieved.UserAgent)

	accounts, err := manager.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	require.NoError(t, manager.Delete("main"))
	_, err = manager.Retrieve("main")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.Zero(t, mockStore.Count())

	assert.ErrorIs(t, manager.Delete("main"), ErrCredentialsNotFound)
}

func TestManagerStoreValidation(t *testing.T) {
	manager, _ := NewMockManager()

	assert.Error(t, manager.Store(nil))
	assert.Error(t, manager.Store(&Account{Cookie: testCookie}))
	assert.Error(t, manager.Store(&Account{Name: "x", Cookie: "   "}))
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keychain locked")
	working := NewMockStore()
	manager := NewMockManagerWithStores(broken, working)

	require.NoError(t, manager.Store(&Account{Name: "main", Cookie: testCookie}))
	assert.Zero(t, broken.Count())
	assert.Equal(t, 1, working.Count())
}

func TestManagerListNewestFirst(t *testing.T) {
	a, b := NewMockStore(), NewMockStore()
	now := time.Now()
	require.NoError(t, a.Store(&Account{Name: "old", Cookie: "x", LastModified: now.Add(-time.Hour)}))
	require.NoError(t, a.Store(&Account{Name: "dup", Cookie: "stale", LastModified: now.Add(-2 * time.Hour)}))
	require.NoError(t, b.Store(&Account{Name: "dup", Cookie: "fresh", LastModified: now}))
	manager := NewMockManagerWithStores(a, b)

	accounts, err := manager.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "dup", accounts[0].Name)
	assert.Equal(t, "fresh", accounts[0].Cookie)
	assert.Equal(t, "old", accounts[1].Name)

	def, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "dup", def.Name)
}

func TestRetrieveDefaultPrefersEnvironment(t *testing.T) {
	t.Setenv(EnvCookie, "SESSDATA=fromenv")
	store := NewMockStore()
	require.NoError(t, store.Store(&Account{Name: "main", Cookie: testCookie, LastModified: time.Now()}))
	manager := NewMockManagerWithStores(store, NewEnvironmentStore())

	def, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "env", def.Name)
	assert.Equal(t, "SESSDATA=fromenv", def.Cookie)

	named, err := manager.Retrieve("main")
	require.NoError(t, err)
	assert.Equal(t, testCookie, named.Cookie)
}

func TestRetrieveDefaultEmpty(t *testing.T) {
	t.Setenv(EnvCookie, "")
	manager, _ := NewMockManager()
	_, err := manager.RetrieveDefault()
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(EnvPassphrase, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "creds", "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Store(&Account{Name: "main", Cookie: testCookie}))
	require.NoError(t, store.Store(&Account{Name: "alt", Cookie: "SESSDATA=second"}))

	retrieved, err := store.Retrieve("main")
	require.NoError(t, err)
	assert.Equal(t, testCookie, retrieved.Cookie)
	assert.True(t, store.Exists("alt"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "SESSDATA")
	assert.NotContains(t, string(content), "bili_jct")

	// A fresh store with the same passphrase reads the same file.
	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	accounts, err := reopened.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	require.NoError(t, reopened.Delete("alt"))
	require.NoError(t, reopened.Delete("main"))
	assert.NoFileExists(t, path)
	assert.ErrorIs(t, reopened.Delete("main"), ErrCredentialsNotFound)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(EnvPassphrase, "first")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Name: "main", Cookie: testCookie}))

	t.Setenv(EnvPassphrase, "second")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve("main")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(EnvPassphrase, "")
	dir := t.TempDir()

	store, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Name: "main", Cookie: testCookie}))

	pass, err := os.ReadFile(filepath.Join(dir, ".passphrase"))
	require.NoError(t, err)
	assert.NotEmpty(t, pass)

	reopened, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	_, err = reopened.Retrieve("main")
	assert.NoError(t, err)
}

func TestNormalizeCookie(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "already clean",
			raw:  testCookie,
			want: testCookie,
		},
		{
			name: "volatile pairs dropped",
			raw:  "buvid3=B; bili_ticket=eyJhbGciOi; bili_ticket_expires=1700259200; b_lsid=ABC_1; SESSDATA=s",
			want: "buvid3=B; SESSDATA=s",
		},
		{
			name: "whitespace and empty pairs",
			raw:  " ;SESSDATA = s ;; empty= ; novalue; buvid3=B; ",
			want: "SESSDATA=s; buvid3=B",
		},
		{
			name: "repeated name keeps last value",
			raw:  "buvid3=old; sid=x; buvid3=new",
			want: "buvid3=new; sid=x",
		},
		{
			name:    "no session or device id",
			raw:     "bili_jct=0123; sid=x",
			wantErr: true,
		},
		{
			name:    "only volatile",
			raw:     "bili_ticket=t",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeCookie(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCredentials)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncryptedFileStoreNormalizesCookie(t *testing.T) {
	t.Setenv(EnvPassphrase, "pass")
	store, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "credentials.enc"))
	require.NoError(t, err)

	account := &Account{Name: "main", Cookie: "buvid3=B; bili_ticket=eyJ; SESSDATA=s; buvid3=C"}
	require.NoError(t, store.Store(account))
	assert.Equal(t, "buvid3=B; bili_ticket=eyJ; SESSDATA=s; buvid3=C", account.Cookie, "caller's account is left alone")

	got, err := store.Retrieve("main")
	require.NoError(t, err)
	assert.Equal(t, "buvid3=C; SESSDATA=s", got.Cookie)

	err = store.Store(&Account{Name: "guest", Cookie: "bili_jct=0123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, store.Exists("guest"))
}

func TestEncryptedFileStoreListSortedByName(t *testing.T) {
	t.Setenv(EnvPassphrase, "pass")
	store, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "credentials.enc"))
	require.NoError(t, err)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, store.Store(&Account{Name: name, Cookie: "buvid3=" + name}))
	}

	accounts, err := store.List()
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, "alpha", accounts[0].Name)
	assert.Equal(t, "mid", accounts[1].Name)
	assert.Equal(t, "zeta", accounts[2].Name)
	assert.Equal(t, "buvid3=zeta", accounts[2].Cookie)
}

func TestManagerStoreNormalizesCookie(t *testing.T) {
	manager, store := NewMockManager()

	require.NoError(t, manager.Store(&Account{Name: "main", Cookie: "SESSDATA=s; bili_ticket=t"}))
	got, err := store.Retrieve("main")
	require.NoError(t, err)
	assert.Equal(t, "SESSDATA=s", got.Cookie)

	assert.ErrorIs(t, manager.Store(&Account{Name: "x", Cookie: "sid=1"}), ErrInvalidCredentials)
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv(EnvCookie, "SESSDATA=env_session")
	t.Setenv(EnvUserAgent, "EnvAgent/1.0")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "env", account.Name)
	assert.Equal(t, "SESSDATA=env_session", account.Cookie)
	assert.Equal(t, "EnvAgent/1.0", account.UserAgent)

	_, err = store.Retrieve("someone")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	assert.ErrorIs(t, store.Store(&Account{}), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("env"), ErrStoreUnavailable)
	assert.True(t, store.Exists("env"))

	t.Setenv(EnvCookie, "")
	accounts, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestNewManagerAt(t *testing.T) {
	t.Setenv(EnvPassphrase, "pass")
	t.Setenv(EnvCookie, "")
	dir := t.TempDir()

	manager, err := NewManagerAt(dir, false)
	require.NoError(t, err)
	require.NoError(t, manager.Store(&Account{Name: "main", Cookie: testCookie}))

	assert.FileExists(t, filepath.Join(dir, "credentials.enc"))
	got, err := manager.Retrieve("main")
	require.NoError(t, err)
	assert.Equal(t, testCookie, got.Cookie)
}

func TestSanitizeAccount(t *testing.T) {
	assert.Nil(t, SanitizeAccount(nil))

	s := SanitizeAccount(&Account{Name: "main", Cookie: testCookie, UserAgent: "UA"})
	assert.Equal(t, "main", s.Name)
	assert.Equal(t, "UA", s.UserAgent)
	assert.Equal(t, "SESSDATA=abcd...0000; bili_jct=0123...cdef; buvid3=********", s.Cookie)
}

func TestHasSession(t *testing.T) {
	assert.True(t, HasSession(testCookie))
	assert.False(t, HasSession("buvid3=x; SESSDATA="))
	assert.False(t, HasSession(""))
}

func TestMockStore(t *testing.T) {
	store := NewMockStore()

	accounts, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)

	require.NoError(t, store.Store(&Account{Name: "mock", Cookie: "c"}))
	assert.Equal(t, 1, store.Count())
	assert.True(t, store.Exists("mock"))

	store.ListError = errors.New("injected error")
	_, err = store.List()
	assert.EqualError(t, err, "injected error")
}

func TestGuides(t *testing.T) {
	var buf bytes.Buffer
	ShowCookieExtractionGuide(&buf)
	assert.Contains(t, buf.String(), "SESSDATA")

	buf.Reset()
	ShowQuickExtractGuide(&buf)
	assert.Contains(t, buf.String(), "Cookie")
}
