package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akin/akin/internal/platform/auth"
)

type flakyStorage struct {
	*MemoryStorage
	saveErr   error
	deleteErr error
	loadErr   error
}

func (f *flakyStorage) Load(ctx context.Context, key string) (Record, error) {
	if f.loadErr != nil {
		return Record{}, f.loadErr
	}
	return f.MemoryStorage.Load(ctx, key)
}

func (f *flakyStorage) Save(ctx context.Context, key string, rec Record) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryStorage.Save(ctx, key, rec)
}

func (f *flakyStorage) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.MemoryStorage.Delete(ctx, key)
}

var (
	testUser   = User{ID: "u-1", Name: "Maria Teresa", Email: "maria@akin.ao", Role: auth.RoleReceptionist}
	testTokens = Tokens{AccessToken: "access-1", RefreshToken: "refresh-1"}
)

func TestOpen_Empty(t *testing.T) {
	s, err := Open(context.Background(), NewMemoryStorage(), "k")
	require.NoError(t, err)
	assert.False(t, s.State().IsAuthenticated)
	assert.Empty(t, s.Tokens().AccessToken)
}

func TestOpen_Rehydrates(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.Save(ctx, "k", Record{User: testUser, Tokens: testTokens}))

	s, err := Open(ctx, storage, "k")
	require.NoError(t, err)

	st := s.State()
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, testUser, st.User)
	assert.Equal(t, testTokens, st.Tokens)
}

func TestOpen_IncompleteRecordStartsLoggedOut(t *testing.T) {
	ctx := context.Background()
	for name, rec := range map[string]Record{
		"no token": {User: testUser},
		"no user":  {Tokens: testTokens},
	} {
		t.Run(name, func(t *testing.T) {
			storage := NewMemoryStorage()
			require.NoError(t, storage.Save(ctx, "k", rec))
			s, err := Open(ctx, storage, "k")
			require.NoError(t, err)
			assert.False(t, s.State().IsAuthenticated)
		})
	}
}

func TestOpen_StorageError(t *testing.T) {
	storage := &flakyStorage{MemoryStorage: NewMemoryStorage(), loadErr: errors.New("disk gone")}
	_, err := Open(context.Background(), storage, "k")
	assert.Error(t, err)
}

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	s, err := Open(ctx, storage, "k")
	require.NoError(t, err)

	require.NoError(t, s.Login(ctx, testTokens, testUser))
	assert.True(t, s.State().IsAuthenticated)

	rec, err := storage.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, testTokens, rec.Tokens)
	assert.Equal(t, testUser, rec.User)

	require.NoError(t, s.Logout(ctx))
	assert.False(t, s.State().IsAuthenticated)
	assert.Empty(t, s.State().User.ID)
	_, err = storage.Load(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogin_RequiresToken(t *testing.T) {
	s, err := Open(context.Background(), NewMemoryStorage(), "k")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Login(context.Background(), Tokens{}, testUser), ErrMissingToken)
	assert.False(t, s.State().IsAuthenticated)
}

func TestLogin_FailedPersistLeavesMemoryUntouched(t *testing.T) {
	ctx := context.Background()
	storage := &flakyStorage{MemoryStorage: NewMemoryStorage(), saveErr: errors.New("write failed")}
	s, err := Open(ctx, storage, "k")
	require.NoError(t, err)

	assert.Error(t, s.Login(ctx, testTokens, testUser))
	assert.False(t, s.State().IsAuthenticated)
}

func TestLogout_FailedDeleteKeepsSession(t *testing.T) {
	ctx := context.Background()
	storage := &flakyStorage{MemoryStorage: NewMemoryStorage()}
	s, err := Open(ctx, storage, "k")
	require.NoError(t, err)
	require.NoError(t, s.Login(ctx, testTokens, testUser))

	storage.deleteErr = errors.New("delete failed")
	assert.Error(t, s.Logout(ctx))
	assert.True(t, s.State().IsAuthenticated)

	_, err = storage.Load(ctx, "k")
	assert.NoError(t, err)
}

func TestUpdateTokens(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, NewMemoryStorage(), "k")
	require.NoError(t, err)

	assert.ErrorIs(t, s.UpdateTokens(ctx, Tokens{AccessToken: "x"}), ErrNotAuthenticated)

	require.NoError(t, s.Login(ctx, testTokens, testUser))
	require.NoError(t, s.UpdateTokens(ctx, Tokens{AccessToken: "access-2"}))

	st := s.State()
	assert.Equal(t, "access-2", st.Tokens.AccessToken)
	assert.Equal(t, "refresh-1", st.Tokens.RefreshToken, "empty refresh token keeps the previous one")
	assert.True(t, s.accepts("access-2"))
	assert.True(t, s.accepts("access-1"), "previous token accepted during rotation")
	assert.False(t, s.accepts("access-0"))
}

func TestUpdateTokens_PreviousTokenExpires(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, NewMemoryStorage(), "k")
	require.NoError(t, err)
	clock := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	require.NoError(t, s.Login(ctx, testTokens, testUser))
	require.NoError(t, s.UpdateTokens(ctx, Tokens{AccessToken: "access-2"}))
	assert.True(t, s.accepts("access-1"))

	clock = clock.Add(previousGrace)
	assert.False(t, s.accepts("access-1"), "replaced token rejected after the grace window")
	assert.True(t, s.accepts("access-2"))

	require.NoError(t, s.UpdateTokens(ctx, Tokens{AccessToken: "access-3"}))
	assert.False(t, s.accepts("access-1"))
	assert.True(t, s.accepts("access-2"))
}

func TestReload(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	a, err := Open(ctx, storage, "k")
	require.NoError(t, err)
	require.NoError(t, a.Login(ctx, testTokens, testUser))

	b, err := Open(ctx, storage, "k")
	require.NoError(t, err)
	require.NoError(t, b.UpdateTokens(ctx, Tokens{AccessToken: "access-2"}))

	require.NoError(t, a.Reload(ctx))
	assert.Equal(t, "access-2", a.Tokens().AccessToken)
	assert.Equal(t, "refresh-1", a.Tokens().RefreshToken)
	assert.True(t, a.accepts("access-1"), "token held before the reload is in its grace window")

	require.NoError(t, b.Logout(ctx))
	require.NoError(t, a.Reload(ctx))
	assert.False(t, a.State().IsAuthenticated)
	assert.False(t, a.accepts("access-2"))

	broken := &flakyStorage{MemoryStorage: storage, loadErr: errors.New("redis down")}
	c, err := Open(ctx, storage, "k")
	require.NoError(t, err)
	c.storage = broken
	assert.Error(t, c.Reload(ctx))
}

func TestSnapshotsAreImmutable(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, NewMemoryStorage(), "k")
	require.NoError(t, err)
	require.NoError(t, s.Login(ctx, testTokens, testUser))

	before := s.State()
	require.NoError(t, s.UpdateTokens(ctx, Tokens{AccessToken: "access-2"}))
	assert.Equal(t, "access-1", before.Tokens.AccessToken)
}

func TestSetUser(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, NewMemoryStorage(), "k")
	require.NoError(t, err)
	require.NoError(t, s.Login(ctx, testTokens, testUser))

	updated := testUser
	updated.Role = auth.RoleLabChief
	require.NoError(t, s.SetUser(ctx, updated))
	assert.Equal(t, auth.RoleLabChief, s.State().User.Role)

	other := testUser
	other.ID = "u-2"
	assert.Error(t, s.SetUser(ctx, other))
}
