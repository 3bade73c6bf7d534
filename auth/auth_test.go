package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pair-chat/errors"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "MyPasswordIsT00Safe!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	// Wrong password
	match, err = ComparePassword("WrongPassword", hash)
	req.NoError(err)
	req.False(match)
}

func TestComparePassword_RejectsMalformedHash(t *testing.T) {
	for _, hash := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA", "$argon2id$v=x$m=1,t=1,p=1$c2FsdA$aGFzaA"} {
		_, err := ComparePassword("whatever", hash)
		require.ErrorIs(t, err, ErrInvalidHash, hash)
	}
}

func TestRegistrationValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{"Valid request", RegisterRequest{"Alice", "test@example.com", "ComplexPass123!"}, false},
		{"Missing full name", RegisterRequest{"", "test@example.com", "ComplexPass123!"}, true},
		{"Invalid email", RegisterRequest{"Alice", "notanemail", "ComplexPass123!"}, true},
		{"Password too short", RegisterRequest{"Alice", "test@example.com", "Short1!"}, true},
		{"Missing digit", RegisterRequest{"Alice", "test@example.com", "NoDigitPass!"}, true},
		{"Missing special char", RegisterRequest{"Alice", "test@example.com", "NoSpecialChar123"}, true},
		{"Missing uppercase", RegisterRequest{"Alice", "test@example.com", "nouppercase123!"}, true},
		{"Password too long", RegisterRequest{"Alice", "test@example.com", strings.Repeat("a", 73)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(tt.req)
			if tt.wantErr {
				require.ErrorIs(t, err, errors.ErrValidation)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoginValidation(t *testing.T) {
	require.NoError(t, ValidateLogin(LoginRequest{Email: "a@example.com", Password: "x"}))
	require.ErrorIs(t, ValidateLogin(LoginRequest{Email: "a@example.com"}), errors.ErrValidation)
	require.ErrorIs(t, ValidateLogin(LoginRequest{Email: "nope", Password: "x"}), errors.ErrValidation)
}

func TestSendValidation(t *testing.T) {
	limits := SendLimits{MaxBodyLength: 5, MaxAttachments: 1}
	tests := []struct {
		name    string
		req     SendRequest
		wantErr bool
	}{
		{"Body only", SendRequest{SenderID: "alice", Body: "hello"}, false},
		{"Attachment only", SendRequest{SenderID: "alice", Attachments: []AttachmentSpec{{Name: "a.pdf", Size: 10}}}, false},
		{"Limit counts characters", SendRequest{SenderID: "alice", Body: "héllö"}, false},
		{"Missing sender", SendRequest{Body: "hello"}, true},
		{"Nothing to send", SendRequest{SenderID: "alice"}, true},
		{"Blank body", SendRequest{SenderID: "alice", Body: " \n\t "}, true},
		{"Empty attachment list", SendRequest{SenderID: "alice", Attachments: []AttachmentSpec{}}, true},
		{"Body too long", SendRequest{SenderID: "alice", Body: "hello!"}, true},
		{"Too many attachments", SendRequest{SenderID: "alice", Attachments: []AttachmentSpec{{Name: "a", Size: 1}, {Name: "b", Size: 1}}}, true},
		{"Unnamed attachment", SendRequest{SenderID: "alice", Attachments: []AttachmentSpec{{Size: 1}}}, true},
		{"Negative size", SendRequest{SenderID: "alice", Attachments: []AttachmentSpec{{Name: "a", Size: -1}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSend(tt.req, limits)
			if tt.wantErr {
				require.ErrorIs(t, err, errors.ErrValidation)
			} else {
				require.NoError(t, err)
			}
		})
	}

	// Zero limits leave body and attachments unbounded
	require.NoError(t, ValidateSend(SendRequest{SenderID: "alice", Body: strings.Repeat("a", 10_000)}, SendLimits{}))
}

func TestTokenManager(t *testing.T) {
	req := require.New(t)
	manager := NewTokenManager("a-test-secret-that-is-long-enough", time.Hour)

	token, err := manager.Generate("user-1", []string{"user"})
	req.NoError(err)

	claims, err := manager.Validate(token)
	req.NoError(err)
	req.Equal("user-1", claims.UserID)
	req.Equal([]string{"user"}, claims.Roles)

	// A token signed with another secret is rejected
	other := NewTokenManager("another-secret-entirely-different", time.Hour)
	_, err = other.Validate(token)
	req.Error(err)
}

func TestTokenManager_Expired(t *testing.T) {
	manager := NewTokenManager("a-test-secret-that-is-long-enough", time.Minute)
	manager.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := manager.Generate("user-1", nil)
	require.NoError(t, err)

	manager.now = time.Now
	_, err = manager.Validate(token)
	require.Error(t, err)
}

func TestIdentity(t *testing.T) {
	req := require.New(t)
	req.Empty(UserIDFromContext(context.Background()))

	ctx := WithIdentity(context.Background(), &CustomClaims{UserID: "bob"})
	req.Equal("bob", UserIDFromContext(ctx))

	token, ok := BearerToken("Bearer abc.def")
	req.True(ok)
	req.Equal("abc.def", token)
	_, ok = BearerToken("Basic abc")
	req.False(ok)
	_, ok = BearerToken("Bearer ")
	req.False(ok)
}

// BenchmarkHashPassword measures the CPU and memory cost of a hash
func BenchmarkHashPassword(b *testing.B) {
	for range b.N {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
