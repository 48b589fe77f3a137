package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSignup(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantUser string
		wantErr  string
	}{
		{
			name:     "valid",
			username: "alice_01",
			password: "Str0ng!Pass",
			wantUser: "alice_01",
		},
		{
			name:     "normalizes case and whitespace",
			username: "  Alice.Smith  ",
			password: "Str0ng!Pass",
			wantUser: "alice.smith",
		},
		{
			name:     "empty username",
			username: "   ",
			password: "Str0ng!Pass",
			wantErr:  "cannot be empty",
		},
		{
			name:     "username too short",
			username: "abc",
			password: "Str0ng!Pass",
			wantErr:  "between 4 and 32",
		},
		{
			name:     "username bad charset",
			username: "alice-smith",
			password: "Str0ng!Pass",
			wantErr:  "can only contain",
		},
		{
			name:     "username starts with digit",
			username: "1alice",
			password: "Str0ng!Pass",
			wantErr:  "start with a number",
		},
		{
			name:     "username trailing period",
			username: "alice.",
			password: "Str0ng!Pass",
			wantErr:  "start or end with",
		},
		{
			name:     "username consecutive underscores",
			username: "ali__ce",
			password: "Str0ng!Pass",
			wantErr:  "consecutive",
		},
		{
			name:     "username reserved",
			username: "admin",
			password: "Str0ng!Pass",
			wantErr:  "not allowed",
		},
		{
			name:     "username equals password",
			username: "something",
			password: "Something",
			wantErr:  "cannot be the same",
		},
		{
			name:     "password too short",
			username: "alice_01",
			password: "Ab1!",
			wantErr:  "between 8 and 64",
		},
		{
			name:     "password low complexity",
			username: "alice_01",
			password: "onlylowercase",
			wantErr:  "at least 3 of",
		},
		{
			name:     "password too common",
			username: "alice_01",
			password: "Trustno1",
			wantErr:  "too common",
		},
		{
			name:     "password repeated run",
			username: "alice_01",
			password: "Aa1!aaaaaaa",
			wantErr:  "repetitive",
		},
		{
			name:     "password keyboard sequence",
			username: "alice_01",
			password: "Qwertyuiop1!",
			wantErr:  "keyboard patterns",
		},
		{
			name:     "password contains username",
			username: "alice_01",
			password: "XXalice_01!9",
			wantErr:  "contain your username",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateSignup(tt.username, tt.password)
			if tt.wantErr != "" {
				require.Error(t, err)
				var formatErr *FormatError
				require.ErrorAs(t, err, &formatErr)
				assert.Contains(t, formatErr.Reason, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, got)
		})
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("Str0ng!Pass")
	require.NoError(t, err)
	assert.NotEqual(t, "Str0ng!Pass", hash)

	require.NoError(t, ComparePassword(hash, "Str0ng!Pass"))
	assert.Error(t, ComparePassword(hash, "WrongPass1!"))
}
