package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateHistory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		history []Message
		wantErr bool
	}{
		{
			name:    "empty history",
			history: nil,
			wantErr: true,
		},
		{
			name:    "single user turn",
			history: []Message{{Role: RoleUser, Content: "hi"}},
			wantErr: false,
		},
		{
			name: "alternating turns ending with user",
			history: []Message{
				{Role: RoleUser, Content: "hi"},
				{Role: RoleAssistant, Content: "hello"},
				{Role: RoleUser, Content: "more"},
			},
			wantErr: false,
		},
		{
			name: "ends with assistant turn",
			history: []Message{
				{Role: RoleUser, Content: "hi"},
				{Role: RoleAssistant, Content: "hello"},
			},
			wantErr: true,
		},
		{
			name: "unknown role",
			history: []Message{
				{Role: "system", Content: "be nice"},
				{Role: RoleUser, Content: "hi"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateHistory(tt.history)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidHistory)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
