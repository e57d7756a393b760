package services_test

import (
	"testing"

	"github.com/stampcard/stampcard-api/internal/apperrors"
	"github.com/stampcard/stampcard-api/internal/logger"
	"github.com/stampcard/stampcard-api/internal/services"
	"github.com/stretchr/testify/assert"
)

func init() {
	logger.InitLogger("test", "error")
}

func TestStaticTokenValidator_Authorize(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		token   string
		wantErr bool
	}{
		{
			name:   "accepts matching token",
			secret: "super-secret",
			token:  "super-secret",
		},
		{
			name:    "rejects wrong token",
			secret:  "super-secret",
			token:   "guess",
			wantErr: true,
		},
		{
			name:    "rejects empty token",
			secret:  "super-secret",
			token:   "",
			wantErr: true,
		},
		{
			name:    "rejects everything when secret is unset",
			secret:  "",
			token:   "",
			wantErr: true,
		},
		{
			name:    "comparison is exact, not prefix",
			secret:  "super-secret",
			token:   "super-secret-and-more",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := services.NewStaticTokenValidator(tt.secret)
			err := validator.Authorize(tt.token)

			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
