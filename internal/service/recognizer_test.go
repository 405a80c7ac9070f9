package service_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee-studio/doresore-server/internal/service"
)

func TestDecodePhoto(t *testing.T) {
	raw := []byte("jpeg-bytes")
	encoded := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "plain base64", input: encoded},
		{name: "data url", input: "data:image/jpeg;base64," + encoded},
		{name: "surrounding spaces", input: "  " + encoded + "\n"},
		{name: "empty", input: "", wantErr: true},
		{name: "data url without comma", input: "data:image/jpeg;base64", wantErr: true},
		{name: "not base64", input: "%%%", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evidence, photo, err := service.DecodePhoto(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, encoded, evidence)
			assert.Equal(t, raw, photo)
		})
	}
}
