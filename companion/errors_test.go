package companion

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"missing key", errors.New("API_KEY_INVALID"), ErrorCredential},
		{"rejected key", errors.New("googleapi: Error 400: API_KEY_INVALID: bad key"), ErrorCredential},
		{"entity not found", errors.New("Requested entity was not found."), ErrorCredential},
		{"wrapped credential", fmt.Errorf("generate content: %w", errors.New("API_KEY_INVALID")), ErrorCredential},
		{"rate limit", errors.New("googleapi: Error 429: resource exhausted"), ErrorTransient},
		{"network", errors.New("dial tcp: connection refused"), ErrorTransient},
		{"nil", nil, ErrorTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyError(tc.err))
		})
	}
}
