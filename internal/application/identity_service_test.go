package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vstyler/internal/domain"
)

func TestIdentityResolver_Resolve(t *testing.T) {
	client := &MockGenerationClient{identityFn: func(int) (string, error) {
		return "  sharp jawline, olive undertone \n", nil
	}}
	metrics := &recordingMetrics{}
	resolver := NewIdentityResolver(client, domain.NewPromptComposer(""), metrics)

	refs := []domain.MediaReference{media("a"), media("b"), media("c")}
	dna := resolver.Resolve(context.Background(), refs)

	assert.Equal(t, "sharp jawline, olive undertone", dna)
	calls := client.IdentityCalls()
	require.Len(t, calls, 1, "すべての参照画像を1回の呼び出しで送信する必要があります")
	assert.Len(t, calls[0].Parts, 2+len(refs))
	assert.Equal(t, []bool{true}, metrics.identities)
}

func TestIdentityResolver_FailureDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"リモート失敗", errRemote},
		{"APIキー無効", errCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockGenerationClient{identityFn: func(int) (string, error) {
				return "", tt.err
			}}
			metrics := &recordingMetrics{}
			resolver := NewIdentityResolver(client, domain.NewPromptComposer(""), metrics)

			dna := resolver.Resolve(context.Background(), []domain.MediaReference{media("a")})
			assert.Empty(t, dna)
			assert.Equal(t, []bool{false}, metrics.identities)
		})
	}
}

func TestIdentityResolver_NoReferences(t *testing.T) {
	client := &MockGenerationClient{}
	resolver := NewIdentityResolver(client, domain.NewPromptComposer(""), nil)

	assert.Empty(t, resolver.Resolve(context.Background(), nil))
	assert.Empty(t, client.IdentityCalls())
}
