package scope

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/purku/config"
	"github.com/yairfalse/purku/types"
)

// fakeResolver resolves every account except those listed as broken.
type fakeResolver struct {
	broken map[string]bool
}

func (r *fakeResolver) Resolve(_ context.Context, accountID string) (types.Credentials, error) {
	if r.broken[accountID] {
		return types.Credentials{}, fmt.Errorf("no credentials for %s", accountID)
	}
	return types.Credentials{AccountID: accountID}, nil
}

func newTestEnumerator(broken ...string) *Enumerator {
	b := make(map[string]bool)
	for _, id := range broken {
		b[id] = true
	}
	return NewEnumerator(&fakeResolver{broken: b}, zerolog.Nop())
}

func TestEnumerate_CartesianProduct(t *testing.T) {
	e := newTestEnumerator()

	scopes, err := e.Enumerate(context.Background(),
		[]string{"111111111111", "222222222222"},
		[]string{"us-east-1", "eu-west-1"},
		false)
	require.NoError(t, err)

	assert.Equal(t, []types.Scope{
		{AccountID: "111111111111", Region: "us-east-1"},
		{AccountID: "111111111111", Region: "eu-west-1"},
		{AccountID: "222222222222", Region: "us-east-1"},
		{AccountID: "222222222222", Region: "eu-west-1"},
	}, scopes)
}

func TestEnumerate_GlobalCollapsesRegions(t *testing.T) {
	e := newTestEnumerator()

	scopes, err := e.Enumerate(context.Background(),
		[]string{"111111111111"},
		[]string{"us-east-1", "eu-west-1", "ap-south-1"},
		true)
	require.NoError(t, err)

	assert.Equal(t, []types.Scope{
		{AccountID: "111111111111", Region: GlobalRegion},
	}, scopes)
}

func TestEnumerate_UnresolvableAccountContributesZeroScopes(t *testing.T) {
	e := newTestEnumerator("222222222222")

	scopes, err := e.Enumerate(context.Background(),
		[]string{"111111111111", "222222222222"},
		[]string{"us-east-1"},
		false)
	require.NoError(t, err)

	assert.Equal(t, []types.Scope{
		{AccountID: "111111111111", Region: "us-east-1"},
	}, scopes)
}

func TestEnumerate_Deduplicates(t *testing.T) {
	e := newTestEnumerator()

	scopes, err := e.Enumerate(context.Background(),
		[]string{"111111111111", "111111111111"},
		[]string{"us-east-1", "us-east-1"},
		false)
	require.NoError(t, err)
	assert.Len(t, scopes, 1)
}

func TestEnumerate_EmptySelection(t *testing.T) {
	e := newTestEnumerator()

	scopes, err := e.Enumerate(context.Background(),
		[]string{"111111111111"}, nil, false)
	require.NoError(t, err)
	assert.Empty(t, scopes)
}

func TestParseSelection(t *testing.T) {
	available := []string{"us-east-1", "us-west-2", "eu-west-1", "ap-south-1"}

	tests := []struct {
		name    string
		sel     config.Selection
		want    []string
		wantErr bool
	}{
		{
			name: "all",
			sel:  config.Selection{Raw: "all"},
			want: available,
		},
		{
			name: "range",
			sel:  config.Selection{Raw: "2-4"},
			want: []string{"us-west-2", "eu-west-1", "ap-south-1"},
		},
		{
			name: "comma list",
			sel:  config.Selection{Raw: "us-east-1, eu-west-1"},
			want: []string{"us-east-1", "eu-west-1"},
		},
		{
			name: "explicit list",
			sel:  config.Selection{List: []string{"ap-south-1", "us-east-1"}},
			want: []string{"ap-south-1", "us-east-1"},
		},
		{
			name: "explicit list deduplicates",
			sel:  config.Selection{List: []string{"us-east-1", "us-east-1"}},
			want: []string{"us-east-1"},
		},
		{
			name: "empty selection yields nothing",
			sel:  config.Selection{},
			want: nil,
		},
		{
			name:    "range out of bounds",
			sel:     config.Selection{Raw: "3-9"},
			wantErr: true,
		},
		{
			name:    "unknown region",
			sel:     config.Selection{Raw: "mars-north-1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelection(tt.sel, available)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigResolver_SecretFromEnv(t *testing.T) {
	t.Setenv("PURKU_TEST_SECRET", "s3cret")

	r := NewConfigResolver([]config.Account{
		{ID: "111111111111", AccessKey: "AKIAEXAMPLE", SecretKeyEnv: "PURKU_TEST_SECRET"},
	})

	creds, err := r.Resolve(context.Background(), "111111111111")
	require.NoError(t, err)
	assert.Equal(t, "AKIAEXAMPLE", creds.AccessKey)
	assert.Equal(t, "s3cret", creds.SecretKey)
}

func TestConfigResolver_EmptyEnvFails(t *testing.T) {
	t.Setenv("PURKU_TEST_SECRET", "")

	r := NewConfigResolver([]config.Account{
		{ID: "111111111111", AccessKey: "AKIAEXAMPLE", SecretKeyEnv: "PURKU_TEST_SECRET"},
	})

	_, err := r.Resolve(context.Background(), "111111111111")
	assert.Error(t, err)
}

func TestConfigResolver_UnknownAccount(t *testing.T) {
	r := NewConfigResolver(nil)
	_, err := r.Resolve(context.Background(), "999999999999")
	assert.Error(t, err)
}

func TestConfigResolver_DefaultChain(t *testing.T) {
	r := NewConfigResolver([]config.Account{{ID: "111111111111"}})

	creds, err := r.Resolve(context.Background(), "111111111111")
	require.NoError(t, err)
	assert.Empty(t, creds.AccessKey)
	assert.Empty(t, creds.SecretKey)
}
