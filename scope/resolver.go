package scope

import (
	"context"
	"fmt"
	"os"

	"github.com/yairfalse/purku/config"
	"github.com/yairfalse/purku/types"
)

// ConfigResolver resolves account credentials from the loaded config,
// reading secrets from the environment when secret_key_env is set.
type ConfigResolver struct {
	accounts map[string]config.Account
}

// NewConfigResolver creates a resolver over the configured accounts.
func NewConfigResolver(accounts []config.Account) *ConfigResolver {
	m := make(map[string]config.Account, len(accounts))
	for _, a := range accounts {
		m[a.ID] = a
	}
	return &ConfigResolver{accounts: m}
}

// Resolve implements CredentialResolver.
func (r *ConfigResolver) Resolve(_ context.Context, accountID string) (types.Credentials, error) {
	acct, ok := r.accounts[accountID]
	if !ok {
		return types.Credentials{}, fmt.Errorf("account %s not configured", accountID)
	}

	creds := types.Credentials{
		AccountID: acct.ID,
		AccessKey: acct.AccessKey,
		SecretKey: acct.SecretKey,
	}

	if acct.SecretKeyEnv != "" {
		secret := os.Getenv(acct.SecretKeyEnv)
		if secret == "" {
			return types.Credentials{}, fmt.Errorf("env %s is empty for account %s", acct.SecretKeyEnv, acct.ID)
		}
		creds.SecretKey = secret
	}

	if creds.AccessKey != "" && creds.SecretKey == "" {
		return types.Credentials{}, fmt.Errorf("account %s has access_key but no secret", acct.ID)
	}

	return creds, nil
}
