package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/aditus/internal/common"
	"github.com/ternarybob/aditus/internal/models"
	"github.com/ternarybob/arbor"
)

// accountSeedFile is the on-disk TOML shape for account seed files.
// Secrets arrive in plaintext and are sealed before they touch the store.
type accountSeedFile struct {
	Accounts []accountSeed `toml:"accounts"`
}

type accountSeed struct {
	Name              string              `toml:"name"`
	LoginURL          string              `toml:"login_url"`
	Username          string              `toml:"username"`
	Password          string              `toml:"password"`
	SecondFactor      string              `toml:"second_factor"`
	SecondFactorKind  string              `toml:"second_factor_kind"` // "totp" or "dob"
	SelectorOverrides map[string][]string `toml:"selector_overrides"`
	Active            bool                `toml:"active"`
}

// LoadAccountsFromFiles imports account seed files (*.toml) from dirPath,
// sealing secrets with the given box. Existing accounts (matched by name)
// are updated in place; their identifiers are preserved.
func (m *Manager) LoadAccountsFromFiles(ctx context.Context, dirPath string, box *common.SecretBox, logger arbor.ILogger) error {
	if dirPath == "" {
		return nil
	}
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		logger.Debug().Str("dir", dirPath).Msg("Account seed directory does not exist, skipping")
		return nil
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read account seed directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}

		path := filepath.Join(dirPath, entry.Name())
		n, err := m.loadAccountFile(ctx, path, box)
		if err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("Failed to load account seed file")
			continue
		}
		loaded += n
	}

	if loaded > 0 {
		logger.Info().Int("count", loaded).Str("dir", dirPath).Msg("Accounts loaded from seed files")
	}
	return nil
}

func (m *Manager) loadAccountFile(ctx context.Context, path string, box *common.SecretBox) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}

	var file accountSeedFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("failed to parse file: %w", err)
	}

	loaded := 0
	for _, seed := range file.Accounts {
		if seed.Name == "" || seed.Username == "" || seed.LoginURL == "" {
			m.logger.Warn().Str("file", path).Msg("Skipping seed account with missing name/username/login_url")
			continue
		}

		kind := models.SecretKindTOTP
		if strings.EqualFold(seed.SecondFactorKind, string(models.SecretKindDOB)) {
			kind = models.SecretKindDOB
		}

		passwordSealed, err := box.Seal(seed.Password)
		if err != nil {
			return loaded, fmt.Errorf("failed to seal password for %s: %w", seed.Name, err)
		}
		secondSealed, err := box.Seal(seed.SecondFactor)
		if err != nil {
			return loaded, fmt.Errorf("failed to seal second factor for %s: %w", seed.Name, err)
		}

		// Preserve the identifier of an existing account with the same name.
		existing, err := m.account.GetByName(ctx, seed.Name)
		if err != nil {
			return loaded, err
		}

		account := &models.Account{
			Name:               seed.Name,
			LoginURL:           seed.LoginURL,
			Username:           seed.Username,
			PasswordSealed:     passwordSealed,
			SecondFactorSealed: secondSealed,
			SecondFactorKind:   kind,
			SelectorOverrides:  seed.SelectorOverrides,
			Active:             seed.Active,
		}
		if existing != nil {
			account.ID = existing.ID
			account.CreatedAt = existing.CreatedAt
		} else {
			account.ID = common.NewAccountID()
		}

		if err := m.account.Save(ctx, account); err != nil {
			return loaded, err
		}
		loaded++
	}

	return loaded, nil
}
