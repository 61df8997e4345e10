package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/deskfs/pkg/vfs"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if _, err := vfs.ParseMode(cfg.Filesystem.RootMode); err != nil {
		return fmt.Errorf("filesystem.root_mode: %w", err)
	}

	if cfg.Sweeper.TrashRetention > 0 && cfg.Sweeper.TrashRetention < cfg.Sweeper.Interval {
		return fmt.Errorf("sweeper: trash_retention (%s) is shorter than interval (%s)",
			cfg.Sweeper.TrashRetention, cfg.Sweeper.Interval)
	}

	s3 := cfg.Snapshot.S3
	if s3.Bucket != "" && s3.Region == "" {
		return fmt.Errorf("snapshot.s3: region is required when bucket is set")
	}
	if (s3.AccessKeyID == "") != (s3.SecretAccessKey == "") {
		return fmt.Errorf("snapshot.s3: access_key_id and secret_access_key must be set together")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
