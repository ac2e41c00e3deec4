package config

import (
	"errors"
	"fmt"
	"strings"
)

// maxPhotosPerDog coincide con el CHECK de la tabla dogs.
const maxPhotosPerDog = 5

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range (got %d)", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.APIPrefix, "/") {
		return fmt.Errorf("server.api_prefix must start with / (got %q)", c.Server.APIPrefix)
	}

	if !c.Auth.DevMode && strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth.jwt_secret is required unless auth.dev_mode is enabled")
	}

	if err := c.Storage.validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}

func (s *StorageConfig) validate() error {
	if s.MaxImageSize <= 0 {
		return fmt.Errorf("max_image_size must be > 0 (got %d)", s.MaxImageSize)
	}
	if s.MaxCertificateSize <= 0 {
		return fmt.Errorf("max_certificate_size must be > 0 (got %d)", s.MaxCertificateSize)
	}
	if s.MaxPhotosPerDog < 1 || s.MaxPhotosPerDog > maxPhotosPerDog {
		return fmt.Errorf("max_photos_per_dog must be between 1 and %d (got %d)", maxPhotosPerDog, s.MaxPhotosPerDog)
	}
	if len(s.ImageTypes()) == 0 {
		return errors.New("allowed_image_types must not be empty")
	}
	if !s.InMemory() && strings.TrimSpace(s.ServiceKey) == "" {
		return errors.New("service_key is required when url is set")
	}
	return nil
}
