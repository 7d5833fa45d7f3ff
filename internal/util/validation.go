package util

import (
	"fmt"
	"strings"

	"github.com/adhiadhi/oxeye-server/internal/config"
	apperrors "github.com/adhiadhi/oxeye-server/internal/errors"
)

// CodePrefix is the prefix of every connection code.
const CodePrefix = "oxeye-"

// ValidatePlayerName checks a platform username: 1-16 characters, only
// alphanumerics and underscores.
func ValidatePlayerName(name string) error {
	if name == "" {
		return apperrors.ValidationError("Player name cannot be empty")
	}
	if len(name) > config.MaxPlayerNameLen {
		return apperrors.ValidationError(
			fmt.Sprintf("Player name too long (max %d characters, got %d)", config.MaxPlayerNameLen, len(name)))
	}
	for _, c := range name {
		if !isAlphanumeric(c) && c != '_' {
			return apperrors.ValidationError("Player name contains invalid characters (only alphanumeric and underscore allowed)")
		}
	}
	return nil
}

// ValidateCode checks the "oxeye-XXXXXX" connection code format.
func ValidateCode(code string) error {
	if code == "" {
		return apperrors.ValidationError("Connection code cannot be empty")
	}
	if !strings.HasPrefix(code, CodePrefix) || len(code) < len(CodePrefix)+6 {
		return apperrors.ValidationError("Connection code has invalid format (expected 'oxeye-XXXXXX')")
	}
	for _, c := range code[len(CodePrefix):] {
		if !isAlphanumeric(c) {
			return apperrors.ValidationError("Connection code has invalid format (expected 'oxeye-XXXXXX')")
		}
	}
	return nil
}

// ValidateServerName checks the user-provided server name.
func ValidateServerName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperrors.ValidationError("Server name cannot be empty")
	}
	if len(name) > config.MaxServerNameLen {
		return apperrors.ValidationError(
			fmt.Sprintf("Server name too long (max %d characters, got %d)", config.MaxServerNameLen, len(name)))
	}
	return nil
}

// ValidateTextureHash checks a 64-character hex content hash.
func ValidateTextureHash(hash string) error {
	if hash == "" {
		return apperrors.ValidationError("Texture hash cannot be empty")
	}
	if len(hash) != 64 {
		return apperrors.ValidationError("Texture hash has invalid format (expected 64-character hex string)")
	}
	for _, c := range hash {
		if !isHexDigit(c) {
			return apperrors.ValidationError("Texture hash has invalid format (expected 64-character hex string)")
		}
	}
	return nil
}

// ValidateSkinData checks a decoded skin payload against the size cap.
func ValidateSkinData(data []byte, maxBytes int64) error {
	if len(data) == 0 {
		return apperrors.ValidationError("Skin data cannot be empty")
	}
	if int64(len(data)) > maxBytes {
		return apperrors.ValidationError(
			fmt.Sprintf("Skin data too large (max %d bytes, got %d)", maxBytes, len(data)))
	}
	return nil
}

// ValidateSyncList checks a full roster replacement payload.
func ValidateSyncList(players []string, maxPlayers int) error {
	if len(players) > maxPlayers {
		return apperrors.ValidationError(
			fmt.Sprintf("Player list too large (max %d players, got %d)", maxPlayers, len(players)))
	}
	for _, p := range players {
		if err := ValidatePlayerName(p); err != nil {
			return err
		}
	}
	return nil
}

func isAlphanumeric(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
