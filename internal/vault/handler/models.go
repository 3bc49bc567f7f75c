package handler

import (
	"satvault/internal/vault/models"
)

type createVaultRequest struct {
	PrimaryAddress       string `json:"primary_address"`
	BackupAddress        string `json:"backup_address"`
	InactivityPeriodDays int    `json:"inactivity_period_days"`
}

type depositRequest struct {
	Amount uint64 `json:"amount"`
}

// addMessageRequest carries ciphertext as standard base64 (encoding/json []byte).
type addMessageRequest struct {
	RecipientAddress string `json:"recipient_address"`
	Ciphertext       []byte `json:"ciphertext"`
}

type sealMessageRequest struct {
	RecipientAddress   string `json:"recipient_address"`
	RecipientPublicKey string `json:"recipient_public_key"`
	Plaintext          string `json:"plaintext"`
}

type saveProfileRequest struct {
	Name string `json:"name"`
}

type vaultResponse struct {
	Vault     *models.Vault     `json:"vault"`
	Countdown *models.Countdown `json:"countdown,omitempty"`
}

type activityLogResponse struct {
	Entries []*models.ActivityLogEntry `json:"entries"`
}

type messagesResponse struct {
	Owner    string                     `json:"owner"`
	Messages []*models.EncryptedMessage `json:"messages"`
}

type messageResponse struct {
	Message *models.EncryptedMessage `json:"message"`
}

type profileResponse struct {
	Profile *models.UserProfile `json:"profile"`
}
