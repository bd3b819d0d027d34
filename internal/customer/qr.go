package customer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	apperrors "ms-lounge/internal/errors"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// ReferralLink is the bot deep link that registers a new user with userID as referrer.
func (s *CustomerService) ReferralLink(userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=ref_%d", s.Settings.BotUsername, userID)
}

// ReferralQR renders the user's referral link as a PNG QR code.
func (s *CustomerService) ReferralQR(ctx context.Context, userID int64) ([]byte, error) {
	u, err := s.DB.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, apperrors.NewAppError(apperrors.ErrCodeForbidden, fmt.Sprintf("user %d is deactivated", userID), apperrors.ErrForbidden)
	}

	png, err := qrcode.Encode(s.ReferralLink(u.ID), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode referral qr for user %d: %w", userID, err)
	}
	return png, nil
}

// ParseReferralPayload extracts the referrer id from a "ref_<id>" start payload.
func ParseReferralPayload(payload string) (int64, bool) {
	digits, ok := strings.CutPrefix(payload, "ref_")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
