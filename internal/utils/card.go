package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/Dan9191/bank-cards/internal/models"
)

const (
	maskPrefix = "**** **** **** "
	fullMask   = "**** **** **** ****"
)

var ten = big.NewInt(10)

// GenerateCardNumber generates a card number with the specified prefix and length.
// The digits are not Luhn-checked.
func GenerateCardNumber(prefix string, length int) (string, error) {
	if length < len(prefix) || length > 19 {
		return "", fmt.Errorf("invalid card number length: %d", length)
	}
	for _, r := range prefix {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("card number prefix must be numeric: %q", prefix)
		}
	}

	var builder strings.Builder
	builder.Grow(length)
	builder.WriteString(prefix)
	for builder.Len() < length {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		builder.WriteByte(byte('0' + n.Int64()))
	}

	return builder.String(), nil
}

// LastFour returns the trailing four digits of a card number
func LastFour(cardNumber string) string {
	if len(cardNumber) < 4 {
		return cardNumber
	}
	return cardNumber[len(cardNumber)-4:]
}

// MaskCardNumber renders a card number for display. Numbers that are not
// exactly 16 characters long are masked completely.
func MaskCardNumber(cardNumber string) (string, error) {
	if cardNumber == "" {
		return "", models.ErrInvalidCardNumber
	}
	if len(cardNumber) != models.CardNumberLength {
		return fullMask, nil
	}
	return maskPrefix + cardNumber[12:], nil
}
