/*
Package randx provides functions for generating cryptographically secure random numbers and unique identifiers.

It is primarily used to generate fixed-length Base62 encoded device identifiers for the
real-time channel handshake and UUID correlation identifiers for emitted events.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// DeviceIDPrefix is the required prefix for client-generated device IDs.
	DeviceIDPrefix = "device_"

	// DeviceIDRawLength is the fixed length of the Base62 part of the device ID.
	DeviceIDRawLength = 6
)

// base62String generates a Base62 string of the given length using crypto/rand.
func base62String(length int) (string, error) {
	result := make([]byte, length)

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %v", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// DeviceID generates a device identifier with the "device_" prefix and a random
// Base62 suffix, used to distinguish connections in the channel handshake.
func DeviceID() (string, error) {
	raw, err := base62String(DeviceIDRawLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate device id: %w", err)
	}

	return DeviceIDPrefix + raw, nil
}

// EventID generates a standard UUID v4 string used to correlate emitted events in logs.
func EventID() string {
	return uuid.New().String()
}

// IsValidDeviceID checks if the given string is a valid device ID.
// Validity criteria include: the "device_" prefix followed by exactly
// DeviceIDRawLength characters from the Base62Chars set.
func IsValidDeviceID(id string) bool {
	if !strings.HasPrefix(id, DeviceIDPrefix) {
		return false
	}

	rawID := id[len(DeviceIDPrefix):]

	if len(rawID) != DeviceIDRawLength {
		return false
	}

	for _, char := range rawID {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}
